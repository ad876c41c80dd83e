package main

import (
	"github.com/spf13/cobra"
)

var (
	growUUID    string
	growContent string
)

var growCmd = &cobra.Command{
	Use:   "grow",
	Short: "Append content to an existing artifact",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return appendArtifact(cmd, growUUID, growContent)
	},
}

// appendArtifact is silent on success.
func appendArtifact(cmd *cobra.Command, rawID, content string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}

	v, err := openVault(cmd)
	if err != nil {
		return err
	}
	defer v.Close()

	_, err = v.Service.Append(cmd.Context(), id, content)
	return err
}

func init() {
	rootCmd.AddCommand(growCmd)
	growCmd.Flags().StringVar(&growUUID, "uuid", "", "UUID of the artifact")
	growCmd.Flags().StringVar(&growContent, "content", "", "Content to append")
	growCmd.MarkFlagRequired("uuid")
	growCmd.MarkFlagRequired("content")
}
