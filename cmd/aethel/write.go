package main

import (
	"github.com/spf13/cobra"
)

var (
	writeUUID    string
	writeType    string
	writeContent string
	writeTitle   string
	writeFields  []string
)

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write content to an artifact (create new or append to existing)",
	Long: `With --uuid, append the content to that artifact. Without it, create a
new artifact of --type with the content as body and print its UUID.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if writeUUID != "" {
			return appendArtifact(cmd, writeUUID, writeContent)
		}
		return createArtifact(cmd, writeType, writeTitle, writeContent, writeFields, nil)
	},
}

func init() {
	rootCmd.AddCommand(writeCmd)
	writeCmd.Flags().StringVar(&writeUUID, "uuid", "", "UUID of an existing artifact to append to")
	writeCmd.Flags().StringVarP(&writeType, "type", "t", "", "Artifact type (required for new artifacts)")
	writeCmd.Flags().StringVar(&writeContent, "content", "", "Content to write")
	writeCmd.Flags().StringVar(&writeTitle, "title", "", "Title (new artifacts only)")
	writeCmd.Flags().StringArrayVarP(&writeFields, "field", "f", nil, "Additional header field as key=value (new artifacts only)")
	writeCmd.MarkFlagRequired("content")
}
