package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bkase/aethel/pkg/core"
)

var (
	newType   string
	newTitle  string
	newBody   string
	newFields []string
	newTags   []string
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new artifact",
	Long:  `Create a new artifact of the given type and print its UUID.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return createArtifact(cmd, newType, newTitle, newBody, newFields, newTags)
	},
}

func createArtifact(cmd *cobra.Command, typ, title, body string, pairs, tags []string) error {
	fields, err := parseFields(pairs)
	if err != nil {
		return err
	}

	v, err := openVault(cmd)
	if err != nil {
		return err
	}
	defer v.Close()

	doc, _, err := v.Service.Create(cmd.Context(), core.CreateRequest{
		Type:   typ,
		Title:  title,
		Body:   body,
		Tags:   tags,
		Fields: fields,
	})
	if err != nil {
		return err
	}

	// Only the UUID, for scripting.
	fmt.Fprintln(cmd.OutOrStdout(), doc.ID)
	return nil
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringVarP(&newType, "type", "t", "", "Artifact type (e.g. note or core_note/note)")
	newCmd.Flags().StringVar(&newTitle, "title", "", "Artifact title")
	newCmd.Flags().StringVar(&newBody, "body", "", "Artifact body")
	newCmd.Flags().StringArrayVarP(&newFields, "field", "f", nil, "Additional header field as key=value (repeatable)")
	newCmd.Flags().StringSliceVar(&newTags, "tag", nil, "Tag (repeatable)")
	newCmd.MarkFlagRequired("type")
}
