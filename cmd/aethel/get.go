package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bkase/aethel/pkg/adapters/fs"
	"github.com/bkase/aethel/pkg/core"
)

var (
	getUUID   string
	getFormat string
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Retrieve an artifact",
	Long:  `Print an artifact as Markdown (default) or as a JSON object with --format json.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if getFormat != "markdown" && getFormat != "json" {
			return fmt.Errorf("invalid --format %q (want markdown or json)", getFormat)
		}
		id, err := parseID(getUUID)
		if err != nil {
			return err
		}

		v, err := openVault(cmd)
		if err != nil {
			return err
		}
		defer v.Close()

		doc, relPath, err := v.Service.Get(cmd.Context(), id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if getFormat == "json" {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			return encoder.Encode(artifactJSON{
				Frontmatter: frontmatter(doc),
				Content:     doc.Body,
				Path:        relPath,
			})
		}

		data, err := fs.Serialize(doc)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	},
}

type artifactJSON struct {
	Frontmatter map[string]any `json:"frontmatter"`
	Content     string         `json:"content"`
	Path        string         `json:"path"`
}

func frontmatter(doc core.Document) map[string]any {
	m := map[string]any{
		"uuid":          doc.ID.String(),
		"type":          doc.Type,
		"createdAt":     doc.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updatedAt":     doc.UpdatedAt.UTC().Format(time.RFC3339Nano),
		"tags":          doc.Tags,
		"schemaVersion": doc.SchemaVersion,
	}
	for k, v := range doc.Metadata {
		m[k] = v
	}
	return m
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().StringVar(&getUUID, "uuid", "", "UUID of the artifact")
	getCmd.Flags().StringVar(&getFormat, "format", "markdown", "Output format: markdown or json")
	getCmd.MarkFlagRequired("uuid")
}
