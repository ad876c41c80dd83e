package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bkase/aethel/pkg/core"
)

var schemaJSON bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect extensions and resolved schemas",
}

var schemaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every resolved schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry(cmd)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(reg.ResolvedSchemas))
		for name := range reg.ResolvedSchemas {
			names = append(names, name)
		}
		sort.Strings(names)

		if schemaJSON {
			return printJSON(cmd, names)
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		for _, d := range reg.Diagnostics {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %s\n", d.Item, d.Message)
		}
		return nil
	},
}

var schemaShowCmd = &cobra.Command{
	Use:   "show <type>",
	Short: "Show the resolved fields of a schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry(cmd)
		if err != nil {
			return err
		}

		fields, ok := reg.Resolve(args[0])
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrSchemaNotFound, core.QualifiedType(args[0]))
		}
		if schemaJSON {
			return printJSON(cmd, fields)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE\tREQUIRED\tDEFAULT\tDESCRIPTION")
		for _, f := range fields {
			def := ""
			if f.Default != nil {
				def = f.Default.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", f.Name, f.Type, f.Required, def, f.Description)
		}
		return w.Flush()
	},
}

func loadRegistry(cmd *cobra.Command) (*core.Registry, error) {
	v, err := openVault(cmd)
	if err != nil {
		return nil, err
	}
	defer v.Close()
	return v.Service.Schemas(cmd.Context())
}

func printJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaListCmd, schemaShowCmd)
	schemaCmd.PersistentFlags().BoolVar(&schemaJSON, "json", false, "Output in JSON format")
}
