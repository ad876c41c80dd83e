package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bkase/aethel/internal/platform"
)

var initNoGit bool

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Initialize a new Aethel vault",
	Long: `Create the vault layout, the index database and the example core_note
extension at path, run 'git init', and remember the vault in the config file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := platform.Init(cmd.Context(), args[0],
			platform.WithVersioning(!initNoGit),
			platform.WithLogger(slog.Default()),
		)
		if err != nil {
			return fmt.Errorf("failed to initialize vault: %w", err)
		}

		cfgPath, err := saveConfig(root)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Initialized new Aethel vault at:", root)
		fmt.Fprintln(out, "Configuration saved to:", cfgPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initNoGit, "no-git", false, "Do not initialize a git repository")
}
