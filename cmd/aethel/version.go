package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bkase/aethel"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of aethel",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "aethel version %s\n", strings.TrimSpace(aethel.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
