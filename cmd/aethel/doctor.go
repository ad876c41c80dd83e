package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bkase/aethel/pkg/core"
)

var (
	doctorFix          bool
	doctorRebuildIndex bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Validate and optionally fix the vault",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault(cmd)
		if err != nil {
			return err
		}
		defer v.Close()

		report, err := v.Service.Doctor(cmd.Context(), core.DoctorOptions{
			Fix:          doctorFix,
			RebuildIndex: doctorRebuildIndex,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Vault: %s\n", v.Root)
		fmt.Fprintf(out, "Plugins: %d, schemas: %d, artifacts: %d\n", report.Plugins, report.Schemas, report.Artifacts)
		for _, is := range report.Issues {
			mark := "✗"
			if is.Fixed {
				mark = "✓ fixed"
			}
			fmt.Fprintf(out, "  %s %s: %s\n", mark, is.Path, is.Problem)
		}
		if doctorRebuildIndex {
			fmt.Fprintf(out, "Index rebuilt with %d artifacts\n", report.Reindexed)
		}

		switch {
		case report.Count() == 0:
			fmt.Fprintln(out, "No issues found")
		case doctorFix:
			fmt.Fprintf(out, "Found %d issues, fixed %d\n", report.Count(), report.FixedCount())
		default:
			fmt.Fprintf(out, "Found %d issues (run with --fix to repair what can be repaired)\n", report.Count())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Fix issues automatically")
	doctorCmd.Flags().BoolVar(&doctorRebuildIndex, "rebuild-index", false, "Rebuild the artifact index")
}
