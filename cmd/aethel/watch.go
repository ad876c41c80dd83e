package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the index whenever artifacts change",
	Long:  `Watch 20_artifacts and rebuild the index after each burst of changes until interrupted.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		v, err := openVault(cmd)
		if err != nil {
			return err
		}
		defer v.Close()

		n, err := v.Service.Reindex(ctx)
		if err != nil {
			return err
		}
		slog.Info("index rebuilt", "entries", n)

		w, err := v.Watch(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Watching", v.Root, "(Ctrl+C to stop)")
		<-w.Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
