package main

import (
	"linksort/internal/watch"

	"github.com/spf13/cobra"
)

// newWatchCmd creates the watch command
func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the vault and file new notes as they appear",
		Long: `Watch the vault for newly created files and move each one into the folder
of the first matching rule. Runs in the foreground until interrupted; only one
watcher may run per vault.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch.Serve(cmd.Context(), a.vaultConfig(), a.dryRun)
		},
	}
}
