package main

import (
	"fmt"
	"strconv"

	"linksort/internal/config"
	"linksort/internal/history"
	"linksort/internal/router"
	"linksort/internal/watch"

	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether a watcher is running and what it did last",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.vaultConfig()
			root, err := cfg.VaultRoot()
			if err != nil {
				return err
			}
			running, err := watch.IsDaemonRunning(root)
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout())
			p.println(p.header("linksort status"))
			p.statusLine("Vault", root)
			p.statusLine("Config", a.cfgPath)
			if running {
				p.statusLine("Watcher", p.success("running"))
			} else {
				p.statusLine("Watcher", p.warning("not running"))
			}

			rules := strconv.Itoa(router.FromConfig(cfg).Len())
			if cfg.Mode == config.ModeSingle {
				rules += " (single mode)"
			}
			p.statusLine("Rules", rules)
			if cfg.Settings.DryRun || a.dryRun {
				p.statusLine("Dry run", "on")
			}

			if !cfg.History.Enabled {
				p.statusLine("History", "disabled")
				return nil
			}
			path := cfg.HistoryPath()
			p.statusLine("History", path)
			if recent <= 0 || !historyExists(path) {
				return nil
			}

			store, err := history.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()
			entries, err := store.Recent(cmd.Context(), recent)
			if err != nil {
				return err
			}
			p.println("")
			p.println(p.header(fmt.Sprintf("Last %d decisions", len(entries))))
			printEntries(p, entries)
			return nil
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 5, "number of recent history entries to show")

	return cmd
}
