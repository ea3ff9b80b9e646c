package main

import (
	"fmt"
	"path/filepath"

	"linksort/internal/history"
	"linksort/internal/log"
	"linksort/internal/watch"
	"linksort/pkg/types"

	"github.com/spf13/cobra"
)

// newApplyCmd runs the routing pipeline once for files that already exist.
func newApplyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <path>...",
		Short: "File existing notes as if they had just been created",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.vaultConfig()
			d, err := watch.NewDaemon(cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			if a.dryRun {
				d.SetDryRun(true)
			}
			if cfg.History.Enabled && !a.dryRun {
				store, err := history.Open(cfg.HistoryPath())
				if err != nil {
					log.LogWithError(err).Warn("History journal unavailable")
				} else {
					defer store.Close()
					d.SetHistory(store)
				}
			}

			p := newPrinter(cmd.OutOrStdout())
			failed := 0
			for _, arg := range args {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return err
				}
				result, err := d.OrganizeFile(cmd.Context(), abs)
				if err != nil {
					p.println(p.error(fmt.Sprintf("failed    %s: %v", arg, err)))
					failed++
					continue
				}
				p.result(result)
				if result.Status == types.StatusFailed {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d file(s) could not be filed", failed, len(args))
			}
			return nil
		},
	}
}
