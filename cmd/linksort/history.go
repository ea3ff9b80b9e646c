package main

import (
	"fmt"
	"os"

	"linksort/internal/history"

	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit    int
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent filing decisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd.OutOrStdout())
			if !a.cfg.History.Enabled {
				p.println(p.warning("History is disabled (history.enabled: false)."))
				return nil
			}

			store, err := history.Open(a.cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer store.Close()

			if clearAll {
				n, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				p.println(p.success(fmt.Sprintf("Removed %d entries.", n)))
				return nil
			}

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printEntries(p, entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "number of entries to show, 0 for all")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete every entry")

	return cmd
}

func printEntries(p *printer, entries []history.Entry) {
	if len(entries) == 0 {
		p.println("No history yet.")
		return
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Time.Local().Format("2006-01-02 15:04:05"),
			string(e.Status),
			e.Rule,
			e.Source,
			e.Destination,
			e.Reason,
		})
	}
	p.println(renderTable([]string{"Time", "Status", "Rule", "Source", "Destination", "Reason"}, rows, nil))
}

// historyExists reports whether a journal has been written at path, so
// read-only commands do not create one.
func historyExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
