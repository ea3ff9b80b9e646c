package main

import (
	"fmt"
	"path"
	"strconv"

	"linksort/internal/organize"
	"linksort/internal/router"
	"linksort/pkg/types"

	"github.com/spf13/cobra"
)

// newRouteCmd explains, without touching any file, where a file would go.
func newRouteCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "route <filename>",
		Short: "Show which rule would file a name and where it would go",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev := types.NewFileEvent(path.Join(dir, args[0]))
			r := router.FromConfig(a.cfg)
			p := newPrinter(cmd.OutOrStdout())

			verdicts := r.Explain(ev)
			if len(verdicts) == 0 {
				p.println(p.warning("No rules configured."))
				return nil
			}

			rows := make([][]string, 0, len(verdicts))
			for _, v := range verdicts {
				decision := string(v.Decision)
				if v.Err != nil {
					decision += ": " + v.Err.Error()
				}
				rows = append(rows, []string{
					strconv.Itoa(v.Index + 1),
					v.Rule.Label(),
					v.Rule.Pattern,
					v.Rule.Folder,
					decision,
				})
			}
			p.println(renderTable(
				[]string{"#", "Rule", "Pattern", "Folder", "Decision"},
				rows,
				[]columnAlignment{alignRight},
			))

			rule, ok := r.Route(ev)
			if !ok {
				p.println(p.warning(fmt.Sprintf("%s stays where it is: no rule applies", ev.Path)))
				return nil
			}
			dest, err := organize.Destination(ev, rule)
			if err != nil {
				return err
			}
			line := fmt.Sprintf("%s -> %s (rule %q)", ev.Path, dest, rule.Label())
			if rule.Template != "" {
				line += ", then append " + rule.Template
			}
			p.println(p.success(line))
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "vault-relative folder the file sits in")

	return cmd
}
