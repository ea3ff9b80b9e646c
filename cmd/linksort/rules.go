package main

import (
	"fmt"
	"strconv"

	"linksort/internal/config"
	"linksort/internal/errors"
	"linksort/internal/rules"
	"linksort/internal/tui"
	"linksort/pkg/types"

	"github.com/spf13/cobra"
)

// editRule opens the interactive form. Tests replace it.
var editRule = tui.EditRule

// interactive reports whether the form can be shown. Tests replace it.
var interactive = func(cmd *cobra.Command) bool {
	return isTerminal(cmd.InOrStdin()) && isTerminal(cmd.OutOrStdout())
}

type ruleFlags struct {
	name, pattern, folder, template string
}

func (f *ruleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "rule name")
	cmd.Flags().StringVar(&f.pattern, "pattern", "", "regular expression matched against the file name")
	cmd.Flags().StringVar(&f.folder, "folder", "", "destination folder, relative to the vault")
	cmd.Flags().StringVar(&f.template, "template", "", "template appended after the move")
}

// apply overwrites the fields of rule whose flag was given and reports
// whether any was.
func (f *ruleFlags) apply(cmd *cobra.Command, rule *types.Rule) bool {
	changed := false
	set := func(flag string, dst *string, value string) {
		if cmd.Flags().Changed(flag) {
			*dst = value
			changed = true
		}
	}
	set("name", &rule.Name, f.name)
	set("pattern", &rule.Pattern, f.pattern)
	set("folder", &rule.Folder, f.folder)
	set("template", &rule.Template, f.template)
	return changed
}

// NewRulesCmd creates the rules command
func newRulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage routing rules",
		Long:  `View, add, edit, reorder and remove routing rules. Rules are tried in order.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default to listing rules when no subcommand is provided
			listRules(cmd, a.cfg)
			return nil
		},
	}

	cmd.AddCommand(newRulesListCmd(a))
	cmd.AddCommand(newRulesAddCmd(a))
	cmd.AddCommand(newRulesEditCmd(a))
	cmd.AddCommand(newRulesDeleteCmd(a))
	cmd.AddCommand(newRulesMoveCmd(a))

	return cmd
}

func newRulesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List rules in the order they are tried",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			listRules(cmd, a.cfg)
		},
	}
}

func listRules(cmd *cobra.Command, cfg *config.Config) {
	p := newPrinter(cmd.OutOrStdout())
	if len(cfg.Rules) == 0 {
		p.println(p.warning("No rules configured. Add one with 'linksort rules add'."))
		return
	}

	rows := make([][]string, 0, len(cfg.Rules))
	for i, rule := range cfg.Rules {
		note := ""
		switch {
		case cfg.Mode == config.ModeSingle && i > 0:
			note = "inactive (single mode)"
		case !rule.Usable():
			note = "incomplete"
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), rule.Name, rule.Pattern, rule.Folder, rule.Template, note})
	}
	p.println(renderTable(
		[]string{"#", "Name", "Pattern", "Folder", "Template", "Note"},
		rows,
		[]columnAlignment{alignRight},
	))
}

func newRulesAddCmd(a *app) *cobra.Command {
	var flags ruleFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a rule",
		Long: `Append a rule to the end of the list. Without flags, an interactive form
is shown when running in a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rule types.Rule
			if !flags.apply(cmd, &rule) {
				if !interactive(cmd) {
					return errors.NewInvalidInputError("--name and --pattern are required when not running in a terminal", "name")
				}
				edited, ok, err := editRule("New rule", rule, rules.Validate, cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if !ok {
					newPrinter(cmd.OutOrStdout()).println("Cancelled.")
					return nil
				}
				rule = edited
			}

			store := rules.NewStore(a.cfg)
			if err := store.Add(rule); err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			p.println(p.success(fmt.Sprintf("Added rule %d: %s", store.Len(), rule.Label())))
			return nil
		},
	}
	flags.register(cmd)

	return cmd
}

func newRulesEditCmd(a *app) *cobra.Command {
	var flags ruleFlags

	cmd := &cobra.Command{
		Use:   "edit <n>",
		Short: "Change rule n",
		Long: `Change the fields given as flags. Without flags, an interactive form
pre-filled with the rule is shown when running in a terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			store := rules.NewStore(a.cfg)
			rule, err := store.Get(i)
			if err != nil {
				return err
			}

			if !flags.apply(cmd, &rule) {
				if !interactive(cmd) {
					return errors.NewInvalidInputError("no changes given; pass --name, --pattern, --folder or --template", "rule")
				}
				edited, ok, err := editRule(fmt.Sprintf("Edit rule %d", i+1), rule, rules.Validate, cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if !ok {
					newPrinter(cmd.OutOrStdout()).println("Cancelled.")
					return nil
				}
				rule = edited
			}

			if err := store.Update(i, rule); err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			p.println(p.success(fmt.Sprintf("Updated rule %d: %s", i+1, rule.Label())))
			return nil
		},
	}
	flags.register(cmd)

	return cmd
}

func newRulesDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <n>",
		Aliases: []string{"rm"},
		Short:   "Remove rule n",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			store := rules.NewStore(a.cfg)
			rule, err := store.Get(i)
			if err != nil {
				return err
			}
			if err := store.Delete(i); err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			p.println(p.success(fmt.Sprintf("Deleted rule %d: %s", i+1, rule.Label())))
			return nil
		},
	}
}

func newRulesMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <from> <to>",
		Short: "Move a rule to another position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			to, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			if err := rules.NewStore(a.cfg).Move(from, to); err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			p.println(p.success(fmt.Sprintf("Moved rule %d to position %d", from+1, to+1)))
			return nil
		},
	}
}

// parseIndex converts a 1-based rule number to an index.
func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errors.NewInvalidInputError(fmt.Sprintf("invalid rule number %q", s), "n")
	}
	return n - 1, nil
}
