package main

import (
	"fmt"
	"os"

	"linksort/internal/config"
	"linksort/internal/errors"
	"linksort/pkg/types"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create, show or import configuration",
	}

	cmd.AddCommand(newConfigInitCmd(a))
	cmd.AddCommand(newConfigShowCmd(a))
	cmd.AddCommand(newConfigImportCmd(a))

	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var (
		force bool
		root  string
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a config file with the default rules",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(a.cfgPath); err == nil && !force {
				return errors.NewFileError("use --force to overwrite", a.cfgPath, errors.FileExists, errors.ErrFileExists)
			}

			cfg := config.New()
			if root != "" {
				cfg.Vault.Root = root
			} else if a.vaultRoot != "" {
				cfg.Vault.Root = a.vaultRoot
			}
			if err := config.SaveConfig(cfg, a.cfgPath); err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout())
			p.println(p.success("Wrote " + a.cfgPath))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")
	cmd.Flags().StringVar(&root, "root", "", "vault directory to record in the new file")

	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", a.cfgPath)
			if err := enc.Encode(a.vaultConfig()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func newConfigImportCmd(a *app) *cobra.Command {
	var appendRules bool

	cmd := &cobra.Command{
		Use:   "import <data.json>",
		Short: "Import rules from the note-app plugin's data.json",
		Long: `Import rules saved by the note-app plugin. Both the rule list and the
older single-rule layout are understood. Existing rules are replaced unless
--append is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.NewFileError("cannot read plugin data", args[0], errors.FileNotFound, err)
			}
			imported, mode, err := config.ImportPluginData(data)
			if err != nil {
				return errors.NewConfigError("cannot import plugin data", args[0], errors.InvalidConfig, err)
			}

			prevRules, prevMode := a.cfg.Rules, a.cfg.Mode
			if appendRules {
				a.cfg.Rules = append(append([]types.Rule(nil), a.cfg.Rules...), imported...)
			} else {
				a.cfg.Rules = imported
				a.cfg.Mode = mode
			}
			if err := a.cfg.Save(); err != nil {
				a.cfg.Rules, a.cfg.Mode = prevRules, prevMode
				return err
			}

			p := newPrinter(cmd.OutOrStdout())
			p.println(p.success(fmt.Sprintf("Imported %d rule(s) into %s (mode: %s)", len(imported), a.cfg.Path(), a.cfg.Mode)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&appendRules, "append", false, "append to the existing rules instead of replacing them")

	return cmd
}
