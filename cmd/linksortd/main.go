// Command linksortd runs the vault watcher in the foreground, for service
// managers such as systemd or launchd.
package main

import (
	"fmt"
	"os"

	"linksort/internal/config"
	"linksort/internal/log"
	"linksort/internal/watch"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "linksortd:", err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var (
		cfgFile string
		vault   string
		debug   bool
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:           "linksortd",
		Short:         "Watch a vault and file new notes until stopped",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile == "" {
				path, err := config.DefaultPath()
				if err != nil {
					return err
				}
				cfgFile = path
			}

			cfg, err := config.LoadConfigFile(cfgFile)
			if err != nil {
				return err
			}
			if vault != "" {
				cfg = cfg.WithVaultRoot(vault)
			}

			log.Configure(
				log.WithOutput(cmd.ErrOrStderr()),
				log.WithLevel(cfg.Logging.Level),
				log.WithFormat(cfg.Logging.Format),
				log.WithFile(config.ExpandHome(cfg.Logging.File)),
			)
			if debug {
				log.SetDebug(true)
			}

			log.LogWithFields(log.F("config", cfgFile), log.F("version", version)).Info("Starting linksortd")
			return watch.Serve(cmd.Context(), cfg, dryRun)
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/linksort/config.yaml)")
	cmd.Flags().StringVar(&vault, "vault", "", "vault directory, overriding vault.root")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "log planned moves without touching files")

	return cmd
}
