package main

import (
	"io"

	"linksort/internal/config"
	"linksort/internal/log"

	"github.com/spf13/cobra"
)

// skipConfig marks commands that must run even when the config file is broken.
const skipConfig = "linksort/skip-config"

// app carries the root flags and the loaded config to every subcommand.
type app struct {
	cfgFile   string
	vaultRoot string
	debug     bool
	dryRun    bool

	cfgPath string
	cfg     *config.Config
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "linksort",
		Short: "File new notes into folders by their name",
		Long: `linksort watches a notes vault and moves each newly created file into
the folder of the first rule whose pattern matches its name, then appends
the rule's template to it.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.config/linksort/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.vaultRoot, "vault", "", "vault directory, overriding vault.root")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&a.dryRun, "dry-run", "n", false, "show what would be moved without touching files")

	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newRouteCmd(a))
	rootCmd.AddCommand(newApplyCmd(a))
	rootCmd.AddCommand(newRulesCmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newStatusCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func (a *app) load(cmd *cobra.Command) error {
	a.cfgPath = a.cfgFile
	if a.cfgPath == "" {
		path, err := config.DefaultPath()
		if err != nil {
			return err
		}
		a.cfgPath = path
	}

	if cmd.Annotations[skipConfig] != "" {
		a.configureLogging(cmd.ErrOrStderr(), config.New())
		return nil
	}

	cfg, err := config.LoadConfigFile(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.configureLogging(cmd.ErrOrStderr(), cfg)

	log.LogWithFields(log.F("config", a.cfgPath), log.F("rules", len(cfg.Rules))).Debug("Configuration loaded")
	return nil
}

func (a *app) configureLogging(w io.Writer, cfg *config.Config) {
	log.Configure(
		log.WithOutput(w),
		log.WithLevel(cfg.Logging.Level),
		log.WithFormat(cfg.Logging.Format),
		log.WithFile(config.ExpandHome(cfg.Logging.File)),
	)
	if a.debug {
		log.SetDebug(true)
	}
}

// vaultConfig returns the loaded config with --vault applied. The override
// never reaches the config file.
func (a *app) vaultConfig() *config.Config {
	if a.vaultRoot == "" {
		return a.cfg
	}
	return a.cfg.WithVaultRoot(a.vaultRoot)
}
