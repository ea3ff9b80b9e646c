package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"linksort/internal/errors"
	"linksort/pkg/types"

	"github.com/gobwas/glob"
)

// Mode selects how the rule list is evaluated.
type Mode string

const (
	// ModeList evaluates every rule in order; the first match wins.
	ModeList Mode = "list"
	// ModeSingle evaluates only the first rule.
	ModeSingle Mode = "single"
)

// Vault describes the watched note tree.
type Vault struct {
	Root   string   `yaml:"root" json:"root" toml:"root"`       // Vault directory, "~" is expanded
	Ignore []string `yaml:"ignore" json:"ignore" toml:"ignore"` // Globs (vault-relative, '/' separated) never routed
}

// Settings controls how matched files are moved.
type Settings struct {
	DryRun     bool `yaml:"dry_run" json:"dry_run" toml:"dry_run"`             // Log planned moves without touching files
	CreateDirs bool `yaml:"create_dirs" json:"create_dirs" toml:"create_dirs"` // Create missing destination folders
}

// Watch controls the fsnotify daemon.
type Watch struct {
	Recursive bool `yaml:"recursive" json:"recursive" toml:"recursive"` // Watch every non-hidden directory below the root
	Buffer    int  `yaml:"buffer" json:"buffer" toml:"buffer"`          // Capacity of the event channel
	SettleMS  int  `yaml:"settle_ms" json:"settle_ms" toml:"settle_ms"` // Quiet time before a new file is routed
	Reload    bool `yaml:"reload" json:"reload" toml:"reload"`          // Reload rules when the config file changes
}

// History controls the move journal.
type History struct {
	Enabled bool   `yaml:"enabled" json:"enabled" toml:"enabled"`
	Path    string `yaml:"path" json:"path" toml:"path"`
}

// Logging controls diagnostic output.
type Logging struct {
	Level  string `yaml:"level" json:"level" toml:"level"`                            // debug, info, warn or error
	Format string `yaml:"format" json:"format" toml:"format"`                         // text or json
	File   string `yaml:"file,omitempty" json:"file,omitempty" toml:"file,omitempty"` // Also append entries here; "~" is expanded
}

// Config represents the application configuration structure.
type Config struct {
	Vault    Vault        `yaml:"vault" json:"vault" toml:"vault"`
	Mode     Mode         `yaml:"mode" json:"mode" toml:"mode"`
	Rules    []types.Rule `yaml:"rules" json:"rules" toml:"rules"`
	Settings Settings     `yaml:"settings" json:"settings" toml:"settings"`
	Watch    Watch        `yaml:"watch" json:"watch" toml:"watch"`
	History  History      `yaml:"history" json:"history" toml:"history"`
	Logging  Logging      `yaml:"logging" json:"logging" toml:"logging"`

	// path is the file this config was loaded from, if any.
	path string
	// rootOverride is the --vault root, kept out of the file.
	rootOverride string
}

// DefaultPath returns ~/.config/linksort/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "linksort", "config.yaml"), nil
}

// LoadConfig loads configuration from the default location.
func LoadConfig() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads configuration from a specific file path.
// A missing file yields the defaults; every field absent from the file keeps
// its default, and a present rules list replaces the default rules wholesale.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.NewConfigError("error reading config file", path, errors.ConfigNotFound, err)
	}

	var loaded fileConfig
	if err := decode(path, data, &loaded); err != nil {
		return nil, errors.NewConfigError("error parsing config file", path, errors.InvalidConfig, err)
	}
	loaded.applyTo(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg to path in the format implied by its extension.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := encode(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	cfg.path = path
	return nil
}

// Path returns the file the config was loaded from or last saved to.
func (c *Config) Path() string {
	return c.path
}

// SetPath records where Save should write the config.
func (c *Config) SetPath(path string) {
	c.path = path
}

// WithVaultRoot returns a copy of c rooted at root instead of vault.root.
func (c *Config) WithVaultRoot(root string) *Config {
	cp := *c
	cp.Vault.Root = root
	cp.rootOverride = root
	return &cp
}

// VaultOverride returns the root given to WithVaultRoot, if any.
func (c *Config) VaultOverride() string {
	return c.rootOverride
}

// Save writes the config back to Path().
func (c *Config) Save() error {
	if c.path == "" {
		return errors.NewConfigError("config has no file path", "", errors.ConfigNotFound, nil)
	}
	return SaveConfig(c, c.path)
}

// Validate checks the settings that would make the daemon misbehave.
// Rules are not checked; incomplete rules are inert.
func (c *Config) Validate() error {
	if c == nil {
		return errors.NewConfigError("nil config", "", errors.InvalidConfig, nil)
	}

	switch c.Mode {
	case ModeList, ModeSingle:
	default:
		return errors.NewConfigError("invalid mode, want list or single", "mode", errors.InvalidConfig,
			fmt.Errorf("got %q", c.Mode))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.NewConfigError("invalid log level", "logging.level", errors.InvalidConfig,
			fmt.Errorf("got %q", c.Logging.Level))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return errors.NewConfigError("invalid log format", "logging.format", errors.InvalidConfig,
			fmt.Errorf("got %q", c.Logging.Format))
	}

	if c.Watch.Buffer < 1 {
		return errors.NewConfigError("watch buffer must be >= 1", "watch.buffer", errors.InvalidConfig, nil)
	}
	if c.Watch.SettleMS < 1 {
		return errors.NewConfigError("watch settle time must be >= 1ms", "watch.settle_ms", errors.InvalidConfig, nil)
	}

	for _, pattern := range c.Vault.Ignore {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return errors.NewConfigError("invalid ignore glob", "vault.ignore", errors.InvalidConfig, err)
		}
	}

	return nil
}

// VaultRoot returns the absolute vault directory.
func (c *Config) VaultRoot() (string, error) {
	root := ExpandHome(c.Vault.Root)
	if root == "" {
		root = "."
	}
	return filepath.Abs(root)
}

// HistoryPath returns the expanded journal path.
func (c *Config) HistoryPath() string {
	return ExpandHome(c.History.Path)
}

// ActiveRules returns the rules the router should consider.
func (c *Config) ActiveRules() []types.Rule {
	if c.Mode == ModeSingle {
		if len(c.Rules) == 0 {
			return nil
		}
		return c.Rules[:1]
	}
	return c.Rules
}

// Settle returns watch.settle_ms as a duration.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.Watch.SettleMS) * time.Millisecond
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// New creates a new configuration instance with default values.
func New() *Config {
	return defaultConfig()
}
