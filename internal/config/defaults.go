package config

import "linksort/pkg/types"

const (
	defaultVaultRoot   = "."
	defaultMode        = ModeList
	defaultCreateDirs  = true
	defaultRecursive   = true
	defaultBuffer      = 64
	defaultSettleMS    = 1000
	defaultReload      = true
	defaultHistoryOn   = true
	defaultHistoryPath = "~/.config/linksort/history.db"
	defaultLogLevel    = "info"
	defaultLogFormat   = "text"
)

// DefaultIgnore lists globs for editor scratch files that should never be routed.
func DefaultIgnore() []string {
	return []string{"**.tmp", "**~", "**.swp"}
}

// DefaultRules returns the built-in rule set used when the config file has no rules.
func DefaultRules() []types.Rule {
	return []types.Rule{
		{Name: "People", Pattern: "^@.*", Folder: "People", Template: "Templates/Person Template.md"},
		{Name: "Places", Pattern: ".*@$", Folder: "Places"},
	}
}

// defaultConfig returns the default configuration with safe defaults.
func defaultConfig() *Config {
	return &Config{
		Vault: Vault{
			Root:   defaultVaultRoot,
			Ignore: DefaultIgnore(),
		},
		Mode:  defaultMode,
		Rules: DefaultRules(),
		Settings: Settings{
			DryRun:     false,
			CreateDirs: defaultCreateDirs,
		},
		Watch: Watch{
			Recursive: defaultRecursive,
			Buffer:    defaultBuffer,
			SettleMS:  defaultSettleMS,
			Reload:    defaultReload,
		},
		History: History{
			Enabled: defaultHistoryOn,
			Path:    defaultHistoryPath,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
