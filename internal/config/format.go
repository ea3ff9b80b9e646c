package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"linksort/pkg/types"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with pointer fields so that a key missing from the
// file can be told apart from a zero value written on purpose.
type fileConfig struct {
	Vault struct {
		Root   string    `yaml:"root" json:"root" toml:"root"`
		Ignore *[]string `yaml:"ignore" json:"ignore" toml:"ignore"`
	} `yaml:"vault" json:"vault" toml:"vault"`
	Mode     Mode          `yaml:"mode" json:"mode" toml:"mode"`
	Rules    *[]types.Rule `yaml:"rules" json:"rules" toml:"rules"`
	Settings struct {
		DryRun     *bool `yaml:"dry_run" json:"dry_run" toml:"dry_run"`
		CreateDirs *bool `yaml:"create_dirs" json:"create_dirs" toml:"create_dirs"`
	} `yaml:"settings" json:"settings" toml:"settings"`
	Watch struct {
		Recursive *bool `yaml:"recursive" json:"recursive" toml:"recursive"`
		Buffer    int   `yaml:"buffer" json:"buffer" toml:"buffer"`
		SettleMS  int   `yaml:"settle_ms" json:"settle_ms" toml:"settle_ms"`
		Reload    *bool `yaml:"reload" json:"reload" toml:"reload"`
	} `yaml:"watch" json:"watch" toml:"watch"`
	History struct {
		Enabled *bool  `yaml:"enabled" json:"enabled" toml:"enabled"`
		Path    string `yaml:"path" json:"path" toml:"path"`
	} `yaml:"history" json:"history" toml:"history"`
	Logging struct {
		Level  string `yaml:"level" json:"level" toml:"level"`
		Format string `yaml:"format" json:"format" toml:"format"`
		File   string `yaml:"file" json:"file" toml:"file"`
	} `yaml:"logging" json:"logging" toml:"logging"`
}

func (f *fileConfig) applyTo(cfg *Config) {
	if f.Vault.Root != "" {
		cfg.Vault.Root = f.Vault.Root
	}
	if f.Vault.Ignore != nil {
		cfg.Vault.Ignore = *f.Vault.Ignore
	}
	if f.Mode != "" {
		cfg.Mode = Mode(strings.ToLower(string(f.Mode)))
	}
	if f.Rules != nil {
		cfg.Rules = *f.Rules
	}

	setBool(&cfg.Settings.DryRun, f.Settings.DryRun)
	setBool(&cfg.Settings.CreateDirs, f.Settings.CreateDirs)

	setBool(&cfg.Watch.Recursive, f.Watch.Recursive)
	setBool(&cfg.Watch.Reload, f.Watch.Reload)
	if f.Watch.Buffer != 0 {
		cfg.Watch.Buffer = f.Watch.Buffer
	}
	if f.Watch.SettleMS != 0 {
		cfg.Watch.SettleMS = f.Watch.SettleMS
	}

	setBool(&cfg.History.Enabled, f.History.Enabled)
	if f.History.Path != "" {
		cfg.History.Path = f.History.Path
	}

	if f.Logging.Level != "" {
		cfg.Logging.Level = f.Logging.Level
	}
	if f.Logging.Format != "" {
		cfg.Logging.Format = f.Logging.Format
	}
	cfg.Logging.File = f.Logging.File
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

type format int

const (
	formatYAML format = iota
	formatTOML
	formatJSON
)

func formatFor(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return formatTOML
	case ".json":
		return formatJSON
	default:
		return formatYAML
	}
}

func decode(path string, data []byte, v interface{}) error {
	switch formatFor(path) {
	case formatTOML:
		return toml.Unmarshal(data, v)
	case formatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	default:
		return yaml.Unmarshal(data, v)
	}
}

func encode(path string, cfg *Config) ([]byte, error) {
	switch formatFor(path) {
	case formatTOML:
		return toml.Marshal(cfg)
	case formatJSON:
		return json.MarshalIndent(cfg, "", "  ")
	default:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

// pluginData is the settings blob written by the note-app plugin: either a
// list under "settings" or, in the single-rule revision, one rule inline.
type pluginData struct {
	Settings *[]types.Rule `json:"settings"`
	types.Rule
}

// ImportPluginData converts a plugin data.json blob into rules and the mode
// matching the revision that wrote it.
func ImportPluginData(data []byte) ([]types.Rule, Mode, error) {
	var blob pluginData
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, "", fmt.Errorf("parse plugin data: %w", err)
	}
	if blob.Settings != nil {
		return *blob.Settings, ModeList, nil
	}
	if blob.Pattern != "" || blob.Folder != "" {
		return []types.Rule{blob.Rule}, ModeSingle, nil
	}
	return nil, "", fmt.Errorf("plugin data has neither a settings list nor a pattern")
}
