package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"linksort/internal/config"
	"linksort/internal/errors"
	"linksort/internal/log"
	"linksort/pkg/testutils"
	"linksort/pkg/types"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup writes a config for a fresh vault and returns both paths.
func setup(t *testing.T, files map[string]string) (cfgPath, root string) {
	t.Helper()
	root = testutils.CreateVault(t, files)
	dir := t.TempDir()

	cfg := config.New()
	cfg.Vault.Root = root
	cfg.History.Path = filepath.Join(dir, "history.db")
	cfgPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, config.SaveConfig(cfg, cfgPath))
	return cfgPath, root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func loadRules(t *testing.T, path string) []types.Rule {
	t.Helper()
	cfg, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	return cfg.Rules
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linksort", "config.yaml")
	root := t.TempDir()

	out, err := run(t, "--config", path, "config", "init", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Vault.Root)
	assert.Equal(t, config.DefaultRules(), cfg.Rules)

	_, err = run(t, "--config", path, "config", "init")
	assert.ErrorContains(t, err, "already exists")
	assert.ErrorIs(t, err, errors.ErrFileExists)

	_, err = run(t, "--config", path, "config", "init", "--force")
	assert.NoError(t, err)
}

func TestConfigInit_BrokenConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: random\n"), 0o644))

	_, err := run(t, "--config", path, "rules", "list")
	assert.Error(t, err)

	_, err = run(t, "--config", path, "config", "init", "--force")
	assert.NoError(t, err)
	assert.Len(t, loadRules(t, path), 2)
}

func TestConfigShow(t *testing.T) {
	path, _ := setup(t, nil)
	other := t.TempDir()

	out, err := run(t, "--config", path, "--vault", other, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "root: "+other)
	assert.Contains(t, out, "^@.*")

	// The override is not written back
	cfg, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, other, cfg.Vault.Root)
}

func TestConfigImport(t *testing.T) {
	path, _ := setup(t, nil)
	dir := t.TempDir()

	list := filepath.Join(dir, "list.json")
	require.NoError(t, os.WriteFile(list, []byte(`{"settings":[{"name":"Books","pattern":"^book-","folder":"Library"}]}`), 0o644))
	out, err := run(t, "--config", path, "config", "import", list)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 rule(s)")

	cfg, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.ModeList, cfg.Mode)
	assert.Equal(t, []types.Rule{{Name: "Books", Pattern: "^book-", Folder: "Library"}}, cfg.Rules)

	single := filepath.Join(dir, "single.json")
	require.NoError(t, os.WriteFile(single, []byte(`{"pattern":"^@.*","folder":"People"}`), 0o644))
	_, err = run(t, "--config", path, "config", "import", "--append", single)
	require.NoError(t, err)
	assert.Len(t, loadRules(t, path), 2)

	_, err = run(t, "--config", path, "config", "import", single)
	require.NoError(t, err)
	cfg, err = config.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.ModeSingle, cfg.Mode)
	assert.Len(t, cfg.Rules, 1)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{}`), 0o644))
	_, err = run(t, "--config", path, "config", "import", bad)
	assert.Error(t, err)
	assert.Len(t, loadRules(t, path), 1)
}

func TestRulesLifecycle(t *testing.T) {
	path, _ := setup(t, nil)

	out, err := run(t, "--config", path, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "People")
	assert.Contains(t, out, "Places")

	_, err = run(t, "--config", path, "rules", "add", "--name", "Books", "--pattern", "^book-", "--folder", "Library")
	require.NoError(t, err)
	rules := loadRules(t, path)
	require.Len(t, rules, 3)
	assert.Equal(t, types.Rule{Name: "Books", Pattern: "^book-", Folder: "Library"}, rules[2])

	_, err = run(t, "--config", path, "rules", "edit", "3", "--folder", "Shelf", "--template", "Templates/Book.md")
	require.NoError(t, err)
	rules = loadRules(t, path)
	assert.Equal(t, "Shelf", rules[2].Folder)
	assert.Equal(t, "Templates/Book.md", rules[2].Template)
	assert.Equal(t, "^book-", rules[2].Pattern)

	_, err = run(t, "--config", path, "rules", "move", "3", "1")
	require.NoError(t, err)
	rules = loadRules(t, path)
	assert.Equal(t, []string{"Books", "People", "Places"}, []string{rules[0].Name, rules[1].Name, rules[2].Name})

	out, err = run(t, "--config", path, "rules", "delete", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "People")
	rules = loadRules(t, path)
	assert.Equal(t, []string{"Books", "Places"}, []string{rules[0].Name, rules[1].Name})
}

func TestRules_InvalidInput(t *testing.T) {
	path, _ := setup(t, nil)

	tests := []struct {
		name string
		args []string
	}{
		{"add without flags off a terminal", []string{"rules", "add"}},
		{"add without pattern", []string{"rules", "add", "--name", "x", "--folder", "X"}},
		{"edit without changes off a terminal", []string{"rules", "edit", "1"}},
		{"edit clearing the name", []string{"rules", "edit", "1", "--name", ""}},
		{"edit out of range", []string{"rules", "edit", "9", "--name", "x"}},
		{"delete zero", []string{"rules", "delete", "0"}},
		{"move non-number", []string{"rules", "move", "one", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"--config", path}, tt.args...)...)
			assert.Error(t, err)
			assert.Equal(t, config.DefaultRules(), loadRules(t, path), "rules are unchanged")
		})
	}
}

func TestRules_Form(t *testing.T) {
	path, _ := setup(t, nil)

	origEdit, origInteractive := editRule, interactive
	t.Cleanup(func() { editRule, interactive = origEdit, origInteractive })
	interactive = func(*cobra.Command) bool { return true }

	var gotTitle string
	var gotRule types.Rule
	editRule = func(title string, rule types.Rule, validate func(types.Rule) error, in io.Reader, out io.Writer) (types.Rule, bool, error) {
		gotTitle, gotRule = title, rule
		rule.Folder = "Contacts"
		if rule.Name == "" {
			rule = types.Rule{Name: "Mail", Pattern: "^mail-", Folder: "Mail"}
		}
		return rule, true, validate(rule)
	}

	_, err := run(t, "--config", path, "rules", "edit", "1")
	require.NoError(t, err)
	assert.Equal(t, "Edit rule 1", gotTitle)
	assert.Equal(t, "People", gotRule.Name, "form is pre-filled")
	assert.Equal(t, "Contacts", loadRules(t, path)[0].Folder)

	_, err = run(t, "--config", path, "rules", "add")
	require.NoError(t, err)
	assert.Equal(t, "New rule", gotTitle)
	assert.Equal(t, "Mail", loadRules(t, path)[2].Name)

	editRule = func(string, types.Rule, func(types.Rule) error, io.Reader, io.Writer) (types.Rule, bool, error) {
		return types.Rule{}, false, nil
	}
	out, err := run(t, "--config", path, "rules", "add")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
	assert.Len(t, loadRules(t, path), 3)
}

func TestRoute(t *testing.T) {
	path, _ := setup(t, nil)

	out, err := run(t, "--config", path, "route", "@Alice.md")
	require.NoError(t, err)
	assert.Contains(t, out, "@Alice.md -> People/@Alice.md")
	assert.Contains(t, out, "Templates/Person Template.md")
	assert.Contains(t, out, "matched")

	out, err = run(t, "--config", path, "route", "--dir", "People", "@Alice.md")
	require.NoError(t, err)
	assert.Contains(t, out, "already in folder")
	assert.Contains(t, out, "no rule applies")

	out, err = run(t, "--config", path, "route", "Paris@")
	require.NoError(t, err)
	assert.Contains(t, out, "Paris@ -> Places/Paris@")

	out, err = run(t, "--config", path, "route", "shopping.md")
	require.NoError(t, err)
	assert.Contains(t, out, "pattern mismatch")
	assert.Contains(t, out, "no rule applies")
}

func TestApplyHistoryStatus(t *testing.T) {
	path, root := setup(t, map[string]string{
		"@Alice.md":                    "# Alice\n",
		"shopping.md":                  "",
		"Templates/Person Template.md": "## Birthday\n",
	})

	out, err := run(t, "--config", path, "apply",
		filepath.Join(root, "@Alice.md"),
		filepath.Join(root, "shopping.md"),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "moved")
	assert.Contains(t, out, "skipped")
	assert.Equal(t, "# Alice\n## Birthday\n", testutils.ReadFile(t, root, "People/@Alice.md"))
	assert.FileExists(t, filepath.Join(root, "shopping.md"))

	out, err = run(t, "--config", path, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "People/@Alice.md")
	assert.NotContains(t, out, "shopping.md")

	out, err = run(t, "--config", path, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "not running")
	assert.Contains(t, out, root)
	assert.Contains(t, out, "People/@Alice.md")

	out, err = run(t, "--config", path, "history", "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 entries")

	out, err = run(t, "--config", path, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No history yet")
}

func TestApply_DryRun(t *testing.T) {
	path, root := setup(t, map[string]string{"@Alice.md": ""})

	out, err := run(t, "--config", path, "--dry-run", "apply", filepath.Join(root, "@Alice.md"))
	require.NoError(t, err)
	assert.Contains(t, out, "would move @Alice.md -> People/@Alice.md")
	assert.FileExists(t, filepath.Join(root, "@Alice.md"))
	assert.NoFileExists(t, filepath.Join(root, "People", "@Alice.md"))
}

func TestApply_VaultOverrideAndMissingFile(t *testing.T) {
	path, _ := setup(t, nil)
	other := testutils.CreateVault(t, map[string]string{"Paris@": ""})

	_, err := run(t, "--config", path, "--vault", other, "apply", filepath.Join(other, "Paris@"))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(other, "Places", "Paris@"))

	out, err := run(t, "--config", path, "--vault", other, "apply", filepath.Join(other, "missing.md"))
	assert.Error(t, err)
	assert.Contains(t, out, "failed")
}

func TestStatus_HistoryDisabled(t *testing.T) {
	path, _ := setup(t, nil)
	cfg, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	cfg.History.Enabled = false
	require.NoError(t, cfg.Save())

	out, err := run(t, "--config", path, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "disabled")

	out, err = run(t, "--config", path, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "History is disabled")
}

func TestLoggingFile(t *testing.T) {
	path, root := setup(t, map[string]string{"@Alice.md": ""})
	logPath := filepath.Join(t.TempDir(), "linksort.log")
	cfg, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	cfg.Logging.File = logPath
	require.NoError(t, cfg.Save())
	t.Cleanup(func() { log.Configure(log.WithOutput(io.Discard)) })

	_, err = run(t, "--config", path, "--debug", "apply", filepath.Join(root, "@Alice.md"))
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Configuration loaded")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "--config", filepath.Join(t.TempDir(), "none.yaml"), "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "linksort dev"))
}

func TestPrinter_NoColourOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf)
	assert.Equal(t, "ok", p.success("ok"))

	p.result(types.OrganizeResult{SourcePath: "a.md", Status: types.StatusSkipped, Reason: "no matching rule"})
	assert.Equal(t, "skipped   a.md (no matching rule)\n", buf.String())
	assert.Equal(t, buf.String(), testutils.StripANSI(buf.String()))
}
