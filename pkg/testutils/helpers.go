package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// CreateTestFilesWithContent creates vault files from slash-separated relative
// paths, creating parent folders as needed.
func CreateTestFilesWithContent(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

// CreateVault returns a temporary vault holding files.
func CreateVault(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	CreateTestFilesWithContent(t, root, files)
	return root
}

// CreateTestFilesWithDefault seeds a vault with a person, a place and a
// template for the default rules.
func CreateTestFilesWithDefault(t *testing.T, dir string) {
	CreateTestFilesWithContent(t, dir, map[string]string{
		"@Alice.md":                    "# Alice\n",
		"Paris@":                       "# Paris\n",
		"shopping.md":                  "- milk\n",
		"Templates/Person Template.md": "## Birthday\n",
		"People/.keep":                 "",
	})
}

// ReadFile returns the content of a vault file, failing the test if absent.
func ReadFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

// WaitFor polls cond until it holds or timeout elapses.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

// StripANSI removes ANSI escape sequences from a string
func StripANSI(str string) string {
	var result []rune
	inEscape := false
	for _, r := range str {
		if r == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
				inEscape = false
			}
			continue
		}
		result = append(result, r)
	}
	return string(result)
}
