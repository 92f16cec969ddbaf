package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }

func loadWithViper(t *testing.T, path string) Config {
	t.Helper()
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	cfg := Defaults()
	require.NoError(t, v.Unmarshal(&cfg))
	return cfg
}

func TestSavePreferredMode_CreatesNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draftpad.yaml")

	require.NoError(t, SavePreferredMode(path, "markdown"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ui:")
	assert.Contains(t, string(data), "default_mode: markdown")
	assert.Equal(t, "markdown", loadWithViper(t, path).UI.DefaultMode)
}

func TestSavePreferredMode_PreservesOtherConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draftpad.yaml")
	initial := `# my settings
editor:
  namespace: reply # replies by default
ui:
  markdown_style: light
storage:
  backend: memory
`
	require.NoError(t, os.WriteFile(path, []byte(initial), 0o600))

	require.NoError(t, SavePreferredMode(path, "richText"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# my settings")
	assert.Contains(t, content, "# replies by default")
	assert.Contains(t, content, "markdown_style: light")

	cfg := loadWithViper(t, path)
	assert.Equal(t, "richText", cfg.UI.DefaultMode)
	assert.Equal(t, "reply", cfg.Editor.Namespace)
	assert.Equal(t, "memory", cfg.Storage.Backend)
}

func TestSavePreferredMode_ReplacesExistingValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draftpad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ui:\n  default_mode: richText\n"), 0o600))

	require.NoError(t, SavePreferredMode(path, "markdown"))
	require.NoError(t, SavePreferredMode(path, "markdown"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "default_mode"))
	assert.Equal(t, "markdown", loadWithViper(t, path).UI.DefaultMode)
}

func TestSavePreferredMode_EmptyUISection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draftpad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ui:\nlog:\n  level: info\n"), 0o600))

	require.NoError(t, SavePreferredMode(path, "markdown"))

	cfg := loadWithViper(t, path)
	assert.Equal(t, "markdown", cfg.UI.DefaultMode)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestSavePreferredMode_RejectsUnknownMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draftpad.yaml")

	err := SavePreferredMode(path, "html")
	require.ErrorContains(t, err, "ui.default_mode")

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr), "nothing is written for an invalid mode")
}

func TestSavePreferredMode_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draftpad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ui: [unclosed\n"), 0o600))

	err := SavePreferredMode(path, "markdown")
	require.ErrorContains(t, err, "parsing config")
}

func TestSavePreferredMode_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "draftpad.yaml")

	require.NoError(t, SavePreferredMode(path, "markdown"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "draftpad.yaml", entries[0].Name())
}
