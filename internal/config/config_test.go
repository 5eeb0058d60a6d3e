package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(Flags("test"))
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Dir)
	assert.Equal(t, filepath.Join(".", "hashcards.db"), cfg.DB)
	assert.Equal(t, "127.0.0.1:8045", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Sources)
}

func TestLoadFileThenEnvThenFlags(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yml := []byte("dir: decks\nlisten: 127.0.0.1:9000\nlog-level: warn\n")
	require.NoError(t, os.WriteFile(DefaultFile, yml, 0o644))
	require.NoError(t, os.Mkdir("decks", 0o755))

	// Environment overrides the file.
	t.Setenv("HASHCARDS_LOG_LEVEL", "debug")
	t.Setenv("HASHCARDS_SOURCES", "https://github.com/a/x.git https://github.com/a/y.git")

	// Flags override both.
	flags := Flags("test")
	require.NoError(t, flags.Parse([]string{"--listen", "127.0.0.1:9999"}))

	cfg, err := Load(flags)
	require.NoError(t, err)

	assert.Equal(t, "decks", cfg.Dir)
	assert.Equal(t, filepath.Join("decks", "hashcards.db"), cfg.DB)
	assert.Equal(t, "127.0.0.1:9999", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"https://github.com/a/x.git", "https://github.com/a/y.git"}, cfg.Sources)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	flags := Flags("test")
	require.NoError(t, flags.Parse([]string{"--config", "nope.yml"}))

	_, err := Load(flags)
	require.Error(t, err)
}

func TestLoadRejectsBadLevel(t *testing.T) {
	t.Chdir(t.TempDir())

	flags := Flags("test")
	require.NoError(t, flags.Parse([]string{"--log-level", "loud"}))

	_, err := Load(flags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.in}
		assert.Equal(t, tt.want, cfg.Level().String())
	}
}
