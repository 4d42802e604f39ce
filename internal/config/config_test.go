package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultReturnsSpecDefaults(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, 0.6, cfg.Search.SemanticWeight)
	assert.Equal(t, 0.15, cfg.Search.KeywordWeight)
	assert.Equal(t, 0.15, cfg.Search.RecencyWeight)
	assert.Equal(t, 0.10, cfg.Search.ImportanceWeight)
	assert.Equal(t, 30.0, cfg.Search.RecencyHalfLifeDays)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)

	assert.Equal(t, 1024, cfg.Embedding.Dimensions)
	assert.Equal(t, "~/.mnemo", cfg.Storage.DataDir)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8765, cfg.Server.Port)
}

func TestLoadWithMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Search.SemanticWeight, cfg.Search.SemanticWeight)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[storage]
data_dir = "/tmp/custom-mnemo"

[search]
semantic_weight = 0.8
default_limit = 25
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-mnemo", cfg.Storage.DataDir)
	assert.Equal(t, 0.8, cfg.Search.SemanticWeight)
	assert.Equal(t, 25, cfg.Search.DefaultLimit)
	// Untouched fields keep their defaults.
	assert.Equal(t, 0.15, cfg.Search.KeywordWeight)
}

func TestLoadExpandsHomeInDataDir(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".mnemo"), cfg.Storage.DataDir)
}

func TestEnvOverridesTakePrecedenceOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[search]\nsemantic_weight = 0.5\n"), 0o644))

	t.Setenv("MNEMO_SEMANTIC_WEIGHT", "0.9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Search.SemanticWeight)
}

func TestEnvOverridesDataDirAndPort(t *testing.T) {
	t.Setenv("MNEMO_DATA_DIR", "/var/lib/mnemo")
	t.Setenv("MNEMO_SERVER_PORT", "9999")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/mnemo", cfg.Storage.DataDir)
	assert.Equal(t, 9999, cfg.Server.Port)
}
