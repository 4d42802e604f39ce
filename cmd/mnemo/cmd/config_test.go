package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInitWritesFileThenRefusesWithoutForce(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	configPath = path
	defer func() { configPath = "" }()

	cmd := newConfigInitCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(path)
	require.NoError(t, err)

	cmd = newConfigInitCmd()
	cmd.SetOut(buf)
	err = cmd.Execute()
	assert.Error(t, err)
}

func TestConfigPathPrintsDefaultWhenUnset(t *testing.T) {
	configPath = ""
	cmd := newConfigPathCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "mnemo")
}

func TestConfigShowReflectsOverriddenDataDir(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	configPath = path
	defer func() { configPath = "" }()

	require.NoError(t, os.WriteFile(path, []byte("[storage]\ndata_dir = \"/tmp/custom-mnemo\"\n"), 0o644))

	cmd := newConfigShowCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "/tmp/custom-mnemo")
}
