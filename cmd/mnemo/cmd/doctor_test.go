package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorReportsNoIssuesAfterStore(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("MNEMO_DATA_DIR", filepath.Join(tmpDir, "data"))

	run := func(args ...string) string {
		t.Helper()
		rootCmd := NewRootCmd()
		buf := &bytes.Buffer{}
		rootCmd.SetOut(buf)
		rootCmd.SetArgs(args)
		require.NoError(t, rootCmd.Execute())
		return buf.String()
	}

	run("store", "note about the filesystem watcher", "--title", "watcher notes", "--offline")

	out := run("doctor", "--offline")
	assert.Contains(t, out, "no inconsistencies found")
}
