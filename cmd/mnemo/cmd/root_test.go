package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdHasAllSubcommands(t *testing.T) {
	rootCmd := NewRootCmd()
	for _, name := range []string{"serve", "search", "store", "get", "delete", "stats", "doctor", "config", "version"} {
		_, _, err := rootCmd.Find([]string{name})
		assert.NoError(t, err, "expected subcommand %q to be registered", name)
	}
}

func TestStoreSearchStatsRoundTripThroughCLI(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("MNEMO_DATA_DIR", filepath.Join(tmpDir, "data"))

	runCmd := func(args ...string) string {
		t.Helper()
		rootCmd := NewRootCmd()
		buf := &bytes.Buffer{}
		rootCmd.SetOut(buf)
		rootCmd.SetErr(buf)
		rootCmd.SetArgs(args)
		require.NoError(t, rootCmd.Execute())
		return buf.String()
	}

	storeOut := runCmd("store", "hybrid retrieval design notes", "--title", "design", "--offline")
	assert.Contains(t, storeOut, "stored")

	searchOut := runCmd("search", "hybrid retrieval", "--offline")
	assert.Contains(t, searchOut, "design")

	statsOut := runCmd("stats", "--json", "--offline")
	assert.Contains(t, statsOut, `"total_memories": 1`)
}
