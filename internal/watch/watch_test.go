package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherIngestsMatchingFileOnCreate(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var ingested []string

	w := New([]string{dir}, true, []string{".md"}, func(ctx context.Context, path string, content []byte) error {
		mu.Lock()
		defer mu.Unlock()
		ingested = append(ingested, path)
		return nil
	}, os.ReadFile)
	w.debounceWindow = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond) // let the watcher attach before writing

	target := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(target, []byte("a new memory"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ingested) == 1
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}

func TestWatcherIgnoresNonMatchingExtension(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var count int

	w := New([]string{dir}, true, []string{".md"}, func(ctx context.Context, path string, content []byte) error {
		mu.Lock()
		defer mu.Unlock()
		count++
		return nil
	}, os.ReadFile)
	w.debounceWindow = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "binary.exe"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 0, count)
	mu.Unlock()

	cancel()
	<-done
}

func TestMatchesExtensionIsCaseInsensitive(t *testing.T) {
	w := New(nil, false, []string{".md"}, nil, nil)
	assert.True(t, w.matchesExtension("NOTES.MD"))
	assert.False(t, w.matchesExtension("notes.txt"))
}

func TestMatchesExtensionEmptyAllowListMatchesAnything(t *testing.T) {
	w := New(nil, false, nil, nil, nil)
	assert.True(t, w.matchesExtension("anything.bin"))
}
