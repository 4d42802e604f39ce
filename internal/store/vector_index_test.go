package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorIndexUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(4)

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0, 0, 0}))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{0, 1, 0, 0}))
	require.NoError(t, idx.Upsert(ctx, "c", []float32{0.9, 0.1, 0, 0}))

	results, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
}

func TestVectorIndexDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(4)

	err := idx.Upsert(ctx, "a", []float32{1, 0})
	require.Error(t, err)
}

func TestVectorIndexDeleteIsImmediatelyAbsent(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(3)

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0, 0}))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{0, 1, 0}))
	require.NoError(t, idx.Delete(ctx, []string{"a"}))

	assert.Equal(t, 1, idx.Count())

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ID)
	}
}

func TestVectorIndexUpsertReplacesExisting(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0}))
	require.NoError(t, idx.Upsert(ctx, "a", []float32{0, 1}))

	assert.Equal(t, 1, idx.Count())
	ids := idx.AllIDs()
	require.Len(t, ids, 1)
	assert.Equal(t, "a", ids[0])
}

func TestVectorIndexSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(3)
	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0, 0}))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{0, 1, 0}))

	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.bin")
	require.NoError(t, idx.Save(path))

	loaded := NewVectorIndex(3)
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, idx.Count(), loaded.Count())
	assert.ElementsMatch(t, idx.AllIDs(), loaded.AllIDs())
}

func TestVectorIndexBuildFromReclaimsOrphans(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)
	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0}))
	require.NoError(t, idx.Upsert(ctx, "a", []float32{0, 1}))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{1, 1}))
	require.NoError(t, idx.Delete(ctx, []string{"b"}))

	err := idx.BuildFrom(ctx, []struct {
		ID     string
		Vector []float32
	}{
		{ID: "a", Vector: []float32{0, 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Count())
}
