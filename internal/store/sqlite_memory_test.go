package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanmcp/mnemo/internal/merrors"
	"github.com/amanmcp/mnemo/internal/model"
)

func newTestMemory(id string) *model.Memory {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &model.Memory{
		ID:         id,
		Content:    "test content",
		Title:      "test title",
		Metadata:   model.DefaultMetadata(),
		Embedding:  []float32{0.1, 0.2, 0.3},
		CreatedAt:  now,
		UpdatedAt:  now,
		AccessedAt: now,
	}
}

func TestMemoryStoreInsertAndGet(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemoryStore("")
	require.NoError(t, err)
	defer s.Close()

	m := newTestMemory("a")
	m.Metadata.Tags = []string{"x", "y"}
	require.NoError(t, s.Insert(ctx, m))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "test content", got.Content)
	assert.Equal(t, []string{"x", "y"}, got.Metadata.Tags)
	require.Len(t, got.Embedding, 3)
	assert.InDelta(t, 0.2, got.Embedding[1], 0.0001)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemoryStore("")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, merrors.KindNotFound, merrors.KindOf(err))
}

func TestMemoryStoreGetManyPreservesOrder(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemoryStore("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Insert(ctx, newTestMemory("a")))
	require.NoError(t, s.Insert(ctx, newTestMemory("b")))
	require.NoError(t, s.Insert(ctx, newTestMemory("c")))

	got, err := s.GetMany(ctx, []string{"c", "a", "missing", "b"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestMemoryStoreTouchUpdatesAccess(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemoryStore("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Insert(ctx, newTestMemory("a")))
	later := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Touch(ctx, "a", later))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got.AccessCount)
	assert.True(t, got.AccessedAt.Equal(later))
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemoryStore("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Insert(ctx, newTestMemory("a")))
	require.NoError(t, s.Delete(ctx, "a"))

	_, err = s.Get(ctx, "a")
	require.Error(t, err)

	err = s.Delete(ctx, "a")
	require.Error(t, err)
	assert.Equal(t, merrors.KindNotFound, merrors.KindOf(err))
}

func TestMemoryStoreAllEmbeddingsAndTextData(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemoryStore("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Insert(ctx, newTestMemory("a")))

	withEmbeddings := newTestMemory("b")
	withEmbeddings.Embedding = nil
	require.NoError(t, s.Insert(ctx, withEmbeddings))

	embeddings, err := s.AllEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, embeddings, 1)
	assert.Equal(t, "a", embeddings[0].ID)

	textData, err := s.AllTextData(ctx)
	require.NoError(t, err)
	assert.Len(t, textData, 2)
}

func TestMemoryStoreCountAndAllIDs(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemoryStore("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Insert(ctx, newTestMemory("a")))
	require.NoError(t, s.Insert(ctx, newTestMemory("b")))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ids, err := s.AllIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}
