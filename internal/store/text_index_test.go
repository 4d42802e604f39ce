package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextIndexSearchMatchesParticleVariant(t *testing.T) {
	ctx := context.Background()
	idx, err := NewTextIndex("")
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Index(ctx, "a", "언어", "이것은 한국어로 작성된 메모입니다"))
	require.NoError(t, idx.Index(ctx, "b", "날씨", "오늘 날씨가 맑습니다"))

	results, err := idx.Search(ctx, "한국어", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestTextIndexSearchASCIIIdentifier(t *testing.T) {
	ctx := context.Background()
	idx, err := NewTextIndex("")
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Index(ctx, "a", "fix", "renamed getUserById to fetchUserByID"))

	results, err := idx.Search(ctx, "user", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestTextIndexDeleteRemovesDocument(t *testing.T) {
	ctx := context.Background()
	idx, err := NewTextIndex("")
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Index(ctx, "a", "t", "hello world"))
	require.NoError(t, idx.Delete(ctx, []string{"a"}))

	results, err := idx.Search(ctx, "hello", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTextIndexEmptyQuery(t *testing.T) {
	ctx := context.Background()
	idx, err := NewTextIndex("")
	require.NoError(t, err)
	defer idx.Close()

	results, err := idx.Search(ctx, "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTextIndexAllIDs(t *testing.T) {
	ctx := context.Background()
	idx, err := NewTextIndex("")
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Index(ctx, "a", "t1", "one"))
	require.NoError(t, idx.Index(ctx, "b", "t2", "two"))

	ids, err := idx.AllIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
	assert.Equal(t, 2, idx.Count())
}
