package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectorMagnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestStaticEmbedderReturnsConfiguredDimensions(t *testing.T) {
	embedder := NewStaticEmbedder(128)
	defer embedder.Close()

	v, err := embedder.Embed(context.Background(), "a memory about testing")
	require.NoError(t, err)
	assert.Len(t, v, 128)
}

func TestStaticEmbedderVectorIsNormalized(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer embedder.Close()

	v, err := embedder.Embed(context.Background(), "한국어 형태소 분석")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vectorMagnitude(v), 0.001)
}

func TestStaticEmbedderIsDeterministic(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer embedder.Close()

	text := "decided to use sqlite for the metadata store"
	v1, err := embedder.Embed(context.Background(), text)
	require.NoError(t, err)
	v2, err := embedder.Embed(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestStaticEmbedderEmptyTextReturnsZeroVector(t *testing.T) {
	embedder := NewStaticEmbedder(32)
	defer embedder.Close()

	v, err := embedder.Embed(context.Background(), "   ")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestStaticEmbedderEmbedBatchPreservesOrder(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer embedder.Close()

	texts := []string{"first memory", "second memory", "third memory"}
	batch, err := embedder.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range texts {
		single, err := embedder.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestStaticEmbedderClosedRejectsCalls(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	require.NoError(t, embedder.Close())

	_, err := embedder.Embed(context.Background(), "text")
	assert.Error(t, err)
	assert.False(t, embedder.Available(context.Background()))
}
