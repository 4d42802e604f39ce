package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps StaticEmbedder but counts Embed/EmbedBatch calls,
// so tests can assert on cache hit/miss behavior.
type countingEmbedder struct {
	*StaticEmbedder
	calls atomic.Int32
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return c.StaticEmbedder.Embed(ctx, text)
}

func TestCachedEmbedderHitsCacheOnRepeatedText(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder(16)}
	cached := NewCachedEmbedder(inner, 10)

	ctx := context.Background()
	_, err := cached.Embed(ctx, "repeated text")
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "repeated text")
	require.NoError(t, err)

	assert.EqualValues(t, 1, inner.calls.Load())
}

func TestCachedEmbedderDistinctTextMisses(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder(16)}
	cached := NewCachedEmbedder(inner, 10)

	ctx := context.Background()
	_, err := cached.Embed(ctx, "one")
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "two")
	require.NoError(t, err)

	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestCachedEmbedderBatchReusesCachedEntries(t *testing.T) {
	inner := NewStaticEmbedder(8)
	cached := NewCachedEmbedder(inner, 10)

	ctx := context.Background()
	_, err := cached.Embed(ctx, "already cached")
	require.NoError(t, err)

	batch, err := cached.EmbedBatch(ctx, []string{"already cached", "new one"})
	require.NoError(t, err)
	require.Len(t, batch, 2)
}

func TestCachedEmbedderPassesThroughMetadata(t *testing.T) {
	inner := NewStaticEmbedder(8)
	cached := NewCachedEmbedder(inner, 10)

	assert.Equal(t, inner.Dimensions(), cached.Dimensions())
	assert.Equal(t, inner.ModelName(), cached.ModelName())
	assert.Same(t, inner, cached.Inner())
}
