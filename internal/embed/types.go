// Package embed provides the Embedder contract (C6) and its
// implementations: an HTTP client against a local Ollama server, a
// dependency-free hash-based fallback, and an LRU-caching decorator.
package embed

import (
	"context"
	"math"
	"time"
)

// Embedding and batching defaults.
const (
	DefaultBatchSize = 32
	DefaultTimeout   = 30 * time.Second
	DefaultMaxRetries = 3

	// DefaultDimensions is used when neither config nor auto-detection
	// supplies a width.
	DefaultDimensions = 1024

	// StaticDimensions is the width of StaticEmbedder's hash-based vectors.
	// It is independent of the model embedder's width; a vector whose width
	// differs from the VectorIndex's is rejected by VectorIndex.Upsert and
	// Search with a dimension-mismatch error.
	StaticDimensions = 1024
)

// Embedder generates fixed-width, L2-normalized vectors from text (C6).
// Implementations must return a vector of exactly Dimensions() length.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Available(ctx context.Context) bool
	Close() error
}

// normalizeVector L2-normalizes v in place and returns it. The zero vector
// is returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}
