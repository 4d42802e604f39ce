package embed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ProviderType selects which Embedder implementation New builds.
type ProviderType string

const (
	// ProviderOllama talks to a local Ollama server (default).
	ProviderOllama ProviderType = "ollama"
	// ProviderStatic uses the dependency-free hash-based embedder.
	ProviderStatic ProviderType = "static"
	// ProviderNone disables embedding entirely; HybridSearch degrades to
	// keyword-only retrieval.
	ProviderNone ProviderType = "none"
)

// New builds an Embedder for provider, honoring the MNEMO_EMBEDDER
// environment variable as an override. dimensions, if non-zero, is passed
// through to the Ollama config and to StaticEmbedder; auto-detection
// otherwise applies.
//
// A nil Embedder and nil error is returned for ProviderNone: callers then
// search with no query embedding, so the vector pass contributes nothing.
func New(ctx context.Context, provider ProviderType, model string, dimensions int, cacheEnabled bool) (Embedder, error) {
	if override := os.Getenv("MNEMO_EMBEDDER"); override != "" {
		provider = ProviderType(strings.ToLower(override))
	}

	var (
		embedder Embedder
		err      error
	)

	switch provider {
	case ProviderNone:
		return nil, nil

	case ProviderStatic:
		embedder = NewStaticEmbedder(dimensions)

	case ProviderOllama, "":
		embedder, err = newOllama(ctx, model, dimensions)
		if err != nil {
			slog.Warn("ollama embedder unavailable, falling back to static", "error", err)
			embedder = NewStaticEmbedder(dimensions)
		}

	default:
		return nil, fmt.Errorf("unknown embedder provider %q", provider)
	}

	if cacheEnabled {
		embedder = NewCachedEmbedder(embedder, DefaultCacheSize)
	}
	return embedder, nil
}

func newOllama(ctx context.Context, model string, dimensions int) (Embedder, error) {
	cfg := DefaultOllamaConfig()
	if model != "" {
		cfg.Model = model
	}
	if dimensions > 0 {
		cfg.Dimensions = dimensions
	}
	if host := os.Getenv("MNEMO_OLLAMA_HOST"); host != "" {
		cfg.Host = host
	}
	return NewOllamaEmbedder(ctx, cfg)
}
