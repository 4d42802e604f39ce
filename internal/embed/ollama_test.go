package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeOllamaServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{{"name": DefaultOllamaModel}},
		})
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var n int
		switch v := req.Input.(type) {
		case string:
			n = 1
		case []any:
			n = len(v)
		}
		embeddings := make([][]float64, n)
		for i := range embeddings {
			vec := make([]float64, dims)
			vec[0] = 1.0
			embeddings[i] = vec
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Model: DefaultOllamaModel, Embeddings: embeddings})
	})
	return httptest.NewServer(mux)
}

func TestOllamaEmbedderAutoDetectsDimensionsAndEmbeds(t *testing.T) {
	srv := newFakeOllamaServer(t, 8)
	defer srv.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL

	embedder, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer embedder.Close()

	assert.Equal(t, 8, embedder.Dimensions())

	v, err := embedder.Embed(context.Background(), "a memory")
	require.NoError(t, err)
	assert.Len(t, v, 8)
	assert.InDelta(t, 1.0, vectorMagnitude(v), 0.001)
}

func TestOllamaEmbedderEmbedBatchPreservesOrderAndEmptyTexts(t *testing.T) {
	srv := newFakeOllamaServer(t, 4)
	defer srv.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL
	cfg.BatchSize = 2

	embedder, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer embedder.Close()

	batch, err := embedder.EmbedBatch(context.Background(), []string{"one", "", "three"})
	require.NoError(t, err)
	require.Len(t, batch, 3)
	for _, x := range batch[1] {
		assert.Zero(t, x)
	}
}

func TestOllamaEmbedderFallsBackToSecondaryModel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{{"name": "embeddinggemma:latest"}},
		})
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float64{{1, 0, 0}}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = srv.URL
	cfg.Model = "qwen3-embedding:0.6b"
	cfg.FallbackModels = []string{"embeddinggemma"}

	embedder, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer embedder.Close()
	assert.Equal(t, "embeddinggemma:latest", embedder.ModelName())
}

func TestOllamaEmbedderUnreachableServerFails(t *testing.T) {
	cfg := DefaultOllamaConfig()
	cfg.Host = "http://127.0.0.1:1"
	cfg.ConnectTimeout = 0

	_, err := NewOllamaEmbedder(context.Background(), cfg)
	require.Error(t, err)
}
