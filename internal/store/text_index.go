package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/amanmcp/mnemo/internal/merrors"
)

// TextResult is one BM25 match from a TextIndex search.
type TextResult struct {
	ID    string
	Score float32
}

// textDocument is the bleve document shape indexed per memory.
type textDocument struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// TextIndex is the BM25 keyword index over memory title and content (C3),
// backed by bleve with a Hangul- and identifier-aware custom analyzer.
type TextIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// NewTextIndex opens or creates a bleve index at path. An empty path
// creates an in-memory index, used for tests.
func NewTextIndex(path string) (*TextIndex, error) {
	indexMapping, err := newMemoryIndexMapping()
	if err != nil {
		return nil, merrors.Index("build text index mapping", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, merrors.Storage("create text index directory", mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, merrors.Index("open text index", err)
	}

	return &TextIndex{index: idx, path: path}, nil
}

func newMemoryIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	if err := indexMapping.AddCustomAnalyzer(MemoryAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": MemoryTokenizerName,
		"token_filters": []string{
			lowercase.Name,
		},
	}); err != nil {
		return nil, fmt.Errorf("add custom analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = MemoryAnalyzerName
	return indexMapping, nil
}

// Index upserts a memory's searchable text. Re-indexing an id replaces its
// prior document.
func (t *TextIndex) Index(ctx context.Context, id, title, content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return merrors.Index("text index is closed", nil)
	}

	return t.index.Index(id, textDocument{Title: title, Content: content})
}

// Search returns up to limit documents matching query, scored by BM25.
func (t *TextIndex) Search(ctx context.Context, query string, limit int) ([]TextResult, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return nil, merrors.Index("text index is closed", nil)
	}
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return []TextResult{}, nil
	}

	titleQuery := bleve.NewMatchQuery(query)
	titleQuery.SetField("title")
	titleQuery.SetBoost(2.0)

	contentQuery := bleve.NewMatchQuery(query)
	contentQuery.SetField("content")

	disjunction := bleve.NewDisjunctionQuery(titleQuery, contentQuery)

	req := bleve.NewSearchRequest(disjunction)
	req.Size = limit

	result, err := t.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, merrors.Index("text search failed", err)
	}

	results := make([]TextResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		results = append(results, TextResult{ID: hit.ID, Score: float32(hit.Score)})
	}
	return results, nil
}

// Delete removes ids from the index.
func (t *TextIndex) Delete(ctx context.Context, ids []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return merrors.Index("text index is closed", nil)
	}

	batch := t.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := t.index.Batch(batch); err != nil {
		return merrors.Index("delete from text index", err)
	}
	return nil
}

// AllIDs returns every document id currently in the index, used by the
// consistency checker.
func (t *TextIndex) AllIDs() ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return nil, merrors.Index("text index is closed", nil)
	}

	docCount, err := t.index.DocCount()
	if err != nil {
		return nil, merrors.Index("count text documents", err)
	}

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(docCount)
	req.Fields = []string{}

	result, err := t.index.Search(req)
	if err != nil {
		return nil, merrors.Index("enumerate text documents", err)
	}

	ids := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// Count returns the number of indexed documents.
func (t *TextIndex) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return 0
	}
	n, _ := t.index.DocCount()
	return int(n)
}

// Close releases the underlying bleve index.
func (t *TextIndex) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.index.Close()
}
