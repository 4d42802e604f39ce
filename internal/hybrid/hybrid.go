// Package hybrid implements HybridSearch (C5), the orchestration core that
// fuses VectorIndex (C2) and TextIndex (C3) signals, scores candidates with
// the Scorer (C1), and reconciles results against the authoritative
// MemoryStore (C4).
package hybrid

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amanmcp/mnemo/internal/merrors"
	"github.com/amanmcp/mnemo/internal/model"
	"github.com/amanmcp/mnemo/internal/store"
	"github.com/amanmcp/mnemo/pkg/scorer"
)

// overFetchFactor widens each sub-index query beyond the caller's requested
// limit so the fusion step has room to reorder candidates.
const overFetchFactor = 3

// Engine orchestrates C2+C3+C4+C1 behind a single coarse mutex. All search
// and mutation operations acquire Engine's lock; concurrent callers observe
// coarse-grained but internally consistent results — a store followed by a
// search on the same goroutine always sees the new memory.
type Engine struct {
	mu     sync.Mutex
	memory *store.MemoryStore
	vector *store.VectorIndex
	text   *store.TextIndex
	scorer scorer.Scorer
	now    func() time.Time
}

// New builds a HybridSearch engine over the given stores.
func New(memory *store.MemoryStore, vector *store.VectorIndex, text *store.TextIndex, sc scorer.Scorer) *Engine {
	return &Engine{memory: memory, vector: vector, text: text, scorer: sc, now: time.Now}
}

// Store inserts a memory: C4 first (authoritative), then the indices. If
// the memory carries an embedding it is upserted into the vector index;
// the text index always receives the title and content.
func (e *Engine) Store(ctx context.Context, m *model.Memory) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.memory.Insert(ctx, m); err != nil {
		return err
	}
	return e.indexMemory(ctx, m)
}

// indexMemory upserts m into the vector and text indices. Failure on one
// side is reported but the other side's write is not rolled back — a
// subsequent Rebuild reconciles from the authoritative store.
func (e *Engine) indexMemory(ctx context.Context, m *model.Memory) error {
	if len(m.Embedding) > 0 {
		if err := e.vector.Upsert(ctx, m.ID, m.Embedding); err != nil {
			return merrors.Index("index memory into vector store", err).WithDetail("id", m.ID)
		}
	}
	if err := e.text.Index(ctx, m.ID, m.Title, m.Content); err != nil {
		return merrors.Index("index memory into text store", err).WithDetail("id", m.ID)
	}
	return nil
}

// Remove deletes a memory: indices first, then the authoritative row. This
// ordering means a crash between steps leaves a live row that the indices
// no longer reference, never an index entry pointing at a deleted row; the
// store is authoritative, so the next Rebuild re-indexes the row.
func (e *Engine) Remove(ctx context.Context, id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.vector.Delete(ctx, []string{id}); err != nil {
		return false, merrors.Index("remove from vector index", err)
	}
	if err := e.text.Delete(ctx, []string{id}); err != nil {
		return false, merrors.Index("remove from text index", err)
	}
	if err := e.memory.Delete(ctx, id); err != nil {
		if merrors.KindOf(err) == merrors.KindNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Get returns a memory by id, with embedding stripped.
func (e *Engine) Get(ctx context.Context, id string) (*model.Memory, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.memory.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Embedding = nil
	return m, nil
}

// GetMany returns every memory present among ids, in no particular order,
// embeddings stripped.
func (e *Engine) GetMany(ctx context.Context, ids []string) ([]*model.Memory, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ms, err := e.memory.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range ms {
		m.Embedding = nil
	}
	return ms, nil
}

// IndexedCount returns the number of vectors currently in the vector
// index — the spec's definition of "indexed_count".
func (e *Engine) IndexedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vector.Count()
}

// MemoryCount returns the total number of memories in the authoritative
// store.
func (e *Engine) MemoryCount(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.memory.Count(ctx)
}

// Rebuild reconstructs the vector and text indices from the authoritative
// store. It is the cold-start consistency mechanism: no WAL crosses C2/C3,
// so any indexing work lost to a crash is recovered here in O(n).
func (e *Engine) Rebuild(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	embeddings, err := e.memory.AllEmbeddings(ctx)
	if err != nil {
		return err
	}
	if err := e.vector.BuildFrom(ctx, embeddings); err != nil {
		return merrors.Index("rebuild vector index", err)
	}

	textData, err := e.memory.AllTextData(ctx)
	if err != nil {
		return err
	}
	for _, td := range textData {
		if err := e.text.Index(ctx, td.ID, td.Title, td.Content); err != nil {
			return merrors.Index("rebuild text index", err).WithDetail("id", td.ID)
		}
	}

	slog.Info("hybrid index rebuilt", "vectors", e.vector.Count(), "documents", len(textData))
	return nil
}

// Search runs the fused vector+keyword+recency+priority retrieval
// described in spec §4.5.1.
func (e *Engine) Search(ctx context.Context, queryEmbedding []float32, q model.Query) ([]model.SearchResult, error) {
	if q.Limit <= 0 {
		return []model.SearchResult{}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	overFetch := q.Limit * overFetchFactor

	var (
		vectorHits []store.VectorResult
		textHits   []store.TextResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := e.vector.Search(gctx, queryEmbedding, overFetch)
		if err != nil {
			slog.Warn("vector search degraded to no signal", "error", err)
			return nil
		}
		vectorHits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := e.text.Search(gctx, q.Text, overFetch)
		if err != nil {
			slog.Warn("keyword search degraded to no signal", "error", err)
			return nil
		}
		textHits = hits
		return nil
	})
	_ = g.Wait() // errors are absorbed above; missing signal degrades gracefully

	semanticByID := make(map[string]float32, len(vectorHits))
	for _, h := range vectorHits {
		semanticByID[h.ID] = h.Score
	}

	rawKeywordByID := make(map[string]float32, len(textHits))
	var bm25Max float32
	for _, h := range textHits {
		rawKeywordByID[h.ID] = h.Score
		if h.Score > bm25Max {
			bm25Max = h.Score
		}
	}

	candidates := unionSortedIDs(vectorHits, textHits)

	now := e.now()
	type scored struct {
		id        string
		score     float32
		breakdown model.ScoreBreakdown
	}
	results := make([]scored, 0, len(candidates))

	for _, id := range candidates {
		m, err := e.memory.Get(ctx, id)
		if err != nil {
			continue // index-to-store skew: dropped silently per spec §4.5.1 step 7
		}

		semantic := semanticByID[id]
		keyword := float32(0)
		if bm25Max > 0 {
			keyword = rawKeywordByID[id] / bm25Max
		}

		daysSince := float32(now.Sub(m.AccessedAt).Hours() / 24.0)
		if daysSince < 0 {
			daysSince = 0
		}

		score, breakdown := e.scorer.CombinedScore(semantic, keyword, daysSince, m.Metadata.Priority)
		results = append(results, scored{id: id, score: score, breakdown: breakdown})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > q.Limit {
		results = results[:q.Limit]
	}

	survivorIDs := make([]string, len(results))
	for i, r := range results {
		survivorIDs[i] = r.id
	}
	memories, err := e.memory.GetMany(ctx, survivorIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Memory, len(memories))
	for _, m := range memories {
		byID[m.ID] = m
	}

	out := make([]model.SearchResult, 0, len(results))
	for _, r := range results {
		m, ok := byID[r.id]
		if !ok {
			continue
		}

		if err := e.memory.Touch(ctx, r.id, now); err != nil {
			slog.Warn("touch failed, access stats are advisory", "id", r.id, "error", err)
		}

		copied := *m
		copied.Embedding = nil
		if q.IndexOnly {
			copied.Content = ""
		}

		out = append(out, model.SearchResult{Memory: copied, Score: r.score, ScoreBreakdown: r.breakdown})
	}

	return out, nil
}

// unionSortedIDs deduplicates ids across both hit lists and sorts them, so
// that candidate iteration order (and therefore tie-breaking in the stable
// sort downstream) is deterministic given identical inputs.
func unionSortedIDs(vectorHits []store.VectorResult, textHits []store.TextResult) []string {
	seen := make(map[string]struct{}, len(vectorHits)+len(textHits))
	ids := make([]string, 0, len(vectorHits)+len(textHits))
	for _, h := range vectorHits {
		if _, ok := seen[h.ID]; !ok {
			seen[h.ID] = struct{}{}
			ids = append(ids, h.ID)
		}
	}
	for _, h := range textHits {
		if _, ok := seen[h.ID]; !ok {
			seen[h.ID] = struct{}{}
			ids = append(ids, h.ID)
		}
	}
	sort.Strings(ids)
	return ids
}
