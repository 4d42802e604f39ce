package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/amanmcp/mnemo/internal/merrors"
)

// VectorResult is one nearest-neighbor match from a VectorIndex search.
type VectorResult struct {
	ID    string
	Score float32
}

// VectorIndex is the approximate nearest-neighbor index over memory
// embeddings (C2). It maintains a bidirectional mapping between the
// string memory id used everywhere else in mnemo and the uint64 node key
// that coder/hnsw requires.
type VectorIndex struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[uint64]
	dimensions int

	idToKey map[string]uint64
	keyToID map[uint64]string
	nextKey uint64
}

type vectorIndexMetadata struct {
	IDToKey    map[string]uint64
	NextKey    uint64
	Dimensions int
}

// NewVectorIndex creates an empty cosine-metric HNSW index for the given
// embedding dimensionality.
func NewVectorIndex(dimensions int) *VectorIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &VectorIndex{
		graph:      graph,
		dimensions: dimensions,
		idToKey:    make(map[string]uint64),
		keyToID:    make(map[uint64]string),
	}
}

// Dimensions returns the configured embedding width.
func (v *VectorIndex) Dimensions() int {
	return v.dimensions
}

// Upsert inserts or replaces the embedding for id. An existing id is
// evicted from the id maps before being re-added; the stale graph node is
// left behind (orphaned) rather than deleted in place, matching the
// reference HNSW wrapper's avoidance of a coder/hnsw bug triggered by
// deleting the graph's last remaining node. Orphans are reclaimed on the
// next BuildFrom.
func (v *VectorIndex) Upsert(ctx context.Context, id string, vector []float32) error {
	if len(vector) != v.dimensions {
		return merrors.Index("vector dimension mismatch", nil).
			WithDetail("expected", fmt.Sprintf("%d", v.dimensions)).
			WithDetail("got", fmt.Sprintf("%d", len(vector)))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if oldKey, exists := v.idToKey[id]; exists {
		delete(v.keyToID, oldKey)
		delete(v.idToKey, id)
	}

	key := v.nextKey
	v.nextKey++

	vec := make([]float32, len(vector))
	copy(vec, vector)
	normalizeInPlace(vec)

	v.graph.Add(hnsw.MakeNode(key, vec))
	v.idToKey[id] = key
	v.keyToID[key] = id
	return nil
}

// Search returns up to k nearest neighbors to query, sorted by descending
// similarity. An id removed via Delete never appears in results, since the
// key map lookup that would resolve the graph node to an id is gone.
func (v *VectorIndex) Search(ctx context.Context, query []float32, k int) ([]VectorResult, error) {
	if len(query) != v.dimensions {
		return nil, merrors.Index("vector dimension mismatch", nil)
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.graph.Len() == 0 || k <= 0 {
		return []VectorResult{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalizeInPlace(q)

	// Over-fetch from the graph to absorb orphaned/deleted nodes that
	// still occupy slots, then trim to k valid results.
	fetch := k
	if orphans := v.graph.Len() - len(v.idToKey); orphans > 0 {
		fetch += orphans
	}
	if fetch > v.graph.Len() {
		fetch = v.graph.Len()
	}

	nodes := v.graph.Search(q, fetch)
	results := make([]VectorResult, 0, len(nodes))
	for _, node := range nodes {
		id, ok := v.keyToID[node.Key]
		if !ok {
			continue
		}
		distance := v.graph.Distance(q, node.Value)
		results = append(results, VectorResult{ID: id, Score: 1.0 - distance/2.0})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// Delete removes ids from the index. They are immediately absent from
// subsequent Search results.
func (v *VectorIndex) Delete(ctx context.Context, ids []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, id := range ids {
		if key, ok := v.idToKey[id]; ok {
			delete(v.keyToID, key)
			delete(v.idToKey, id)
		}
	}
	return nil
}

// AllIDs returns every id currently present in the index.
func (v *VectorIndex) AllIDs() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ids := make([]string, 0, len(v.idToKey))
	for id := range v.idToKey {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of live (non-orphaned) vectors.
func (v *VectorIndex) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.idToKey)
}

// BuildFrom replaces the index contents wholesale, discarding any orphaned
// graph nodes accumulated by prior Upsert/Delete calls. Used during the
// startup consistency rebuild.
func (v *VectorIndex) BuildFrom(ctx context.Context, entries []struct {
	ID     string
	Vector []float32
}) error {
	v.mu.Lock()
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25
	v.graph = graph
	v.idToKey = make(map[string]uint64)
	v.keyToID = make(map[uint64]string)
	v.nextKey = 0
	v.mu.Unlock()

	for _, e := range entries {
		if err := v.Upsert(ctx, e.ID, e.Vector); err != nil {
			return err
		}
	}
	return nil
}

// Save persists the graph and id mappings to path (graph) and path+".meta".
func (v *VectorIndex) Save(path string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return merrors.Storage("create vector index directory", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return merrors.Storage("create vector index file", err)
	}
	if err := v.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return merrors.Storage("export vector graph", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return merrors.Storage("close vector index file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return merrors.Storage("rename vector index file", err)
	}

	return v.saveMetadata(path + ".meta")
}

func (v *VectorIndex) saveMetadata(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return merrors.Storage("create vector metadata file", err)
	}
	meta := vectorIndexMetadata{IDToKey: v.idToKey, NextKey: v.nextKey, Dimensions: v.dimensions}
	if err := gob.NewEncoder(f).Encode(meta); err != nil {
		f.Close()
		os.Remove(tmp)
		return merrors.Storage("encode vector metadata", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return merrors.Storage("close vector metadata file", err)
	}
	return os.Rename(tmp, path)
}

// Load restores a previously-saved graph and its id mappings from disk.
func (v *VectorIndex) Load(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.loadMetadata(path + ".meta"); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return merrors.Storage("open vector index file", err)
	}
	defer f.Close()

	if err := v.graph.Import(bufio.NewReader(f)); err != nil {
		return merrors.Storage("import vector graph", err)
	}
	return nil
}

func (v *VectorIndex) loadMetadata(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return merrors.Storage("open vector metadata file", err)
	}
	defer f.Close()

	var meta vectorIndexMetadata
	if err := gob.NewDecoder(f).Decode(&meta); err != nil {
		return merrors.Storage("decode vector metadata", err)
	}

	v.idToKey = meta.IDToKey
	v.nextKey = meta.NextKey
	v.dimensions = meta.Dimensions
	v.keyToID = make(map[uint64]string, len(meta.IDToKey))
	for id, key := range meta.IDToKey {
		v.keyToID[key] = id
	}
	return nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
