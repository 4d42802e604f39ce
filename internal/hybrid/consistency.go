package hybrid

import (
	"context"
	"log/slog"
	"time"

	"github.com/amanmcp/mnemo/internal/store"
)

// InconsistencyType categorizes a detected cross-store drift.
type InconsistencyType int

const (
	// InconsistencyOrphanText is a text-index entry without a matching memory.
	InconsistencyOrphanText InconsistencyType = iota
	// InconsistencyOrphanVector is a vector-index entry without a matching memory.
	InconsistencyOrphanVector
	// InconsistencyMissingText is a memory absent from the text index.
	InconsistencyMissingText
	// InconsistencyMissingVector is a memory with an embedding absent from the vector index.
	InconsistencyMissingVector
)

func (t InconsistencyType) String() string {
	switch t {
	case InconsistencyOrphanText:
		return "orphan_text"
	case InconsistencyOrphanVector:
		return "orphan_vector"
	case InconsistencyMissingText:
		return "missing_text"
	case InconsistencyMissingVector:
		return "missing_vector"
	default:
		return "unknown"
	}
}

// Inconsistency is one detected drift between the authoritative store and
// an index.
type Inconsistency struct {
	Type     InconsistencyType
	MemoryID string
	Details  string
}

// CheckResult is the outcome of a Doctor.Check pass.
type CheckResult struct {
	Checked         int
	Inconsistencies []Inconsistency
	Duration        time.Duration
}

// Doctor validates that the vector and text indices agree with the
// authoritative memory store, for the `mnemo doctor` subcommand.
type Doctor struct {
	memory *store.MemoryStore
	vector *store.VectorIndex
	text   *store.TextIndex
}

// NewDoctor builds a consistency checker over the given stores.
func NewDoctor(memory *store.MemoryStore, vector *store.VectorIndex, text *store.TextIndex) *Doctor {
	return &Doctor{memory: memory, vector: vector, text: text}
}

// Check scans all three stores and reports orphans and missing entries.
// O(n) in the total number of memories plus index entries.
func (d *Doctor) Check(ctx context.Context) (*CheckResult, error) {
	start := time.Now()
	var issues []Inconsistency

	memoryIDs, err := d.memory.AllIDs(ctx)
	if err != nil {
		return nil, err
	}
	memorySet := make(map[string]bool, len(memoryIDs))
	for _, id := range memoryIDs {
		memorySet[id] = true
	}

	embeddings, err := d.memory.AllEmbeddings(ctx)
	if err != nil {
		return nil, err
	}
	hasEmbeddingSet := make(map[string]bool, len(embeddings))
	for _, e := range embeddings {
		hasEmbeddingSet[e.ID] = true
	}

	textIDs, err := d.text.AllIDs()
	if err != nil {
		slog.Warn("failed to list text index ids for consistency check", "error", err)
	}
	vectorIDs := d.vector.AllIDs()

	textSet := make(map[string]bool, len(textIDs))
	for _, id := range textIDs {
		textSet[id] = true
		if !memorySet[id] {
			issues = append(issues, Inconsistency{Type: InconsistencyOrphanText, MemoryID: id, Details: "text index entry without matching memory"})
		}
	}

	vectorSet := make(map[string]bool, len(vectorIDs))
	for _, id := range vectorIDs {
		vectorSet[id] = true
		if !memorySet[id] {
			issues = append(issues, Inconsistency{Type: InconsistencyOrphanVector, MemoryID: id, Details: "vector index entry without matching memory"})
		}
	}

	for id := range memorySet {
		if !textSet[id] {
			issues = append(issues, Inconsistency{Type: InconsistencyMissingText, MemoryID: id, Details: "memory missing from text index"})
		}
		if hasEmbeddingSet[id] && !vectorSet[id] {
			issues = append(issues, Inconsistency{Type: InconsistencyMissingVector, MemoryID: id, Details: "memory missing from vector index"})
		}
	}

	return &CheckResult{Checked: len(memorySet), Inconsistencies: issues, Duration: time.Since(start)}, nil
}

// Repair deletes orphaned index entries (best-effort) and logs missing
// entries, which require a full Rebuild rather than a targeted fix.
func (d *Doctor) Repair(ctx context.Context, issues []Inconsistency) error {
	var orphanText, orphanVector []string
	var missing int

	for _, issue := range issues {
		switch issue.Type {
		case InconsistencyOrphanText:
			orphanText = append(orphanText, issue.MemoryID)
		case InconsistencyOrphanVector:
			orphanVector = append(orphanVector, issue.MemoryID)
		case InconsistencyMissingText, InconsistencyMissingVector:
			missing++
		}
	}

	if len(orphanText) > 0 {
		if err := d.text.Delete(ctx, orphanText); err != nil {
			slog.Warn("failed to delete orphan text entries", "count", len(orphanText), "error", err)
		} else {
			slog.Info("deleted orphan text entries", "count", len(orphanText))
		}
	}

	if len(orphanVector) > 0 {
		if err := d.vector.Delete(ctx, orphanVector); err != nil {
			slog.Warn("failed to delete orphan vector entries", "count", len(orphanVector), "error", err)
		} else {
			slog.Info("deleted orphan vector entries", "count", len(orphanVector))
		}
	}

	if missing > 0 {
		slog.Warn("index has missing entries, run 'mnemo doctor rebuild'", "missing_count", missing)
	}

	return nil
}

// QuickCheck compares counts only, skipping the per-id scan.
func (d *Doctor) QuickCheck(ctx context.Context) (bool, error) {
	memoryCount, err := d.memory.Count(ctx)
	if err != nil {
		return false, err
	}
	vectorCount := d.vector.Count()
	textCount := d.text.Count()

	consistent := memoryCount == textCount && memoryCount == vectorCount
	if !consistent {
		slog.Debug("index counts mismatch", "memory", memoryCount, "text", textCount, "vector", vectorCount)
	}
	return consistent, nil
}
