// Package model defines the core data types shared across mnemo's storage,
// indexing, and transport layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// MemoryType classifies the kind of knowledge a Memory holds.
type MemoryType string

const (
	TypeObservation MemoryType = "observation"
	TypeDecision    MemoryType = "decision"
	TypePreference  MemoryType = "preference"
	TypeFact        MemoryType = "fact"
	TypeTask        MemoryType = "task"
	TypeSession     MemoryType = "session"
	TypeBugfix      MemoryType = "bugfix"
	TypeDiscovery   MemoryType = "discovery"
)

// ParseMemoryType converts a string to a MemoryType, defaulting to
// TypeObservation for unrecognized or empty input.
func ParseMemoryType(s string) MemoryType {
	switch MemoryType(s) {
	case TypeObservation, TypeDecision, TypePreference, TypeFact, TypeTask, TypeSession, TypeBugfix, TypeDiscovery:
		return MemoryType(s)
	default:
		return TypeObservation
	}
}

// Priority ranks a memory's importance for scoring and retention.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority converts a string to a Priority, defaulting to PriorityMedium.
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s)
	default:
		return PriorityMedium
	}
}

// Weight returns the scoring weight associated with the priority level.
func (p Priority) Weight() float32 {
	switch p {
	case PriorityLow:
		return 0.4
	case PriorityHigh:
		return 1.0
	default:
		return 0.7
	}
}

// Metadata holds the classification and linkage fields attached to a Memory.
type Metadata struct {
	MemoryType MemoryType `json:"memory_type"`
	Priority   Priority   `json:"priority"`
	Source     string     `json:"source,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Concepts   []string   `json:"concepts,omitempty"`
	Files      []string   `json:"files,omitempty"`
}

// DefaultMetadata returns the metadata used for new memories that don't
// specify one: an observation of medium priority.
func DefaultMetadata() Metadata {
	return Metadata{
		MemoryType: TypeObservation,
		Priority:   PriorityMedium,
	}
}

// Memory is the atomic unit of stored knowledge.
type Memory struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	Title       string    `json:"title"`
	Metadata    Metadata  `json:"metadata"`
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AccessedAt  time.Time `json:"accessed_at"`
	AccessCount uint32    `json:"access_count"`
}

// NewMemory builds a Memory with a fresh id, default metadata, and all
// timestamps set to now.
func NewMemory(title, content string) *Memory {
	now := time.Now()
	return &Memory{
		ID:         uuid.NewString(),
		Title:      title,
		Content:    content,
		Metadata:   DefaultMetadata(),
		CreatedAt:  now,
		UpdatedAt:  now,
		AccessedAt: now,
	}
}

// EstimatedTokens gives a rough token count for the memory's content,
// calibrated for agglutinative (Korean-heavy) text at ~3.5 chars/token.
func (m *Memory) EstimatedTokens() int {
	n := len([]rune(m.Content))
	return (2*n + 6) / 7 // ceil(n / 3.5) in integer arithmetic
}

// Query parameterizes a hybrid search request.
type Query struct {
	Text       string
	Limit      int
	MemoryType *MemoryType
	Priority   *Priority
	Tags       []string
	IndexOnly  bool
}

// DefaultQuery returns the spec's default query parameters.
func DefaultQuery() Query {
	return Query{Limit: 10}
}

// ScoreBreakdown exposes the per-signal components of a result's final score.
type ScoreBreakdown struct {
	Semantic   float32 `json:"semantic"`
	Keyword    float32 `json:"keyword"`
	Recency    float32 `json:"recency"`
	Importance float32 `json:"importance"`
}

// SearchResult pairs a Memory with its fused score and breakdown.
type SearchResult struct {
	Memory         Memory         `json:"memory"`
	Score          float32        `json:"score"`
	ScoreBreakdown ScoreBreakdown `json:"score_breakdown"`
}
