// Package scorer combines semantic similarity, keyword relevance, recency,
// and priority into a single ranking score for the hybrid search engine.
package scorer

import (
	"math"

	"github.com/amanmcp/mnemo/internal/model"
)

// Weights controls how much each signal contributes to the combined score.
type Weights struct {
	Semantic   float32
	Keyword    float32
	Recency    float32
	Importance float32
}

// DefaultWeights matches the reference hybrid-search configuration.
func DefaultWeights() Weights {
	return Weights{
		Semantic:   0.6,
		Keyword:    0.15,
		Recency:    0.15,
		Importance: 0.10,
	}
}

// Scorer computes recency decay, importance weighting, and the combined
// weighted-sum ranking score.
type Scorer struct {
	Weights      Weights
	HalfLifeDays float32
}

// New builds a Scorer with the given weights and half-life, matching the
// reference defaults when zero values are passed.
func New(w Weights, halfLifeDays float32) Scorer {
	if halfLifeDays <= 0 {
		halfLifeDays = 30.0
	}
	return Scorer{Weights: w, HalfLifeDays: halfLifeDays}
}

// DefaultScorer returns the Scorer used when no configuration overrides it.
func DefaultScorer() Scorer {
	return New(DefaultWeights(), 30.0)
}

// RecencyScore computes exponential decay: exp(-λ * daysSinceAccess),
// where λ = ln(2) / halfLifeDays. At daysSinceAccess == 0 this is 1.0; at
// halfLifeDays it is 0.5.
func (s Scorer) RecencyScore(daysSinceAccess float32) float32 {
	if daysSinceAccess < 0 {
		daysSinceAccess = 0
	}
	lambda := float32(math.Ln2) / s.HalfLifeDays
	return float32(math.Exp(float64(-lambda * daysSinceAccess)))
}

// ImportanceScore maps a priority level to its scoring weight.
func (s Scorer) ImportanceScore(p model.Priority) float32 {
	return p.Weight()
}

// CombinedScore fuses semantic similarity, normalized keyword score, recency,
// and priority into one ranking value plus its breakdown.
func (s Scorer) CombinedScore(semantic, keyword, daysSinceAccess float32, priority model.Priority) (float32, model.ScoreBreakdown) {
	recency := s.RecencyScore(daysSinceAccess)
	importance := s.ImportanceScore(priority)

	score := s.Weights.Semantic*semantic +
		s.Weights.Keyword*keyword +
		s.Weights.Recency*recency +
		s.Weights.Importance*importance

	return score, model.ScoreBreakdown{
		Semantic:   semantic,
		Keyword:    keyword,
		Recency:    recency,
		Importance: importance,
	}
}

// RRF computes Reciprocal Rank Fusion over a set of 1-based ranks:
// Σ 1/(k+rank_i). k=60 is the conventional constant. Exposed for callers
// that want rank-based fusion instead of the default weighted sum; unused
// by the default search path (see internal/hybrid).
func RRF(ranks []int, k float32) float32 {
	var total float32
	for _, r := range ranks {
		total += 1.0 / (k + float32(r))
	}
	return total
}
