package store

import (
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	// MemoryTokenizerName is the name of the Hangul-aware tokenizer
	// registered with bleve for memory content.
	MemoryTokenizerName = "mnemo_tokenizer"

	// MemoryAnalyzerName is the custom analyzer built from the tokenizer
	// plus lowercasing; no stop-word filter is applied.
	MemoryAnalyzerName = "mnemo_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(MemoryTokenizerName, memoryTokenizerConstructor)
}

// hangulParticles lists common Korean case/topic/object particles and
// sentence-final endings. There is no morphological analyzer for Hangul in
// the Go ecosystem comparable to a dictionary-based tokenizer (lindera and
// similar are Rust/Java-only), so mnemo splits the most common particle
// suffixes heuristically instead of doing true morpheme segmentation: the
// stem and the particle are both indexed as separate tokens, so "한국어로"
// tokenizes to ["한국어", "로"] and a query for either still matches.
var hangulParticles = []string{
	"으로서", "으로써", "이라는", "라는",
	"에서는", "에게서", "한테서",
	"이라고", "라고",
	"까지", "부터", "에게", "한테", "에서", "으로", "이나", "나요", "인가",
	"은", "는", "이", "가", "을", "를", "에", "의", "와", "과", "도", "만", "로",
}

// TokenizeMemoryText splits text into lowercase search tokens, applying
// Hangul particle stripping to runs of Korean syllables and camelCase/
// snake_case splitting to runs of ASCII identifiers.
func TokenizeMemoryText(text string) []string {
	var tokens []string
	var run []rune
	var runIsHangul bool

	flush := func() {
		if len(run) == 0 {
			return
		}
		word := string(run)
		if runIsHangul {
			stem := stripHangulParticle(word)
			tokens = append(tokens, stem)
			if particle := hangulParticleSuffix(word); particle != "" {
				tokens = append(tokens, particle)
			}
		} else {
			for _, t := range SplitCodeToken(word) {
				lower := strings.ToLower(t)
				if len(lower) >= 2 {
					tokens = append(tokens, lower)
				}
			}
		}
		run = run[:0]
	}

	for _, r := range text {
		switch {
		case isHangul(r):
			if len(run) > 0 && !runIsHangul {
				flush()
			}
			runIsHangul = true
			run = append(run, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if len(run) > 0 && runIsHangul {
				flush()
			}
			runIsHangul = false
			run = append(run, r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

func isHangul(r rune) bool {
	return (r >= 0xAC00 && r <= 0xD7A3) || (r >= 0x1100 && r <= 0x11FF) || (r >= 0x3130 && r <= 0x318F)
}

// longestMatchingParticle returns the longest particle in hangulParticles
// that word ends with, leaving a non-empty stem, or "" if none matches.
func longestMatchingParticle(word string) string {
	runes := []rune(word)
	if len(runes) <= 2 {
		return ""
	}

	best := ""
	for _, p := range hangulParticles {
		pr := []rune(p)
		if len(pr) >= len(runes) {
			continue
		}
		if strings.HasSuffix(word, p) && len(p) > len(best) {
			best = p
		}
	}
	return best
}

// stripHangulParticle removes the longest matching trailing particle from a
// Hangul word, leaving the stem that the tokenizer indexes and matches on.
func stripHangulParticle(word string) string {
	particle := longestMatchingParticle(word)
	if particle == "" {
		return word
	}
	runes := []rune(word)
	stem := runes[:len(runes)-len([]rune(particle))]
	return string(stem)
}

// hangulParticleSuffix returns the trailing particle stripHangulParticle
// would remove from word, so callers can index it as its own token
// alongside the stem — "한국어로" tokenizes to ["한국어", "로"].
func hangulParticleSuffix(word string) string {
	return longestMatchingParticle(word)
}

// SplitCodeToken splits an ASCII identifier on underscores and camelCase
// boundaries, e.g. "get_HTTPClient" -> ["get", "HTTP", "Client"].
func SplitCodeToken(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, splitCamelCase(part)...)
			}
		}
		return result
	}
	return splitCamelCase(token)
}

func splitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

func memoryTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &memoryTokenizer{}, nil
}

// memoryTokenizer implements analysis.Tokenizer for Hangul- and
// identifier-aware memory content indexing.
type memoryTokenizer struct{}

func (t *memoryTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := TokenizeMemoryText(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0
	for _, tok := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(tok))
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(tok)

		result = append(result, &analysis.Token{
			Term:     []byte(tok),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.Ideographic,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}
	return result
}
