// Package category maps raw extracted values onto the closed category
// vocabularies declared in the schema.
package category

import (
	"strings"

	"github.com/sightline/sightline/pkg/sightline/schema"
)

// Energy-storage abbreviations that defeat generic string similarity.
var abbreviations = map[string]string{
	"caes": "compressed air",
	"psh":  "pumped hydro",
	"laes": "liquid air",
	"ldes": "long duration energy storage",
}

const (
	abbreviationConfidence = 0.9
	noVocabularyConfidence = 0.5
)

// Matcher resolves raw categorical values to canonical category strings.
type Matcher struct {
	schema *schema.Schema
}

// NewMatcher builds a matcher over the given schema's category table.
func NewMatcher(s *schema.Schema) *Matcher {
	return &Matcher{schema: s}
}

// Match returns the canonical category for a raw value and a confidence:
// exact substring containment wins with 1.0 (first match in vocabulary
// order), otherwise the highest-similarity category wins with its score.
// Fields without a vocabulary return the raw value at 0.5.
func (m *Matcher) Match(field, raw string) (string, float64) {
	vocab, ok := m.schema.Categories(field)
	if !ok || len(vocab) == 0 {
		return raw, noVocabularyConfidence
	}

	lower := strings.ToLower(raw)
	for _, canonical := range vocab {
		if strings.Contains(strings.ToLower(canonical), lower) {
			return canonical, 1.0
		}
	}

	best := vocab[0]
	bestScore := similarity(raw, vocab[0])
	for _, canonical := range vocab[1:] {
		if score := similarity(raw, canonical); score > bestScore {
			best, bestScore = canonical, score
		}
	}
	return best, bestScore
}

// similarity scores a raw term against a candidate category. Abbreviation
// hits short-circuit to 0.9; otherwise character-set overlap divided by the
// longer term's length.
func similarity(raw, canonical string) float64 {
	rawLower := strings.ToLower(raw)
	canonicalLower := strings.ToLower(canonical)

	for abbrev, full := range abbreviations {
		if strings.Contains(rawLower, abbrev) && strings.Contains(canonicalLower, full) {
			return abbreviationConfidence
		}
	}

	common := 0
	rawSet := make(map[rune]bool, len(rawLower))
	for _, r := range rawLower {
		rawSet[r] = true
	}
	seen := make(map[rune]bool)
	for _, r := range canonicalLower {
		if rawSet[r] && !seen[r] {
			common++
			seen[r] = true
		}
	}

	maxLen := len(raw)
	if len(canonical) > maxLen {
		maxLen = len(canonical)
	}
	if maxLen == 0 {
		return 0
	}
	return float64(common) / float64(maxLen)
}
