package extract

import (
	"regexp"
	"strings"

	"github.com/sightline/sightline/pkg/sightline/schema"
)

// Rule patterns over normalized document text. Only the first match per
// pattern is kept.
var (
	projectNameRe = regexp.MustCompile(`(?:Project|project)\s+([A-Z][a-z]+(?: [A-Z][a-z]+)*)`)
	capacityRe    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?\s*(?:MWh|MW))`)
	locationRe    = regexp.MustCompile(`in\s+([A-Z][a-z]+(?: [A-Z][a-z]+)*(?:,\s+[A-Z]{2}\b)?)`)
	yearRe        = regexp.MustCompile(`\b(20\d{2})\b`)
	// Corporate suffix is tried before swallowing trailing name words so the
	// period in "Corp." is captured.
	developerRe = regexp.MustCompile(`by\s+([A-Z][A-Za-z]+(?: [A-Z][A-Za-z]+)*?\s+(?:Corp|Inc|LLC|Ltd)\.?|[A-Z][A-Za-z]+(?: [A-Z][A-Za-z]+)*)`)
)

// Rules applies the fixed rule-based patterns to text and returns the sparse
// field map they produce. Pure function; silent on no match.
func Rules(text string) map[string]string {
	entities := make(map[string]string)

	if m := projectNameRe.FindStringSubmatch(text); m != nil {
		entities[schema.FieldProjectName] = m[1]
	}

	if m := capacityRe.FindStringSubmatch(text); m != nil {
		capacity := m[1]
		if strings.Contains(strings.ToLower(capacity), "mwh") {
			entities[schema.FieldEnergyMWh] = capacity
		} else {
			entities[schema.FieldPowerMW] = capacity
		}
	}

	if m := locationRe.FindStringSubmatch(text); m != nil {
		entities[schema.FieldLocation] = m[1]
	}

	if m := yearRe.FindStringSubmatch(text); m != nil {
		entities[schema.FieldCODYear] = m[1]
	}

	if m := developerRe.FindStringSubmatch(text); m != nil {
		entities[schema.FieldDeveloper] = m[1]
	}

	return entities
}

// Technologies returns every vocabulary entry whose lowercase form appears
// as a substring of the lowercase text, in vocabulary order.
func Technologies(text string, vocab []string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, tech := range vocab {
		if strings.Contains(lower, strings.ToLower(tech)) {
			found = append(found, tech)
		}
	}
	return found
}
