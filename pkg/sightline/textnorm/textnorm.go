// Package textnorm provides deterministic text normalization for document
// text and extracted field values. Every function here is total: bad input
// comes back unchanged, never as an error.
package textnorm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sightline/sightline/pkg/sightline/schema"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Boilerplate that PDF extraction drags in from regulatory filings.
	boilerplateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bpage\s+\d+\s+of\s+\d+\b`),
		regexp.MustCompile(`(?i)\bdocket\s+no\.?\s*[0-9A-Za-z-]+`),
		regexp.MustCompile(`(?i)\bconfidential(?:\s*[-–]\s*do\s+not\s+distribute|\s+treatment\s+requested)\b`),
	}

	capacityRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(MWh|MW)`)
	costRe     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(million|billion|m|b)?`)
)

// Normalize collapses whitespace runs, trims the ends, and strips known
// regulatory boilerplate. Idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	for _, re := range boilerplateRes {
		text = re.ReplaceAllString(text, " ")
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// CleanRecord normalizes every value of a record and applies the per-kind
// standardizer for fields declared in the schema.
func CleanRecord(s *schema.Schema, record map[string]string) map[string]string {
	cleaned := make(map[string]string, len(record))
	for field, value := range record {
		value = Normalize(value)
		if kind, ok := s.Kind(field); ok {
			switch kind {
			case schema.KindDate:
				value = StandardizeDate(value)
			case schema.KindCapacity:
				value = StandardizeCapacity(value)
			case schema.KindCost:
				value = StandardizeCost(value)
			}
		}
		cleaned[field] = value
	}
	return cleaned
}

var cleanDateLayouts = []string{"2006-01-02", "1/2/2006", "01/02/2006"}

// StandardizeDate rewrites common date forms as YYYY-MM-DD. Values it cannot
// parse come back unchanged; the validator decides whether they are errors.
func StandardizeDate(value string) string {
	for _, layout := range cleanDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return value
}

// StandardizeCapacity rewrites a capacity as "<n>.1f MW|MWh".
func StandardizeCapacity(value string) string {
	m := capacityRe.FindStringSubmatch(value)
	if m == nil {
		return value
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return value
	}
	unit := "MW"
	if strings.EqualFold(m[2], "mwh") {
		unit = "MWh"
	}
	return fmt.Sprintf("%.1f %s", n, unit)
}

// StandardizeCost rewrites a cost as millions of dollars, "$<n>.2fM".
// "billion"/"b" scale words are converted to millions.
func StandardizeCost(value string) string {
	m := costRe.FindStringSubmatch(value)
	if m == nil || m[1] == "" {
		return value
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return value
	}
	if strings.HasPrefix(strings.ToLower(m[2]), "b") {
		n *= 1000
	}
	return fmt.Sprintf("$%.2fM", n)
}

var companySuffixes = []struct{ from, to string }{
	{"Corp.", "Corporation"},
	{"Inc.", "Incorporated"},
	{"Ltd.", "Limited"},
	{"LLC", "Limited Liability Company"},
}

// StandardizeCompanyName expands abbreviated corporate suffixes and
// capitalizes each word. Interior capitals are left alone so names like
// "GreenEnergy" survive.
func StandardizeCompanyName(name string) string {
	for _, s := range companySuffixes {
		name = strings.ReplaceAll(name, s.from, s.to)
	}
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
