package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sightline/sightline/pkg/sightline/schema"
	"github.com/sightline/sightline/pkg/sightline/textnorm"
)

// Span is a labeled substring identified by an entity-recognition model.
type Span struct {
	Label      string
	Text       string
	Confidence float64
}

// Recognizer is the opaque entity-recognition capability the model extractor
// delegates span detection to.
type Recognizer interface {
	Entities(text string) []Span
}

// ModelExtractor wraps a Recognizer and keeps only spans whose label is a
// declared schema field. Span text is normalized before storage.
type ModelExtractor struct {
	rec    Recognizer
	schema *schema.Schema
}

// NewModelExtractor builds a model extractor. A nil recognizer is a startup
// error, not a per-document one.
func NewModelExtractor(rec Recognizer, s *schema.Schema) (*ModelExtractor, error) {
	if rec == nil {
		return nil, fmt.Errorf("model extractor: nil recognizer")
	}
	return &ModelExtractor{rec: rec, schema: s}, nil
}

// Extract runs the model over text and returns the schema-filtered spans.
func (m *ModelExtractor) Extract(text string) Fields {
	out := make(Fields)
	for _, span := range m.rec.Entities(text) {
		if !m.schema.Has(span.Label) {
			continue
		}
		out[span.Label] = Field{
			Value:      textnorm.Normalize(span.Text),
			Confidence: span.Confidence,
		}
	}
	return out
}

// Gazetteer is an in-process Recognizer backed by the category table: it
// labels category-vocabulary mentions with their field name and tags date
// fields from a date pattern. It stands in for an externally trained model
// when none is configured.
type Gazetteer struct {
	vocab      []gazEntry
	dateFields []string
}

type gazEntry struct {
	field string
	term  string
}

var gazDateRe = regexp.MustCompile(`\b(?:\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{1,2}\s(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s\d{2,4})\b`)

const (
	gazVocabConfidence = 0.8
	gazDateConfidence  = 0.6
)

// NewGazetteer builds a gazetteer recognizer from the schema's categorical
// vocabularies and date fields.
func NewGazetteer(s *schema.Schema) *Gazetteer {
	g := &Gazetteer{}
	for _, field := range s.Fields() {
		kind, _ := s.Kind(field)
		switch kind {
		case schema.KindCategorical:
			vocab, _ := s.Categories(field)
			for _, term := range vocab {
				g.vocab = append(g.vocab, gazEntry{field: field, term: term})
			}
		case schema.KindDate:
			g.dateFields = append(g.dateFields, field)
		}
	}
	return g
}

// Entities implements Recognizer. One span per field at most, first match
// by vocabulary order.
func (g *Gazetteer) Entities(text string) []Span {
	lower := strings.ToLower(text)
	var spans []Span
	seen := make(map[string]bool)

	for _, e := range g.vocab {
		if seen[e.field] {
			continue
		}
		if strings.Contains(lower, strings.ToLower(e.term)) {
			spans = append(spans, Span{Label: e.field, Text: e.term, Confidence: gazVocabConfidence})
			seen[e.field] = true
		}
	}

	if m := gazDateRe.FindString(text); m != "" {
		for _, field := range g.dateFields {
			spans = append(spans, Span{Label: field, Text: m, Confidence: gazDateConfidence})
		}
	}

	return spans
}
