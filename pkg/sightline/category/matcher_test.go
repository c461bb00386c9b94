package category

import (
	"testing"

	"github.com/sightline/sightline/pkg/sightline/schema"
)

func matcherSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.FieldDef{
		{Name: "Technology", Kind: schema.KindCategorical},
		{Name: "Developer", Kind: schema.KindDirect},
	}, map[string][]string{
		"Technology": {
			"Lithium-ion",
			"Pumped hydro (PSH)",
			"Compressed air (CAES)",
			"Iron-air",
			"Liquid air (LAES)",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestMatchSubstringIsExact(t *testing.T) {
	m := NewMatcher(matcherSchema(t))

	cases := map[string]string{
		"iron-air":    "Iron-air",
		"Pumped":      "Pumped hydro (PSH)",
		"lithium-ion": "Lithium-ion",
	}
	for raw, want := range cases {
		got, conf := m.Match("Technology", raw)
		if got != want || conf != 1.0 {
			t.Errorf("Match(Technology, %q) = %q, %v; want %q, 1.0", raw, got, conf, want)
		}
	}
}

func TestMatchFirstByVocabularyOrder(t *testing.T) {
	m := NewMatcher(matcherSchema(t))

	// "air" is contained in both "Compressed air (CAES)" and "Iron-air";
	// the earlier vocabulary entry wins.
	got, conf := m.Match("Technology", "air")
	if got != "Compressed air (CAES)" || conf != 1.0 {
		t.Errorf("Match = %q, %v", got, conf)
	}
}

func TestMatchAbbreviationShortCircuit(t *testing.T) {
	m := NewMatcher(matcherSchema(t))

	got, conf := m.Match("Technology", "a 300 MW CAES plant")
	if got != "Compressed air (CAES)" {
		t.Errorf("Match = %q, want Compressed air (CAES)", got)
	}
	if conf != 0.9 {
		t.Errorf("abbreviation confidence = %v, want 0.9", conf)
	}
}

func TestMatchSimilarityFallback(t *testing.T) {
	m := NewMatcher(matcherSchema(t))

	got, conf := m.Match("Technology", "lithum ion cells")
	if got != "Lithium-ion" {
		t.Errorf("Match = %q, want Lithium-ion", got)
	}
	if conf <= 0 || conf >= 1 {
		t.Errorf("fallback confidence should be a similarity score in (0,1), got %v", conf)
	}
}

func TestMatchNoVocabularyPassThrough(t *testing.T) {
	m := NewMatcher(matcherSchema(t))

	got, conf := m.Match("Developer", "GreenEnergy Corporation")
	if got != "GreenEnergy Corporation" || conf != 0.5 {
		t.Errorf("Match = %q, %v; want raw value at 0.5", got, conf)
	}
}
