package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sightline/sightline/pkg/sightline/extract"
	"github.com/sightline/sightline/pkg/sightline/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.FieldDef{
		{Name: "Project name", Kind: schema.KindDirect},
		{Name: "Technology", Kind: schema.KindCategorical},
		{Name: "Location", Kind: schema.KindDirect},
		{Name: "Developer", Kind: schema.KindDirect},
		{Name: "Announced date", Kind: schema.KindDate},
		{Name: "Expected COD year", Kind: schema.KindDirect},
		{Name: "Energy Capacity (MWh)", Kind: schema.KindCapacity},
		{Name: "Discharging Power Capacity (MW)", Kind: schema.KindCapacity},
		{Name: "Duration (hours)", Kind: schema.KindDirect},
		{Name: "Total Cost (Capex)", Kind: schema.KindCost},
	}, map[string][]string{
		"Technology": {"Lithium-ion", "Pumped hydro (PSH)", "Compressed air (CAES)", "Iron-air", "Flow battery"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

type staticCompleter struct {
	response string
	err      error
}

func (c *staticCompleter) Chat(ctx context.Context, system, user string) (string, error) {
	return c.response, c.err
}

func newTestPipeline(t *testing.T, completer extract.Completer) *Pipeline {
	t.Helper()
	s := testSchema(t)
	model, err := extract.NewModelExtractor(extract.NewGazetteer(s), s)
	if err != nil {
		t.Fatal(err)
	}
	var resolver *extract.Resolver
	if completer != nil {
		resolver, err = extract.NewResolver(completer, s, extract.WithBackoff(2, time.Millisecond))
		if err != nil {
			t.Fatal(err)
		}
	}
	return New(Options{Schema: s, Model: model, Resolver: resolver})
}

const announcement = "Project Alpha, a 100 MWh battery storage facility by GreenEnergy Corp., will be built in California, USA by 2025."

func TestProcessRuleDrivenAnnouncement(t *testing.T) {
	p := newTestPipeline(t, nil)

	res := p.Process(context.Background(), Document{UID: "doc-1", Text: announcement, Sector: "ldes"})

	want := map[string]string{
		"Project name":          "Alpha",
		"Energy Capacity (MWh)": "100.00 MWh",
		"Location":              "California",
		"Expected COD year":     "2025",
		"Developer":             "GreenEnergy Corp.",
	}
	for field, wantVal := range want {
		if res.Record[field] != wantVal {
			t.Errorf("%s = %q, want %q", field, res.Record[field], wantVal)
		}
	}
	if res.UID != "doc-1" {
		t.Errorf("UID = %q", res.UID)
	}
}

func TestProcessMalformedLLMResponseDegrades(t *testing.T) {
	p := newTestPipeline(t, &staticCompleter{response: "Sorry, I can't help with that."})

	res := p.Process(context.Background(), Document{UID: "doc-2", Text: announcement})

	// Rule-derived fields are unaffected by the LLM contributing nothing.
	if res.Record["Project name"] != "Alpha" {
		t.Errorf("Project name = %q", res.Record["Project name"])
	}
	if res.Record["Energy Capacity (MWh)"] != "100.00 MWh" {
		t.Errorf("Energy Capacity = %q", res.Record["Energy Capacity (MWh)"])
	}
}

func TestProcessLLMFillsMissingFields(t *testing.T) {
	response := `{"Duration (hours)": {"value": "4", "confidence": 0.8}, "Technology": {"value": "iron-air", "confidence": 0.9}}`
	p := newTestPipeline(t, &staticCompleter{response: response})

	res := p.Process(context.Background(), Document{UID: "doc-3", Text: announcement})

	if res.Record["Duration (hours)"] != "4" {
		t.Errorf("Duration = %q", res.Record["Duration (hours)"])
	}
	// LLM technology value is canonicalized through the category matcher.
	if res.Record["Technology"] != "Iron-air" {
		t.Errorf("Technology = %q, want canonical Iron-air", res.Record["Technology"])
	}
}

func TestProcessRulesBeatModelOnCollision(t *testing.T) {
	// The LLM claims a different project name; the literal regex match wins.
	response := `{"Project name": {"value": "Totally Different", "confidence": 0.99}}`
	p := newTestPipeline(t, &staticCompleter{response: response})

	res := p.Process(context.Background(), Document{UID: "doc-4", Text: announcement})
	if res.Record["Project name"] != "Alpha" {
		t.Errorf("Project name = %q, rule match must win", res.Record["Project name"])
	}
}

func TestProcessTechnologyVocabularyScan(t *testing.T) {
	p := newTestPipeline(t, nil)

	text := "Project Borealis pairs an iron-air system with a flow battery pilot in Minnesota by Grid Partners LLC in 2026."
	res := p.Process(context.Background(), Document{UID: "doc-5", Text: text})

	if res.Record["Technology"] != "Iron-air, Flow battery" {
		t.Errorf("Technology = %q", res.Record["Technology"])
	}
}

func TestProcessCollectsValidationIssues(t *testing.T) {
	p := newTestPipeline(t, &staticCompleter{response: `{"Announced date": {"value": "sometime soon", "confidence": 0.4}}`})

	res := p.Process(context.Background(), Document{UID: "doc-6", Text: announcement})

	found := false
	for _, issue := range res.Issues {
		if issue == fmt.Sprintf("invalid date for Announced date: %s", "sometime soon") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected invalid-date issue, got %v", res.Issues)
	}
	if res.Record["Project name"] != "Alpha" {
		t.Error("a failed field must not sink the rest of the record")
	}
}
