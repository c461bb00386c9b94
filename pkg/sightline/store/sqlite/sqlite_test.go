package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sightline/sightline/pkg/sightline/schema"
	"github.com/sightline/sightline/pkg/sightline/store"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.FieldDef{
		{Name: "Project name", Kind: schema.KindDirect},
		{Name: "Technology", Kind: schema.KindCategorical},
		{Name: "Location", Kind: schema.KindDirect},
		{Name: "Announced date", Kind: schema.KindDate},
		{Name: "Energy Capacity (MWh)", Kind: schema.KindCapacity},
		{Name: "Total Cost (Capex)", Kind: schema.KindCost},
	}, map[string][]string{
		"Technology": {"Iron-air", "Pumped hydro (PSH)"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()
	st, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"), testSchema(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestUpsertProjectInsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	p := store.Project{
		"Project name":          "Project Alpha",
		"Technology":            "Iron-air",
		"Location":              "California, USA",
		"Announced date":        "2023-05-15",
		"Energy Capacity (MWh)": "100.00 MWh",
		"Total Cost (Capex)":    "$50.00M",
	}
	if err := st.UpsertProject(ctx, p); err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}

	// Same key, changed fields: must update, not duplicate.
	p["Location"] = "Nevada, USA"
	if err := st.UpsertProject(ctx, p); err != nil {
		t.Fatalf("UpsertProject update: %v", err)
	}

	projects, err := st.Projects(ctx)
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("expected 1 row after upsert, got %d", len(projects))
	}
	got := projects[0]
	if got["Project name"] != "Project Alpha" {
		t.Errorf("Project name = %q", got["Project name"])
	}
	if got["Location"] != "Nevada, USA" {
		t.Errorf("Location = %q, want updated value", got["Location"])
	}
	if got["Announced date"] != "2023-05-15" {
		t.Errorf("Announced date = %q", got["Announced date"])
	}
	// NUMERIC columns store bare magnitudes.
	if got["Energy Capacity (MWh)"] != "100" {
		t.Errorf("Energy Capacity = %q, want 100", got["Energy Capacity (MWh)"])
	}
	if got["Total Cost (Capex)"] != "50" {
		t.Errorf("Total Cost = %q, want 50", got["Total Cost (Capex)"])
	}
}

func TestUpsertProjectRequiresName(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if err := st.UpsertProject(ctx, store.Project{"Location": "Texas"}); err == nil {
		t.Fatal("upsert without project name must fail")
	}
}

func TestUpsertProjectPartialRecord(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if err := st.UpsertProject(ctx, store.Project{"Project name": "Beta"}); err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}
	projects, err := st.Projects(ctx)
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(projects) != 1 || projects[0]["Project name"] != "Beta" {
		t.Fatalf("projects = %v", projects)
	}
	if _, ok := projects[0]["Location"]; ok {
		t.Error("absent fields should stay absent")
	}
}

func TestRecordAndListRuns(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	runs := []store.Run{
		{ID: "01A", Submitted: 10, Processed: 9, StartedAt: start, FinishedAt: start.Add(time.Minute)},
		{ID: "01B", Submitted: 5, Processed: 5, StartedAt: start.Add(time.Hour), FinishedAt: start.Add(61 * time.Minute)},
	}
	for _, r := range runs {
		if err := st.RecordRun(ctx, r); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	got, err := st.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(got))
	}
	if got[0].ID != "01B" {
		t.Errorf("runs should be most recent first, got %v", got)
	}
	if got[0].Submitted != 5 || got[0].Processed != 5 {
		t.Errorf("run counts = %+v", got[0])
	}
	if !got[1].StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", got[1].StartedAt, start)
	}
}
