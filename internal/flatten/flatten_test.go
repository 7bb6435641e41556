package flatten

import (
	"encoding/csv"
	"reflect"
	"testing"

	"github.com/claude/healthdash/internal/extract"
	"github.com/claude/healthdash/internal/store"
	"github.com/spf13/afero"
)

func testStore() *store.Store {
	return store.New(afero.NewMemMapFs(), "processed")
}

// TestHeaderOrder verifies standard columns come first in canonical order
// and everything else sorts lexicographically after.
func TestHeaderOrder(t *testing.T) {
	keys := map[string]bool{
		"meta_HKIndoorWorkout":           true,
		"duration":                       true,
		"startDate":                      true,
		"sourceName":                     true,
		"stat_ActiveEnergyBurned_sum":    true,
		"deviceModel":                    true,
	}
	want := []string{
		"startDate", "duration", "sourceName",
		"deviceModel", "meta_HKIndoorWorkout", "stat_ActiveEnergyBurned_sum",
	}
	if got := Header(keys); !reflect.DeepEqual(got, want) {
		t.Errorf("Header() = %v, want %v", got, want)
	}
}

// TestWriteCSVHeterogeneous verifies the two-pass contract: records with
// different key sets land in one fixed schema with empty fills.
func TestWriteCSVHeterogeneous(t *testing.T) {
	st := testStore()
	w := NewWriter(st)

	recs := []extract.Record{
		{Category: "Running", Fields: map[string]string{
			"startDate": "2024-01-05 07:00:00 -0800", "duration": "31.5",
		}},
		{Category: "Running", Fields: map[string]string{
			"startDate": "2024-01-06 07:00:00 -0800", "duration": "28.0",
			"stat_ActiveEnergyBurned_sum": "284.2",
		}},
	}
	for _, r := range recs {
		if err := w.Add(r); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	stats, err := w.WriteCSV("Running")
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if stats.Rows != 2 {
		t.Errorf("rows = %d, want 2", stats.Rows)
	}
	if stats.Columns != 3 {
		t.Errorf("columns = %d, want 3", stats.Columns)
	}

	f, ok, err := st.OpenTable("Running")
	if err != nil || !ok {
		t.Fatalf("OpenTable: ok=%v err=%v", ok, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading table: %v", err)
	}
	wantHeader := []string{"startDate", "duration", "stat_ActiveEnergyBurned_sum"}
	if !reflect.DeepEqual(rows[0], wantHeader) {
		t.Errorf("header = %v, want %v", rows[0], wantHeader)
	}
	if len(rows) != 3 {
		t.Fatalf("row count = %d, want 3", len(rows))
	}
	// First record had no statistic column: must be filled empty.
	if rows[1][2] != "" {
		t.Errorf("missing key fill = %q, want empty", rows[1][2])
	}
	if rows[2][2] != "284.2" {
		t.Errorf("stat value = %q, want 284.2", rows[2][2])
	}

	// Intermediate must be gone after flattening.
	if _, err := st.Fs().Stat(st.IntermediatePath("Running")); err == nil {
		t.Error("intermediate JSONL still present after WriteCSV")
	}
}

// TestNoRecordsNoOutput verifies a category nobody wrote to yields nothing.
func TestNoRecordsNoOutput(t *testing.T) {
	st := testStore()
	w := NewWriter(st)
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if cats := w.Categories(); len(cats) != 0 {
		t.Errorf("categories = %v, want none", cats)
	}
	if st.Processed() {
		t.Error("store should report unprocessed with no categories")
	}
}
