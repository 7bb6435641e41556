package query

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/claude/healthdash/internal/aggregate"
	"github.com/claude/healthdash/internal/models"
	"github.com/claude/healthdash/internal/store"
	"github.com/spf13/afero"
)

func testEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	st := store.New(afero.NewMemMapFs(), "processed")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, log), st
}

func writeTable(t *testing.T, st *store.Store, category string, header []string, rows [][]string) {
	t.Helper()
	if err := st.EnsureCategory(category); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(st.Fs(), st.TablePath(category), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

var workoutHeader = []string{"startDate", "duration", "totalEnergyBurned", "totalDistance"}

func workoutRows() [][]string {
	return [][]string{
		{"2024-01-03 07:00:00 -0800", "10", "100", "1"},
		{"2024-01-14 07:00:00 -0800", "20", "200", "2"},
		{"2024-02-01 07:00:00 -0800", "30", "300", "3"},
	}
}

// TestActivitiesExcludesSpecials verifies the listing hides the three
// continuous-signal categories.
func TestActivitiesExcludesSpecials(t *testing.T) {
	e, st := testEngine(t)
	for _, c := range []string{"Running", store.CategorySleep, store.CategorySteps, store.CategoryHeartRate, "Cycling"} {
		if err := st.EnsureCategory(c); err != nil {
			t.Fatal(err)
		}
	}
	got, err := e.Activities()
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Cycling", "Running"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Activities() = %v, want %v", got, want)
	}
}

// TestSeriesFastPath verifies the persisted series is served verbatim and
// then from cache: rewriting the file on disk must not change the response.
func TestSeriesFastPath(t *testing.T) {
	e, st := testEngine(t)
	persisted := []models.YearSeries{{
		Year:   2024,
		Labels: []string{"January"},
		Datasets: map[string][]float64{
			"count": {2}, "duration": {30}, "energy": {300}, "distance": {3},
		},
	}}
	if err := st.WriteSeries("Running", persisted); err != nil {
		t.Fatal(err)
	}

	q := SeriesQuery{Activity: "Running", Granularity: aggregate.Monthly}
	first, err := e.Series(q)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, persisted) {
		t.Fatalf("fast path = %+v, want persisted series", first)
	}

	// Rewrite on disk; the cache must keep serving the original bytes.
	if err := st.WriteSeries("Running", nil); err != nil {
		t.Fatal(err)
	}
	second, err := e.Series(q)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("cached result differs from the first fast-path computation")
	}
}

// TestSeriesSlowPathDateFilter verifies a date range forces recomputation
// from the table with inclusive bounds.
func TestSeriesSlowPathDateFilter(t *testing.T) {
	e, st := testEngine(t)
	writeTable(t, st, "Running", workoutHeader, workoutRows())

	series, err := e.Series(SeriesQuery{
		Activity:    "Running",
		Range:       ParseDateRange("2024-01-14", "2024-02-01"),
		Granularity: aggregate.Monthly,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 1 {
		t.Fatalf("years = %d, want 1", len(series))
	}
	ys := series[0]
	if want := []string{"January", "February"}; !reflect.DeepEqual(ys.Labels, want) {
		t.Fatalf("labels = %v, want %v", ys.Labels, want)
	}
	// Only the Jan 14 workout survives the lower bound.
	if got := ys.Datasets["count"]; !reflect.DeepEqual(got, []float64{1, 1}) {
		t.Errorf("count = %v, want [1 1]", got)
	}
}

// TestSeriesTotalAndGrouping verifies the Total sentinel combines
// categories with an always-present Total group, and categorization splits
// strength from cardio.
func TestSeriesTotalAndGrouping(t *testing.T) {
	e, st := testEngine(t)
	writeTable(t, st, "Running", workoutHeader, workoutRows())
	writeTable(t, st, "CoreTraining", workoutHeader, [][]string{
		{"2024-01-05 18:00:00 -0800", "45", "250", "0"},
	})

	// Slow path (date filter) so tables are scanned directly.
	rng := ParseDateRange("2024-01-01", "2024-12-31")

	total, err := e.Series(SeriesQuery{Activity: TotalActivity, Range: rng, Granularity: aggregate.Monthly})
	if err != nil {
		t.Fatal(err)
	}
	if got := total[0].Datasets["Total_count"]; !reflect.DeepEqual(got, []float64{3, 1}) {
		t.Errorf("Total_count = %v, want [3 1]", got)
	}
	if got := total[0].Datasets["Total_avg_duration"][0]; got != 25.0 {
		t.Errorf("Total_avg_duration[January] = %v, want 25.0 ((10+20+45)/3)", got)
	}

	grouped, err := e.Series(SeriesQuery{Activity: TotalActivity, Range: rng, Granularity: aggregate.Monthly, GroupByCategory: true})
	if err != nil {
		t.Fatal(err)
	}
	ds := grouped[0].Datasets
	if got := ds["Strength Training_count"]; !reflect.DeepEqual(got, []float64{1, 0}) {
		t.Errorf("Strength Training_count = %v, want [1 0]", got)
	}
	if got := ds["Cardio_count"]; !reflect.DeepEqual(got, []float64{2, 1}) {
		t.Errorf("Cardio_count = %v, want [2 1]", got)
	}
	if got := ds["Total_count"]; !reflect.DeepEqual(got, []float64{3, 1}) {
		t.Errorf("Total_count = %v, want [3 1]", got)
	}
}

// TestClassify pins the keyword classification for representative activity
// names on both sides of the split.
func TestClassify(t *testing.T) {
	tests := []struct{ activity, want string }{
		{"CoreTraining", GroupStrength},
		{"TraditionalStrengthTraining", GroupStrength},
		{"FunctionalStrengthTraining", GroupStrength},
		{"CrossTraining", GroupStrength},
		{"Running", GroupCardio},
		{"Cycling", GroupCardio},
		{"Yoga", GroupCardio},
	}
	for _, tt := range tests {
		if got := Classify(tt.activity); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.activity, got, tt.want)
		}
	}
}

// TestAbsentDataEmpty verifies queries against an unprocessed store return
// empty results, never errors.
func TestAbsentDataEmpty(t *testing.T) {
	e, _ := testEngine(t)

	if e.Processed() {
		t.Error("empty store should be unprocessed")
	}
	series, err := e.Series(SeriesQuery{Activity: "Running", Granularity: aggregate.Monthly})
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(series) != 0 {
		t.Errorf("series = %v, want empty", series)
	}
	sum, err := e.Summary(DateRange{})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.TotalWorkouts != 0 {
		t.Errorf("total workouts = %d, want 0", sum.TotalWorkouts)
	}
	page, err := e.Workouts("", DateRange{}, 1, 50)
	if err != nil {
		t.Fatalf("Workouts: %v", err)
	}
	if page.Total != 0 || len(page.Workouts) != 0 {
		t.Errorf("page = %+v, want empty", page)
	}
}

// TestSignalRecompute verifies the heart-rate filtered path recomputes from
// the table with avg/min/max datasets.
func TestSignalRecompute(t *testing.T) {
	e, st := testEngine(t)
	writeTable(t, st, store.CategoryHeartRate,
		[]string{"startDate", "endDate", "value"},
		[][]string{
			{"2024-01-05 08:00:00 -0800", "2024-01-05 08:00:00 -0800", "60"},
			{"2024-01-05 09:00:00 -0800", "2024-01-05 09:00:00 -0800", "100"},
			{"2024-03-01 09:00:00 -0800", "2024-03-01 09:00:00 -0800", "80"},
		})

	series, err := e.HeartRate(ParseDateRange("2024-01-01", "2024-01-31"), aggregate.Daily)
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 1 {
		t.Fatalf("years = %d, want 1", len(series))
	}
	ds := series[0].Datasets
	if got := ds["avg"][0]; got != 80.0 {
		t.Errorf("avg = %v, want 80.0", got)
	}
	if got := ds["min"][0]; got != 60.0 {
		t.Errorf("min = %v, want 60.0", got)
	}
	if got := ds["max"][0]; got != 100.0 {
		t.Errorf("max = %v, want 100.0", got)
	}
}

// TestWorkoutsPagination pins the 130-row / per_page=50 contract.
func TestWorkoutsPagination(t *testing.T) {
	e, st := testEngine(t)
	rows := make([][]string, 0, 130)
	day := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 130; i++ {
		rows = append(rows, []string{
			day.AddDate(0, 0, i).Format("2006-01-02") + " 07:00:00 -0800", "30", "200", "5",
		})
	}
	writeTable(t, st, "Running", workoutHeader, rows)

	page1, err := e.Workouts("Running", DateRange{}, 1, 50)
	if err != nil {
		t.Fatal(err)
	}
	if page1.TotalPages != 3 {
		t.Errorf("total_pages = %d, want 3", page1.TotalPages)
	}
	if len(page1.Workouts) != 50 {
		t.Errorf("page 1 size = %d, want 50", len(page1.Workouts))
	}
	// Newest first.
	if got, want := page1.Workouts[0].Date, day.AddDate(0, 0, 129).Format("2006-01-02"); got != want {
		t.Errorf("first row date = %s, want %s", got, want)
	}

	page3, err := e.Workouts("Running", DateRange{}, 3, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(page3.Workouts) != 30 {
		t.Errorf("page 3 size = %d, want 30", len(page3.Workouts))
	}

	page4, err := e.Workouts("Running", DateRange{}, 4, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(page4.Workouts) != 0 {
		t.Errorf("page 4 size = %d, want 0", len(page4.Workouts))
	}
	if page4.Total != 130 {
		t.Errorf("page 4 total = %d, want 130", page4.Total)
	}
}

func ExampleParseDateRange() {
	r := ParseDateRange("2024-01-01", "not-a-date")
	fmt.Println(r.Start.Format("2006-01-02"), r.End.IsZero())
	// Output: 2024-01-01 true
}
