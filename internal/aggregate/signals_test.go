package aggregate

import (
	"reflect"
	"testing"
)

// TestSleepPhases verifies tolerant phase matching across export-version
// spellings and minute accumulation from start/end timestamps.
func TestSleepPhases(t *testing.T) {
	a := NewSleepAgg(Monthly)
	a.Add(map[string]string{
		"startDate": "2024-01-04 23:00:00 -0800",
		"endDate":   "2024-01-05 00:30:00 -0800",
		"value":     "HKCategoryValueSleepAnalysisAsleepCore",
	})
	a.Add(map[string]string{
		"startDate": "2024-01-05 00:30:00 -0800",
		"endDate":   "2024-01-05 01:00:00 -0800",
		"value":     "HKCategoryValueSleepAnalysisAsleepDeep",
	})
	a.Add(map[string]string{
		"startDate": "2024-01-05 01:00:00 -0800",
		"endDate":   "2024-01-05 01:10:00 -0800",
		"value":     "HKCategoryValueSleepAnalysisAwake",
	})
	a.Add(map[string]string{
		"startDate": "2024-01-04 22:40:00 -0800",
		"endDate":   "2024-01-04 23:00:00 -0800",
		"value":     "HKCategoryValueSleepAnalysisInBed",
	})
	a.Add(map[string]string{
		"startDate": "2024-01-05 02:00:00 -0800",
		"endDate":   "2024-01-05 02:10:00 -0800",
		"value":     "HKCategoryValueSleepAnalysisMysteryPhase",
	})

	series := a.Series()
	if len(series) != 1 {
		t.Fatalf("years = %d, want 1", len(series))
	}
	ds := series[0].Datasets
	if got := ds["asleep"][0]; got != 120.0 {
		t.Errorf("asleep = %v, want 120.0", got)
	}
	if got := ds["awake"][0]; got != 10.0 {
		t.Errorf("awake = %v, want 10.0", got)
	}
	if got := ds["in_bed"][0]; got != 20.0 {
		t.Errorf("in_bed = %v, want 20.0", got)
	}
	if a.Skipped != 1 {
		t.Errorf("skipped = %d, want 1 (unknown phase)", a.Skipped)
	}
}

// TestStepsTotals verifies step sums and sample counts per bucket.
func TestStepsTotals(t *testing.T) {
	a := NewStepsAgg(Daily)
	a.Add(map[string]string{"startDate": "2024-01-05 08:00:00 -0800", "value": "812"})
	a.Add(map[string]string{"startDate": "2024-01-05 10:00:00 -0800", "value": "1,200"})
	a.Add(map[string]string{"startDate": "2024-01-06 08:00:00 -0800", "value": "300"})

	series := a.Series()
	ys := series[0]
	if want := []string{"2024-01-05", "2024-01-06"}; !reflect.DeepEqual(ys.Labels, want) {
		t.Fatalf("labels = %v, want %v", ys.Labels, want)
	}
	if got := ys.Datasets["steps"][0]; got != 2012.0 {
		t.Errorf("steps = %v, want 2012.0", got)
	}
	if got := ys.Datasets["count"][1]; got != 1 {
		t.Errorf("count = %v, want 1", got)
	}
}

// TestHeartRateExtremes verifies avg/min/max tracking and that non-positive
// readings are discarded.
func TestHeartRateExtremes(t *testing.T) {
	a := NewHeartRateAgg(Monthly)
	for _, v := range []string{"60", "80", "100", "0", "-5"} {
		a.Add(map[string]string{"startDate": "2024-01-05 08:00:00 -0800", "value": v})
	}

	series := a.Series()
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
	if a.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", a.Skipped)
	}
}
