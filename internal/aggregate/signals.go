package aggregate

import (
	"math"
	"strings"

	"github.com/claude/healthdash/internal/extract"
	"github.com/claude/healthdash/internal/models"
)

// SleepAccum holds per-bucket sleep-phase minutes.
type SleepAccum struct {
	Asleep float64
	InBed  float64
	Awake  float64
}

// SleepAgg buckets sleep records by phase. Phase codes vary across export
// versions ("HKCategoryValueSleepAnalysisAsleepCore", "InBed", ...), so
// matching is a case-insensitive substring check on the stripped value.
type SleepAgg struct {
	g       Granularity
	buckets map[Key]*SleepAccum
	Skipped int
}

func NewSleepAgg(g Granularity) *SleepAgg {
	return &SleepAgg{g: g, buckets: make(map[Key]*SleepAccum)}
}

func (a *SleepAgg) Add(row map[string]string) {
	k, ok := BucketKey(row["startDate"], a.g)
	if !ok {
		a.Skipped++
		return
	}
	start, okS := parseTimestamp(row["startDate"])
	end, okE := parseTimestamp(row["endDate"])
	if !okS || !okE || end.Before(start) {
		a.Skipped++
		return
	}
	minutes := end.Sub(start).Minutes()

	phase := strings.ToLower(extract.StripHKPrefix(row["value"]))
	b := a.buckets[k]
	if b == nil {
		b = &SleepAccum{}
		a.buckets[k] = b
	}
	switch {
	case strings.Contains(phase, "asleep"):
		b.Asleep += minutes
	case strings.Contains(phase, "inbed") || strings.Contains(phase, "in bed"):
		b.InBed += minutes
	case strings.Contains(phase, "awake"):
		b.Awake += minutes
	default:
		a.Skipped++
	}
}

func (a *SleepAgg) Series() []models.YearSeries {
	keys := make(map[Key]bool, len(a.buckets))
	for k := range a.buckets {
		keys[k] = true
	}
	return format(keys, a.g, []string{"asleep", "in_bed", "awake"}, func(k Key, name string) float64 {
		b := a.buckets[k]
		switch name {
		case "asleep":
			return b.Asleep
		case "in_bed":
			return b.InBed
		default:
			return b.Awake
		}
	})
}

// StepsAccum holds per-bucket step totals.
type StepsAccum struct {
	Steps float64
	Count int
}

type StepsAgg struct {
	g       Granularity
	buckets map[Key]*StepsAccum
	Skipped int
}

func NewStepsAgg(g Granularity) *StepsAgg {
	return &StepsAgg{g: g, buckets: make(map[Key]*StepsAccum)}
}

func (a *StepsAgg) Add(row map[string]string) {
	k, ok := BucketKey(row["startDate"], a.g)
	if !ok {
		a.Skipped++
		return
	}
	b := a.buckets[k]
	if b == nil {
		b = &StepsAccum{}
		a.buckets[k] = b
	}
	b.Steps += models.ParseLenient(row["value"], 0)
	b.Count++
}

func (a *StepsAgg) Series() []models.YearSeries {
	keys := make(map[Key]bool, len(a.buckets))
	for k := range a.buckets {
		keys[k] = true
	}
	return format(keys, a.g, []string{"steps", "count"}, func(k Key, name string) float64 {
		b := a.buckets[k]
		if name == "steps" {
			return b.Steps
		}
		return float64(b.Count)
	})
}

// HeartRateAccum tracks sum/count plus per-bucket extremes.
type HeartRateAccum struct {
	Sum   float64
	Count int
	Min   float64
	Max   float64
}

type HeartRateAgg struct {
	g       Granularity
	buckets map[Key]*HeartRateAccum
	Skipped int
}

func NewHeartRateAgg(g Granularity) *HeartRateAgg {
	return &HeartRateAgg{g: g, buckets: make(map[Key]*HeartRateAccum)}
}

// Add folds one reading in. Non-positive readings are sensor noise and are
// discarded.
func (a *HeartRateAgg) Add(row map[string]string) {
	k, ok := BucketKey(row["startDate"], a.g)
	if !ok {
		a.Skipped++
		return
	}
	v := models.ParseLenient(row["value"], 0)
	if v <= 0 {
		a.Skipped++
		return
	}
	b := a.buckets[k]
	if b == nil {
		b = &HeartRateAccum{Min: math.MaxFloat64}
		a.buckets[k] = b
	}
	b.Sum += v
	b.Count++
	if v < b.Min {
		b.Min = v
	}
	if v > b.Max {
		b.Max = v
	}
}

func (a *HeartRateAgg) Series() []models.YearSeries {
	keys := make(map[Key]bool, len(a.buckets))
	for k := range a.buckets {
		keys[k] = true
	}
	return format(keys, a.g, []string{"avg", "min", "max"}, func(k Key, name string) float64 {
		b := a.buckets[k]
		switch name {
		case "avg":
			if b.Count == 0 {
				return 0
			}
			return b.Sum / float64(b.Count)
		case "min":
			if b.Count == 0 {
				return 0
			}
			return b.Min
		default:
			return b.Max
		}
	})
}
