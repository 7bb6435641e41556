package aggregate

import (
	"sort"

	"github.com/claude/healthdash/internal/models"
)

// Workout datasets in their presentation order.
var workoutDatasets = []string{"count", "duration", "energy", "distance"}

// groupedMetrics extends the workout datasets with per-bucket averages for
// grouped and Total series.
var groupedMetrics = []string{"count", "duration", "energy", "distance", "avg_duration", "avg_energy"}

// WorkoutAccum accumulates one bucket of workout rows.
type WorkoutAccum struct {
	Count    int
	Duration float64
	Energy   float64
	Distance float64
}

// WorkoutAgg folds flattened workout rows into buckets. Energy and distance
// each have two candidate source columns: the detailed per-statistic sum is
// preferred, the legacy total field is the fallback.
type WorkoutAgg struct {
	g       Granularity
	buckets map[Key]*WorkoutAccum
	Skipped int
}

func NewWorkoutAgg(g Granularity) *WorkoutAgg {
	return &WorkoutAgg{g: g, buckets: make(map[Key]*WorkoutAccum)}
}

// Add folds one row in. Rows with an unparseable date are counted in
// Skipped and otherwise ignored.
func (a *WorkoutAgg) Add(row map[string]string) {
	k, ok := BucketKey(row["startDate"], a.g)
	if !ok {
		a.Skipped++
		return
	}
	b := a.buckets[k]
	if b == nil {
		b = &WorkoutAccum{}
		a.buckets[k] = b
	}
	b.Count++
	b.Duration += models.ParseLenient(row["duration"], 0)
	b.Energy += preferredValue(row, "stat_ActiveEnergyBurned_sum", "totalEnergyBurned")
	b.Distance += preferredValue(row, "stat_DistanceWalkingRunning_sum", "totalDistance")
}

// preferredValue takes the first column that is present and non-empty,
// else the second, else zero.
func preferredValue(row map[string]string, first, second string) float64 {
	if v := row[first]; v != "" {
		return models.ParseLenient(v, 0)
	}
	return models.ParseLenient(row[second], 0)
}

// Series formats the accumulated buckets as count/duration/energy/distance
// datasets. This is the persisted aggregated.json shape.
func (a *WorkoutAgg) Series() []models.YearSeries {
	keys := make(map[Key]bool, len(a.buckets))
	for k := range a.buckets {
		keys[k] = true
	}
	return format(keys, a.g, workoutDatasets, func(k Key, name string) float64 {
		b := a.buckets[k]
		switch name {
		case "count":
			return float64(b.Count)
		case "duration":
			return b.Duration
		case "energy":
			return b.Energy
		default:
			return b.Distance
		}
	})
}

// AddSeries folds an already-formatted series into the accumulator. The
// Total fast path combines per-category aggregated.json files this way
// instead of rescanning tables.
func (a *WorkoutAgg) AddSeries(series []models.YearSeries) {
	for _, ys := range series {
		for i, label := range ys.Labels {
			k := Key{Year: ys.Year, Label: label}
			b := a.buckets[k]
			if b == nil {
				b = &WorkoutAccum{}
				a.buckets[k] = b
			}
			b.Count += int(datasetValue(ys, "count", i))
			b.Duration += datasetValue(ys, "duration", i)
			b.Energy += datasetValue(ys, "energy", i)
			b.Distance += datasetValue(ys, "distance", i)
		}
	}
}

func datasetValue(ys models.YearSeries, name string, i int) float64 {
	vs := ys.Datasets[name]
	if i >= len(vs) {
		return 0
	}
	return vs[i]
}

// FormatGrouped combines several named accumulators into one flat series
// whose dataset keys are "<group>_<metric>". The label set per year is the
// union across groups; a group absent from a bucket contributes zeros.
// Averages are computed per bucket from that bucket's own sum and count.
func FormatGrouped(groups map[string]*WorkoutAgg, g Granularity) []models.YearSeries {
	keys := make(map[Key]bool)
	for _, agg := range groups {
		for k := range agg.buckets {
			keys[k] = true
		}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	type target struct {
		agg    *WorkoutAgg
		metric string
	}
	var datasets []string
	lookup := make(map[string]target)
	for _, name := range names {
		for _, metric := range groupedMetrics {
			dataset := name + "_" + metric
			datasets = append(datasets, dataset)
			lookup[dataset] = target{agg: groups[name], metric: metric}
		}
	}

	return format(keys, g, datasets, func(k Key, dataset string) float64 {
		tgt := lookup[dataset]
		b := tgt.agg.buckets[k]
		if b == nil {
			return 0
		}
		switch tgt.metric {
		case "count":
			return float64(b.Count)
		case "duration":
			return b.Duration
		case "energy":
			return b.Energy
		case "distance":
			return b.Distance
		case "avg_duration":
			if b.Count == 0 {
				return 0
			}
			return b.Duration / float64(b.Count)
		default: // avg_energy
			if b.Count == 0 {
				return 0
			}
			return b.Energy / float64(b.Count)
		}
	})
}
