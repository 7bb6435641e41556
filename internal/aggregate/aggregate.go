// Package aggregate folds flattened rows into (year, label) buckets and
// formats them as chart-ready series. Labels are English month names for
// monthly granularity or ISO dates for daily granularity. Accumulation is
// pure addition; rounding happens once, at format time.
package aggregate

import (
	"sort"
	"time"

	"github.com/claude/healthdash/internal/models"
)

type Granularity string

const (
	Monthly Granularity = "monthly"
	Daily   Granularity = "daily"
)

// ParseGranularity maps a query argument to a granularity, defaulting to
// monthly for anything unrecognized.
func ParseGranularity(s string) Granularity {
	if s == string(Daily) {
		return Daily
	}
	return Monthly
}

// Key identifies one accumulation bucket.
type Key struct {
	Year  int
	Label string
}

// BucketKey derives the bucket for a row's date field using the
// first-10-characters rule. ok is false for unparseable dates; such rows
// are skipped by every accumulator, never fatal.
func BucketKey(dateStr string, g Granularity) (Key, bool) {
	day, ok := models.ParseDay(dateStr)
	if !ok {
		return Key{}, false
	}
	if g == Daily {
		return Key{Year: day.Year(), Label: day.Format(models.DayFormat)}, true
	}
	return Key{Year: day.Year(), Label: day.Month().String()}, true
}

const timestampLayout = "2006-01-02 15:04:05 -0700"

// parseTimestamp reads a full export timestamp, falling back to the bare
// date form some export versions emit.
func parseTimestamp(s string) (time.Time, bool) {
	if t, err := time.Parse(timestampLayout, s); err == nil {
		return t, true
	}
	return models.ParseDay(s)
}

// sortLabels orders bucket labels within a year: calendar order for month
// names, lexicographic (chronological) for ISO dates.
func sortLabels(labels []string, g Granularity) {
	if g == Daily {
		sort.Strings(labels)
		return
	}
	sort.Slice(labels, func(i, j int) bool {
		return models.MonthIndex(labels[i]) < models.MonthIndex(labels[j])
	})
}

// format assembles the final series shape from a bucket key set: years
// ascending, labels in bucket order, one aligned array per dataset. value
// is consulted per (bucket, dataset) and its result rounded to one decimal.
func format(keys map[Key]bool, g Granularity, datasets []string, value func(Key, string) float64) []models.YearSeries {
	byYear := make(map[int][]string)
	for k := range keys {
		byYear[k.Year] = append(byYear[k.Year], k.Label)
	}
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	result := make([]models.YearSeries, 0, len(years))
	for _, y := range years {
		labels := byYear[y]
		sortLabels(labels, g)

		ds := make(map[string][]float64, len(datasets))
		for _, name := range datasets {
			values := make([]float64, len(labels))
			for i, label := range labels {
				values[i] = models.Round1(value(Key{Year: y, Label: label}, name))
			}
			ds[name] = values
		}
		result = append(result, models.YearSeries{Year: y, Labels: labels, Datasets: ds})
	}
	return result
}
