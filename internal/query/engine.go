// Package query answers read-only analytical queries over the processed
// tree. Unfiltered monthly queries are served from the precomputed series
// (fast path); anything the precomputed aggregate cannot satisfy — date
// bounds, daily granularity, categorization — is recomputed from the
// flattened tables (slow path). Absent categories always yield empty
// results, never errors: the dashboard distinguishes "empty" from "not yet
// processed" through the separate status check.
package query

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/claude/healthdash/internal/aggregate"
	"github.com/claude/healthdash/internal/models"
	"github.com/claude/healthdash/internal/store"
)

// TotalActivity is the sentinel activity name meaning all non-special
// categories combined.
const TotalActivity = "Total"

// Engine serves queries over one processed tree. It is safe for concurrent
// use: all state is read-only except the cache, whose inserts are
// idempotent.
type Engine struct {
	st    *store.Store
	log   *slog.Logger
	cache *seriesCache

	// now is the wall clock for current-streak detection; injectable in
	// tests.
	now func() time.Time
}

func New(st *store.Store, log *slog.Logger) *Engine {
	return &Engine{st: st, log: log, cache: newSeriesCache(), now: time.Now}
}

// Processed reports whether a batch run has produced data to query.
func (e *Engine) Processed() bool { return e.st.Processed() }

// Activities lists the processed workout categories, sorted, specials
// excluded.
func (e *Engine) Activities() ([]string, error) { return e.st.Activities() }

// DateRange is an inclusive calendar-date filter; a zero side is
// unbounded.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange builds a range from YYYY-MM-DD query arguments. An
// unparseable or missing bound means unbounded on that side.
func ParseDateRange(start, end string) DateRange {
	var r DateRange
	if t, ok := models.ParseDay(start); ok {
		r.Start = t
	}
	if t, ok := models.ParseDay(end); ok {
		r.End = t
	}
	return r
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Contains reports whether a day falls inside the range, bounds inclusive.
func (r DateRange) Contains(day time.Time) bool {
	if !r.Start.IsZero() && day.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && day.After(r.End) {
		return false
	}
	return true
}

// strengthKeywords classify an activity name as strength training; every
// other activity counts as cardio.
var strengthKeywords = []string{"strength", "functional", "core", "traditional", "weight", "cross"}

const (
	GroupStrength = "Strength Training"
	GroupCardio   = "Cardio"
)

// Classify buckets an activity name into the two coarse classes.
func Classify(activity string) string {
	lower := strings.ToLower(activity)
	for _, kw := range strengthKeywords {
		if strings.Contains(lower, kw) {
			return GroupStrength
		}
	}
	return GroupCardio
}

// SeriesQuery describes one series request.
type SeriesQuery struct {
	Activity        string
	Range           DateRange
	Granularity     aggregate.Granularity
	GroupByCategory bool
}

// Series answers the general workout analytics query. A plain activity
// returns the count/duration/energy/distance datasets; the Total sentinel
// and categorization return flat "<group>_<metric>" datasets with an
// always-present Total group carrying per-bucket averages.
func (e *Engine) Series(q SeriesQuery) ([]models.YearSeries, error) {
	grouped := q.GroupByCategory || q.Activity == TotalActivity
	fast := q.Range.IsZero() && q.Granularity == aggregate.Monthly

	key := cacheKey(q.Activity, q.Granularity, q.GroupByCategory)
	if fast {
		if cached, ok := e.cache.get(key); ok {
			return cached, nil
		}
	}

	var result []models.YearSeries
	var err error
	if grouped {
		result, err = e.groupedSeries(q, fast)
	} else {
		result, err = e.activitySeries(q, fast)
	}
	if err != nil {
		return nil, err
	}

	if fast {
		e.cache.put(key, result)
	}
	return result, nil
}

// activitySeries serves one category: the persisted series verbatim on the
// fast path, a table recomputation otherwise.
func (e *Engine) activitySeries(q SeriesQuery, fast bool) ([]models.YearSeries, error) {
	if fast {
		series, ok, err := e.st.ReadSeries(q.Activity)
		if err != nil {
			return nil, err
		}
		if ok {
			return series, nil
		}
		// No precomputed series; fall through to the table.
	}

	agg := aggregate.NewWorkoutAgg(q.Granularity)
	if err := e.scanActivity(q.Activity, q.Range, agg.Add); err != nil {
		return nil, err
	}
	return agg.Series(), nil
}

// groupedSeries combines all workout categories into class buckets plus the
// Total bucket. On the fast path the per-category precomputed series are
// folded directly; the slow path rescans tables with the date filter.
func (e *Engine) groupedSeries(q SeriesQuery, fast bool) ([]models.YearSeries, error) {
	activities, err := e.st.Activities()
	if err != nil {
		return nil, err
	}

	groups := map[string]*aggregate.WorkoutAgg{
		TotalActivity: aggregate.NewWorkoutAgg(q.Granularity),
	}
	if q.GroupByCategory {
		groups[GroupStrength] = aggregate.NewWorkoutAgg(q.Granularity)
		groups[GroupCardio] = aggregate.NewWorkoutAgg(q.Granularity)
	}

	for _, activity := range activities {
		targets := []*aggregate.WorkoutAgg{groups[TotalActivity]}
		if q.GroupByCategory {
			targets = append(targets, groups[Classify(activity)])
		}

		if fast {
			series, ok, err := e.st.ReadSeries(activity)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			for _, agg := range targets {
				agg.AddSeries(series)
			}
			continue
		}

		err := e.scanActivity(activity, q.Range, func(row map[string]string) {
			for _, agg := range targets {
				agg.Add(row)
			}
		})
		if err != nil {
			return nil, err
		}
	}

	return aggregate.FormatGrouped(groups, q.Granularity), nil
}

// scanActivity streams one category's table rows through the date filter.
// Rows whose date cannot be parsed are dropped, matching the aggregation
// skip rule.
func (e *Engine) scanActivity(activity string, rng DateRange, add func(map[string]string)) error {
	_, err := e.st.EachRow(activity, func(row map[string]string) error {
		day, ok := models.ParseDay(row["startDate"])
		if !ok || !rng.Contains(day) {
			return nil
		}
		add(row)
		return nil
	})
	return err
}

// preferredValue mirrors the aggregation column-preference rule for the
// listing and summary paths.
func preferredValue(row map[string]string, first, second string) float64 {
	if v := row[first]; v != "" {
		return models.ParseLenient(v, 0)
	}
	return models.ParseLenient(row[second], 0)
}

// seriesCache holds fast-path results for the lifetime of the process. It
// is never invalidated: reprocessing the export requires a restart (or any
// date filter, which bypasses the cache). Known staleness risk, accepted
// for the batch-then-query usage pattern.
type seriesCache struct {
	mu      sync.RWMutex
	entries map[string][]models.YearSeries
}

func newSeriesCache() *seriesCache {
	return &seriesCache{entries: make(map[string][]models.YearSeries)}
}

func cacheKey(activity string, g aggregate.Granularity, grouped bool) string {
	return fmt.Sprintf("%s|%s|%t", activity, g, grouped)
}

func (c *seriesCache) get(key string) ([]models.YearSeries, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *seriesCache) put(key string, v []models.YearSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
}
