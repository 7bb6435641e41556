package query

import (
	"github.com/claude/healthdash/internal/aggregate"
	"github.com/claude/healthdash/internal/models"
	"github.com/claude/healthdash/internal/store"
)

// Sleep serves the sleep-phase series: precomputed when unfiltered and
// monthly, recomputed from the Sleep table otherwise.
func (e *Engine) Sleep(rng DateRange, g aggregate.Granularity) ([]models.YearSeries, error) {
	return e.signalSeries(store.CategorySleep, rng, g, func() signalAgg {
		return aggregate.NewSleepAgg(g)
	})
}

// Steps serves the step-count series.
func (e *Engine) Steps(rng DateRange, g aggregate.Granularity) ([]models.YearSeries, error) {
	return e.signalSeries(store.CategorySteps, rng, g, func() signalAgg {
		return aggregate.NewStepsAgg(g)
	})
}

// HeartRate serves the heart-rate series with per-bucket average, minimum,
// and maximum.
func (e *Engine) HeartRate(rng DateRange, g aggregate.Granularity) ([]models.YearSeries, error) {
	return e.signalSeries(store.CategoryHeartRate, rng, g, func() signalAgg {
		return aggregate.NewHeartRateAgg(g)
	})
}

// signalAgg is the common accumulator surface of the three signal
// aggregators.
type signalAgg interface {
	Add(row map[string]string)
	Series() []models.YearSeries
}

func (e *Engine) signalSeries(category string, rng DateRange, g aggregate.Granularity, newAgg func() signalAgg) ([]models.YearSeries, error) {
	fast := rng.IsZero() && g == aggregate.Monthly
	key := cacheKey(category, g, false)

	if fast {
		if cached, ok := e.cache.get(key); ok {
			return cached, nil
		}
		series, ok, err := e.st.ReadSeries(category)
		if err != nil {
			return nil, err
		}
		if ok {
			e.cache.put(key, series)
			return series, nil
		}
	}

	agg := newAgg()
	if err := e.scanActivity(category, rng, agg.Add); err != nil {
		return nil, err
	}
	result := agg.Series()
	if fast {
		e.cache.put(key, result)
	}
	return result, nil
}
