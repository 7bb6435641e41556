package query

import (
	"time"

	"github.com/claude/healthdash/internal/models"
)

// Summary holds cross-activity totals and rates for a (possibly filtered)
// slice of the workout history. All values are rounded to two decimals.
type Summary struct {
	TotalWorkouts    int     `json:"total_workouts"`
	TotalDuration    float64 `json:"total_duration"`
	TotalEnergy      float64 `json:"total_energy"`
	TotalDistance    float64 `json:"total_distance"`
	AvgDuration      float64 `json:"avg_duration"`
	WorkoutsPerWeek  float64 `json:"workouts_per_week"`
	WorkoutsPerMonth float64 `json:"workouts_per_month"`
}

const daysPerMonth = 30.44

// Summary computes summary statistics across all non-special categories.
// The week/month rates divide the workout count by the span between the
// earliest and latest observed workout dates inside the filter — not the
// filter's own bounds. A single-day history counts as a one-day span.
func (e *Engine) Summary(rng DateRange) (*Summary, error) {
	activities, err := e.st.Activities()
	if err != nil {
		return nil, err
	}

	s := &Summary{}
	var earliest, latest time.Time

	for _, activity := range activities {
		err := e.scanActivity(activity, rng, func(row map[string]string) {
			day, _ := models.ParseDay(row["startDate"])
			s.TotalWorkouts++
			s.TotalDuration += models.ParseLenient(row["duration"], 0)
			s.TotalEnergy += preferredValue(row, "stat_ActiveEnergyBurned_sum", "totalEnergyBurned")
			s.TotalDistance += preferredValue(row, "stat_DistanceWalkingRunning_sum", "totalDistance")
			if earliest.IsZero() || day.Before(earliest) {
				earliest = day
			}
			if latest.IsZero() || day.After(latest) {
				latest = day
			}
		})
		if err != nil {
			return nil, err
		}
	}

	if s.TotalWorkouts > 0 {
		s.AvgDuration = s.TotalDuration / float64(s.TotalWorkouts)

		spanDays := latest.Sub(earliest).Hours() / 24
		if spanDays < 1 {
			spanDays = 1
		}
		s.WorkoutsPerWeek = float64(s.TotalWorkouts) / (spanDays / 7)
		s.WorkoutsPerMonth = float64(s.TotalWorkouts) / (spanDays / daysPerMonth)
	}

	s.TotalDuration = models.Round2(s.TotalDuration)
	s.TotalEnergy = models.Round2(s.TotalEnergy)
	s.TotalDistance = models.Round2(s.TotalDistance)
	s.AvgDuration = models.Round2(s.AvgDuration)
	s.WorkoutsPerWeek = models.Round2(s.WorkoutsPerWeek)
	s.WorkoutsPerMonth = models.Round2(s.WorkoutsPerMonth)
	return s, nil
}
