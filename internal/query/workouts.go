package query

import (
	"sort"

	"github.com/claude/healthdash/internal/models"
)

// WorkoutEntry is one row of the detail listing.
type WorkoutEntry struct {
	Activity string  `json:"activity"`
	Date     string  `json:"date"`
	Duration float64 `json:"duration"`
	Energy   float64 `json:"energy"`
	Distance float64 `json:"distance"`

	sortKey string
}

// WorkoutPage is one page of the listing plus pagination totals.
type WorkoutPage struct {
	Workouts   []WorkoutEntry `json:"workouts"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
	TotalPages int            `json:"total_pages"`
}

// DefaultPerPage applies when the caller does not pick a page size.
const DefaultPerPage = 50

// Workouts lists per-workout rows, newest first, with offset/limit
// pagination. An empty activity means all non-special categories. A page
// past the end returns an empty page with Total unchanged.
func (e *Engine) Workouts(activity string, rng DateRange, page, perPage int) (*WorkoutPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	var activities []string
	if activity == "" || activity == TotalActivity {
		var err error
		activities, err = e.st.Activities()
		if err != nil {
			return nil, err
		}
	} else {
		activities = []string{activity}
	}

	entries := []WorkoutEntry{}
	for _, act := range activities {
		act := act
		err := e.scanActivity(act, rng, func(row map[string]string) {
			day, _ := models.ParseDay(row["startDate"])
			entries = append(entries, WorkoutEntry{
				Activity: act,
				Date:     day.Format(models.DayFormat),
				Duration: models.Round2(models.ParseLenient(row["duration"], 0)),
				Energy:   models.Round2(preferredValue(row, "stat_ActiveEnergyBurned_sum", "totalEnergyBurned")),
				Distance: models.Round2(preferredValue(row, "stat_DistanceWalkingRunning_sum", "totalDistance")),
				sortKey:  row["startDate"],
			})
		})
		if err != nil {
			return nil, err
		}
	}

	// Newest first; the raw timestamp keeps same-day workouts ordered.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].sortKey > entries[j].sortKey
	})

	total := len(entries)
	totalPages := (total + perPage - 1) / perPage

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return &WorkoutPage{
		Workouts:   entries[start:end],
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}
