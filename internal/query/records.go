package query

import (
	"sort"
	"time"

	"github.com/claude/healthdash/internal/models"
)

// PersonalRecords reports bests and streaks. The longest-workout and
// busiest-month fields honor the date filter; the streak fields always use
// the complete unfiltered history. That asymmetry is deliberate: a streak
// is a property of the whole habit, not of the window being charted.
type PersonalRecords struct {
	LongestWorkout  *LongestWorkout  `json:"longest_workout,omitempty"`
	MostActiveMonth *MostActiveMonth `json:"most_active_month,omitempty"`
	LongestStreak   int              `json:"longest_streak"`
	CurrentStreak   int              `json:"current_streak"`
}

type LongestWorkout struct {
	Activity string  `json:"activity"`
	Date     string  `json:"date"`
	Duration float64 `json:"duration"`
}

type MostActiveMonth struct {
	Month string `json:"month"`
	Year  int    `json:"year"`
	Count int    `json:"count"`
}

// Records computes personal records within the filter and streaks over the
// full history.
func (e *Engine) Records(rng DateRange) (*PersonalRecords, error) {
	activities, err := e.st.Activities()
	if err != nil {
		return nil, err
	}

	rec := &PersonalRecords{}
	monthCounts := make(map[time.Time]int) // first of month → count
	allDays := make(map[time.Time]bool)    // deduplicated workout days, unfiltered

	for _, activity := range activities {
		activity := activity
		_, err := e.st.EachRow(activity, func(row map[string]string) error {
			day, ok := models.ParseDay(row["startDate"])
			if !ok {
				return nil
			}
			allDays[day] = true
			if !rng.Contains(day) {
				return nil
			}

			duration := models.ParseLenient(row["duration"], 0)
			if rec.LongestWorkout == nil || duration > rec.LongestWorkout.Duration {
				rec.LongestWorkout = &LongestWorkout{
					Activity: activity,
					Date:     day.Format(models.DayFormat),
					Duration: models.Round2(duration),
				}
			}
			monthCounts[time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)]++
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	rec.MostActiveMonth = busiestMonth(monthCounts)
	rec.LongestStreak, rec.CurrentStreak = streaks(allDays, e.now())
	return rec, nil
}

// busiestMonth picks the month with the most workouts; ties go to the
// earliest month so the result is deterministic.
func busiestMonth(counts map[time.Time]int) *MostActiveMonth {
	if len(counts) == 0 {
		return nil
	}
	months := make([]time.Time, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	best := months[0]
	for _, m := range months[1:] {
		if counts[m] > counts[best] {
			best = m
		}
	}
	return &MostActiveMonth{
		Month: best.Month().String(),
		Year:  best.Year(),
		Count: counts[best],
	}
}

// streaks finds the longest run of consecutive workout days, and the
// current run ending at the latest day — counted only if that day is today
// or yesterday relative to now. A gap of two or more days means the current
// streak is over.
func streaks(daySet map[time.Time]bool, now time.Time) (longest, current int) {
	if len(daySet) == 0 {
		return 0, 0
	}
	days := make([]time.Time, 0, len(daySet))
	for d := range daySet {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	last := days[len(days)-1]
	if today.Sub(last) <= 24*time.Hour {
		current = run
	}
	return longest, current
}
