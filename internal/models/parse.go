package models

import (
	"strconv"
	"strings"
	"time"
)

// DayFormat is the calendar-date layout used throughout: query bounds,
// bucket labels, and the leading 10 characters of export timestamps.
const DayFormat = "2006-01-02"

// ParseDay extracts the calendar date from an export timestamp such as
// "2024-03-07 18:04:21 -0800" by parsing its first 10 characters.
func ParseDay(s string) (time.Time, bool) {
	if len(s) < len(DayFormat) {
		return time.Time{}, false
	}
	t, err := time.Parse(DayFormat, s[:len(DayFormat)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseLenient converts a metric value to a float, tolerating the
// inconsistencies seen across export versions: surrounding whitespace,
// thousands-separator commas, and trailing unit tokens ("12.5 km"). The
// leading numeric token wins; anything unusable yields def.
func ParseLenient(s string, def float64) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return def
	}
	end := 0
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' || c == '.' || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return def
	}
	return v
}

// Round1 rounds to one decimal for series presentation. Rounding happens at
// formatting time only; accumulators stay unrounded.
func Round1(v float64) float64 {
	return roundTo(v, 10)
}

// Round2 rounds to two decimals for summary statistics.
func Round2(v float64) float64 {
	return roundTo(v, 100)
}

func roundTo(v, scale float64) float64 {
	if v < 0 {
		return -roundTo(-v, scale)
	}
	return float64(int64(v*scale+0.5)) / scale
}
