package models

// YearSeries is the chart-ready shape for one calendar year of a category:
// bucket labels (month names or ISO days) and per-metric value arrays
// aligned to those labels. This is the persisted aggregated.json format and
// the wire format of every series endpoint.
type YearSeries struct {
	Year     int                  `json:"year"`
	Labels   []string             `json:"labels"`
	Datasets map[string][]float64 `json:"datasets"`
}

// MonthOrder is the canonical label order for monthly granularity.
var MonthOrder = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var monthIndex = func() map[string]int {
	m := make(map[string]int, len(MonthOrder))
	for i, name := range MonthOrder {
		m[name] = i
	}
	return m
}()

// MonthIndex returns the 0-based calendar position of a month label, or -1
// for an unknown label.
func MonthIndex(label string) int {
	if i, ok := monthIndex[label]; ok {
		return i
	}
	return -1
}
