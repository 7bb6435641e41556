package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/claude/healthdash/internal/aggregate"
	"github.com/claude/healthdash/internal/models"
	"github.com/claude/healthdash/internal/query"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"processed": s.engine.Processed()})
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := s.engine.Activities()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if activities == nil {
		activities = []string{}
	}
	writeJSON(w, http.StatusOK, activities)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	activity := r.URL.Query().Get("activity")
	if activity == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "activity parameter required"})
		return
	}

	series, err := s.engine.Series(query.SeriesQuery{
		Activity:        activity,
		Range:           dateRange(r),
		Granularity:     aggregate.ParseGranularity(r.URL.Query().Get("granularity")),
		GroupByCategory: boolParam(r, "group_by_category"),
	})
	if err != nil {
		s.log.Error("series query", "activity", activity, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeSeries(w, series)
}

func (s *Server) handleSleep(w http.ResponseWriter, r *http.Request) {
	series, err := s.engine.Sleep(dateRange(r), granularity(r))
	if err != nil {
		s.log.Error("sleep query", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeSeries(w, series)
}

func (s *Server) handleSteps(w http.ResponseWriter, r *http.Request) {
	series, err := s.engine.Steps(dateRange(r), granularity(r))
	if err != nil {
		s.log.Error("steps query", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeSeries(w, series)
}

func (s *Server) handleHeartRate(w http.ResponseWriter, r *http.Request) {
	series, err := s.engine.HeartRate(dateRange(r), granularity(r))
	if err != nil {
		s.log.Error("heartrate query", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeSeries(w, series)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Summary(dateRange(r))
	if err != nil {
		s.log.Error("summary query", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.engine.Records(dateRange(r))
	if err != nil {
		s.log.Error("records query", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleWorkouts(w http.ResponseWriter, r *http.Request) {
	page := intParam(r, "page", 1)
	perPage := intParam(r, "per_page", query.DefaultPerPage)

	result, err := s.engine.Workouts(r.URL.Query().Get("activity"), dateRange(r), page, perPage)
	if err != nil {
		s.log.Error("workouts query", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeSeries keeps empty series as [] on the wire, the shape the
// dashboard expects for absent data.
func writeSeries(w http.ResponseWriter, series []models.YearSeries) {
	if series == nil {
		series = []models.YearSeries{}
	}
	writeJSON(w, http.StatusOK, series)
}

// dateRange reads the inclusive start_date/end_date bounds. Missing or
// unparseable values mean unbounded.
func dateRange(r *http.Request) query.DateRange {
	q := r.URL.Query()
	return query.ParseDateRange(q.Get("start_date"), q.Get("end_date"))
}

func granularity(r *http.Request) aggregate.Granularity {
	return aggregate.ParseGranularity(r.URL.Query().Get("granularity"))
}

func boolParam(r *http.Request, name string) bool {
	switch r.URL.Query().Get(name) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func intParam(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
