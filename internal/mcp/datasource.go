package mcp

import (
	"github.com/claude/healthdash/internal/aggregate"
	"github.com/claude/healthdash/internal/models"
	"github.com/claude/healthdash/internal/query"
)

// DataSource abstracts the query layer for MCP tools so handlers can be
// tested against a stub.
type DataSource interface {
	Processed() bool
	Activities() ([]string, error)
	Series(q query.SeriesQuery) ([]models.YearSeries, error)
	Sleep(rng query.DateRange, g aggregate.Granularity) ([]models.YearSeries, error)
	Steps(rng query.DateRange, g aggregate.Granularity) ([]models.YearSeries, error)
	HeartRate(rng query.DateRange, g aggregate.Granularity) ([]models.YearSeries, error)
	Summary(rng query.DateRange) (*query.Summary, error)
	Records(rng query.DateRange) (*query.PersonalRecords, error)
	Workouts(activity string, rng query.DateRange, page, perPage int) (*query.WorkoutPage, error)
}

// Compile-time check: *query.Engine satisfies DataSource.
var _ DataSource = (*query.Engine)(nil)
