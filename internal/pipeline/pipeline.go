// Package pipeline runs the batch transformation: one streaming extraction
// pass per record category, flattening into per-category CSV tables, then
// pre-aggregation into monthly series. Categories are independent, so they
// are processed one after another with no shared state; a parallel variant
// would have to produce identical output.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/healthdash/internal/aggregate"
	"github.com/claude/healthdash/internal/extract"
	"github.com/claude/healthdash/internal/flatten"
	"github.com/claude/healthdash/internal/models"
	"github.com/claude/healthdash/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Stats summarizes one batch run.
type Stats struct {
	RunID             string
	RecordsExtracted  int
	RecordsSkipped    int
	CategoriesWritten int
	Categories        map[string]store.CategoryStats
}

// Pipeline transforms one export document into a processed tree.
type Pipeline struct {
	fs  afero.Fs
	st  *store.Store
	log *slog.Logger
	now func() time.Time
}

func New(fs afero.Fs, st *store.Store, log *slog.Logger) *Pipeline {
	return &Pipeline{fs: fs, st: st, log: log, now: time.Now}
}

// The continuous-signal passes: each scans the document once for one
// Record type.
var recordPasses = []extract.Selector{
	extract.Records("HKCategoryTypeIdentifierSleepAnalysis", store.CategorySleep),
	extract.Records("HKQuantityTypeIdentifierStepCount", store.CategorySteps),
	extract.Records("HKQuantityTypeIdentifierHeartRate", store.CategoryHeartRate),
}

// Run processes the export at exportPath end to end. A missing or
// unreadable export is fatal before anything is written. Running twice on
// the same input produces byte-identical aggregated.json files.
func (p *Pipeline) Run(exportPath string) (*Stats, error) {
	// Fail before creating any output if the source is absent.
	if _, err := p.fs.Stat(exportPath); err != nil {
		return nil, fmt.Errorf("export not found: %w", err)
	}

	stats := &Stats{
		RunID:      uuid.NewString(),
		Categories: make(map[string]store.CategoryStats),
	}
	startedAt := p.now().UTC()
	w := flatten.NewWriter(p.st)

	// One scan for all workout activity types, then one per signal.
	passes := append([]extract.Selector{extract.Workouts()}, recordPasses...)
	for _, sel := range passes {
		xs, err := p.runPass(exportPath, sel, w)
		if err != nil {
			w.Close()
			return stats, err
		}
		stats.RecordsExtracted += xs.Emitted
		stats.RecordsSkipped += xs.MissingDiscriminator
	}
	if err := w.Close(); err != nil {
		return stats, fmt.Errorf("closing intermediates: %w", err)
	}

	// Flatten and aggregate each category that saw records.
	for _, cat := range w.Categories() {
		cs, err := w.WriteCSV(cat)
		if err != nil {
			return stats, fmt.Errorf("flattening %s: %w", cat, err)
		}

		series, skipped, err := p.aggregateCategory(cat)
		if err != nil {
			return stats, fmt.Errorf("aggregating %s: %w", cat, err)
		}
		cs.SkippedRows += skipped
		if err := p.st.WriteSeries(cat, series); err != nil {
			return stats, err
		}

		stats.Categories[cat] = cs
		stats.CategoriesWritten++
		p.log.Info("category processed", "category", cat, "rows", cs.Rows, "columns", cs.Columns, "skipped", cs.SkippedRows)
	}

	manifest := store.Manifest{
		RunID:      stats.RunID,
		StartedAt:  startedAt,
		FinishedAt: p.now().UTC(),
		Categories: stats.Categories,
	}
	if err := p.st.WriteManifest(manifest); err != nil {
		return stats, err
	}
	return stats, nil
}

func (p *Pipeline) runPass(exportPath string, sel extract.Selector, w *flatten.Writer) (*extract.Stats, error) {
	f, err := p.fs.Open(exportPath)
	if err != nil {
		return nil, fmt.Errorf("opening export: %w", err)
	}
	defer f.Close()

	xs, err := extract.Extract(f, sel, w.Add)
	if err != nil {
		return xs, err
	}
	return xs, nil
}

// aggregateCategory folds a freshly written table into its monthly series.
// The accumulator is chosen by category kind.
func (p *Pipeline) aggregateCategory(category string) ([]models.YearSeries, int, error) {
	switch category {
	case store.CategorySleep:
		agg := aggregate.NewSleepAgg(aggregate.Monthly)
		if _, err := p.st.EachRow(category, rowAdder(agg.Add)); err != nil {
			return nil, 0, err
		}
		return agg.Series(), agg.Skipped, nil
	case store.CategorySteps:
		agg := aggregate.NewStepsAgg(aggregate.Monthly)
		if _, err := p.st.EachRow(category, rowAdder(agg.Add)); err != nil {
			return nil, 0, err
		}
		return agg.Series(), agg.Skipped, nil
	case store.CategoryHeartRate:
		agg := aggregate.NewHeartRateAgg(aggregate.Monthly)
		if _, err := p.st.EachRow(category, rowAdder(agg.Add)); err != nil {
			return nil, 0, err
		}
		return agg.Series(), agg.Skipped, nil
	default:
		agg := aggregate.NewWorkoutAgg(aggregate.Monthly)
		if _, err := p.st.EachRow(category, rowAdder(agg.Add)); err != nil {
			return nil, 0, err
		}
		return agg.Series(), agg.Skipped, nil
	}
}

func rowAdder(add func(map[string]string)) func(map[string]string) error {
	return func(row map[string]string) error {
		add(row)
		return nil
	}
}
