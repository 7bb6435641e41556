// Package store owns the processed/ tree layout: one directory per
// category holding the flattened table and its precomputed series. All I/O
// goes through an afero.Fs so the pipeline and query layer run against an
// in-memory filesystem in tests.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"time"

	"github.com/claude/healthdash/internal/models"
	"github.com/spf13/afero"
)

// The three continuous-signal categories. They live in the same tree as
// workout activities but are excluded from the generic activity listing and
// served by dedicated operations.
const (
	CategorySleep     = "Sleep"
	CategorySteps     = "Steps"
	CategoryHeartRate = "HeartRate"
)

// IsSpecial reports whether a category is one of the continuous signals.
func IsSpecial(category string) bool {
	switch category {
	case CategorySleep, CategorySteps, CategoryHeartRate:
		return true
	}
	return false
}

const (
	tableFile    = "workouts.csv"
	jsonlFile    = "workouts.jsonl"
	seriesFile   = "aggregated.json"
	manifestFile = "manifest.json"
)

// Store reads and writes category directories under one processed root.
type Store struct {
	fs   afero.Fs
	root string
}

func New(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

// Fs exposes the underlying filesystem for components that stream files
// themselves (the flattener's JSONL intermediates).
func (s *Store) Fs() afero.Fs { return s.fs }

// Processed reports whether a batch run has produced any output.
func (s *Store) Processed() bool {
	cats, err := s.Categories()
	return err == nil && len(cats) > 0
}

// Categories lists every category directory, sorted, specials included.
func (s *Store) Categories() ([]string, error) {
	infos, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, nil // absent tree means not yet processed, not an error
	}
	var cats []string
	for _, info := range infos {
		if info.IsDir() {
			cats = append(cats, info.Name())
		}
	}
	sort.Strings(cats)
	return cats, nil
}

// Activities lists workout categories: all category directories minus the
// three specials.
func (s *Store) Activities() ([]string, error) {
	cats, err := s.Categories()
	if err != nil {
		return nil, err
	}
	activities := make([]string, 0, len(cats))
	for _, c := range cats {
		if !IsSpecial(c) {
			activities = append(activities, c)
		}
	}
	return activities, nil
}

func (s *Store) categoryDir(category string) string {
	return path.Join(s.root, category)
}

// EnsureCategory creates the directory for a category. Directories are only
// created once a first record shows up, so empty categories never appear.
func (s *Store) EnsureCategory(category string) error {
	return s.fs.MkdirAll(s.categoryDir(category), 0o755)
}

// TablePath returns where a category's flattened CSV lives.
func (s *Store) TablePath(category string) string {
	return path.Join(s.categoryDir(category), tableFile)
}

// IntermediatePath returns where a category's JSONL intermediate lives
// between the extraction and flatten passes.
func (s *Store) IntermediatePath(category string) string {
	return path.Join(s.categoryDir(category), jsonlFile)
}

// SeriesPath returns where a category's precomputed series lives.
func (s *Store) SeriesPath(category string) string {
	return path.Join(s.categoryDir(category), seriesFile)
}

// OpenTable opens a category's flattened table for reading. ok is false
// when the category has no table, which callers treat as empty data.
func (s *Store) OpenTable(category string) (io.ReadCloser, bool, error) {
	f, err := s.fs.Open(s.TablePath(category))
	if err != nil {
		return nil, false, nil
	}
	return f, true, nil
}

// ReadSeries loads a category's precomputed series. ok is false when none
// has been written.
func (s *Store) ReadSeries(category string) ([]models.YearSeries, bool, error) {
	data, err := afero.ReadFile(s.fs, s.SeriesPath(category))
	if err != nil {
		return nil, false, nil
	}
	var series []models.YearSeries
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, false, fmt.Errorf("parsing series for %s: %w", category, err)
	}
	return series, true, nil
}

// WriteSeries persists a category's formatted series. Encoding goes through
// encoding/json with sorted map keys, so identical input data produces
// byte-identical files across runs.
func (s *Store) WriteSeries(category string, series []models.YearSeries) error {
	if err := s.EnsureCategory(category); err != nil {
		return err
	}
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("encoding series for %s: %w", category, err)
	}
	if err := afero.WriteFile(s.fs, s.SeriesPath(category), data, 0o644); err != nil {
		return fmt.Errorf("writing series for %s: %w", category, err)
	}
	return nil
}

// EachRow streams a category's flattened table as column-keyed maps. found
// is false when the category has no table; callers treat that as empty
// data, never an error.
func (s *Store) EachRow(category string, fn func(map[string]string) error) (bool, error) {
	f, ok, err := s.OpenTable(category)
	if err != nil || !ok {
		return false, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("reading header for %s: %w", category, err)
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			return true, nil
		}
		if err != nil {
			return true, fmt.Errorf("reading row for %s: %w", category, err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		if err := fn(row); err != nil {
			return true, err
		}
	}
}

// Manifest records one batch run.
type Manifest struct {
	RunID      string                   `json:"run_id"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Categories map[string]CategoryStats `json:"categories"`
}

// CategoryStats summarizes one category's processing within a run.
type CategoryStats struct {
	Rows        int `json:"rows"`
	Columns     int `json:"columns"`
	SkippedRows int `json:"skipped_rows"`
}

// WriteManifest persists the run manifest at the processed root.
func (s *Store) WriteManifest(m Manifest) error {
	if err := s.fs.MkdirAll(s.root, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := afero.WriteFile(s.fs, path.Join(s.root, manifestFile), data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
