// Package flatten turns heterogeneous record streams into fixed-schema CSV
// tables. Workout records carry an open-ended set of metadata and statistic
// fields, so the header cannot be known until every record has been seen:
// records are first spooled to a JSONL intermediate while the key union is
// collected, then rewritten against the final column order.
package flatten

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/claude/healthdash/internal/extract"
	"github.com/claude/healthdash/internal/store"
	"github.com/spf13/afero"
)

// Standard columns are pinned first, in this order, when present; every
// other observed key follows sorted lexicographically.
var standardColumns = []string{
	"startDate", "endDate", "duration", "totalEnergyBurned", "totalDistance", "sourceName",
}

// Writer spools records into per-category JSONL sinks during the extraction
// pass, tracking each category's key union as it goes.
type Writer struct {
	st    *store.Store
	sinks map[string]*sink
}

type sink struct {
	file afero.File
	buf  *bufio.Writer
	keys map[string]bool
	rows int
}

func NewWriter(st *store.Store) *Writer {
	return &Writer{st: st, sinks: make(map[string]*sink)}
}

// Add appends one record to its category's intermediate. The category
// directory is created on first record, so empty categories never produce
// output.
func (w *Writer) Add(rec extract.Record) error {
	sk, ok := w.sinks[rec.Category]
	if !ok {
		if err := w.st.EnsureCategory(rec.Category); err != nil {
			return fmt.Errorf("creating category %s: %w", rec.Category, err)
		}
		f, err := w.st.Fs().Create(w.st.IntermediatePath(rec.Category))
		if err != nil {
			return fmt.Errorf("creating intermediate for %s: %w", rec.Category, err)
		}
		sk = &sink{file: f, buf: bufio.NewWriter(f), keys: make(map[string]bool)}
		w.sinks[rec.Category] = sk
	}

	line, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if _, err := sk.buf.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing intermediate for %s: %w", rec.Category, err)
	}
	for k := range rec.Fields {
		sk.keys[k] = true
	}
	sk.rows++
	return nil
}

// Close flushes and closes all open intermediates.
func (w *Writer) Close() error {
	for cat, sk := range w.sinks {
		if err := sk.buf.Flush(); err != nil {
			return fmt.Errorf("flushing %s: %w", cat, err)
		}
		if err := sk.file.Close(); err != nil {
			return fmt.Errorf("closing %s: %w", cat, err)
		}
	}
	return nil
}

// Categories returns every category that received at least one record,
// sorted.
func (w *Writer) Categories() []string {
	cats := make([]string, 0, len(w.sinks))
	for c := range w.sinks {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// Header fixes the column order for a category from its observed key union.
func Header(keys map[string]bool) []string {
	header := make([]string, 0, len(keys))
	for _, k := range standardColumns {
		if keys[k] {
			header = append(header, k)
		}
	}
	standard := make(map[string]bool, len(standardColumns))
	for _, k := range standardColumns {
		standard[k] = true
	}
	var rest []string
	for k := range keys {
		if !standard[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(header, rest...)
}

// WriteCSV rewrites a category's JSONL intermediate as a CSV table against
// the fixed header, filling absent keys with empty values, then removes the
// intermediate. A line that fails to decode is skipped and counted.
func (w *Writer) WriteCSV(category string) (store.CategoryStats, error) {
	sk, ok := w.sinks[category]
	if !ok {
		return store.CategoryStats{}, fmt.Errorf("no records spooled for %s", category)
	}

	header := Header(sk.keys)
	stats := store.CategoryStats{Columns: len(header)}

	in, err := w.st.Fs().Open(w.st.IntermediatePath(category))
	if err != nil {
		return stats, fmt.Errorf("opening intermediate for %s: %w", category, err)
	}
	defer in.Close()

	out, err := w.st.Fs().Create(w.st.TablePath(category))
	if err != nil {
		return stats, fmt.Errorf("creating table for %s: %w", category, err)
	}
	defer out.Close()

	cw := csv.NewWriter(out)
	if err := cw.Write(header); err != nil {
		return stats, fmt.Errorf("writing header for %s: %w", category, err)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	row := make([]string, len(header))
	for scanner.Scan() {
		var fields map[string]string
		if err := json.Unmarshal(scanner.Bytes(), &fields); err != nil {
			stats.SkippedRows++
			continue
		}
		for i, col := range header {
			row[i] = fields[col]
		}
		if err := cw.Write(row); err != nil {
			return stats, fmt.Errorf("writing row for %s: %w", category, err)
		}
		stats.Rows++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("reading intermediate for %s: %w", category, err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return stats, fmt.Errorf("flushing table for %s: %w", category, err)
	}

	if err := w.st.Fs().Remove(w.st.IntermediatePath(category)); err != nil {
		return stats, fmt.Errorf("removing intermediate for %s: %w", category, err)
	}
	return stats, nil
}
