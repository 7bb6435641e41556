// Package extract streams records out of an Apple-Health-style XML export.
// The document routinely runs to multiple gigabytes, so everything here
// works off the token decoder: each element is consumed, handed to the
// caller, and discarded. Peak memory tracks the largest single element,
// never the document.
package extract

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Record is one raw export record reduced to a flat field map. Category is
// the prefix-stripped activity name for workouts, or the fixed special
// category name the Selector was built with.
type Record struct {
	Category string
	Fields   map[string]string
}

// Selector picks one record kind out of the document. Workouts select by
// element tag alone; the continuous signals select <Record> elements whose
// type attribute matches.
type Selector struct {
	Element  string // "Workout" or "Record"
	Type     string // required value of the type attribute, Record only
	Category string // fixed category name, Record only
}

// Workouts selects all <Workout> elements, demultiplexed by activity type.
func Workouts() Selector {
	return Selector{Element: "Workout"}
}

// Records selects <Record> elements of one type into a fixed category.
func Records(recordType, category string) Selector {
	return Selector{Element: "Record", Type: recordType, Category: category}
}

// Stats reports what one extraction pass saw. Skips are counted rather than
// silently swallowed so best-effort parsing stays observable.
type Stats struct {
	Emitted              int
	MissingDiscriminator int
}

// Known identifier prefixes the export prepends to type names.
var hkPrefixes = []string{
	"HKWorkoutActivityType",
	"HKQuantityTypeIdentifier",
	"HKCategoryTypeIdentifier",
	"HKCategoryValueSleepAnalysis",
	"HKCategoryValue",
}

// StripHKPrefix removes the vendor namespace prefix from a type identifier,
// e.g. "HKWorkoutActivityTypeRunning" → "Running".
func StripHKPrefix(s string) string {
	for _, p := range hkPrefixes {
		if strings.HasPrefix(s, p) && len(s) > len(p) {
			return s[len(p):]
		}
	}
	return s
}

// Extract walks the document once and calls fn for every record matching
// sel. Records missing their discriminator attribute are counted and
// skipped. A malformed document is fatal and returned; an error from fn
// aborts the walk.
func Extract(r io.Reader, sel Selector, fn func(Record) error) (*Stats, error) {
	dec := xml.NewDecoder(r)
	stats := &Stats{}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("parsing export: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != sel.Element {
			continue
		}

		rec, ok, err := decodeElement(dec, se, sel)
		if err != nil {
			return stats, fmt.Errorf("parsing export: %w", err)
		}
		if !ok {
			stats.MissingDiscriminator++
			continue
		}
		if rec.Category == "" {
			// A <Record> of some other type; not this pass's concern.
			continue
		}

		if err := fn(rec); err != nil {
			return stats, err
		}
		stats.Emitted++
	}
}

// decodeElement turns one matched element (attributes plus MetadataEntry
// and WorkoutStatistics children) into a Record. Returns ok=false when the
// discriminator attribute is absent. A Record element of a non-matching
// type comes back with an empty Category.
func decodeElement(dec *xml.Decoder, se xml.StartElement, sel Selector) (Record, bool, error) {
	fields := make(map[string]string, len(se.Attr))
	for _, a := range se.Attr {
		fields[a.Name.Local] = a.Value
	}

	rec := Record{Fields: fields}
	switch sel.Element {
	case "Workout":
		activity, ok := fields["workoutActivityType"]
		if !ok || activity == "" {
			return rec, false, dec.Skip()
		}
		rec.Category = StripHKPrefix(activity)
	default:
		recType, ok := fields["type"]
		if !ok || recType == "" {
			return rec, false, dec.Skip()
		}
		if recType != sel.Type {
			return rec, true, dec.Skip()
		}
		rec.Category = sel.Category
	}

	if err := collectChildren(dec, fields); err != nil {
		return rec, false, err
	}
	return rec, true, nil
}

// collectChildren consumes the element body, folding MetadataEntry children
// into meta_<key> fields and WorkoutStatistics children into
// stat_<ShortType>_<attr> fields. Every other subtree (events, routes,
// beat-to-beat lists) is skipped without buffering.
func collectChildren(dec *xml.Decoder, fields map[string]string) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "MetadataEntry":
				var key, val string
				for _, a := range t.Attr {
					switch a.Name.Local {
					case "key":
						key = a.Value
					case "value":
						val = a.Value
					}
				}
				if key != "" {
					fields["meta_"+key] = val
				}
			case "WorkoutStatistics":
				var statType string
				for _, a := range t.Attr {
					if a.Name.Local == "type" {
						statType = StripHKPrefix(a.Value)
					}
				}
				if statType != "" {
					for _, a := range t.Attr {
						if a.Name.Local == "type" {
							continue
						}
						fields["stat_"+statType+"_"+a.Name.Local] = a.Value
					}
				}
			}
			if err := dec.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}
