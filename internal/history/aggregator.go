// Package history builds the cross-file processing history of one sample
// from a set of standardized records. Build is pure: same records in the
// same order always produce the same history.
package history

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"labtrace/internal/models"
)

// timestampKeys are probed in order against each record's metadata to find
// the run timestamp.
var timestampKeys = []string{"date", "run_date", "started", "exp_start_time", "time"}

// timeLayouts covers the date spellings seen across instrument exports.
var timeLayouts = []string{
	"2006-01-02",
	"20060102",
	"01/02/2006",
	"02/01/2006",
	time.RFC3339,
}

type datedEntry struct {
	entry models.HistoryEntry
	at    time.Time
	dated bool
}

// Build collects every sample row matching target across the given records.
// A row matches when its sample_id equals target case-insensitively, or,
// failing that, its sample_name does. Entries are sorted by each record's
// run timestamp; records without a parseable timestamp carry the zero time
// and sort before everything dated, and when any such record contributes
// the Ordering field reports discovery-order instead of timestamp.
func Build(records []models.Record, target string) models.History {
	var entries []datedEntry
	allDated := true

	for _, rec := range records {
		key, at, dated := recordTimestamp(rec)
		for _, sample := range rec.Samples {
			if !sampleMatches(sample, target) {
				continue
			}
			entries = append(entries, datedEntry{
				entry: models.HistoryEntry{
					SourcePath:       rec.SourcePath,
					FileType:         rec.FileType,
					OrderKey:         key,
					MetadataSnapshot: rec.Metadata,
					SampleValues:     sample,
				},
				at:    at,
				dated: dated,
			})
			if !dated {
				allDated = false
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].at.Before(entries[j].at)
	})

	ordering := models.OrderingDiscovery
	if allDated && len(entries) > 0 {
		ordering = models.OrderingTimestamp
	}

	out := models.History{
		SampleID: target,
		Ordering: ordering,
		Entries:  make([]models.HistoryEntry, 0, len(entries)),
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, e.entry)
	}
	return out
}

func sampleMatches(sample map[string]any, target string) bool {
	if v, ok := sample["sample_id"]; ok && strings.EqualFold(stringify(v), target) {
		return true
	}
	v, ok := sample["sample_name"]
	return ok && strings.EqualFold(stringify(v), target)
}

// stringify renders a cell for comparison. Extraction coerces numeric-looking
// fields to numbers, so an ID like 8042 must still match the query "8042".
func stringify(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// recordTimestamp probes the record metadata for a run timestamp and parses
// it. The raw string is kept as the entry's order key even when it fails to
// parse, so the artifact still shows what was found.
func recordTimestamp(rec models.Record) (string, time.Time, bool) {
	for _, key := range timestampKeys {
		v, ok := rec.Metadata[key]
		if !ok {
			continue
		}
		raw := stringify(v)
		if raw == "" {
			continue
		}
		for _, layout := range timeLayouts {
			if at, err := time.Parse(layout, raw); err == nil {
				return raw, at, true
			}
		}
		return raw, time.Time{}, false
	}
	return "", time.Time{}, false
}
