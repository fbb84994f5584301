// Package formats holds one validator/extractor pair per known instrument
// export format, plus the ordered registry that dispatches raw content to
// the first matching format.
package formats

import (
	"strconv"
	"strings"

	"labtrace/internal/models"
	"labtrace/internal/rawfile"
)

// Format couples a format id with its validator and extractor. Matches must
// be a pure predicate over the content's head; Extract may assume Matches
// returned true but still reports malformed input instead of panicking.
type Format struct {
	ID      string
	Matches func(c *rawfile.Content) bool
	Extract func(c *rawfile.Content) (models.Record, error)
}

// normalizeKey lowercases a header token and replaces spaces, matching the
// metadata key vocabulary used across all formats.
func normalizeKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

// kvPairs folds two-column rows into a metadata map. Later duplicate keys
// override earlier ones within the same file.
func kvPairs(rows [][]string) map[string]any {
	out := make(map[string]any, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		k := normalizeKey(row[0])
		if k == "" {
			continue
		}
		out[k] = coerce(row[1])
	}
	return out
}

// tableRecords interprets rows as a header row followed by data rows. Column
// names found in remap are translated to the standardized vocabulary;
// unmapped columns are preserved under their original name, never dropped.
func tableRecords(rows [][]string, remap map[string]string) []map[string]any {
	if len(rows) == 0 {
		return nil
	}
	header := make([]string, len(rows[0]))
	for i, col := range rows[0] {
		col = strings.TrimSpace(col)
		if mapped, ok := remap[col]; ok {
			col = mapped
		}
		header[i] = col
	}
	out := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		rec := make(map[string]any, len(header))
		for i, col := range header {
			if col == "" || i >= len(row) {
				continue
			}
			rec[col] = coerce(row[i])
		}
		if len(rec) > 0 {
			out = append(out, rec)
		}
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// coerce turns numeric-looking fields into numbers so JSON output carries
// real numerics, and leaves everything else as the trimmed string.
func coerce(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
