// Package section partitions a raw row sequence into labeled blocks driven
// by a marker predicate. Every multi-section extractor shares this scanner
// instead of hand-rolling index arithmetic.
package section

import "strings"

// PreambleLabel tags rows appearing before the first marker.
const PreambleLabel = "preamble"

// Section is a contiguous block of rows opened by a marker row. Marker is
// nil for the preamble (and for a no-marker input), so concatenating
// preamble rows plus each section's marker and rows reconstructs the
// original sequence exactly.
type Section struct {
	Label  string
	Marker []string
	Rows   [][]string
}

// MarkerFunc reports whether a row is a section marker and, if so, the label
// the opened section carries.
type MarkerFunc func(row []string) (label string, ok bool)

// Scan slices rows into ordered, non-overlapping sections. A marker row
// closes the open section and opens the next; trailing rows belong to the
// last opened section. Rows before the first marker become a preamble
// section, omitted when empty. An input with no markers at all yields a
// single preamble section spanning the whole input.
func Scan(rows [][]string, marker MarkerFunc) []Section {
	if marker == nil {
		return []Section{{Label: PreambleLabel, Rows: rows}}
	}
	sections := make([]Section, 0, 4)
	open := Section{Label: PreambleLabel}
	for _, row := range rows {
		if label, ok := marker(row); ok {
			if open.Label != PreambleLabel || len(open.Rows) > 0 {
				sections = append(sections, open)
			}
			open = Section{Label: label, Marker: row}
			continue
		}
		open.Rows = append(open.Rows, row)
	}
	if open.Label != PreambleLabel || len(open.Rows) > 0 || len(sections) == 0 {
		sections = append(sections, open)
	}
	return sections
}

// Find returns the first section carrying label, compared case-insensitively.
func Find(sections []Section, label string) (Section, bool) {
	for _, s := range sections {
		if strings.EqualFold(s.Label, label) {
			return s, true
		}
	}
	return Section{}, false
}

// BracketMarker treats rows whose first field is like "[Header]" as markers.
// A comma inside the brackets arrives split across fields, so the label is
// rejoined until the closing bracket.
func BracketMarker(row []string) (string, bool) {
	if len(row) == 0 {
		return "", false
	}
	f := strings.TrimSpace(row[0])
	if !strings.HasPrefix(f, "[") {
		return "", false
	}
	full := f
	for _, rest := range row[1:] {
		if strings.HasSuffix(full, "]") {
			break
		}
		if rest = strings.TrimSpace(rest); rest != "" {
			full += ", " + rest
		}
	}
	return strings.Trim(full, "[]"), true
}

// NameMarker builds a marker that matches rows whose only meaningful field
// is one of the given bare section names.
func NameMarker(names ...string) MarkerFunc {
	return func(row []string) (string, bool) {
		if len(row) == 0 {
			return "", false
		}
		f := strings.TrimSpace(row[0])
		if f == "" {
			return "", false
		}
		for _, rest := range row[1:] {
			if strings.TrimSpace(rest) != "" {
				return "", false
			}
		}
		for _, n := range names {
			if strings.EqualFold(f, n) {
				return n, true
			}
		}
		return "", false
	}
}

// TakeRows returns count rows starting at start, capped at the available
// rows. A declared count past the end under-scans instead of erroring.
func TakeRows(rows [][]string, start, count int) [][]string {
	if start < 0 {
		start = 0
	}
	if start >= len(rows) || count <= 0 {
		return nil
	}
	end := start + count
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}
