package formats

import (
	"strings"

	"labtrace/internal/section"
)

// normalizeLabel flattens a bracketed section header into a stable key
// fragment, e.g. "FocusModel Input Green" -> "focusmodel_input_green".
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "=", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Join(strings.Fields(s), "_")
	return s
}

// foldSections distributes labeled sections into the record. Two-column
// sections are summaries: their values land in metadata namespaced by the
// section label, so a quantity reported per channel (Green, Red, Overall)
// stays as sibling keys and is never merged or averaged. Wider sections are
// data tables: their rows become samples tagged with the section label.
func foldSections(sections []section.Section, metadata map[string]any) []map[string]any {
	var samples []map[string]any
	for _, s := range sections {
		if s.Label == section.PreambleLabel || len(s.Rows) == 0 {
			continue
		}
		label := normalizeLabel(s.Label)
		if sectionWidth(s.Rows) == 2 {
			for _, row := range s.Rows {
				if len(row) < 2 {
					continue
				}
				k := normalizeKey(row[0])
				if k == "" {
					continue
				}
				metadata[label+"."+k] = coerce(row[1])
			}
			continue
		}
		for _, rec := range tableRecords(s.Rows, nil) {
			rec["section"] = label
			samples = append(samples, rec)
		}
	}
	return samples
}

// sectionWidth is the widest meaningful row in a section, so a summary with
// the odd trailing comma still counts as two columns.
func sectionWidth(rows [][]string) int {
	w := 0
	for _, row := range rows {
		n := len(row)
		for n > 0 && strings.TrimSpace(row[n-1]) == "" {
			n--
		}
		if n > w {
			w = n
		}
	}
	return w
}
