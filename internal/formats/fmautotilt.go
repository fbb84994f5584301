package formats

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"labtrace/internal/models"
	"labtrace/internal/rawfile"
	"labtrace/internal/section"
)

// AutoTilt filenames carry run provenance: A00618_2024-01-19_15-59-34_FM-AutoTilt_Report.csv
var autoTiltNameRe = regexp.MustCompile(`([A-Z0-9]+)_(\d{4}-\d{2}-\d{2})_(\d{2}-\d{2}-\d{2})`)

// Stack markers may declare their own length: [FTM Through-Focus Stack = 1, Rows = 15]
var declaredRowsRe = regexp.MustCompile(`(?i)rows\s*=\s*(\d+)`)

var fmAutoTilt = Format{
	ID: "fm-autotilt",
	Matches: func(c *rawfile.Content) bool {
		return strings.HasPrefix(c.Line(0), "[FTM Through-Focus Stack")
	},
	Extract: extractFMAutoTilt,
}

func extractFMAutoTilt(c *rawfile.Content) (models.Record, error) {
	metadata := map[string]any{}
	if m := autoTiltNameRe.FindStringSubmatch(filepath.Base(c.Path)); m != nil {
		metadata["instrument_id"] = m[1]
		metadata["date"] = m[2]
		metadata["time"] = m[3]
	}

	sections := section.Scan(c.Rows, section.BracketMarker)
	sections = capDeclaredStacks(sections)
	samples := foldSections(sections, metadata)

	return models.Record{
		FileType:   "fm-autotilt",
		Metadata:   metadata,
		Samples:    samples,
		SourcePath: c.Path,
	}, nil
}

// capDeclaredStacks honors row counts declared in stack markers. A declared
// count past the available rows under-scans; rows beyond the declared count
// are dropped from that stack rather than read out of bounds.
func capDeclaredStacks(sections []section.Section) []section.Section {
	out := make([]section.Section, len(sections))
	for i, s := range sections {
		if m := declaredRowsRe.FindStringSubmatch(s.Label); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				s.Rows = section.TakeRows(s.Rows, 0, n+1) // +1 for the column header row
			}
		}
		out[i] = s
	}
	return out
}
