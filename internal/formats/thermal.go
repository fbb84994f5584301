package formats

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"labtrace/internal/models"
	"labtrace/internal/rawfile"
	"labtrace/internal/util"
)

// Thermal report filenames look like A00618_SideA_2024-01-19_....csv.
var thermalNameRe = regexp.MustCompile(`^([^_]+)_([^_]+)_(\d{4}-\d{2}-\d{2})`)

var thermalReport = Format{
	ID: "thermal-report",
	Matches: func(c *rawfile.Content) bool {
		return strings.HasPrefix(c.Line(0), "Side") &&
			strings.Contains(c.Line(2), "Time,Current Cycle")
	},
	Extract: extractThermalReport,
}

// extractThermalReport summarizes a thermal cycler trace. The rows are a
// time series, not per-sample measurements, so the record legitimately
// carries no samples: row/column summaries go into metadata.
func extractThermalReport(c *rawfile.Content) (models.Record, error) {
	if len(c.Rows) < 3 {
		return models.Record{}, fmt.Errorf("thermal column header row: %w", util.ErrMalformedInput)
	}

	metadata := map[string]any{}
	name := filepath.Base(c.Path)
	if m := thermalNameRe.FindStringSubmatch(strings.TrimSuffix(name, filepath.Ext(name))); m != nil {
		metadata["instrument_id"] = m[1]
		metadata["run_side"] = m[2]
		metadata["run_date"] = m[3]
		metadata["date"] = m[3]
	}

	columns := map[string]any{}
	for i, col := range c.Rows[2] {
		if strings.TrimSpace(col) == "" {
			continue
		}
		columns[fmt.Sprintf("column_%d", i+1)] = strings.TrimSpace(col)
	}
	metadata["columns"] = columns
	metadata["number_of_data_points"] = len(c.Rows) - 3

	return models.Record{
		FileType:   "thermal-report",
		Metadata:   metadata,
		Samples:    nil,
		SourcePath: c.Path,
	}, nil
}
