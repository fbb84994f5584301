package formats

import (
	"strings"

	"labtrace/internal/models"
	"labtrace/internal/rawfile"
)

// nanoDropColumns remaps the NanoDrop UV absorbance export headers to the
// standardized QC vocabulary. Columns outside this table survive under their
// original names.
var nanoDropColumns = map[string]string{
	"Sample.ID": "sample_id",
	"ng.ul":     "concentration_ng_ul",
	"260.280":   "ratio_260_280",
	"260.230":   "ratio_260_230",
}

var nanoDropQC = Format{
	ID: "nanodrop-qc",
	Matches: func(c *rawfile.Content) bool {
		if len(c.Rows) == 0 {
			return false
		}
		have := map[string]bool{}
		for _, col := range c.Rows[0] {
			have[strings.TrimSpace(col)] = true
		}
		for col := range nanoDropColumns {
			if !have[col] {
				return false
			}
		}
		return true
	},
	Extract: extractNanoDropQC,
}

func extractNanoDropQC(c *rawfile.Content) (models.Record, error) {
	samples := tableRecords(c.Rows, nanoDropColumns)
	metadata := map[string]any{
		"description":   "NanoDrop UV absorbance export, per-sample QC before sequencing",
		"ideal_260_280": "~1.8 (pure DNA)",
		"ideal_260_230": "2.0-2.2 (low contamination)",
		"total_samples": len(samples),
	}
	return models.Record{
		FileType:   "nanodrop-qc",
		Metadata:   metadata,
		Samples:    samples,
		SourcePath: c.Path,
	}, nil
}
