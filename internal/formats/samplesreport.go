package formats

import (
	"strings"

	"labtrace/internal/models"
	"labtrace/internal/rawfile"
)

// samplesReport is the hand-curated anomaly log: a semicolon-separated
// table keyed by Sample_ID with free-text Notes.
var samplesReport = Format{
	ID: "samples-report",
	Matches: func(c *rawfile.Content) bool {
		cols := splitSemicolon(c.Line(0))
		have := map[string]bool{}
		for _, col := range cols {
			have[col] = true
		}
		return have["Sample_ID"] && have["Notes"]
	},
	Extract: extractSamplesReport,
}

func extractSamplesReport(c *rawfile.Content) (models.Record, error) {
	rows := make([][]string, 0, len(c.Lines))
	for _, line := range c.Lines {
		rows = append(rows, splitSemicolon(line))
	}
	samples := tableRecords(rows, map[string]string{
		"Sample_ID": "sample_id",
		"Notes":     "notes",
	})
	metadata := map[string]any{
		"description":   "technical observations and anomalies recorded for flagged samples",
		"total_samples": len(samples),
	}
	return models.Record{
		FileType:   "samples-report",
		Metadata:   metadata,
		Samples:    samples,
		SourcePath: c.Path,
	}, nil
}

func splitSemicolon(line string) []string {
	parts := strings.Split(line, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
