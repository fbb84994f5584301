package formats

import (
	"fmt"
	"strings"

	"labtrace/internal/models"
	"labtrace/internal/rawfile"
	"labtrace/internal/section"
	"labtrace/internal/util"
)

var fmGeneration = Format{
	ID: "fm-generation",
	Matches: func(c *rawfile.Content) bool {
		return strings.Contains(c.Line(0), "Instrument Name")
	},
	Extract: extractFMGeneration,
}

// extractFMGeneration handles the focus-model generation report: top-level
// key/value metadata before the first bracketed section, then a data-driven
// number of [FocusModel ...] sections per channel.
func extractFMGeneration(c *rawfile.Content) (models.Record, error) {
	sections := section.Scan(c.Rows, section.BracketMarker)

	metadata := map[string]any{}
	if pre, ok := section.Find(sections, section.PreambleLabel); ok {
		for k, v := range kvPairs(pre.Rows) {
			metadata[k] = v
		}
	}
	if len(metadata) == 0 {
		return models.Record{}, fmt.Errorf("fm-generation instrument header: %w", util.ErrMalformedInput)
	}

	samples := foldSections(sections, metadata)

	return models.Record{
		FileType:   "fm-generation",
		Metadata:   metadata,
		Samples:    samples,
		SourcePath: c.Path,
	}, nil
}
