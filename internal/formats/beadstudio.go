package formats

import (
	"fmt"
	"strings"

	"labtrace/internal/models"
	"labtrace/internal/rawfile"
	"labtrace/internal/section"
	"labtrace/internal/util"
)

// beadStudioColumns maps [Data] headers to the standardized sample
// vocabulary shared with the history aggregator.
var beadStudioColumns = map[string]string{
	"Sample_ID":    "sample_id",
	"Sample_Name":  "sample_name",
	"Sample_Plate": "sample_plate",
	"Sample_Well":  "sample_well",
}

var beadStudio = Format{
	ID: "beadstudio",
	Matches: func(c *rawfile.Content) bool {
		return strings.Contains(c.HeadLower(20), "beadstudio")
	},
	Extract: extractBeadStudio,
}

func extractBeadStudio(c *rawfile.Content) (models.Record, error) {
	sections := section.Scan(c.Rows, section.BracketMarker)

	header, ok := section.Find(sections, "Header")
	if !ok {
		return models.Record{}, fmt.Errorf("beadstudio [Header]: %w", util.ErrMalformedInput)
	}
	metadata := kvPairs(header.Rows)

	if manifests, found := section.Find(sections, "Manifests"); found {
		for _, row := range manifests.Rows {
			if len(row) >= 2 && strings.TrimSpace(row[1]) != "" {
				metadata["manifest_id"] = strings.TrimSpace(row[1])
				break
			}
		}
	}

	data, ok := section.Find(sections, "Data")
	if !ok {
		return models.Record{}, fmt.Errorf("beadstudio [Data]: %w", util.ErrMalformedInput)
	}
	samples := tableRecords(data.Rows, beadStudioColumns)

	return models.Record{
		FileType:   "beadstudio",
		Metadata:   metadata,
		Samples:    samples,
		SourcePath: c.Path,
	}, nil
}
