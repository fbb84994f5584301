package formats

import (
	"fmt"
	"path/filepath"
	"strings"

	"labtrace/internal/models"
	"labtrace/internal/orid"
	"labtrace/internal/rawfile"
	"labtrace/internal/section"
	"labtrace/internal/util"
)

var illuminaSampleSheet = Format{
	ID: "illumina-samplesheet",
	Matches: func(c *rawfile.Content) bool {
		head := c.HeadLower(20)
		i := strings.Index(head, "[header]")
		if i < 0 {
			return false
		}
		block := head[i+len("[header]"):]
		if j := strings.Index(block, "["); j >= 0 {
			block = block[:j]
		}
		return strings.Contains(block, "workflow,generatefastq") &&
			strings.Contains(block, "chemistry,amplicon")
	},
	Extract: extractIlluminaSampleSheet,
}

func extractIlluminaSampleSheet(c *rawfile.Content) (models.Record, error) {
	sections := section.Scan(c.Rows, section.BracketMarker)

	header, ok := section.Find(sections, "Header")
	if !ok {
		return models.Record{}, fmt.Errorf("illumina [Header]: %w", util.ErrMalformedInput)
	}
	metadata := kvPairs(header.Rows)

	data, ok := section.Find(sections, "Data")
	if !ok {
		return models.Record{}, fmt.Errorf("illumina [Data]: %w", util.ErrMalformedInput)
	}
	samples := tableRecords(data.Rows, nil)

	rec := models.Record{
		FileType:   "illumina-samplesheet",
		Metadata:   metadata,
		Samples:    samples,
		SourcePath: c.Path,
	}

	// Proposal id comes from the filename when present, else from the
	// Experiment Name field inside the sheet.
	id, found := orid.FromString(filepath.Base(c.Path))
	if !found {
		if exp, ok := metadata["experiment_name"].(string); ok {
			id, found = orid.FromString(exp)
		}
	}
	if found {
		metadata["proposal_id"] = id
		rec.Identifiers = map[string]string{"orid": id}
	}
	return rec, nil
}
