// Package crate renders an RO-Crate 1.1 descriptor for a batch of extracted
// records, so a run's output directory is self-describing to downstream
// archival tooling.
package crate

import (
	"fmt"
	"path/filepath"
	"time"

	"labtrace/internal/models"
	"labtrace/internal/util"
)

const (
	contextURL = "https://w3id.org/ro/crate/1.1/context"
	specURL    = "https://w3id.org/ro/crate/1.1"
	// FileName is the fixed descriptor name the RO-Crate spec mandates.
	FileName = "ro-crate-metadata.json"
)

// Build assembles the crate document for one run. Each record contributes a
// File entity named after the JSON artifact written for it; the root dataset
// links them all via hasPart.
func Build(records []models.Record, runID string, now time.Time) map[string]any {
	parts := make([]map[string]any, 0, len(records))
	graph := []map[string]any{
		{
			"@id":        FileName,
			"@type":      "CreativeWork",
			"conformsTo": map[string]any{"@id": specURL},
			"about":      map[string]any{"@id": "./"},
		},
	}

	files := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		id := ArtifactName(rec)
		parts = append(parts, map[string]any{"@id": id})
		entity := map[string]any{
			"@id":            id,
			"@type":          "File",
			"name":           filepath.Base(rec.SourcePath),
			"encodingFormat": "application/json",
			"additionalType": rec.FileType,
			"sha256":         rec.RecordID,
			"sampleCount":    len(rec.Samples),
		}
		if orid := rec.ORID(); orid != "" {
			entity["identifier"] = orid
		}
		files = append(files, entity)
	}

	graph = append(graph, map[string]any{
		"@id":           "./",
		"@type":         "Dataset",
		"name":          fmt.Sprintf("labtrace extraction run %s", runID),
		"datePublished": now.UTC().Format(time.RFC3339),
		"hasPart":       parts,
	})
	graph = append(graph, files...)

	return map[string]any{
		"@context": contextURL,
		"@graph":   graph,
	}
}

// ArtifactName is the on-disk JSON name for a record, shared by the writer
// activity and the crate so the descriptor always points at real files.
func ArtifactName(rec models.Record) string {
	base := filepath.Base(rec.SourcePath)
	base = base[:len(base)-len(filepath.Ext(base))]
	return fmt.Sprintf("%s_%s.json", base, shortID(rec))
}

func shortID(rec models.Record) string {
	if len(rec.RecordID) >= 12 {
		return rec.RecordID[:12]
	}
	return rec.RecordID
}

// Write renders the descriptor into dir atomically.
func Write(dir string, records []models.Record, runID string, now time.Time) (string, error) {
	path := filepath.Join(dir, FileName)
	if err := util.WriteJSONAtomic(path, Build(records, runID, now)); err != nil {
		return "", fmt.Errorf("write crate descriptor: %w", err)
	}
	return path, nil
}
