package models

import "time"

// Record is the standardized unit produced from one input file. It is created
// by exactly one extractor invocation and never mutated afterwards.
type Record struct {
	RecordID    string            `json:"record_id,omitempty"`
	FileType    string            `json:"file_type"`
	Metadata    map[string]any    `json:"metadata"`
	Samples     []map[string]any  `json:"samples"`
	Identifiers map[string]string `json:"identifiers,omitempty"`
	SourcePath  string            `json:"source_path"`
}

// ORID returns the project identifier attached to the record, if any.
func (r Record) ORID() string {
	if r.Identifiers == nil {
		return ""
	}
	return r.Identifiers["orid"]
}

// CatalogEntry is the queryable row kept for each processed file. The JSON
// artifact on disk stays authoritative; this is the browse/filter view.
type CatalogEntry struct {
	RecordID    string    `json:"record_id"`
	FileType    string    `json:"file_type"`
	ORID        string    `json:"orid,omitempty"`
	SourcePath  string    `json:"source_path"`
	SampleCount int       `json:"sample_count"`
	Status      string    `json:"status"`
	FailReason  string    `json:"fail_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// History orderings. OrderingTimestamp means every entry carried a parseable
// run timestamp; OrderingDiscovery means at least one entry fell back to the
// record listing order, which is stable but not true chronology.
const (
	OrderingTimestamp = "timestamp"
	OrderingDiscovery = "discovery-order"
)

type HistoryEntry struct {
	SourcePath       string         `json:"source_path"`
	FileType         string         `json:"file_type"`
	OrderKey         string         `json:"order_key"`
	MetadataSnapshot map[string]any `json:"metadata_snapshot"`
	SampleValues     map[string]any `json:"sample_values"`
}

type History struct {
	SampleID string         `json:"sample_id"`
	Ordering string         `json:"ordering"`
	Entries  []HistoryEntry `json:"entries"`
}

type HistoryRun struct {
	RunID     string    `json:"run_id"`
	SampleID  string    `json:"sample_id"`
	Status    string    `json:"status"`
	OutPath   string    `json:"out_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
