package activities

import "labtrace/internal/models"

type ListCandidateFilesInput struct {
	Root string `json:"root"`
}

type ListCandidateFilesOutput struct {
	Paths []string `json:"paths"`
}

type ExtractFileInput struct {
	Path string `json:"path"`
}

// Extraction statuses. Skipped and failed are ordinary outcomes carried in
// the output, not activity errors, so one bad file never aborts a batch.
const (
	StatusExtracted = "extracted"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

type ExtractFileOutput struct {
	Status     string        `json:"status"`
	FormatID   string        `json:"format_id,omitempty"`
	FailReason string        `json:"fail_reason,omitempty"`
	Record     models.Record `json:"record,omitempty"`
}

type WriteRecordInput struct {
	RunID  string        `json:"run_id"`
	Record models.Record `json:"record"`
}

type WriteRecordOutput struct {
	Path string `json:"path"`
}

type UpsertCatalogInput struct {
	Entry models.CatalogEntry `json:"entry"`
}

type LoadRecordsInput struct {
	Dir string `json:"dir"`
}

type LoadRecordsOutput struct {
	Records []models.Record `json:"records"`
}

type BuildHistoryInput struct {
	Records  []models.Record `json:"records"`
	SampleID string          `json:"sample_id"`
}

type BuildHistoryOutput struct {
	History models.History `json:"history"`
}

type WriteHistoryInput struct {
	RunID   string         `json:"run_id"`
	History models.History `json:"history"`
}

type WriteHistoryOutput struct {
	Path string `json:"path"`
}

type UpsertHistoryRunInput struct {
	Run models.HistoryRun `json:"run"`
}

type WriteRunManifestInput struct {
	RunID    string         `json:"run_id"`
	Manifest map[string]any `json:"manifest"`
}

type WriteRunManifestOutput struct {
	Path string `json:"path"`
}

type WriteCrateInput struct {
	RunID   string          `json:"run_id"`
	Records []models.Record `json:"records"`
}

type WriteCrateOutput struct {
	Path string `json:"path"`
}

type ListFailedRecordsInput struct{}

type ListFailedRecordsOutput struct {
	Paths []string `json:"paths"`
}

type CrawlOridsInput struct {
	RunID string `json:"run_id,omitempty"`
	Root  string `json:"root"`
}

type CrawlOridsOutput struct {
	Assignments     map[string]string `json:"assignments"`
	Unresolved      []string          `json:"unresolved"`
	AssignmentsPath string            `json:"assignments_path,omitempty"`
}
