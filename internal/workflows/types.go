package workflows

type BatchExtractInput struct {
	RunID                 string `json:"run_id"`
	InputDir              string `json:"input_dir"`
	MaxConcurrentChildren int    `json:"max_concurrent_children"`
	// RetryFailed reprocesses the cataloged failures instead of walking
	// the input directory.
	RetryFailed bool `json:"retry_failed,omitempty"`
}

type FileExtractInput struct {
	RunID string `json:"run_id"`
	Path  string `json:"path"`
}

type SampleHistoryInput struct {
	RunID      string `json:"run_id"`
	SampleID   string `json:"sample_id"`
	RecordsDir string `json:"records_dir"`
}

type OridCrawlInput struct {
	RunID string `json:"run_id"`
	Root  string `json:"root"`
	// TargetORID optionally narrows the crawl to one project and extracts
	// its files.
	TargetORID string `json:"target_orid,omitempty"`
}

type FileStatus struct {
	Path        string            `json:"path"`
	RecordID    string            `json:"record_id,omitempty"`
	CurrentStep string            `json:"current_step"`
	Status      string            `json:"status"`
	FailReason  string            `json:"fail_reason,omitempty"`
	Steps       map[string]string `json:"steps"`
}

type BatchProgress struct {
	RunID         string            `json:"run_id"`
	Total         int               `json:"total"`
	Done          int               `json:"done"`
	Extracted     int               `json:"extracted"`
	Skipped       int               `json:"skipped"`
	Failed        int               `json:"failed"`
	PerFile       map[string]string `json:"per_file_status"`
	ChildWorkflow map[string]string `json:"child_workflow_ids,omitempty"`
}

type HistoryProgress struct {
	RunID       string `json:"run_id"`
	SampleID    string `json:"sample_id"`
	CurrentStep string `json:"current_step"`
	Status      string `json:"status"`
	Entries     int    `json:"entries"`
	Ordering    string `json:"ordering,omitempty"`
}
