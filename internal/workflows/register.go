package workflows

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker) {
	w.RegisterWorkflow(BatchExtractWorkflow)
	w.RegisterWorkflow(FileExtractWorkflow)
	w.RegisterWorkflow(SampleHistoryWorkflow)
	w.RegisterWorkflow(OridCrawlWorkflow)
}
