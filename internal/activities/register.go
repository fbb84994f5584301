package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ListCandidateFilesActivity)
	w.RegisterActivity(a.ExtractFileActivity)
	w.RegisterActivity(a.WriteRecordActivity)
	w.RegisterActivity(a.UpsertCatalogActivity)
	w.RegisterActivity(a.ListFailedRecordsActivity)
	w.RegisterActivity(a.LoadRecordsActivity)
	w.RegisterActivity(a.BuildSampleHistoryActivity)
	w.RegisterActivity(a.WriteHistoryActivity)
	w.RegisterActivity(a.UpsertHistoryRunActivity)
	w.RegisterActivity(a.WriteRunManifestActivity)
	w.RegisterActivity(a.WriteCrateActivity)
	w.RegisterActivity(a.CrawlOridsActivity)
}
