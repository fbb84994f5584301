package workflows

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"labtrace/internal/activities"
	"labtrace/internal/models"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	QueryGetProgress        = "GetProgress"
	QueryGetFileStatus      = "GetFileStatus"
	QueryGetHistoryProgress = "GetHistoryProgress"
)

// BatchExtractWorkflow fans one extraction run out over every candidate
// file under the input directory, a bounded number of child workflows at a
// time, then seals the run with a manifest and an RO-Crate descriptor.
func BatchExtractWorkflow(ctx workflow.Context, input BatchExtractInput) (string, error) {
	runID := input.RunID
	if strings.TrimSpace(runID) == "" {
		runID = workflow.GetInfo(ctx).WorkflowExecution.RunID
	}
	progress := BatchProgress{
		RunID:         runID,
		PerFile:       map[string]string{},
		ChildWorkflow: map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (BatchProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var paths []string
	if input.RetryFailed {
		var failedOut activities.ListFailedRecordsOutput
		if err := workflow.ExecuteActivity(ctx, "ListFailedRecordsActivity", activities.ListFailedRecordsInput{}).Get(ctx, &failedOut); err != nil {
			return "", err
		}
		paths = failedOut.Paths
	} else {
		var listOut activities.ListCandidateFilesOutput
		if err := workflow.ExecuteActivity(ctx, "ListCandidateFilesActivity", activities.ListCandidateFilesInput{Root: input.InputDir}).Get(ctx, &listOut); err != nil {
			return "", err
		}
		paths = listOut.Paths
	}
	progress.Total = len(paths)
	maxChildren := input.MaxConcurrentChildren
	if maxChildren <= 0 {
		maxChildren = 3
	}

	for i := 0; i < len(paths); i += maxChildren {
		end := i + maxChildren
		if end > len(paths) {
			end = len(paths)
		}
		futures := make([]workflow.ChildWorkflowFuture, 0, end-i)
		childPaths := make([]string, 0, end-i)
		for _, path := range paths[i:end] {
			progress.PerFile[path] = "processing"
			workflowID := "file-" + sanitizeID(runID) + "-" + sanitizeID(filepath.Base(path))
			childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{WorkflowID: workflowID})
			f := workflow.ExecuteChildWorkflow(childCtx, FileExtractWorkflow, FileExtractInput{
				RunID: runID,
				Path:  path,
			})
			futures = append(futures, f)
			childPaths = append(childPaths, path)
			progress.ChildWorkflow[path] = workflowID
		}

		for idx, f := range futures {
			var childStatus string
			err := f.Get(ctx, &childStatus)
			path := childPaths[idx]
			if err != nil {
				progress.Failed++
				progress.Done++
				progress.PerFile[path] = activities.StatusFailed
				continue
			}
			switch childStatus {
			case activities.StatusExtracted:
				progress.Extracted++
			case activities.StatusSkipped:
				progress.Skipped++
			default:
				progress.Failed++
			}
			progress.Done++
			progress.PerFile[path] = childStatus
		}
	}

	var loaded activities.LoadRecordsOutput
	if err := workflow.ExecuteActivity(ctx, "LoadRecordsActivity", activities.LoadRecordsInput{
		Dir: filepath.Join("runs", runID),
	}).Get(ctx, &loaded); err == nil && len(loaded.Records) > 0 {
		_ = workflow.ExecuteActivity(ctx, "WriteCrateActivity", activities.WriteCrateInput{
			RunID:   runID,
			Records: loaded.Records,
		}).Get(ctx, nil)
	}

	var manifestOut activities.WriteRunManifestOutput
	if err := workflow.ExecuteActivity(ctx, "WriteRunManifestActivity", activities.WriteRunManifestInput{
		RunID: runID,
		Manifest: map[string]any{
			"run_id":          runID,
			"input_dir":       input.InputDir,
			"total":           progress.Total,
			"extracted":       progress.Extracted,
			"skipped":         progress.Skipped,
			"failed":          progress.Failed,
			"per_file_status": progress.PerFile,
			"retry_failed":    input.RetryFailed,
			"generated_at":    workflow.Now(ctx),
		},
	}).Get(ctx, &manifestOut); err != nil {
		return "", err
	}
	return "completed", nil
}

// FileExtractWorkflow processes one file end to end. Unrecognized and
// malformed inputs are recorded outcomes, not workflow failures, so a batch
// parent sees every child complete.
func FileExtractWorkflow(ctx workflow.Context, input FileExtractInput) (string, error) {
	status := FileStatus{
		Path:        input.Path,
		CurrentStep: "init",
		Status:      "processing",
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetFileStatus, func() (FileStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	status.CurrentStep = "extract"
	status.Steps[status.CurrentStep] = "processing"
	var extractOut activities.ExtractFileOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractFileActivity", activities.ExtractFileInput{Path: input.Path}).Get(ctx, &extractOut); err != nil {
		return "", err
	}
	status.RecordID = extractOut.Record.RecordID
	rec := extractOut.Record

	if extractOut.Status != activities.StatusExtracted {
		status.Status = extractOut.Status
		status.FailReason = extractOut.FailReason
		status.Steps[status.CurrentStep] = extractOut.Status
		if rec.RecordID != "" {
			_ = workflow.ExecuteActivity(ctx, "UpsertCatalogActivity", activities.UpsertCatalogInput{Entry: models.CatalogEntry{
				RecordID:   rec.RecordID,
				SourcePath: input.Path,
				Status:     extractOut.Status,
				FailReason: extractOut.FailReason,
			}}).Get(ctx, nil)
		}
		return status.Status, nil
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "write_record"
	status.Steps[status.CurrentStep] = "processing"
	var writeOut activities.WriteRecordOutput
	if err := workflow.ExecuteActivity(ctx, "WriteRecordActivity", activities.WriteRecordInput{RunID: input.RunID, Record: rec}).Get(ctx, &writeOut); err != nil {
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "catalog"
	status.Steps[status.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "UpsertCatalogActivity", activities.UpsertCatalogInput{Entry: models.CatalogEntry{
		RecordID:    rec.RecordID,
		FileType:    rec.FileType,
		ORID:        rec.ORID(),
		SourcePath:  input.Path,
		SampleCount: len(rec.Samples),
		Status:      activities.StatusExtracted,
	}}).Get(ctx, nil); err != nil {
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"
	status.CurrentStep = "done"
	status.Status = activities.StatusExtracted
	return status.Status, nil
}

// SampleHistoryWorkflow builds the chronological history of one sample from
// the record artifacts of a previous extraction run.
func SampleHistoryWorkflow(ctx workflow.Context, input SampleHistoryInput) (string, error) {
	progress := HistoryProgress{
		RunID:       input.RunID,
		SampleID:    input.SampleID,
		CurrentStep: "init",
		Status:      "processing",
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetHistoryProgress, func() (HistoryProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	_ = workflow.ExecuteActivity(ctx, "UpsertHistoryRunActivity", activities.UpsertHistoryRunInput{Run: models.HistoryRun{
		RunID:    input.RunID,
		SampleID: input.SampleID,
		Status:   "running",
	}}).Get(ctx, nil)

	progress.CurrentStep = "load_records"
	var loaded activities.LoadRecordsOutput
	if err := workflow.ExecuteActivity(ctx, "LoadRecordsActivity", activities.LoadRecordsInput{Dir: input.RecordsDir}).Get(ctx, &loaded); err != nil {
		return "", err
	}

	progress.CurrentStep = "build_history"
	var built activities.BuildHistoryOutput
	if err := workflow.ExecuteActivity(ctx, "BuildSampleHistoryActivity", activities.BuildHistoryInput{
		Records:  loaded.Records,
		SampleID: input.SampleID,
	}).Get(ctx, &built); err != nil {
		return "", err
	}
	progress.Entries = len(built.History.Entries)
	progress.Ordering = built.History.Ordering

	progress.CurrentStep = "write_history"
	var writeOut activities.WriteHistoryOutput
	if err := workflow.ExecuteActivity(ctx, "WriteHistoryActivity", activities.WriteHistoryInput{
		RunID:   input.RunID,
		History: built.History,
	}).Get(ctx, &writeOut); err != nil {
		return "", err
	}

	_ = workflow.ExecuteActivity(ctx, "UpsertHistoryRunActivity", activities.UpsertHistoryRunInput{Run: models.HistoryRun{
		RunID:    input.RunID,
		SampleID: input.SampleID,
		Status:   "completed",
		OutPath:  writeOut.Path,
	}}).Get(ctx, nil)

	progress.CurrentStep = "done"
	progress.Status = "completed"
	return writeOut.Path, nil
}

// OridCrawlWorkflow answers "which project does each file under this tree
// belong to" without extracting anything.
func OridCrawlWorkflow(ctx workflow.Context, input OridCrawlInput) (string, error) {
	runID := input.RunID
	if strings.TrimSpace(runID) == "" {
		runID = workflow.GetInfo(ctx).WorkflowExecution.RunID
	}
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var crawled activities.CrawlOridsOutput
	if err := workflow.ExecuteActivity(ctx, "CrawlOridsActivity", activities.CrawlOridsInput{RunID: runID, Root: input.Root}).Get(ctx, &crawled); err != nil {
		return "", err
	}

	manifest := map[string]any{
		"run_id":       runID,
		"root":         input.Root,
		"assignments":  crawled.Assignments,
		"unresolved":   crawled.Unresolved,
		"total":        len(crawled.Assignments) + len(crawled.Unresolved),
		"generated_at": workflow.Now(ctx),
	}
	if crawled.AssignmentsPath != "" {
		manifest["assignments_file"] = crawled.AssignmentsPath
	}

	if target := strings.ToUpper(strings.TrimSpace(input.TargetORID)); target != "" {
		paths := make([]string, 0)
		for path, id := range crawled.Assignments {
			if id == target {
				paths = append(paths, path)
			}
		}
		sort.Strings(paths)
		extracted := 0
		for _, path := range paths {
			var childStatus string
			workflowID := "file-" + sanitizeID(runID) + "-" + sanitizeID(filepath.Base(path))
			childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{WorkflowID: workflowID})
			if err := workflow.ExecuteChildWorkflow(childCtx, FileExtractWorkflow, FileExtractInput{
				RunID: runID,
				Path:  path,
			}).Get(ctx, &childStatus); err == nil && childStatus == activities.StatusExtracted {
				extracted++
			}
		}
		manifest["target_orid"] = target
		manifest["target_files"] = len(paths)
		manifest["target_extracted"] = extracted
	}

	var out activities.WriteRunManifestOutput
	if err := workflow.ExecuteActivity(ctx, "WriteRunManifestActivity", activities.WriteRunManifestInput{
		RunID:    runID,
		Manifest: manifest,
	}).Get(ctx, &out); err != nil {
		return "", err
	}
	return out.Path, nil
}

func sanitizeID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
