package activities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"labtrace/internal/config"
	"labtrace/internal/crate"
	"labtrace/internal/formats"
	"labtrace/internal/history"
	"labtrace/internal/models"
	"labtrace/internal/orid"
	"labtrace/internal/rawfile"
	"labtrace/internal/storage"
	"labtrace/internal/util"
)

type Activities struct {
	cfg         config.Config
	recordRepo  *storage.RecordRepo
	historyRepo *storage.HistoryRepo
}

func New(cfg config.Config, db *storage.DB) *Activities {
	return &Activities{
		cfg:         cfg,
		recordRepo:  storage.NewRecordRepo(db),
		historyRepo: storage.NewHistoryRepo(db),
	}
}

func (a *Activities) validExtensions() map[string]bool {
	out := map[string]bool{}
	for _, ext := range strings.Split(a.cfg.ValidExtensions, ",") {
		ext = strings.TrimSpace(strings.ToLower(ext))
		if ext != "" {
			out[ext] = true
		}
	}
	return out
}

// ListCandidateFilesActivity walks the input tree and returns every file
// with an accepted extension, sorted for stable batch order.
func (a *Activities) ListCandidateFilesActivity(ctx context.Context, in ListCandidateFilesInput) (ListCandidateFilesOutput, error) {
	_ = ctx
	root := in.Root
	if root == "" {
		root = a.cfg.DataInRoot
	}
	valid := a.validExtensions()
	paths := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if valid[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return ListCandidateFilesOutput{}, fmt.Errorf("walk input root: %w", err)
	}
	sort.Strings(paths)
	return ListCandidateFilesOutput{Paths: paths}, nil
}

// ExtractFileActivity reads one file and dispatches it through the format
// registry. Unrecognized content is a skip and malformed content a failure,
// both reported in the output status so the workflow can tally them.
func (a *Activities) ExtractFileActivity(ctx context.Context, in ExtractFileInput) (ExtractFileOutput, error) {
	_ = ctx
	c, err := rawfile.Read(in.Path)
	if err != nil {
		return ExtractFileOutput{Status: StatusFailed, FailReason: err.Error()}, nil
	}
	// Skipped and failed outputs still carry the content hash and path so
	// the catalog can track every seen file.
	stub := models.Record{RecordID: util.SHA256Hex(c.Raw), SourcePath: in.Path}
	rec, err := formats.Dispatch(c)
	switch {
	case errors.Is(err, util.ErrUnrecognizedFormat):
		return ExtractFileOutput{Status: StatusSkipped, FailReason: err.Error(), Record: stub}, nil
	case err != nil:
		return ExtractFileOutput{Status: StatusFailed, FailReason: err.Error(), Record: stub}, nil
	}
	return ExtractFileOutput{Status: StatusExtracted, FormatID: rec.FileType, Record: rec}, nil
}

func (a *Activities) WriteRecordActivity(ctx context.Context, in WriteRecordInput) (WriteRecordOutput, error) {
	_ = ctx
	path := filepath.Join(a.cfg.DataOutRoot, "runs", in.RunID, crate.ArtifactName(in.Record))
	if err := util.WriteJSONAtomic(path, in.Record); err != nil {
		return WriteRecordOutput{}, fmt.Errorf("write record artifact: %w", err)
	}
	return WriteRecordOutput{Path: path}, nil
}

func (a *Activities) UpsertCatalogActivity(ctx context.Context, in UpsertCatalogInput) error {
	return a.recordRepo.UpsertEntry(ctx, in.Entry)
}

// ListFailedRecordsActivity returns the source paths of every cataloged
// file whose last extraction failed, for retry runs.
func (a *Activities) ListFailedRecordsActivity(ctx context.Context, _ ListFailedRecordsInput) (ListFailedRecordsOutput, error) {
	entries, err := a.recordRepo.ListFailedEntries(ctx)
	if err != nil {
		return ListFailedRecordsOutput{}, err
	}
	out := ListFailedRecordsOutput{Paths: make([]string, 0, len(entries))}
	for _, e := range entries {
		if e.SourcePath != "" {
			out.Paths = append(out.Paths, e.SourcePath)
		}
	}
	return out, nil
}

// LoadRecordsActivity reads back standardized record artifacts from a run
// output directory. A relative dir is resolved against the output root.
// Files that are not record JSON are skipped.
func (a *Activities) LoadRecordsActivity(ctx context.Context, in LoadRecordsInput) (LoadRecordsOutput, error) {
	_ = ctx
	dir := in.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(a.cfg.DataOutRoot, dir)
	}
	records := make([]models.Record, 0)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") || filepath.Base(path) == crate.FileName {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read record artifact %s: %w", path, err)
		}
		var rec models.Record
		if err := json.Unmarshal(raw, &rec); err != nil || rec.FileType == "" {
			return nil
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return LoadRecordsOutput{}, fmt.Errorf("walk record dir: %w", err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].SourcePath < records[j].SourcePath })
	return LoadRecordsOutput{Records: records}, nil
}

func (a *Activities) BuildSampleHistoryActivity(ctx context.Context, in BuildHistoryInput) (BuildHistoryOutput, error) {
	_ = ctx
	return BuildHistoryOutput{History: history.Build(in.Records, in.SampleID)}, nil
}

func (a *Activities) WriteHistoryActivity(ctx context.Context, in WriteHistoryInput) (WriteHistoryOutput, error) {
	_ = ctx
	// Sample IDs arrive from API queries and can contain path separators.
	name := fmt.Sprintf("history_%s.json", strings.ToLower(in.History.SampleID))
	path := util.SafeJoin(filepath.Join(a.cfg.DataOutRoot, "history", in.RunID), name)
	if err := util.WriteJSONAtomic(path, in.History); err != nil {
		return WriteHistoryOutput{}, fmt.Errorf("write history artifact: %w", err)
	}
	return WriteHistoryOutput{Path: path}, nil
}

func (a *Activities) UpsertHistoryRunActivity(ctx context.Context, in UpsertHistoryRunInput) error {
	return a.historyRepo.InsertRun(ctx, in.Run)
}

func (a *Activities) WriteRunManifestActivity(ctx context.Context, in WriteRunManifestInput) (WriteRunManifestOutput, error) {
	_ = ctx
	path := filepath.Join(a.cfg.DataOutRoot, "runs", in.RunID, "manifest.json")
	if err := util.WriteJSONAtomic(path, in.Manifest); err != nil {
		return WriteRunManifestOutput{}, fmt.Errorf("write run manifest: %w", err)
	}
	return WriteRunManifestOutput{Path: path}, nil
}

func (a *Activities) WriteCrateActivity(ctx context.Context, in WriteCrateInput) (WriteCrateOutput, error) {
	_ = ctx
	dir := filepath.Join(a.cfg.DataOutRoot, "runs", in.RunID)
	path, err := crate.Write(dir, in.Records, in.RunID, time.Now())
	if err != nil {
		return WriteCrateOutput{}, err
	}
	return WriteCrateOutput{Path: path}, nil
}

// CrawlOridsActivity resolves the project identifier for every candidate
// file under root, reporting files no filename or ancestor directory could
// identify. When a run ID is given the per-file assignments are also
// written as JSON lines under the run's crawl directory.
func (a *Activities) CrawlOridsActivity(ctx context.Context, in CrawlOridsInput) (CrawlOridsOutput, error) {
	listed, err := a.ListCandidateFilesActivity(ctx, ListCandidateFilesInput{Root: in.Root})
	if err != nil {
		return CrawlOridsOutput{}, err
	}
	out := CrawlOridsOutput{Assignments: map[string]string{}}
	for _, path := range listed.Paths {
		if id, ok := orid.Resolve(path); ok {
			out.Assignments[path] = id
		} else {
			out.Unresolved = append(out.Unresolved, path)
		}
	}
	if in.RunID != "" {
		rows := make([]any, 0, len(listed.Paths))
		for _, path := range listed.Paths {
			rows = append(rows, map[string]any{"path": path, "orid": out.Assignments[path]})
		}
		path := filepath.Join(a.cfg.DataOutRoot, "crawls", in.RunID, "assignments.jsonl")
		if err := util.WriteJSONLinesAtomic(path, rows); err != nil {
			return CrawlOridsOutput{}, fmt.Errorf("write crawl assignments: %w", err)
		}
		out.AssignmentsPath = path
	}
	return out, nil
}
