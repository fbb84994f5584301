package activities

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"labtrace/internal/config"
	"labtrace/internal/models"
)

func testActivities(t *testing.T) *Activities {
	t.Helper()
	cfg := config.Config{
		DataInRoot:      t.TempDir(),
		DataOutRoot:     t.TempDir(),
		ValidExtensions: ".csv,.txt,.json,.md",
	}
	return &Activities{cfg: cfg}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestListCandidateFilesFiltersAndSorts(t *testing.T) {
	a := testActivities(t)
	root := a.cfg.DataInRoot
	writeFile(t, root, "ORID0042/b.csv", "x")
	writeFile(t, root, "ORID0042/a.csv", "x")
	writeFile(t, root, "ORID0042/skip.pdf", "x")
	writeFile(t, root, "notes.txt", "x")

	out, err := a.ListCandidateFilesActivity(context.Background(), ListCandidateFilesInput{Root: root})
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(root, "ORID0042/a.csv"),
		filepath.Join(root, "ORID0042/b.csv"),
		filepath.Join(root, "notes.txt"),
	}, out.Paths)
}

func TestExtractFileActivityOutcomes(t *testing.T) {
	a := testActivities(t)
	root := a.cfg.DataInRoot

	good := writeFile(t, root, "ORID0042/nanodrop.csv",
		"Sample.ID,ng.ul,260.280,260.230\nS001,52.4,1.82,2.11\n")
	out, err := a.ExtractFileActivity(context.Background(), ExtractFileInput{Path: good})
	require.NoError(t, err)
	require.Equal(t, StatusExtracted, out.Status)
	require.Equal(t, "nanodrop-qc", out.FormatID)
	require.Equal(t, "ORID0042", out.Record.ORID())
	require.NotEmpty(t, out.Record.RecordID)

	unknown := writeFile(t, root, "plain.csv", "a,b\n1,2\n")
	out, err = a.ExtractFileActivity(context.Background(), ExtractFileInput{Path: unknown})
	require.NoError(t, err)
	require.Equal(t, StatusSkipped, out.Status)
	require.NotEmpty(t, out.Record.RecordID)

	malformed := writeFile(t, root, "bead.csv", "[Header]\nModule,BeadStudio\n")
	out, err = a.ExtractFileActivity(context.Background(), ExtractFileInput{Path: malformed})
	require.NoError(t, err)
	require.Equal(t, StatusFailed, out.Status)
	require.Contains(t, out.FailReason, "beadstudio")

	out, err = a.ExtractFileActivity(context.Background(), ExtractFileInput{Path: filepath.Join(root, "missing.csv")})
	require.NoError(t, err)
	require.Equal(t, StatusFailed, out.Status)
}

func TestWriteAndLoadRecordsRoundtrip(t *testing.T) {
	a := testActivities(t)
	rec := models.Record{
		RecordID:   "abc123def456",
		FileType:   "nanodrop-qc",
		Metadata:   map[string]any{"total_samples": float64(1)},
		Samples:    []map[string]any{{"sample_id": "S001"}},
		SourcePath: "/in/nanodrop.csv",
	}

	written, err := a.WriteRecordActivity(context.Background(), WriteRecordInput{RunID: "run1", Record: rec})
	require.NoError(t, err)
	require.FileExists(t, written.Path)

	// A crate descriptor in the same dir must not be loaded as a record.
	_, err = a.WriteCrateActivity(context.Background(), WriteCrateInput{RunID: "run1", Records: []models.Record{rec}})
	require.NoError(t, err)

	loaded, err := a.LoadRecordsActivity(context.Background(), LoadRecordsInput{Dir: filepath.Join("runs", "run1")})
	require.NoError(t, err)
	require.Len(t, loaded.Records, 1)
	require.Equal(t, rec, loaded.Records[0])
}

func TestWriteHistoryActivityPath(t *testing.T) {
	a := testActivities(t)
	out, err := a.WriteHistoryActivity(context.Background(), WriteHistoryInput{
		RunID:   "hrun1",
		History: models.History{SampleID: "S001", Ordering: models.OrderingTimestamp},
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(a.cfg.DataOutRoot, "history", "hrun1", "history_s001.json"), out.Path)
	require.FileExists(t, out.Path)
}

func TestCrawlOridsActivity(t *testing.T) {
	a := testActivities(t)
	root := a.cfg.DataInRoot
	inProject := writeFile(t, root, "ORID0042/sub/a.csv", "x")
	byName := writeFile(t, root, "plain/ORID0036_data.csv", "x")
	loose := writeFile(t, root, "plain/loose.csv", "x")

	out, err := a.CrawlOridsActivity(context.Background(), CrawlOridsInput{Root: root})
	require.NoError(t, err)
	require.Equal(t, "ORID0042", out.Assignments[inProject])
	require.Equal(t, "ORID0036", out.Assignments[byName])
	require.Equal(t, []string{loose}, out.Unresolved)
	require.Empty(t, out.AssignmentsPath)
}

func TestCrawlOridsActivityWritesAssignments(t *testing.T) {
	a := testActivities(t)
	root := a.cfg.DataInRoot
	writeFile(t, root, "ORID0042/a.csv", "x")
	writeFile(t, root, "plain/loose.csv", "x")

	out, err := a.CrawlOridsActivity(context.Background(), CrawlOridsInput{RunID: "crawl1", Root: root})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(a.cfg.DataOutRoot, "crawls", "crawl1", "assignments.jsonl"), out.AssignmentsPath)

	raw, err := os.ReadFile(out.AssignmentsPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"orid":"ORID0042"`)
	require.Contains(t, lines[1], `"orid":""`)
}

func TestWriteHistoryActivityStaysInRunDir(t *testing.T) {
	a := testActivities(t)
	out, err := a.WriteHistoryActivity(context.Background(), WriteHistoryInput{
		RunID:   "hrun2",
		History: models.History{SampleID: "../../S001", Ordering: models.OrderingDiscovery},
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(a.cfg.DataOutRoot, "history", "hrun2"), filepath.Dir(out.Path))
	require.FileExists(t, out.Path)
}
