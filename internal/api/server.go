package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"labtrace/internal/activities"
	"labtrace/internal/config"
	"labtrace/internal/storage"
	"labtrace/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

type Server struct {
	cfg         config.Config
	db          *storage.DB
	recordRepo  *storage.RecordRepo
	historyRepo *storage.HistoryRepo
	temporal    tclient.Client
}

func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}
	return &Server{
		cfg:         cfg,
		db:          db,
		recordRepo:  storage.NewRecordRepo(db),
		historyRepo: storage.NewHistoryRepo(db),
		temporal:    tc,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/extract", s.handleExtract)
	mux.HandleFunc("/extract/", s.handleExtractScoped)
	mux.HandleFunc("/records", s.handleRecords)
	mux.HandleFunc("/records/", s.handleRecordByID)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/history/", s.handleHistoryScoped)
	mux.HandleFunc("/crawl", s.handleCrawl)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		InputDir    string `json:"input_dir"`
		MaxChildren int    `json:"max_children"`
		RetryFailed bool   `json:"retry_failed"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
	}
	if req.InputDir == "" {
		req.InputDir = s.cfg.DataInRoot
	}
	if req.MaxChildren <= 0 {
		req.MaxChildren = s.cfg.ExtractMaxChildren
	}

	runID := uuid.NewString()
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       "extract-" + runID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.BatchExtractWorkflow, workflows.BatchExtractInput{
		RunID:                 runID,
		InputDir:              req.InputDir,
		MaxConcurrentChildren: req.MaxChildren,
		RetryFailed:           req.RetryFailed,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"run_id": runID, "workflow_id": we.GetID()})
}

func (s *Server) handleExtractScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/extract/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "progress" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	runID := parts[0]

	var prog workflows.BatchProgress
	resp, err := s.temporal.QueryWorkflow(r.Context(), "extract-"+runID, "", workflows.QueryGetProgress)
	if err != nil {
		// Fallback to the catalog when the workflow is gone from history.
		entries, dbErr := s.recordRepo.ListEntries(r.Context(), "", "")
		if dbErr != nil {
			writeErr(w, http.StatusInternalServerError, dbErr)
			return
		}
		per := make(map[string]string, len(entries))
		extracted := 0
		skipped := 0
		failed := 0
		for _, e := range entries {
			per[e.SourcePath] = e.Status
			switch e.Status {
			case activities.StatusExtracted:
				extracted++
			case activities.StatusSkipped:
				skipped++
			case activities.StatusFailed:
				failed++
			}
		}
		writeJSON(w, http.StatusOK, workflows.BatchProgress{
			RunID:     runID,
			Total:     len(entries),
			Done:      len(entries),
			Extracted: extracted,
			Skipped:   skipped,
			Failed:    failed,
			PerFile:   per,
		})
		return
	}
	if err := resp.Get(&prog); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, prog)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	orid := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("orid")))
	fileType := strings.TrimSpace(r.URL.Query().Get("file_type"))
	entries, err := s.recordRepo.ListEntries(r.Context(), orid, fileType)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": entries})
}

func (s *Server) handleRecordByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	recordID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/records/"), "/")
	if recordID == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	entry, err := s.recordRepo.GetEntry(r.Context(), recordID)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleHistoryRuns(w, r)
		return
	case http.MethodPost:
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		SampleID   string `json:"sample_id"`
		RecordsDir string `json:"records_dir"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.SampleID = strings.TrimSpace(req.SampleID)
	if req.SampleID == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("sample_id is required"))
		return
	}
	if req.RecordsDir == "" {
		req.RecordsDir = "runs"
	}

	runID := uuid.NewString()
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       "history-" + runID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.SampleHistoryWorkflow, workflows.SampleHistoryInput{
		RunID:      runID,
		SampleID:   req.SampleID,
		RecordsDir: req.RecordsDir,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"run_id": runID, "workflow_id": we.GetID()})
}

// handleHistoryRuns lists past history runs for one sample, newest first.
func (s *Server) handleHistoryRuns(w http.ResponseWriter, r *http.Request) {
	sampleID := strings.TrimSpace(r.URL.Query().Get("sample_id"))
	if sampleID == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("sample_id is required"))
		return
	}
	runs, err := s.historyRepo.ListRunsBySample(r.Context(), sampleID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleHistoryScoped(w http.ResponseWriter, r *http.Request) {
	runID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/history/"), "/")
	if runID == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}

	var prog workflows.HistoryProgress
	resp, err := s.temporal.QueryWorkflow(r.Context(), "history-"+runID, "", workflows.QueryGetHistoryProgress)
	if err != nil {
		run, dbErr := s.historyRepo.GetRun(r.Context(), runID)
		if dbErr != nil {
			writeErr(w, http.StatusNotFound, dbErr)
			return
		}
		writeJSON(w, http.StatusOK, workflows.HistoryProgress{
			RunID:       run.RunID,
			SampleID:    run.SampleID,
			Status:      run.Status,
			CurrentStep: "done",
		})
		return
	}
	if err := resp.Get(&prog); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, prog)
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Root       string `json:"root"`
		TargetORID string `json:"target_orid"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
	}
	if req.Root == "" {
		req.Root = s.cfg.DataInRoot
	}

	runID := uuid.NewString()
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       "crawl-" + runID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.OridCrawlWorkflow, workflows.OridCrawlInput{
		RunID:      runID,
		Root:       req.Root,
		TargetORID: req.TargetORID,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"run_id": runID, "workflow_id": we.GetID()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "LT-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "LT-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "LT-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "LT-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "LT-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "LT-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "LT-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "LT-API-4005"
		msg = "This endpoint does not support the requested method."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case strings.Contains(low, "sample_id is required"):
			msg = "Sample id is required."
		case strings.Contains(low, "invalid json"):
			msg = "Malformed JSON request body."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
