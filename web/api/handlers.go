package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fedstats/fedsync/internal/domain"
	"github.com/fedstats/fedsync/internal/orch"
	"github.com/fedstats/fedsync/internal/syncstore"
)

// StatusResponse is the API response for the current sync state
type StatusResponse struct {
	IsRunning        bool                `json:"is_running"`
	Status           string              `json:"status"`
	Progress         float64             `json:"progress"`
	ProcessedRecords int                 `json:"processed_records"`
	TotalRecords     int                 `json:"total_records"`
	CurrentOperation string              `json:"current_operation,omitempty"`
	LastError        string              `json:"last_error,omitempty"`
	ValidationRate   float64             `json:"validation_rate"`
	ValidRecords     int                 `json:"valid_records"`
	InvalidRecords   int                 `json:"invalid_records"`
	Checkpoint       *CheckpointResponse `json:"checkpoint,omitempty"`
}

// CheckpointResponse is the API view of the durable resume point
type CheckpointResponse struct {
	Phase           string  `json:"phase"`
	Batch           int     `json:"batch"`
	Progress        float64 `json:"progress"`
	IsPaused        bool    `json:"is_paused"`
	CancelRequested bool    `json:"cancel_requested"`
	UpdatedAt       string  `json:"updated_at"`
}

// ValidationResponse is the API response for an integrity audit
type ValidationResponse struct {
	Status       string   `json:"status"`
	TotalChecks  int      `json:"total_checks"`
	PassedChecks int      `json:"passed_checks"`
	FailedChecks int      `json:"failed_checks"`
	Issues       []string `json:"issues,omitempty"`
}

// RunResponse is the API response for a sync-log entry
type RunResponse struct {
	ID               string               `json:"id"`
	Type             string               `json:"type"`
	Status           string               `json:"status"`
	StartedAt        string               `json:"started_at"`
	FinishedAt       *string              `json:"finished_at,omitempty"`
	RecordsProcessed int                  `json:"records_processed"`
	Errors           *domain.ErrorSummary `json:"errors,omitempty"`
	Integrity        *ValidationResponse  `json:"integrity,omitempty"`
}

// StartRequest is the body for POST /api/sync/start. Phase restricts a
// manual run to a single entity type.
type StartRequest struct {
	Type   string `json:"type"`
	Resume bool   `json:"resume"`
	Phase  string `json:"phase"`
}

func statusToResponse(snap *domain.StatusSnapshot) StatusResponse {
	return StatusResponse{
		IsRunning:        snap.IsRunning,
		Status:           string(snap.Status),
		Progress:         snap.Progress,
		ProcessedRecords: snap.ProcessedRecords,
		TotalRecords:     snap.TotalRecords,
		CurrentOperation: snap.CurrentOperation,
		LastError:        snap.LastError,
		ValidationRate:   snap.Validation.ValidationRate,
		ValidRecords:     snap.Validation.ValidRecords,
		InvalidRecords:   snap.Validation.InvalidRecords,
	}
}

func checkpointToResponse(cp *domain.Checkpoint) *CheckpointResponse {
	if cp == nil {
		return nil
	}
	return &CheckpointResponse{
		Phase:           string(cp.Phase),
		Batch:           cp.Batch,
		Progress:        cp.Progress,
		IsPaused:        cp.IsPaused,
		CancelRequested: cp.CancelRequested,
		UpdatedAt:       cp.UpdatedAt.Format(time.RFC3339),
	}
}

func reportToResponse(report *domain.IntegrityReport) *ValidationResponse {
	if report == nil {
		return nil
	}
	return &ValidationResponse{
		Status:       string(report.Status),
		TotalChecks:  report.TotalChecks,
		PassedChecks: report.PassedChecks,
		FailedChecks: report.FailedChecks,
		Issues:       report.Issues,
	}
}

func runToResponse(run *domain.SyncRun) RunResponse {
	resp := RunResponse{
		ID:               run.ID,
		Type:             string(run.Type),
		Status:           string(run.Status),
		StartedAt:        run.StartedAt.Format(time.RFC3339),
		RecordsProcessed: run.RecordsProcessed,
		Errors:           run.Errors,
		Integrity:        reportToResponse(run.Integrity),
	}
	if run.FinishedAt != nil {
		t := run.FinishedAt.Format(time.RFC3339)
		resp.FinishedAt = &t
	}
	return resp
}

func (s *Server) startHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if s.start == nil {
			writeError(w, http.StatusServiceUnavailable, "import runner not configured")
			return
		}
		if s.runs.Running(orch.ScopeFullImport) {
			writeError(w, http.StatusConflict, "an import is already running")
			return
		}

		var req StartRequest
		if r.Body != nil {
			// An empty body means a default full run
			json.NewDecoder(r.Body).Decode(&req)
		}

		runType := domain.RunManual
		switch req.Type {
		case "", "manual":
		case "full":
			runType = domain.RunFull
		case "incremental":
			runType = domain.RunIncremental
		default:
			writeError(w, http.StatusBadRequest, "unknown run type: "+req.Type)
			return
		}

		var target domain.Phase
		if req.Phase != "" {
			p, err := domain.ParsePhase(req.Phase)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			// A phase-scoped run is by definition a manual one
			target = p
			runType = domain.RunManual
		}

		runID, err := s.start(runType, req.Resume, target)
		if err != nil {
			if errors.Is(err, orch.ErrPaused) {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, map[string]string{"run_id": runID, "status": "started"})
	}
}

func (s *Server) pauseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if err := s.runs.Pause(orch.ScopeFullImport); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, map[string]string{"status": "pause_requested"})
	}
}

func (s *Server) cancelHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if err := s.runs.Cancel(orch.ScopeFullImport); err != nil {
			if errors.Is(err, syncstore.ErrNoCheckpoint) {
				writeError(w, http.StatusConflict, "nothing to cancel: no run or checkpoint")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, map[string]string{"status": "cancel_requested"})
	}
}

func (s *Server) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		snap, err := s.store.GetStatus()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		resp := statusToResponse(snap)
		if cp, err := s.store.LoadCheckpoint(orch.ScopeFullImport); err == nil {
			resp.Checkpoint = checkpointToResponse(cp)
		}

		writeJSON(w, resp)
	}
}

func (s *Server) validationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		report, err := s.integrity.Summary()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, reportToResponse(report))
	}
}

func (s *Server) errorsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		run, err := s.store.LastSyncLog()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if run == nil {
			writeError(w, http.StatusNotFound, "no import run recorded yet")
			return
		}

		writeJSON(w, runToResponse(run))
	}
}
