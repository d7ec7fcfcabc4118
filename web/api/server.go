package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"reflect"
	"time"

	"github.com/fedstats/fedsync/internal/domain"
	"github.com/fedstats/fedsync/internal/orch"
)

// Store interface for database operations
type Store interface {
	GetStatus() (*domain.StatusSnapshot, error)
	LoadCheckpoint(scope string) (*domain.Checkpoint, error)
	LastSyncLog() (*domain.SyncRun, error)
}

// IntegrityChecker audits referential integrity on demand
type IntegrityChecker interface {
	Summary() (*domain.IntegrityReport, error)
}

// StartFunc launches an import run and returns its sync-log id. The
// command layer supplies it with the scrape session and phase registry
// already wired. A non-empty phase restricts the run to that entity type.
type StartFunc func(runType domain.RunType, resume bool, phase domain.Phase) (string, error)

// Server is the HTTP API server
type Server struct {
	store     Store
	runs      *orch.RunRegistry
	integrity IntegrityChecker
	start     StartFunc
	addr      string
	mux       *http.ServeMux
	events    *EventHub
}

// NewServer creates a new API server
func NewServer(store Store, runs *orch.RunRegistry, integrity IntegrityChecker, start StartFunc, addr string) *Server {
	s := &Server{
		store:     store,
		runs:      runs,
		integrity: integrity,
		start:     start,
		addr:      addr,
		mux:       http.NewServeMux(),
		events:    NewEventHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// API routes
	s.mux.HandleFunc("/api/sync/start", s.startHandler())
	s.mux.HandleFunc("/api/sync/pause", s.pauseHandler())
	s.mux.HandleFunc("/api/sync/cancel", s.cancelHandler())
	s.mux.HandleFunc("/api/sync/status", s.statusHandler())
	s.mux.HandleFunc("/api/sync/validation", s.validationHandler())
	s.mux.HandleFunc("/api/sync/errors", s.errorsHandler())
	s.mux.HandleFunc("/api/events", s.sseHandler())
	s.mux.HandleFunc("/api/ws", s.wsHandler())
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return http.ListenAndServe(s.addr, s.mux)
}

// Broadcast sends an event to all SSE and websocket clients
func (s *Server) Broadcast(event Event) {
	s.events.Broadcast(event)
}

// Watch polls the sync status and broadcasts changes to connected
// clients until the context is done
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *domain.StatusSnapshot
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := s.store.GetStatus()
			if err != nil {
				log.Printf("polling sync status: %v", err)
				continue
			}
			if last != nil && reflect.DeepEqual(last, snap) {
				continue
			}
			last = snap
			s.Broadcast(StatusEvent(snap))
		}
	}
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
