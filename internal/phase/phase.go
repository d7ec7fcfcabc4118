package phase

import (
	"context"
	"fmt"

	"github.com/fedstats/fedsync/internal/domain"
)

// Result reports one batch of handler work
type Result struct {
	ItemsProcessed int
	NextOffset     int
	Done           bool
}

// Handler fetches and persists one slice of federation data.
// The orchestrator invokes Run repeatedly, feeding back NextOffset,
// until the handler reports Done. Handlers must be idempotent at the
// item level (upsert-by-external-id): a crash mid-batch means the
// batch is replayed on resume.
type Handler interface {
	Name() domain.Phase
	Run(ctx context.Context, offset int) (Result, error)
}

// Registry holds the ordered set of phase handlers for a run
type Registry struct {
	handlers []Handler
	byName   map[domain.Phase]int
}

// NewRegistry validates that the handlers exactly cover the fixed phase
// order and returns them as a registry. The orchestrator loop is identical
// regardless of phase identity; only the registry knows the line-up.
func NewRegistry(handlers []Handler) (*Registry, error) {
	if len(handlers) != len(domain.PhaseOrder) {
		return nil, fmt.Errorf("registry needs %d handlers, got %d", len(domain.PhaseOrder), len(handlers))
	}

	byName := make(map[domain.Phase]int, len(handlers))
	for i, h := range handlers {
		if h.Name() != domain.PhaseOrder[i] {
			return nil, fmt.Errorf("handler %d is %q, want %q", i, h.Name(), domain.PhaseOrder[i])
		}
		if _, dup := byName[h.Name()]; dup {
			return nil, fmt.Errorf("duplicate handler for phase %q", h.Name())
		}
		byName[h.Name()] = i
	}

	return &Registry{handlers: handlers, byName: byName}, nil
}

// Handlers returns the handlers in execution order
func (r *Registry) Handlers() []Handler {
	return r.handlers
}

// Index returns the position of the named phase in the execution order
func (r *Registry) Index(p domain.Phase) (int, bool) {
	i, ok := r.byName[p]
	return i, ok
}

// Len returns the number of registered phases
func (r *Registry) Len() int {
	return len(r.handlers)
}
