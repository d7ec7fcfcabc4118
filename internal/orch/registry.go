package orch

import (
	"sync"

	"github.com/fedstats/fedsync/internal/syncstore"
)

// RunRegistry tracks in-process orchestrator instances by scope, so a
// control request landing in the same process signals the loop directly.
// When the running loop lives in another process, the durable checkpoint
// flags are the hand-off mechanism instead.
type RunRegistry struct {
	store  *syncstore.Store
	active map[string]*Orchestrator
	mu     sync.RWMutex
}

// NewRunRegistry creates a registry over the given store
func NewRunRegistry(store *syncstore.Store) *RunRegistry {
	return &RunRegistry{
		store:  store,
		active: make(map[string]*Orchestrator),
	}
}

// Attach registers a running orchestrator under its scope
func (r *RunRegistry) Attach(o *Orchestrator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[o.Scope()] = o
}

// Detach removes an orchestrator once its run has finished
func (r *RunRegistry) Detach(o *Orchestrator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[o.Scope()] == o {
		delete(r.active, o.Scope())
	}
}

// Find returns the in-process orchestrator for a scope, if any
func (r *RunRegistry) Find(scope string) *Orchestrator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active[scope]
}

// Pause signals a pause for the scope: directly when the loop runs in
// this process, otherwise by durably recording the intent so the loop
// (or the next start) observes it.
func (r *RunRegistry) Pause(scope string) error {
	if o := r.Find(scope); o != nil {
		return o.Pause()
	}
	return r.store.SetPaused(scope, true)
}

// Cancel signals cancellation for the scope, in-process or durable.
// With no in-process run and no checkpoint there is nothing to cancel;
// the store's ErrNoCheckpoint is surfaced so callers can say so instead
// of silently condemning the next run.
func (r *RunRegistry) Cancel(scope string) error {
	if o := r.Find(scope); o != nil {
		return o.Cancel()
	}
	return r.store.SetCancelRequested(scope, true)
}

// Running reports whether an orchestrator is active for the scope in
// this process
func (r *RunRegistry) Running(scope string) bool {
	return r.Find(scope) != nil
}
