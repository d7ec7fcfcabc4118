package domain

import "time"

// RunType distinguishes how a sync run was triggered
type RunType string

const (
	RunFull        RunType = "full"
	RunIncremental RunType = "incremental"
	RunManual      RunType = "manual"
)

// RunStatus represents the lifecycle state of a sync run
type RunStatus string

const (
	StatusPending             RunStatus = "pending"
	StatusRunning             RunStatus = "running"
	StatusPaused              RunStatus = "paused"
	StatusCancelling          RunStatus = "cancelling"
	StatusCompleted           RunStatus = "completed"
	StatusCompletedWithErrors RunStatus = "completed_with_errors"
	StatusFailed              RunStatus = "failed"
	StatusCancelled           RunStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedWithErrors, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// SyncRun is the sync-log record for one import run.
// The orchestrator owns all writes; the record is immutable once terminal.
type SyncRun struct {
	ID               string
	Type             RunType
	Status           RunStatus
	StartedAt        time.Time
	FinishedAt       *time.Time
	RecordsProcessed int
	Errors           *ErrorSummary
	Integrity        *IntegrityReport
}

// Checkpoint is the durable resume point for a run scope.
// Updated after every processed batch, cleared on successful completion.
type Checkpoint struct {
	Scope           string
	Phase           Phase
	Batch           int
	Progress        float64
	IsPaused        bool
	CancelRequested bool
	UpdatedAt       time.Time
}

// StatusSnapshot is the pollable view of the current sync state,
// always backed by durable store rows rather than in-process values.
type StatusSnapshot struct {
	IsRunning        bool
	Status           RunStatus
	Progress         float64
	ProcessedRecords int
	TotalRecords     int
	CurrentOperation string
	LastError        string
	Validation       ValidationStats
}

// ValidationStats summarizes record validity for status reporting
type ValidationStats struct {
	ValidationRate float64
	ValidRecords   int
	InvalidRecords int
}
