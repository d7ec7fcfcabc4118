package domain

import "time"

// Error taxonomy codes attached to ErrorRecords
const (
	CodeFetchFailed     = "fetch_failed"
	CodeParseFailed     = "parse_failed"
	CodePersistFailed   = "persist_failed"
	CodeSessionFailed   = "session_failed"
	CodeTimeoutExceeded = "timeout_exceeded"
	CodePhaseFailed     = "phase_failed"
)

// ErrorContext carries optional location info for an ErrorRecord
type ErrorContext struct {
	BatchIndex *int
	EntityID   string
	EntityType string
	Operation  string
}

// ErrorRecord is one logged import error. Append-only, never mutated.
type ErrorRecord struct {
	Code      string
	Message   string
	Phase     Phase
	Context   ErrorContext
	WillRetry bool
	Timestamp time.Time
}

// ErrorSummary aggregates a run's error records for the terminal sync log
type ErrorSummary struct {
	TotalErrors    int
	ErrorsByPhase  map[Phase]int
	ErrorsByCode   map[string]int
	CriticalErrors int
	RetriedErrors  int
}

// IntegrityStatus is the overall result of an integrity audit
type IntegrityStatus string

const (
	IntegrityPass IntegrityStatus = "pass"
	IntegrityFail IntegrityStatus = "fail"
)

// IntegrityReport is the result of one referential-integrity audit.
// Computed fresh on demand; the orchestrator snapshots it into the
// terminal sync-log record.
type IntegrityReport struct {
	Status       IntegrityStatus
	TotalChecks  int
	PassedChecks int
	FailedChecks int
	Issues       []string
}
