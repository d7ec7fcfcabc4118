package errlog

import (
	"log"
	"sync"
	"time"

	"github.com/fedstats/fedsync/internal/domain"
)

// Log accumulates structured error records for one import run.
// Logging never fails and never aborts the run.
type Log struct {
	records []domain.ErrorRecord
	phase   domain.Phase
	mu      sync.Mutex
	now     func() time.Time
}

// New creates an empty error log
func New() *Log {
	return &Log{now: time.Now}
}

// SetPhase tags all subsequent records with the given phase
func (l *Log) SetPhase(phase domain.Phase) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.phase = phase
}

// Phase returns the currently active phase tag
func (l *Log) Phase() domain.Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Log appends an error record tagged with the current phase
func (l *Log) Log(err error, code string, ectx domain.ErrorContext, willRetry bool) {
	if err == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, domain.ErrorRecord{
		Code:      code,
		Message:   err.Error(),
		Phase:     l.phase,
		Context:   ectx,
		WillRetry: willRetry,
		Timestamp: l.now(),
	})
	log.Printf("import error phase=%s code=%s retry=%v: %v", l.phase, code, willRetry, err)
}

// Records returns a defensive copy of all logged records
func (l *Log) Records() []domain.ErrorRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.ErrorRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Summary aggregates the logged records by phase, code and severity
func (l *Log) Summary() domain.ErrorSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	summary := domain.ErrorSummary{
		TotalErrors:   len(l.records),
		ErrorsByPhase: make(map[domain.Phase]int),
		ErrorsByCode:  make(map[string]int),
	}
	for _, rec := range l.records {
		summary.ErrorsByPhase[rec.Phase]++
		summary.ErrorsByCode[rec.Code]++
		if rec.WillRetry {
			summary.RetriedErrors++
		} else {
			summary.CriticalErrors++
		}
	}
	return summary
}

// Guard runs op and recovers its failure locally: on error the record is
// logged under code and the zero value is returned with ok=false, so a
// batch loop can continue past one bad item instead of aborting the phase.
func Guard[T any](l *Log, code string, ectx domain.ErrorContext, op func() (T, error)) (T, bool) {
	result, err := op()
	if err != nil {
		l.Log(err, code, ectx, false)
		var zero T
		return zero, false
	}
	return result, true
}
