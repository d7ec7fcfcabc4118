package orch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/fedstats/fedsync/internal/domain"
	"github.com/fedstats/fedsync/internal/errlog"
	"github.com/fedstats/fedsync/internal/integrity"
	"github.com/fedstats/fedsync/internal/phase"
	"github.com/fedstats/fedsync/internal/syncstore"
	"github.com/fedstats/fedsync/internal/timeout"
)

// ScopeFullImport is the checkpoint scope shared by full and incremental runs
const ScopeFullImport = "full_import"

// ErrPaused is returned when a run is paused and resume was not requested.
// A paused checkpoint never resumes without operator action.
var ErrPaused = errors.New("import is paused; resume explicitly to continue")

// Session is the external-source handle owned by the orchestrator for the
// run's duration. It is released on every exit path.
type Session interface {
	Close() error
}

// Options configures an Orchestrator
type Options struct {
	Store    *syncstore.Store
	Registry *phase.Registry
	Timeout  *timeout.Manager
	Session  Session
	RunType  domain.RunType
	Scope    string
	// OnlyPhase restricts the run to a single phase, for manual runs that
	// re-import one entity type. Targeted runs checkpoint under their own
	// scope so the full-import resume point is never disturbed.
	OnlyPhase domain.Phase
	// Errors is the run's error log, shared with the phase handlers so
	// their item-level failures land in the same summary. Defaults to a
	// fresh log.
	Errors *errlog.Log
	// ResumePaused permits resuming a paused checkpoint. Operator-initiated
	// starts set it; scheduled starts leave it false so a paused import
	// stays paused until someone looks at it.
	ResumePaused bool
	// WarnThreshold is the elapsed fraction at which a timeout warning is
	// logged, in (0,1].
	WarnThreshold float64
}

// Orchestrator sequences the phase handlers for one import run. It owns
// the run's lifecycle, checkpoints, timeout and the sync-log record.
// Control operations may arrive from another goroutine or, via the
// durable checkpoint flags, from another process entirely.
type Orchestrator struct {
	store    *syncstore.Store
	registry *phase.Registry
	timeout  *timeout.Manager
	session  Session
	errors   *errlog.Log
	scope    string
	runType  domain.RunType
	only     domain.Phase

	resumePaused  bool
	warnThreshold float64
	warned        bool

	pauseRequested  atomic.Bool
	cancelRequested atomic.Bool

	run          *domain.SyncRun
	totalRecords int
}

// New creates an Orchestrator for one run
func New(opts Options) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, errors.New("orchestrator needs a store")
	}
	if opts.Registry == nil {
		return nil, errors.New("orchestrator needs a phase registry")
	}
	if opts.Timeout == nil {
		opts.Timeout = timeout.New(timeout.DefaultMaxDuration)
	}
	if opts.OnlyPhase != "" {
		if _, ok := opts.Registry.Index(opts.OnlyPhase); !ok {
			return nil, fmt.Errorf("unknown phase %q", opts.OnlyPhase)
		}
	}
	if opts.Scope == "" {
		opts.Scope = ScopeFullImport
		if opts.OnlyPhase != "" {
			opts.Scope = "manual:" + string(opts.OnlyPhase)
		}
	}
	if opts.RunType == "" {
		opts.RunType = domain.RunFull
	}
	if opts.WarnThreshold <= 0 || opts.WarnThreshold > 1 {
		opts.WarnThreshold = 0.9
	}
	if opts.Errors == nil {
		opts.Errors = errlog.New()
	}

	return &Orchestrator{
		store:         opts.Store,
		registry:      opts.Registry,
		timeout:       opts.Timeout,
		session:       opts.Session,
		errors:        opts.Errors,
		scope:         opts.Scope,
		runType:       opts.RunType,
		only:          opts.OnlyPhase,
		resumePaused:  opts.ResumePaused,
		warnThreshold: opts.WarnThreshold,
	}, nil
}

// RunID returns the sync-log id once Start has created it
func (o *Orchestrator) RunID() string {
	if o.run == nil {
		return ""
	}
	return o.run.ID
}

// Scope returns the checkpoint scope this orchestrator runs under
func (o *Orchestrator) Scope() string {
	return o.scope
}

// Errors exposes the run's error log
func (o *Orchestrator) Errors() *errlog.Log {
	return o.errors
}

// Pause requests a graceful pause. In-flight work is not killed; the
// request takes effect at the next between-batch boundary and is recorded
// durably so it survives the process.
func (o *Orchestrator) Pause() error {
	o.pauseRequested.Store(true)
	return o.store.SetPaused(o.scope, true)
}

// Cancel requests graceful cancellation. Takes effect at the next
// between-batch boundary; the run terminates as cancelled.
func (o *Orchestrator) Cancel() error {
	o.cancelRequested.Store(true)
	// Before the first checkpoint write there is no row to carry the flag;
	// the in-process request alone stops the run.
	if err := o.store.SetCancelRequested(o.scope, true); err != nil && !errors.Is(err, syncstore.ErrNoCheckpoint) {
		return err
	}
	return nil
}

// Start runs the import: create the sync log, resume or begin at phase 1
// batch 0, iterate phases and batches with between-batch signal checks,
// then finish with the integrity audit and the terminal sync-log entry.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.session != nil {
		defer func() {
			if err := o.session.Close(); err != nil {
				log.Printf("closing source session: %v", err)
			}
		}()
	}

	startPhase, startBatch, err := o.resumePoint()
	if err != nil {
		return err
	}

	run, err := o.store.CreateSyncLog(o.runType)
	if err != nil {
		// Critical setup failure: abort before any phase executes
		return fmt.Errorf("starting run: %w", err)
	}
	o.run = run

	if _, err := o.store.EnsureSystemUser(); err != nil {
		o.failRun(fmt.Errorf("ensuring system user: %w", err))
		return err
	}

	// Estimate total from the previous run for progress reporting
	if last, err := o.store.LastSyncLog(); err == nil && last != nil && last.ID != run.ID {
		o.totalRecords = last.RecordsProcessed
	}

	o.timeout.Start()
	o.publishStatus(domain.StatusRunning, o.progress(startPhase, startBatch), "starting import")
	log.Printf("import run %s started type=%s phase=%s batch=%d",
		run.ID, o.runType, domain.PhaseOrder[startPhase], startBatch)

	return o.runPhases(ctx, startPhase, startBatch)
}

// resumePoint decides where the run begins from the stored checkpoint.
// An unknown checkpointed phase is a hard failure: the operator clears
// the checkpoint rather than the orchestrator guessing a resume point.
func (o *Orchestrator) resumePoint() (int, int, error) {
	cp, err := o.store.LoadCheckpoint(o.scope)
	if err != nil {
		return 0, 0, fmt.Errorf("loading checkpoint: %w", err)
	}
	if cp == nil {
		if o.only != "" {
			idx, _ := o.registry.Index(o.only)
			return idx, 0, nil
		}
		return 0, 0, nil
	}

	idx, ok := o.registry.Index(cp.Phase)
	if !ok {
		return 0, 0, fmt.Errorf("checkpoint references unknown phase %q; clear the checkpoint to start over", cp.Phase)
	}

	if cp.IsPaused {
		if !o.resumePaused {
			return 0, 0, ErrPaused
		}
		if err := o.store.SetPaused(o.scope, false); err != nil {
			return 0, 0, fmt.Errorf("clearing pause flag: %w", err)
		}
	}

	return idx, cp.Batch, nil
}

func (o *Orchestrator) runPhases(ctx context.Context, startPhase, startBatch int) error {
	handlers := o.registry.Handlers()
	endPhase := len(handlers)
	if o.only != "" {
		endPhase = startPhase + 1
	}

	for i := startPhase; i < endPhase; i++ {
		handler := handlers[i]
		name := handler.Name()
		o.errors.SetPhase(name)

		offset := 0
		if i == startPhase {
			offset = startBatch
		}

		log.Printf("phase %s starting at batch %d", name, offset)
		o.publishStatus(domain.StatusRunning, o.progress(i, offset), fmt.Sprintf("importing %s", name))

		for {
			if stopped, err := o.checkSignals(ctx, i, offset, name); stopped {
				return err
			}

			result, err := handler.Run(ctx, offset)
			if err != nil {
				// A failed phase is logged as critical and the run moves on;
				// item-level failures were already absorbed by the handler.
				batch := offset
				o.errors.Log(err, domain.CodePhaseFailed, domain.ErrorContext{
					BatchIndex: &batch,
					Operation:  string(name),
				}, false)
				break
			}

			o.run.RecordsProcessed += result.ItemsProcessed

			if result.Done {
				// Advance the resume point past this phase so a restart
				// never replays completed batches.
				if i+1 < endPhase {
					if err := o.saveProgress(i+1, 0, handlers[i+1].Name()); err != nil {
						o.failRun(err)
						return err
					}
				}
				break
			}

			offset = result.NextOffset
			if err := o.saveProgress(i, offset, name); err != nil {
				o.failRun(err)
				return err
			}
		}
	}

	return o.Complete(true)
}

// checkSignals runs the between-batch checks in fixed priority order:
// cancellation first, then timeout, then pause.
func (o *Orchestrator) checkSignals(ctx context.Context, phaseIdx, offset int, current domain.Phase) (bool, error) {
	cancelled := o.cancelRequested.Load() || ctx.Err() != nil
	if !cancelled {
		if flag, err := o.store.IsCancelRequested(o.scope); err == nil && flag {
			cancelled = true
		}
	}
	if cancelled {
		return true, o.terminateCancelled(phaseIdx, offset, current)
	}

	if o.timeout.Exceeded() {
		return true, o.terminateTimedOut(phaseIdx, offset, current)
	}
	if !o.warned && o.timeout.Approaching(o.warnThreshold) {
		o.warned = true
		if remaining, err := o.timeout.FormattedRemaining(); err == nil {
			log.Printf("import approaching timeout, %s remaining", remaining)
		}
	}

	paused := o.pauseRequested.Load()
	if !paused {
		if flag, err := o.store.IsPaused(o.scope); err == nil && flag {
			paused = true
		}
	}
	if paused {
		return true, o.suspendPaused(phaseIdx, offset, current)
	}

	return false, nil
}

func (o *Orchestrator) terminateCancelled(phaseIdx, offset int, current domain.Phase) error {
	if err := o.saveCheckpoint(phaseIdx, offset, current, false); err != nil {
		log.Printf("saving checkpoint on cancel: %v", err)
	}
	// Clear the flag so the preserved checkpoint can be resumed later
	// without being immediately re-cancelled.
	if err := o.store.SetCancelRequested(o.scope, false); err != nil {
		log.Printf("clearing cancel flag: %v", err)
	}

	o.finishRun(domain.StatusCancelled)
	o.publishStatus(domain.StatusCancelled, o.progress(phaseIdx, offset), "Import cancelled")
	log.Printf("import run %s cancelled at phase %s batch %d", o.run.ID, current, offset)
	return nil
}

func (o *Orchestrator) terminateTimedOut(phaseIdx, offset int, current domain.Phase) error {
	if err := o.saveCheckpoint(phaseIdx, offset, current, false); err != nil {
		log.Printf("saving checkpoint on timeout: %v", err)
	}

	batch := offset
	o.errors.Log(fmt.Errorf("maximum run duration %s exceeded", o.timeout.MaxDuration()),
		domain.CodeTimeoutExceeded, domain.ErrorContext{BatchIndex: &batch, Operation: string(current)}, false)

	o.finishRun(domain.StatusFailed)
	o.publishStatus(domain.StatusFailed, o.progress(phaseIdx, offset), "Import timed out")
	log.Printf("import run %s timed out at phase %s batch %d", o.run.ID, current, offset)
	return nil
}

func (o *Orchestrator) suspendPaused(phaseIdx, offset int, current domain.Phase) error {
	if err := o.saveCheckpoint(phaseIdx, offset, current, true); err != nil {
		log.Printf("saving checkpoint on pause: %v", err)
	}

	o.run.Status = domain.StatusPaused
	if err := o.store.UpdateSyncLog(o.run); err != nil {
		log.Printf("updating sync log on pause: %v", err)
	}
	o.publishStatus(domain.StatusPaused, o.progress(phaseIdx, offset), "Import paused")
	log.Printf("import run %s paused at phase %s batch %d", o.run.ID, current, offset)
	return nil
}

// Complete finishes the run: integrity audit, error summary, terminal
// sync-log entry, and checkpoint cleanup on success.
func (o *Orchestrator) Complete(success bool) error {
	report := o.audit()
	o.run.Integrity = report

	summary := o.errors.Summary()
	status := domain.StatusCompleted
	switch {
	case !success:
		status = domain.StatusFailed
	case summary.TotalErrors > 0:
		status = domain.StatusCompletedWithErrors
	}

	o.finishRun(status)

	if status != domain.StatusFailed {
		if err := o.store.ClearCheckpoint(o.scope); err != nil {
			log.Printf("clearing checkpoint: %v", err)
		}
	}

	op := fmt.Sprintf("Import finished: %s, integrity %s", status, report.Status)
	o.publishStatus(status, 100, op)
	log.Printf("import run %s finished status=%s records=%d errors=%d integrity=%s",
		o.run.ID, status, o.run.RecordsProcessed, summary.TotalErrors, report.Status)
	return nil
}

// audit runs the integrity check, degrading a failed audit into a
// failing report so callers always get one.
func (o *Orchestrator) audit() *domain.IntegrityReport {
	report, err := integrity.New(o.store).Summary()
	if err != nil {
		log.Printf("integrity audit failed: %v", err)
		return &domain.IntegrityReport{Status: domain.IntegrityFail, Issues: []string{err.Error()}}
	}
	return report
}

// finishRun writes the terminal sync-log entry with the embedded error
// summary and integrity report. Every terminal record carries the audit,
// including cancelled and timed-out runs.
func (o *Orchestrator) finishRun(status domain.RunStatus) {
	now := time.Now()
	summary := o.errors.Summary()
	o.run.Status = status
	o.run.FinishedAt = &now
	o.run.Errors = &summary
	if status.Terminal() && o.run.Integrity == nil {
		o.run.Integrity = o.audit()
	}
	if err := o.store.UpdateSyncLog(o.run); err != nil {
		log.Printf("writing terminal sync log: %v", err)
	}
}

func (o *Orchestrator) failRun(cause error) {
	o.errors.Log(cause, domain.CodeSessionFailed, domain.ErrorContext{}, false)
	o.finishRun(domain.StatusFailed)
	o.publishStatus(domain.StatusFailed, 0, "Import failed")
}

// saveProgress persists the checkpoint and run counters after a batch
func (o *Orchestrator) saveProgress(phaseIdx, offset int, current domain.Phase) error {
	if err := o.saveCheckpoint(phaseIdx, offset, current, false); err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	if err := o.store.UpdateSyncLog(o.run); err != nil {
		return fmt.Errorf("updating sync log: %w", err)
	}
	o.publishStatus(domain.StatusRunning, o.progress(phaseIdx, offset), fmt.Sprintf("importing %s", current))
	return nil
}

func (o *Orchestrator) saveCheckpoint(phaseIdx, offset int, current domain.Phase, paused bool) error {
	return o.store.SaveCheckpoint(&domain.Checkpoint{
		Scope:    o.scope,
		Phase:    current,
		Batch:    offset,
		Progress: o.progress(phaseIdx, offset),
		IsPaused: paused,
	})
}

// progress estimates run completion from the phase index. Within a phase
// the fraction approaches 1 as batches complete; it never regresses.
func (o *Orchestrator) progress(phaseIdx, offset int) float64 {
	frac := float64(offset) / float64(offset+1)
	if o.only != "" {
		return 100 * frac
	}
	n := float64(o.registry.Len())
	p := 100 * (float64(phaseIdx) + frac) / n
	if p > 100 {
		p = 100
	}
	return p
}

func (o *Orchestrator) publishStatus(status domain.RunStatus, progress float64, operation string) {
	summary := o.errors.Summary()
	snap := &domain.StatusSnapshot{
		IsRunning:        status == domain.StatusRunning,
		Status:           status,
		Progress:         progress,
		ProcessedRecords: o.run.RecordsProcessed,
		TotalRecords:     o.totalRecords,
		CurrentOperation: operation,
		Validation: domain.ValidationStats{
			ValidRecords:   o.run.RecordsProcessed,
			InvalidRecords: summary.TotalErrors,
		},
	}
	if records := o.errors.Records(); len(records) > 0 {
		snap.LastError = records[len(records)-1].Message
	}
	if err := o.store.UpsertStatus(snap); err != nil {
		log.Printf("updating sync status: %v", err)
	}
}
