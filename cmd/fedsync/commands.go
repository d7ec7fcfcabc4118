package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fedstats/fedsync/internal/config"
	"github.com/fedstats/fedsync/internal/domain"
	"github.com/fedstats/fedsync/internal/errlog"
	"github.com/fedstats/fedsync/internal/integrity"
	"github.com/fedstats/fedsync/internal/notify"
	"github.com/fedstats/fedsync/internal/orch"
	"github.com/fedstats/fedsync/internal/phase"
	"github.com/fedstats/fedsync/internal/ratelimit"
	"github.com/fedstats/fedsync/internal/schedule"
	"github.com/fedstats/fedsync/internal/scrape"
	"github.com/fedstats/fedsync/internal/syncstore"
	"github.com/fedstats/fedsync/internal/timeout"
	"github.com/fedstats/fedsync/web/api"
)

var (
	runType     string
	runPhase    string
	runResume   bool
	cancelPurge bool
	servePort   int
)

func init() {
	// run command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run an import",
		RunE:  runImport,
	}
	runCmd.Flags().StringVar(&runType, "type", "full", "run type: full or incremental")
	runCmd.Flags().StringVar(&runPhase, "phase", "", "re-import a single entity type (implies a manual run)")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "resume a paused import")
	rootCmd.AddCommand(runCmd)

	// pause command
	pauseCmd := &cobra.Command{
		Use:   "pause",
		Short: "Pause the current import",
		RunE:  runPause,
	}
	rootCmd.AddCommand(pauseCmd)

	// cancel command
	cancelCmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the current import",
		RunE:  runCancel,
	}
	cancelCmd.Flags().BoolVar(&cancelPurge, "purge", false, "also discard the checkpoint so the next run starts over")
	rootCmd.AddCommand(cancelCmd)

	// status command
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show current sync status",
		RunE:  runStatus,
	}
	rootCmd.AddCommand(statusCmd)

	// validate command
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Audit referential integrity",
		RunE:  runValidate,
	}
	rootCmd.AddCommand(validateCmd)

	// errors command
	errorsCmd := &cobra.Command{
		Use:   "errors",
		Short: "Show the last run's error summary",
		RunE:  runErrors,
	}
	rootCmd.AddCommand(errorsCmd)

	// serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the control API server",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on")
	rootCmd.AddCommand(serveCmd)

	// schedule command
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run scheduled imports from the schedule file",
		RunE:  runSchedule,
	}
	rootCmd.AddCommand(scheduleCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

func openStore(cfg *config.Config) (*syncstore.Store, error) {
	return syncstore.New(cfg.General.DatabasePath)
}

// newOrchestrator wires a full import pipeline: rate-limited scrape
// client, phase handlers, timeout manager and error log.
func newOrchestrator(cfg *config.Config, store *syncstore.Store, rt domain.RunType, resume bool, target domain.Phase) (*orch.Orchestrator, error) {
	client := scrape.New(
		cfg.Source.BaseURL,
		ratelimit.New(cfg.Source.MinInterval),
		cfg.Source.HTTPTimeout,
		cfg.Source.FetchConcurrency,
	)

	errs := errlog.New()
	handlers, err := scrape.Handlers(client, store, errs, cfg.Import.BatchSize)
	if err != nil {
		client.Close()
		return nil, err
	}

	registry, err := phase.NewRegistry(handlers)
	if err != nil {
		client.Close()
		return nil, err
	}

	return orch.New(orch.Options{
		Store:         store,
		Registry:      registry,
		Timeout:       timeout.New(cfg.Import.MaxDuration),
		Session:       client,
		RunType:       rt,
		OnlyPhase:     target,
		Errors:        errs,
		ResumePaused:  resume,
		WarnThreshold: cfg.Import.WarnThreshold,
	})
}

func newNotifier(cfg *config.Config) notify.Notifier {
	return notify.NewMultiNotifier(
		notify.NewSlackNotifier(cfg.Notify.SlackWebhook),
		notify.NewDesktopNotifier(cfg.Notify.Desktop),
	)
}

// notifyOutcome reports the terminal state of the run just finished
func notifyOutcome(notifier notify.Notifier, store *syncstore.Store, runID string) {
	if runID == "" {
		return
	}
	run, err := store.GetSyncLog(runID)
	if err != nil || run == nil {
		return
	}
	if err := notifier.Send(notify.ForRun(run)); err != nil {
		log.Printf("sending notification: %v", err)
	}
}

func parseRunType(s string) (domain.RunType, error) {
	switch s {
	case "full":
		return domain.RunFull, nil
	case "incremental":
		return domain.RunIncremental, nil
	case "manual":
		return domain.RunManual, nil
	}
	return "", fmt.Errorf("unknown run type %q (want full or incremental)", s)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rt, err := parseRunType(runType)
	if err != nil {
		return err
	}

	var target domain.Phase
	if runPhase != "" {
		p, err := domain.ParsePhase(runPhase)
		if err != nil {
			return err
		}
		target = p
		rt = domain.RunManual
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	o, err := newOrchestrator(cfg, store, rt, runResume, target)
	if err != nil {
		return err
	}

	runs := orch.NewRunRegistry(store)
	runs.Attach(o)
	defer runs.Detach(o)

	// SIGINT cancels at the next batch boundary; the checkpoint survives
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := newNotifier(cfg)
	if err := o.Start(ctx); err != nil {
		if errors.Is(err, orch.ErrPaused) {
			fmt.Println("Import is paused. Re-run with --resume to continue.")
			return nil
		}
		return err
	}
	notifyOutcome(notifier, store, o.RunID())

	return nil
}

func runPause(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := orch.NewRunRegistry(store).Pause(orch.ScopeFullImport); err != nil {
		return err
	}
	fmt.Println("Pause requested. The import stops at the next batch boundary.")
	return nil
}

func runCancel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if cancelPurge {
		if err := store.ClearCheckpoint(orch.ScopeFullImport); err != nil {
			return err
		}
		fmt.Println("Checkpoint discarded. The next run starts from the first phase.")
		return nil
	}

	if err := orch.NewRunRegistry(store).Cancel(orch.ScopeFullImport); err != nil {
		if errors.Is(err, syncstore.ErrNoCheckpoint) {
			fmt.Println("Nothing to cancel: no import is running and no checkpoint exists.")
			return nil
		}
		return err
	}
	fmt.Println("Cancel requested. The import stops at the next batch boundary.")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := store.GetStatus()
	if err != nil {
		return err
	}

	fmt.Printf("Status: %s | %.1f%% | %s records processed\n",
		snap.Status, snap.Progress, humanize.Comma(int64(snap.ProcessedRecords)))
	if snap.CurrentOperation != "" {
		fmt.Printf("Operation: %s\n", snap.CurrentOperation)
	}
	if snap.LastError != "" {
		fmt.Printf("Last error: %s\n", snap.LastError)
	}

	cp, err := store.LoadCheckpoint(orch.ScopeFullImport)
	if err != nil {
		return err
	}
	if cp != nil {
		state := "active"
		switch {
		case cp.IsPaused:
			state = "paused"
		case cp.CancelRequested:
			state = "cancel pending"
		}
		fmt.Printf("Checkpoint: phase %s batch %d (%s, updated %s)\n",
			cp.Phase, cp.Batch, state, humanize.Time(cp.UpdatedAt))
	}

	last, err := store.LastSyncLog()
	if err != nil {
		return err
	}
	if last != nil {
		fmt.Printf("Last run: %s %s started %s",
			last.Type, last.Status, humanize.Time(last.StartedAt))
		if last.FinishedAt != nil {
			fmt.Printf(", took %s", last.FinishedAt.Sub(last.StartedAt).Round(time.Second))
		}
		fmt.Println()
	}

	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := integrity.New(store).Summary()
	if err != nil {
		return err
	}

	fmt.Printf("Integrity: %s (%d/%d checks passed)\n",
		report.Status, report.PassedChecks, report.TotalChecks)
	for _, issue := range report.Issues {
		fmt.Printf("  - %s\n", issue)
	}

	if report.Status == domain.IntegrityFail {
		return fmt.Errorf("%d integrity check(s) failed", report.FailedChecks)
	}
	return nil
}

func runErrors(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.LastSyncLog()
	if err != nil {
		return err
	}
	if run == nil {
		fmt.Println("No import runs recorded yet")
		return nil
	}

	fmt.Printf("Run %s: %s %s, %s records\n",
		run.ID, run.Type, run.Status, humanize.Comma(int64(run.RecordsProcessed)))

	if run.Errors == nil || run.Errors.TotalErrors == 0 {
		fmt.Println("No errors recorded")
		return nil
	}

	fmt.Printf("Errors: %d total | %d critical | %d retried\n",
		run.Errors.TotalErrors, run.Errors.CriticalErrors, run.Errors.RetriedErrors)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PHASE\tERRORS")
	for ph, count := range run.Errors.ErrorsByPhase {
		fmt.Fprintf(w, "%s\t%d\n", ph, count)
	}
	w.Flush()

	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tERRORS")
	for code, count := range run.Errors.ErrorsByCode {
		fmt.Fprintf(w, "%s\t%d\n", code, count)
	}
	w.Flush()

	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	port := servePort
	if port == 0 {
		port = cfg.Web.Port
	}
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, port)

	runs := orch.NewRunRegistry(store)
	notifier := newNotifier(cfg)
	var server *api.Server
	start := func(rt domain.RunType, resume bool, target domain.Phase) (string, error) {
		o, err := newOrchestrator(cfg, store, rt, resume, target)
		if err != nil {
			return "", err
		}
		runs.Attach(o)
		go func() {
			defer runs.Detach(o)
			if err := o.Start(context.Background()); err != nil {
				log.Printf("import run failed: %v", err)
				return
			}
			notifyOutcome(notifier, store, o.RunID())
			if run, err := store.GetSyncLog(o.RunID()); err == nil && run != nil {
				server.Broadcast(api.RunFinishedEvent(run))
			}
		}()
		// The id is assigned once Start creates the sync log
		for i := 0; i < 50 && o.RunID() == ""; i++ {
			time.Sleep(20 * time.Millisecond)
		}
		return o.RunID(), nil
	}

	server = api.NewServer(store, runs, integrity.New(store), start, addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go server.Watch(ctx, 2*time.Second)

	fmt.Printf("Control API listening at http://%s\n", addr)
	return server.Start()
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fileCfg, err := schedule.LoadFile(cfg.Sched.File)
	if err != nil {
		return err
	}
	if len(fileCfg.Jobs) == 0 {
		fmt.Printf("No jobs in %s; watching for changes\n", cfg.Sched.File)
	}

	sched, err := schedule.NewScheduler(fileCfg.Jobs)
	if err != nil {
		return err
	}

	runs := orch.NewRunRegistry(store)
	notifier := newNotifier(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Hot-reload the schedule file on change
	watcher, err := schedule.NewFileWatcher(cfg.Sched.File, func(path string) {
		fresh, err := schedule.LoadFile(path)
		if err != nil {
			log.Printf("reloading schedule %s: %v", path, err)
			return
		}
		if err := sched.Reload(fresh.Jobs); err != nil {
			log.Printf("applying schedule %s: %v", path, err)
			return
		}
		log.Printf("schedule reloaded: %d job(s)", len(fresh.Jobs))
	})
	if err != nil {
		return err
	}
	watcher.Start(ctx)
	defer watcher.Stop()

	go func() {
		<-ctx.Done()
		sched.Stop()
	}()

	fmt.Printf("Scheduler running with %d job(s)\n", len(fileCfg.Jobs))
	sched.Start(func(job schedule.JobConfig) error {
		if runs.Running(orch.ScopeFullImport) {
			log.Printf("job %s skipped: an import is already running", job.Name)
			return nil
		}

		jobCfg := *cfg
		if job.MaxDuration > 0 {
			jobCfg.Import.MaxDuration = job.MaxDuration
		}

		// Scheduled starts never auto-resume a paused checkpoint
		o, err := newOrchestrator(&jobCfg, store, job.RunType(), false, "")
		if err != nil {
			return err
		}
		runs.Attach(o)
		defer runs.Detach(o)

		if err := o.Start(ctx); err != nil {
			if errors.Is(err, orch.ErrPaused) {
				log.Printf("job %s skipped: import is paused", job.Name)
				return nil
			}
			return err
		}
		notifyOutcome(notifier, store, o.RunID())
		return nil
	})

	return nil
}
