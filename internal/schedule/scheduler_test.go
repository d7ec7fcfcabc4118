package schedule

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fedstats/fedsync/internal/domain"
)

func TestParseCron(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 2 * * *", false},    // 2 AM daily
		{"0 12 * * 1-5", false}, // noon weekdays
		{"*/5 * * * *", false},  // every 5 minutes
		{"invalid", true},
	}

	for _, tt := range tests {
		_, err := ParseCron(tt.expr)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCron(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
		}
	}
}

func TestJobConfig_Validate(t *testing.T) {
	cfg := JobConfig{
		Name:        "nightly",
		Cron:        "0 2 * * *",
		Type:        "full",
		MaxDuration: 8 * time.Hour,
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Valid config should not error: %v", err)
	}

	cfg.Name = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Empty name should error")
	}

	cfg.Name = "nightly"
	cfg.Type = "partial"
	if err := cfg.Validate(); err == nil {
		t.Error("Unknown type should error")
	}
}

func TestJobConfig_RunType(t *testing.T) {
	cfg := JobConfig{Type: "incremental"}
	if got := cfg.RunType(); got != domain.RunIncremental {
		t.Errorf("RunType() = %v, want %v", got, domain.RunIncremental)
	}

	cfg.Type = ""
	if got := cfg.RunType(); got != domain.RunFull {
		t.Errorf("RunType() = %v, want %v", got, domain.RunFull)
	}
}

func TestScheduler_NextRun(t *testing.T) {
	cfg := JobConfig{
		Name: "test",
		Cron: "0 2 * * *", // 2 AM daily
	}

	sched, err := NewScheduler([]JobConfig{cfg})
	if err != nil {
		t.Fatal(err)
	}

	next := sched.NextRun("test")
	if next.IsZero() {
		t.Error("NextRun should return a time")
	}

	// Should be in the future
	if !next.After(time.Now()) {
		t.Error("NextRun should be in the future")
	}
}

func TestScheduler_ShouldRun(t *testing.T) {
	cfg := JobConfig{
		Name:        "test",
		Cron:        "* * * * *", // Every minute
		MaxDuration: time.Hour,
	}

	sched, err := NewScheduler([]JobConfig{cfg})
	if err != nil {
		t.Fatal(err)
	}

	// Mark as last run two minutes ago
	sched.lastRun["test"] = time.Now().Add(-2 * time.Minute)

	if !sched.ShouldRun("test") {
		t.Error("Should run after cron interval passed")
	}

	sched.MarkRunning("test")
	if sched.ShouldRun("test") {
		t.Error("Should not run while already running")
	}
}

func TestScheduler_Reload(t *testing.T) {
	sched, err := NewScheduler([]JobConfig{
		{Name: "old", Cron: "* * * * *", MaxDuration: time.Hour},
	})
	if err != nil {
		t.Fatal(err)
	}
	sched.MarkComplete("old")

	err = sched.Reload([]JobConfig{
		{Name: "new", Cron: "0 2 * * *", MaxDuration: time.Hour},
	})
	if err != nil {
		t.Fatal(err)
	}

	jobs := sched.ListJobs()
	if len(jobs) != 1 || jobs[0] != "new" {
		t.Errorf("ListJobs() = %v, want [new]", jobs)
	}
	if !sched.lastRun["old"].IsZero() {
		t.Error("Reload should drop lastRun state for removed jobs")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.toml")

	content := `
[[job]]
name = "nightly"
cron = "0 2 * * *"
type = "full"

[[job]]
name = "hourly"
cron = "0 * * * *"
type = "incremental"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(cfg.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(cfg.Jobs))
	}
	if cfg.Jobs[0].Name != "nightly" {
		t.Errorf("Jobs[0].Name = %q, want nightly", cfg.Jobs[0].Name)
	}
	if cfg.Jobs[1].RunType() != domain.RunIncremental {
		t.Errorf("Jobs[1].RunType() = %v, want incremental", cfg.Jobs[1].RunType())
	}
	// MaxDuration defaults during validation
	if cfg.Jobs[0].MaxDuration != 12*time.Hour {
		t.Errorf("Jobs[0].MaxDuration = %v, want 12h default", cfg.Jobs[0].MaxDuration)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(cfg.Jobs) != 0 {
		t.Errorf("expected no jobs, got %d", len(cfg.Jobs))
	}
}

func TestFileWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.toml")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan string, 1)
	fw, err := NewFileWatcher(path, func(p string) {
		select {
		case reloaded <- p:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer fw.Stop()
	fw.SetDebounce(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fw.Start(ctx)

	if err := os.WriteFile(path, []byte("# changed\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-reloaded:
		if p != path {
			t.Errorf("callback path = %q, want %q", p, path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected reload callback after file change")
	}
}
