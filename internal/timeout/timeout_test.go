package timeout

import (
	"errors"
	"testing"
	"time"
)

// fakeClock lets tests advance time deterministically
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestManager(maxDuration time.Duration) (*Manager, *fakeClock) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	m := New(maxDuration)
	m.now = clock.now
	return m, clock
}

func TestElapsed_BeforeStart(t *testing.T) {
	m, _ := newTestManager(time.Hour)

	if _, err := m.Elapsed(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Elapsed before Start: error = %v, want ErrNotStarted", err)
	}
	if _, err := m.Remaining(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Remaining before Start: error = %v, want ErrNotStarted", err)
	}
}

func TestExceeded(t *testing.T) {
	m, clock := newTestManager(time.Hour)
	m.Start()

	clock.advance(30 * time.Minute)
	if m.Exceeded() {
		t.Error("Exceeded after 30m of 1h = true, want false")
	}

	clock.advance(31 * time.Minute)
	if !m.Exceeded() {
		t.Error("Exceeded after 61m of 1h = false, want true")
	}
	remaining, err := m.Remaining()
	if err != nil {
		t.Fatalf("Remaining error: %v", err)
	}
	if remaining != 0 {
		t.Errorf("Remaining past deadline = %v, want 0", remaining)
	}
}

func TestStart_Idempotent(t *testing.T) {
	m, clock := newTestManager(time.Hour)
	m.Start()
	clock.advance(10 * time.Minute)
	m.Start() // must not reset the origin

	elapsed, err := m.Elapsed()
	if err != nil {
		t.Fatalf("Elapsed error: %v", err)
	}
	if elapsed != 10*time.Minute {
		t.Errorf("Elapsed after second Start = %v, want 10m", elapsed)
	}
}

func TestReset(t *testing.T) {
	m, clock := newTestManager(time.Hour)
	m.Start()
	clock.advance(5 * time.Minute)
	m.Reset()

	if _, err := m.Elapsed(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Elapsed after Reset: error = %v, want ErrNotStarted", err)
	}

	m.Start()
	elapsed, err := m.Elapsed()
	if err != nil {
		t.Fatalf("Elapsed error: %v", err)
	}
	if elapsed != 0 {
		t.Errorf("Elapsed right after restart = %v, want 0", elapsed)
	}
}

func TestApproaching(t *testing.T) {
	tests := []struct {
		elapsed   time.Duration
		threshold float64
		want      bool
	}{
		{30 * time.Minute, 0.5, true},
		{29 * time.Minute, 0.5, false},
		{54 * time.Minute, 0.9, true},
		{60 * time.Minute, 1.0, true},
		{59 * time.Minute, 1.0, false},
	}

	for _, tt := range tests {
		m, clock := newTestManager(time.Hour)
		m.Start()
		clock.advance(tt.elapsed)
		if got := m.Approaching(tt.threshold); got != tt.want {
			t.Errorf("Approaching(%v) at %v = %v, want %v", tt.threshold, tt.elapsed, got, tt.want)
		}
	}
}

func TestFormattedRemaining(t *testing.T) {
	m, clock := newTestManager(12 * time.Hour)
	m.Start()
	clock.advance(2*time.Hour + 15*time.Minute)

	got, err := m.FormattedRemaining()
	if err != nil {
		t.Fatalf("FormattedRemaining error: %v", err)
	}
	if got != "9h 45m" {
		t.Errorf("FormattedRemaining = %q, want \"9h 45m\"", got)
	}
}

func TestSummary(t *testing.T) {
	m, clock := newTestManager(10 * time.Hour)
	m.Start()
	clock.advance(5 * time.Hour)

	s, err := m.Summary()
	if err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	if s.PercentComplete != 50 {
		t.Errorf("PercentComplete = %v, want 50", s.PercentComplete)
	}
	if s.Remaining != 5*time.Hour {
		t.Errorf("Remaining = %v, want 5h", s.Remaining)
	}
	if s.Exceeded {
		t.Error("Exceeded = true, want false")
	}

	clock.advance(6 * time.Hour)
	s, err = m.Summary()
	if err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	if s.PercentComplete != 100 {
		t.Errorf("PercentComplete past deadline = %v, want capped at 100", s.PercentComplete)
	}
	if !s.Exceeded {
		t.Error("Exceeded = false, want true")
	}
}

func TestNew_DefaultDuration(t *testing.T) {
	m := New(0)
	if m.MaxDuration() != DefaultMaxDuration {
		t.Errorf("MaxDuration = %v, want %v", m.MaxDuration(), DefaultMaxDuration)
	}
}
