package timeout

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultMaxDuration bounds a full import run
const DefaultMaxDuration = 12 * time.Hour

// ErrNotStarted is returned when elapsed time is queried before Start
var ErrNotStarted = errors.New("timeout manager not started")

// Manager tracks elapsed wall-clock time against a maximum run duration
type Manager struct {
	maxDuration time.Duration
	startedAt   time.Time
	started     bool
	mu          sync.Mutex
	now         func() time.Time
}

// New creates a Manager with the given maximum duration.
// Non-positive durations fall back to the default.
func New(maxDuration time.Duration) *Manager {
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	return &Manager{maxDuration: maxDuration, now: time.Now}
}

// Start records the run's start time. Calling Start again while started
// is a no-op, so elapsed time is monotonic from the first call.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.startedAt = m.now()
	m.started = true
}

// Reset returns the manager to the not-started state
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = false
	m.startedAt = time.Time{}
}

// Elapsed returns time since Start, or ErrNotStarted
func (m *Manager) Elapsed() (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return 0, ErrNotStarted
	}
	return m.now().Sub(m.startedAt), nil
}

// Remaining returns max(0, maxDuration - elapsed)
func (m *Manager) Remaining() (time.Duration, error) {
	elapsed, err := m.Elapsed()
	if err != nil {
		return 0, err
	}
	if remaining := m.maxDuration - elapsed; remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}

// Exceeded reports whether elapsed time has reached the maximum duration.
// Before Start it reports false.
func (m *Manager) Exceeded() bool {
	elapsed, err := m.Elapsed()
	if err != nil {
		return false
	}
	return elapsed >= m.maxDuration
}

// Approaching reports whether elapsed time has reached the given fraction
// of the maximum duration. Threshold must be in (0, 1].
func (m *Manager) Approaching(threshold float64) bool {
	elapsed, err := m.Elapsed()
	if err != nil {
		return false
	}
	return float64(elapsed) >= float64(m.maxDuration)*threshold
}

// MaxDuration returns the configured run bound
func (m *Manager) MaxDuration() time.Duration {
	return m.maxDuration
}

// FormattedRemaining returns the remaining time as "{h}h {m}m"
func (m *Manager) FormattedRemaining() (string, error) {
	remaining, err := m.Remaining()
	if err != nil {
		return "", err
	}
	h := int(remaining.Hours())
	mins := int(remaining.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, mins), nil
}

// Summary is a point-in-time view of the run bound
type Summary struct {
	MaxDuration     time.Duration
	Elapsed         time.Duration
	Remaining       time.Duration
	Exceeded        bool
	PercentComplete float64
}

// Summary returns the current timing summary, or ErrNotStarted
func (m *Manager) Summary() (Summary, error) {
	elapsed, err := m.Elapsed()
	if err != nil {
		return Summary{}, err
	}
	remaining := m.maxDuration - elapsed
	if remaining < 0 {
		remaining = 0
	}
	percent := 100 * float64(elapsed) / float64(m.maxDuration)
	if percent > 100 {
		percent = 100
	}
	return Summary{
		MaxDuration:     m.maxDuration,
		Elapsed:         elapsed,
		Remaining:       remaining,
		Exceeded:        elapsed >= m.maxDuration,
		PercentComplete: percent,
	}, nil
}
