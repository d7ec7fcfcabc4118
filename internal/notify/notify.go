package notify

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/fedstats/fedsync/internal/domain"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	RunID   string // Optional sync-run reference
	Records int    // Records processed by the run, when known
	Errors  int    // Errors logged by the run, when known
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }

// ForRun builds the notification for a finished import run
func ForRun(run *domain.SyncRun) Notification {
	n := Notification{
		Title:   fmt.Sprintf("Import %s", run.Status),
		RunID:   run.ID,
		Records: run.RecordsProcessed,
	}
	if run.Errors != nil {
		n.Errors = run.Errors.TotalErrors
	}

	records := humanize.Comma(int64(run.RecordsProcessed))
	switch run.Status {
	case domain.StatusCompleted:
		n.Type = NotifySuccess
		n.Message = fmt.Sprintf("%s records imported", records)
	case domain.StatusCompletedWithErrors:
		n.Type = NotifyWarning
		n.Message = fmt.Sprintf("%s records imported, %d error(s)", records, n.Errors)
	case domain.StatusCancelled, domain.StatusPaused:
		n.Type = NotifyInfo
		n.Message = fmt.Sprintf("stopped after %s records", records)
	default:
		n.Type = NotifyError
		n.Message = fmt.Sprintf("run ended as %s after %s records", run.Status, records)
	}

	return n
}
