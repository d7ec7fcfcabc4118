package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fedstats/fedsync/internal/domain"
)

func TestSlackNotifier_SendsRunFields(t *testing.T) {
	var got SlackMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	err := notifier.Send(Notification{
		Title:   "Import completed_with_errors",
		Message: "12,480 records imported, 2 error(s)",
		Type:    NotifyWarning,
		RunID:   "abc-123",
		Records: 12480,
		Errors:  2,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(got.Attachments))
	}
	att := got.Attachments[0]
	if att.Color != "warning" {
		t.Errorf("Color = %q, want warning", att.Color)
	}

	fields := map[string]string{}
	for _, f := range att.Fields {
		fields[f.Title] = f.Value
	}
	if fields["Run"] != "abc-123" {
		t.Errorf("Run field = %q, want abc-123", fields["Run"])
	}
	if fields["Records"] != "12,480" {
		t.Errorf("Records field = %q, want 12,480", fields["Records"])
	}
	if fields["Errors"] != "2" {
		t.Errorf("Errors field = %q, want 2", fields["Errors"])
	}
}

func TestSlackNotifier_Send(t *testing.T) {
	// Mock Slack server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	err := notifier.Send(Notification{
		Title:   "Test",
		Message: "Test message",
		Type:    NotifyInfo,
	})

	if err != nil {
		t.Errorf("Send failed: %v", err)
	}
}

func TestNotificationTypeColors(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want string
	}{
		{NotifySuccess, "good"},
		{NotifyWarning, "warning"},
		{NotifyError, "danger"},
		{NotifyInfo, "#439FE0"},
	}

	for _, tt := range tests {
		got := SlackColor(tt.typ)
		if got != tt.want {
			t.Errorf("SlackColor(%v) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestMultiNotifier(t *testing.T) {
	var called []string

	mock1 := &mockNotifier{name: "mock1", calls: &called}
	mock2 := &mockNotifier{name: "mock2", calls: &called}

	multi := NewMultiNotifier(mock1, mock2)
	multi.Send(Notification{Title: "Test"})

	if len(called) != 2 {
		t.Errorf("Expected 2 calls, got %d", len(called))
	}
}

func TestForRun(t *testing.T) {
	tests := []struct {
		status   domain.RunStatus
		errors   int
		wantType NotificationType
		wantIn   string
	}{
		{domain.StatusCompleted, 0, NotifySuccess, "records imported"},
		{domain.StatusCompletedWithErrors, 3, NotifyWarning, "3 error(s)"},
		{domain.StatusCancelled, 0, NotifyInfo, "stopped after"},
		{domain.StatusFailed, 0, NotifyError, "failed"},
	}

	for _, tt := range tests {
		run := &domain.SyncRun{
			ID:               "run-1",
			Status:           tt.status,
			RecordsProcessed: 1500,
			Errors:           &domain.ErrorSummary{TotalErrors: tt.errors},
		}
		n := ForRun(run)
		if n.Type != tt.wantType {
			t.Errorf("ForRun(%s).Type = %v, want %v", tt.status, n.Type, tt.wantType)
		}
		if !strings.Contains(n.Message, tt.wantIn) {
			t.Errorf("ForRun(%s).Message = %q, want substring %q", tt.status, n.Message, tt.wantIn)
		}
		if n.RunID != "run-1" {
			t.Errorf("ForRun(%s).RunID = %q, want run-1", tt.status, n.RunID)
		}
		if n.Records != 1500 || n.Errors != tt.errors {
			t.Errorf("ForRun(%s) counters = %d/%d, want 1500/%d", tt.status, n.Records, n.Errors, tt.errors)
		}
	}
}

func TestUrgencyForType(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want string
	}{
		{NotifyError, "critical"},
		{NotifyInfo, "low"},
		{NotifySuccess, "normal"},
		{NotifyWarning, "normal"},
	}
	for _, tt := range tests {
		if got := urgencyForType(tt.typ); got != tt.want {
			t.Errorf("urgencyForType(%v) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

type mockNotifier struct {
	name  string
	calls *[]string
}

func (m *mockNotifier) Send(n Notification) error {
	*m.calls = append(*m.calls, m.name)
	return nil
}
