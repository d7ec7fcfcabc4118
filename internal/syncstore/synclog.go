package syncstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fedstats/fedsync/internal/domain"
	"github.com/google/uuid"
)

// CreateSyncLog inserts the sync-log entry for a new run and returns it
func (s *Store) CreateSyncLog(runType domain.RunType) (*domain.SyncRun, error) {
	run := &domain.SyncRun{
		ID:        uuid.NewString(),
		Type:      runType,
		Status:    domain.StatusRunning,
		StartedAt: time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO sync_logs (id, type, status, started_at, records_processed)
		VALUES (?, ?, ?, ?, 0)
	`, run.ID, string(run.Type), string(run.Status), run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("creating sync log: %w", err)
	}
	return run, nil
}

// UpdateSyncLog updates a run's mutable fields at phase/batch boundaries
func (s *Store) UpdateSyncLog(run *domain.SyncRun) error {
	var errorsJSON, integrityJSON interface{}
	if run.Errors != nil {
		data, err := json.Marshal(run.Errors)
		if err != nil {
			return err
		}
		errorsJSON = string(data)
	}
	if run.Integrity != nil {
		data, err := json.Marshal(run.Integrity)
		if err != nil {
			return err
		}
		integrityJSON = string(data)
	}

	_, err := s.db.Exec(`
		UPDATE sync_logs
		SET status = ?, finished_at = ?, records_processed = ?, errors = ?, integrity = ?
		WHERE id = ?
	`, string(run.Status), run.FinishedAt, run.RecordsProcessed, errorsJSON, integrityJSON, run.ID)
	return err
}

// GetSyncLog retrieves a run by id
func (s *Store) GetSyncLog(id string) (*domain.SyncRun, error) {
	row := s.db.QueryRow(`
		SELECT id, type, status, started_at, finished_at, records_processed, errors, integrity
		FROM sync_logs WHERE id = ?
	`, id)
	return scanSyncLog(row)
}

// LastSyncLog returns the most recently started run, or nil when none exist
func (s *Store) LastSyncLog() (*domain.SyncRun, error) {
	row := s.db.QueryRow(`
		SELECT id, type, status, started_at, finished_at, records_processed, errors, integrity
		FROM sync_logs ORDER BY started_at DESC LIMIT 1
	`)
	run, err := scanSyncLog(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

func scanSyncLog(row *sql.Row) (*domain.SyncRun, error) {
	var run domain.SyncRun
	var runType, status string
	var finishedAt sql.NullTime
	var errorsJSON, integrityJSON sql.NullString

	err := row.Scan(&run.ID, &runType, &status, &run.StartedAt, &finishedAt, &run.RecordsProcessed, &errorsJSON, &integrityJSON)
	if err != nil {
		return nil, err
	}

	run.Type = domain.RunType(runType)
	run.Status = domain.RunStatus(status)
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	if errorsJSON.Valid && errorsJSON.String != "" {
		var summary domain.ErrorSummary
		if err := json.Unmarshal([]byte(errorsJSON.String), &summary); err != nil {
			return nil, err
		}
		run.Errors = &summary
	}
	if integrityJSON.Valid && integrityJSON.String != "" {
		var report domain.IntegrityReport
		if err := json.Unmarshal([]byte(integrityJSON.String), &report); err != nil {
			return nil, err
		}
		run.Integrity = &report
	}

	return &run, nil
}
