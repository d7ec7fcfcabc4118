package syncstore

import (
	"database/sql"
	"time"

	"github.com/fedstats/fedsync/internal/domain"
	"github.com/google/uuid"
)

const systemUserName = "system-sync"

// UpsertStatus writes the sync status singleton row. Status polling reads
// this row, so it must always reflect durable state.
func (s *Store) UpsertStatus(snap *domain.StatusSnapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_status (id, is_running, status, progress, processed_records, total_records,
			current_operation, last_error, valid_records, invalid_records, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			is_running = excluded.is_running,
			status = excluded.status,
			progress = excluded.progress,
			processed_records = excluded.processed_records,
			total_records = excluded.total_records,
			current_operation = excluded.current_operation,
			last_error = excluded.last_error,
			valid_records = excluded.valid_records,
			invalid_records = excluded.invalid_records,
			updated_at = excluded.updated_at
	`,
		snap.IsRunning,
		string(snap.Status),
		snap.Progress,
		snap.ProcessedRecords,
		snap.TotalRecords,
		snap.CurrentOperation,
		snap.LastError,
		snap.Validation.ValidRecords,
		snap.Validation.InvalidRecords,
		time.Now(),
	)
	return err
}

// GetStatus returns the sync status singleton. A fresh store reports an
// idle pending snapshot rather than an error.
func (s *Store) GetStatus() (*domain.StatusSnapshot, error) {
	row := s.db.QueryRow(`
		SELECT is_running, status, progress, processed_records, total_records,
			current_operation, last_error, valid_records, invalid_records
		FROM sync_status WHERE id = 1
	`)

	var snap domain.StatusSnapshot
	var status string
	var currentOp, lastError sql.NullString
	err := row.Scan(&snap.IsRunning, &status, &snap.Progress, &snap.ProcessedRecords,
		&snap.TotalRecords, &currentOp, &lastError,
		&snap.Validation.ValidRecords, &snap.Validation.InvalidRecords)
	if err == sql.ErrNoRows {
		return &domain.StatusSnapshot{Status: domain.StatusPending}, nil
	}
	if err != nil {
		return nil, err
	}

	snap.Status = domain.RunStatus(status)
	if currentOp.Valid {
		snap.CurrentOperation = currentOp.String
	}
	if lastError.Valid {
		snap.LastError = lastError.String
	}

	total := snap.Validation.ValidRecords + snap.Validation.InvalidRecords
	if total > 0 {
		snap.Validation.ValidationRate = 100 * float64(snap.Validation.ValidRecords) / float64(total)
	}

	return &snap, nil
}

// EnsureSystemUser returns the id of the system-attributed user that owns
// records created by automated sync, creating it on first use.
func (s *Store) EnsureSystemUser() (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM users WHERE name = ?`, systemUserName).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	id = uuid.NewString()
	_, err = s.db.Exec(`INSERT INTO users (id, name, is_system) VALUES (?, ?, TRUE)`, id, systemUserName)
	if err != nil {
		return "", err
	}
	return id, nil
}
