package syncstore

import (
	"database/sql"
	"errors"
	"time"

	"github.com/fedstats/fedsync/internal/domain"
)

// ErrNoCheckpoint is returned when a flag write targets a scope that has
// no checkpoint row to carry it.
var ErrNoCheckpoint = errors.New("no checkpoint for scope")

// SaveCheckpoint upserts the checkpoint for its scope. Called after every
// batch, so it is a single last-write-wins statement.
func (s *Store) SaveCheckpoint(cp *domain.Checkpoint) error {
	_, err := s.db.Exec(`
		INSERT INTO checkpoints (scope, phase, batch, progress, is_paused, cancel_requested, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scope) DO UPDATE SET
			phase = excluded.phase,
			batch = excluded.batch,
			progress = excluded.progress,
			is_paused = excluded.is_paused,
			cancel_requested = excluded.cancel_requested,
			updated_at = excluded.updated_at
	`,
		cp.Scope,
		string(cp.Phase),
		cp.Batch,
		cp.Progress,
		cp.IsPaused,
		cp.CancelRequested,
		time.Now(),
	)
	return err
}

// LoadCheckpoint returns the checkpoint for a scope, or nil when none exists
func (s *Store) LoadCheckpoint(scope string) (*domain.Checkpoint, error) {
	row := s.db.QueryRow(`
		SELECT scope, phase, batch, progress, is_paused, cancel_requested, updated_at
		FROM checkpoints WHERE scope = ?
	`, scope)

	var cp domain.Checkpoint
	var phase string
	err := row.Scan(&cp.Scope, &phase, &cp.Batch, &cp.Progress, &cp.IsPaused, &cp.CancelRequested, &cp.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cp.Phase = domain.Phase(phase)
	return &cp, nil
}

// ClearCheckpoint deletes the checkpoint for a scope. Not an error if absent.
func (s *Store) ClearCheckpoint(scope string) error {
	_, err := s.db.Exec(`DELETE FROM checkpoints WHERE scope = ?`, scope)
	return err
}

// IsPaused is the fast poll path for the pause flag, independent of a
// full checkpoint load.
func (s *Store) IsPaused(scope string) (bool, error) {
	return s.checkpointFlag(scope, "is_paused")
}

// IsCancelRequested is the fast poll path for the cancel flag
func (s *Store) IsCancelRequested(scope string) (bool, error) {
	return s.checkpointFlag(scope, "cancel_requested")
}

func (s *Store) checkpointFlag(scope, column string) (bool, error) {
	var flag bool
	err := s.db.QueryRow(`SELECT `+column+` FROM checkpoints WHERE scope = ?`, scope).Scan(&flag)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return flag, nil
}

// SetPaused durably records pause intent for a scope. When no checkpoint
// exists yet, a fresh one at phase 1 batch 0 is created so the intent
// survives a process restart.
func (s *Store) SetPaused(scope string, paused bool) error {
	n, err := s.updateCheckpointFlag(scope, "is_paused", paused)
	if err != nil {
		return err
	}
	if n == 0 {
		return s.SaveCheckpoint(&domain.Checkpoint{
			Scope:    scope,
			Phase:    domain.PhaseOrder[0],
			IsPaused: paused,
		})
	}
	return nil
}

// SetCancelRequested durably records cancel intent for a scope. Unlike
// pause, cancel only ever targets work that already has a checkpoint;
// requesting it with none returns ErrNoCheckpoint so a stray cancel cannot
// kill the next run before it starts.
func (s *Store) SetCancelRequested(scope string, cancel bool) error {
	n, err := s.updateCheckpointFlag(scope, "cancel_requested", cancel)
	if err != nil {
		return err
	}
	if n == 0 && cancel {
		return ErrNoCheckpoint
	}
	return nil
}

func (s *Store) updateCheckpointFlag(scope, column string, value bool) (int64, error) {
	res, err := s.db.Exec(`UPDATE checkpoints SET `+column+` = ?, updated_at = ? WHERE scope = ?`,
		value, time.Now(), scope)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
