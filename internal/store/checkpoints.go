package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"m365audit/internal/logging"
)

// ErrNoCheckpoint is returned when a run has no checkpoints to resume from.
var ErrNoCheckpoint = errors.New("no checkpoint found")

// Checkpoint is a persisted marker of collection progress.
type Checkpoint struct {
	Timestamp string
	Phase     string
	Progress  int
	Total     int
	Details   map[string]interface{}
}

// ProgressEntry is the latest progress report for a run.
type ProgressEntry struct {
	Phase      string
	Progress   int
	Total      int
	Percentage float64
	Message    string
}

// RetryEntry is one logged retry attempt.
type RetryEntry struct {
	Timestamp string
	Endpoint  string
	Attempt   int
	Delay     float64
	Reason    string
}

// CreateCheckpoint records a checkpoint for a run.
func (s *Store) CreateCheckpoint(runID int64, phase string, progress, total int, details map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := createCheckpointTx(tx, runID, phase, progress, total, details); err != nil {
		return err
	}
	return tx.Commit()
}

func createCheckpointTx(tx *sql.Tx, runID int64, phase string, progress, total int, details map[string]interface{}) error {
	var detailsJSON interface{}
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to marshal checkpoint details: %w", err)
		}
		detailsJSON = string(data)
	}

	_, err := tx.Exec(`
		INSERT INTO collection_checkpoints (collection_run_id, phase, progress, total, details)
		VALUES (?, ?, ?, ?, ?)`,
		runID, phase, progress, total, detailsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	return nil
}

// LatestCheckpoint returns the most recent checkpoint for a run, or
// ErrNoCheckpoint when the run has none.
func (s *Store) LatestCheckpoint(runID int64) (*Checkpoint, error) {
	row := s.db.QueryRow(`
		SELECT timestamp, phase, progress, total, COALESCE(details, '')
		FROM collection_checkpoints
		WHERE collection_run_id = ?
		ORDER BY id DESC
		LIMIT 1`, runID)

	var cp Checkpoint
	var detailsRaw string
	err := row.Scan(&cp.Timestamp, &cp.Phase, &cp.Progress, &cp.Total, &detailsRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoCheckpoint
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	if detailsRaw != "" {
		if err := json.Unmarshal([]byte(detailsRaw), &cp.Details); err != nil {
			logging.StoreDebug("Unparseable checkpoint details for run %d: %v", runID, err)
		}
	}
	return &cp, nil
}

// RecentCheckpoints returns up to limit checkpoints for a run, newest first.
func (s *Store) RecentCheckpoints(runID int64, limit int) ([]Checkpoint, error) {
	rows, err := s.db.Query(`
		SELECT timestamp, phase, progress, total, COALESCE(details, '')
		FROM collection_checkpoints
		WHERE collection_run_id = ?
		ORDER BY id DESC
		LIMIT ?`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	defer rows.Close()

	var cps []Checkpoint
	for rows.Next() {
		var cp Checkpoint
		var detailsRaw string
		if err := rows.Scan(&cp.Timestamp, &cp.Phase, &cp.Progress, &cp.Total, &detailsRaw); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		if detailsRaw != "" {
			_ = json.Unmarshal([]byte(detailsRaw), &cp.Details)
		}
		cps = append(cps, cp)
	}
	return cps, rows.Err()
}

// CanResume reports whether a run has a checkpoint to resume from.
func (s *Store) CanResume(runID int64) (bool, error) {
	_, err := s.LatestCheckpoint(runID)
	if errors.Is(err, ErrNoCheckpoint) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateProgress records a progress report for a run.
func (s *Store) UpdateProgress(runID int64, phase string, progress, total int, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateProgressTx(tx, runID, phase, progress, total, message); err != nil {
		return err
	}
	return tx.Commit()
}

func updateProgressTx(tx *sql.Tx, runID int64, phase string, progress, total int, message string) error {
	_, err := tx.Exec(`
		INSERT INTO collection_progress (collection_run_id, phase, progress, total, message)
		VALUES (?, ?, ?, ?, ?)`,
		runID, phase, progress, total, message,
	)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return nil
}

// CollectionStatus returns the latest progress entry for a run. Percentage is
// 0 when the total is still unknown (total <= 0).
func (s *Store) CollectionStatus(runID int64) (*ProgressEntry, error) {
	row := s.db.QueryRow(`
		SELECT phase, progress, total, COALESCE(message, '')
		FROM collection_progress
		WHERE collection_run_id = ?
		ORDER BY id DESC
		LIMIT 1`, runID)

	var p ProgressEntry
	err := row.Scan(&p.Phase, &p.Progress, &p.Total, &p.Message)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoCheckpoint
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read progress: %w", err)
	}
	if p.Total > 0 {
		p.Percentage = float64(p.Progress) / float64(p.Total) * 100
	}
	return &p, nil
}

// LogRetry appends a retry attempt to the retry log.
func (s *Store) LogRetry(runID int64, endpoint string, attempt int, delay float64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO retry_log (collection_run_id, endpoint, attempt, delay, reason)
		VALUES (?, ?, ?, ?, ?)`,
		runID, endpoint, attempt, delay, reason,
	)
	if err != nil {
		return fmt.Errorf("failed to log retry: %w", err)
	}
	logging.Store("Retry logged: run=%d endpoint=%s attempt=%d delay=%.1fs", runID, endpoint, attempt, delay)
	return nil
}

// RetryStats returns the total retry count and up to limit recent entries
// for a run, newest first.
func (s *Store) RetryStats(runID int64, limit int) (total int, recent []RetryEntry, err error) {
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM retry_log WHERE collection_run_id = ?", runID,
	).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("failed to count retries: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT timestamp, endpoint, attempt, delay, COALESCE(reason, '')
		FROM retry_log
		WHERE collection_run_id = ?
		ORDER BY id DESC
		LIMIT ?`, runID, limit)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to query retries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r RetryEntry
		if err := rows.Scan(&r.Timestamp, &r.Endpoint, &r.Attempt, &r.Delay, &r.Reason); err != nil {
			return 0, nil, fmt.Errorf("failed to scan retry: %w", err)
		}
		recent = append(recent, r)
	}
	return total, recent, rows.Err()
}
