package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"m365audit/internal/logging"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// ErrNoRuns is returned when no collection run exists in the database.
var ErrNoRuns = errors.New("no collection runs found")

// CollectionRun describes one row of collection_runs.
type CollectionRun struct {
	ID               int64
	Token            string
	Timestamp        string
	Status           string
	ErrorMessage     string
	RecordsCollected int64
}

// StartRun inserts a new collection run in the running state and returns
// its id.
func (s *Store) StartRun() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := uuid.NewString()
	res, err := s.db.Exec(
		"INSERT INTO collection_runs (run_token, status) VALUES (?, ?)",
		token, RunRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to start collection run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}
	logging.Store("Started collection run %d (%s)", id, token)
	return id, nil
}

// CompleteRun marks a collection run as completed or failed. records is only
// recorded on success; errMsg only on failure.
func (s *Store) CompleteRun(runID int64, success bool, records int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := RunCompleted
	var recordsVal, errVal interface{}
	if success {
		recordsVal = records
	} else {
		status = RunFailed
		errVal = errMsg
	}

	_, err := s.db.Exec(`
		UPDATE collection_runs
		SET status = ?, error_message = ?, records_collected = ?
		WHERE id = ?`,
		status, errVal, recordsVal, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete collection run %d: %w", runID, err)
	}
	logging.Store("Collection run %d marked %s", runID, status)
	return nil
}

// GetRun returns a single collection run by id.
func (s *Store) GetRun(runID int64) (*CollectionRun, error) {
	row := s.db.QueryRow(`
		SELECT id, COALESCE(run_token, ''), timestamp, status,
		       COALESCE(error_message, ''), COALESCE(records_collected, 0)
		FROM collection_runs WHERE id = ?`, runID)
	return scanRun(row)
}

// LatestReportableRun returns the run the dashboard should report on: the
// most recent completed run, or failing that the most recent running/failed
// run (complete=false signals partial data). ErrNoRuns when the table is
// empty.
func (s *Store) LatestReportableRun() (run *CollectionRun, complete bool, err error) {
	row := s.db.QueryRow(`
		SELECT id, COALESCE(run_token, ''), timestamp, status,
		       COALESCE(error_message, ''), COALESCE(records_collected, 0)
		FROM collection_runs
		WHERE status = 'completed'
		ORDER BY timestamp DESC, id DESC
		LIMIT 1`)
	run, err = scanRun(row)
	if err == nil {
		return run, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	row = s.db.QueryRow(`
		SELECT id, COALESCE(run_token, ''), timestamp, status,
		       COALESCE(error_message, ''), COALESCE(records_collected, 0)
		FROM collection_runs
		WHERE status IN ('running', 'failed')
		ORDER BY timestamp DESC, id DESC
		LIMIT 1`)
	run, err = scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, ErrNoRuns
	}
	if err != nil {
		return nil, false, err
	}
	return run, false, nil
}

// LatestResumableRun returns the most recent running or failed run, for
// collect --resume. ErrNoRuns when none exists.
func (s *Store) LatestResumableRun() (*CollectionRun, error) {
	row := s.db.QueryRow(`
		SELECT id, COALESCE(run_token, ''), timestamp, status,
		       COALESCE(error_message, ''), COALESCE(records_collected, 0)
		FROM collection_runs
		WHERE status IN ('running', 'failed')
		ORDER BY timestamp DESC, id DESC
		LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	return run, err
}

func scanRun(row *sql.Row) (*CollectionRun, error) {
	var r CollectionRun
	err := row.Scan(&r.ID, &r.Token, &r.Timestamp, &r.Status, &r.ErrorMessage, &r.RecordsCollected)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
