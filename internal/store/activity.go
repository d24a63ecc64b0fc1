package store

import (
	"fmt"

	"m365audit/internal/logging"
)

// UserActivity is one user's sign-in record. LastSignIn is nil when the user
// has never signed in (or the tenant does not expose sign-in activity).
type UserActivity struct {
	UPN        string
	LastSignIn *string
}

// UserLicense is one license assignment observed on a user.
type UserLicense struct {
	UPN   string
	SKUID string
}

// Collection phases recorded in checkpoints and progress rows.
const (
	PhaseUserActivity = "user_activity"
	PhaseUserLicenses = "user_licenses"
	PhaseSKUs         = "skus"
)

// StoreUserActivityBatch writes one fetched page of users and records a
// single checkpoint, in the same transaction, so an interrupted run can
// resume from this point. nextLink is the paging link for the following
// page, empty on the last one. Writes use INSERT OR REPLACE keyed on
// (run, upn), so replaying a page on resume is harmless. total may be -1
// while the overall user count is still unknown.
func (s *Store) StoreUserActivityBatch(runID int64, users []UserActivity, batchStart, total int, nextLink string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO user_activity (
			collection_run_id, user_principal_name, last_sign_in_date
		) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare activity insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range users {
		if _, err := stmt.Exec(runID, u.UPN, u.LastSignIn); err != nil {
			return fmt.Errorf("failed to insert activity for %s: %w", u.UPN, err)
		}
	}

	progress := batchStart + len(users)
	details := map[string]interface{}{
		"batch_start": batchStart,
		"batch_size":  len(users),
		"next_link":   nextLink,
	}
	if len(users) > 0 {
		details["last_user"] = users[len(users)-1].UPN
	}
	if err := createCheckpointTx(tx, runID, PhaseUserActivity, progress, total, details); err != nil {
		return err
	}
	msg := fmt.Sprintf("Stored users %d-%d", batchStart, progress)
	if err := updateProgressTx(tx, runID, PhaseUserActivity, progress, total, msg); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit activity batch: %w", err)
	}
	logging.StoreDebug("Stored activity batch run=%d start=%d n=%d", runID, batchStart, len(users))
	return nil
}

// StoreUserLicensesBatch writes a batch of per-user license assignments with
// a checkpoint. progress counts users processed so far (not assignment rows:
// a user can hold several licenses or none). INSERT OR IGNORE keeps resume
// idempotent under the (run, upn, sku) uniqueness constraint.
func (s *Store) StoreUserLicensesBatch(runID int64, assignments []UserLicense, progress, total int, lastUser string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO user_licenses (
			collection_run_id, user_principal_name, sku_id
		) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare assignment insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range assignments {
		if _, err := stmt.Exec(runID, a.UPN, a.SKUID); err != nil {
			return fmt.Errorf("failed to insert assignment %s/%s: %w", a.UPN, a.SKUID, err)
		}
	}

	details := map[string]interface{}{"assignments": len(assignments)}
	if lastUser != "" {
		details["last_user"] = lastUser
	}
	if err := createCheckpointTx(tx, runID, PhaseUserLicenses, progress, total, details); err != nil {
		return err
	}
	msg := fmt.Sprintf("Processed %d/%d users", progress, total)
	if err := updateProgressTx(tx, runID, PhaseUserLicenses, progress, total, msg); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit assignment batch: %w", err)
	}
	logging.StoreDebug("Stored %d assignments run=%d progress=%d", len(assignments), runID, progress)
	return nil
}

// UsersForRun returns all user activity rows for a run, ordered by UPN.
func (s *Store) UsersForRun(runID int64) ([]UserActivity, error) {
	rows, err := s.db.Query(`
		SELECT user_principal_name, last_sign_in_date
		FROM user_activity
		WHERE collection_run_id = ?
		ORDER BY user_principal_name`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user activity: %w", err)
	}
	defer rows.Close()

	var users []UserActivity
	for rows.Next() {
		var u UserActivity
		if err := rows.Scan(&u.UPN, &u.LastSignIn); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsersForRun returns the number of user activity rows stored for a run.
func (s *Store) CountUsersForRun(runID int64) (int, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM user_activity WHERE collection_run_id = ?", runID,
	).Scan(&n)
	return n, err
}
