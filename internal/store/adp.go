package store

import (
	"fmt"
	"time"

	"m365audit/internal/logging"
)

// Employee is one imported ADP roster record.
type Employee struct {
	LegalName          string
	PreferredFirstName string
	PreferredLastName  string
	PositionID         string
	HireDate           string
	JobTitle           string
	PositionStartDate  string
	PositionStatus     string
	Location           string
	WorkEmail          string
}

// OrphanedAccount is an M365 account that could not be matched to the
// ADP roster, with the monthly cost of the licenses it holds.
type OrphanedAccount struct {
	UPN         string   `json:"upn"`
	Licenses    []string `json:"licenses"`
	MonthlyCost float64  `json:"monthly_cost"`
}

// TerminatedLicensee is a non-active ADP employee still holding licenses.
type TerminatedLicensee struct {
	WorkEmail      string   `json:"work_email"`
	LegalName      string   `json:"legal_name"`
	PositionStatus string   `json:"position_status"`
	Licenses       []string `json:"licenses"`
	MonthlyCost    float64  `json:"monthly_cost"`
}

// InactiveEmployee is an active ADP employee with no recent M365 sign-in.
type InactiveEmployee struct {
	WorkEmail      string  `json:"work_email"`
	LegalName      string  `json:"legal_name"`
	JobTitle       string  `json:"job_title"`
	PositionStatus string  `json:"position_status"`
	Location       string  `json:"location"`
	LastSignIn     *string `json:"last_sign_in_date"`
}

// ADPSummary describes the imported roster and its overlap with M365.
type ADPSummary struct {
	TotalEmployees  int    `json:"total_employees"`
	ActiveEmployees int    `json:"active_employees"`
	MatchedAccounts int    `json:"matched_accounts"`
	ImportTimestamp string `json:"import_timestamp"`
}

// ReplaceEmployees discards the previous ADP import and writes the given
// roster with a single shared import timestamp. Returns the row count.
func (s *Store) ReplaceEmployees(employees []Employee) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryADP, "ReplaceEmployees")
	defer timer.Stop()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM adp_employees"); err != nil {
		return 0, fmt.Errorf("failed to clear ADP employees: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO adp_employees (
			import_timestamp, legal_name, preferred_first_name, preferred_last_name,
			position_id, hire_date, job_title, position_start_date,
			position_status, location, work_email
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare employee insert: %w", err)
	}
	defer stmt.Close()

	imported := time.Now().UTC().Format("2006-01-02 15:04:05")
	for _, e := range employees {
		if _, err := stmt.Exec(
			imported, e.LegalName, e.PreferredFirstName, e.PreferredLastName,
			e.PositionID, e.HireDate, e.JobTitle, e.PositionStartDate,
			e.PositionStatus, e.Location, e.WorkEmail,
		); err != nil {
			return 0, fmt.Errorf("failed to insert employee %s: %w", e.WorkEmail, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit ADP import: %w", err)
	}
	logging.ADP("Imported %d ADP employees", len(employees))
	return len(employees), nil
}

// EmployeeCount returns the number of imported ADP records.
func (s *Store) EmployeeCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM adp_employees").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	return n, nil
}

// AccountsNotInADP returns licensed M365 accounts from the run whose UPN
// matches no ADP work email. Matching is case-insensitive.
func (s *Store) AccountsNotInADP(runID int64) ([]OrphanedAccount, error) {
	rows, err := s.db.Query(`
		SELECT ul.user_principal_name,
		       COALESCE(GROUP_CONCAT(COALESCE(p.sku_name, ul.sku_id), ', '), ''),
		       COALESCE(SUM(p.monthly_cost), 0)
		FROM user_licenses ul
		LEFT JOIN price_lookup p ON ul.sku_id = p.sku_id
		WHERE ul.collection_run_id = ?
		  AND NOT EXISTS (
			SELECT 1 FROM adp_employees a
			WHERE LOWER(a.work_email) = LOWER(ul.user_principal_name)
		  )
		GROUP BY ul.user_principal_name
		ORDER BY SUM(p.monthly_cost) DESC, ul.user_principal_name`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orphaned accounts: %w", err)
	}
	defer rows.Close()

	var accounts []OrphanedAccount
	for rows.Next() {
		var a OrphanedAccount
		var licenseList string
		if err := rows.Scan(&a.UPN, &licenseList, &a.MonthlyCost); err != nil {
			return nil, fmt.Errorf("failed to scan orphaned account: %w", err)
		}
		a.Licenses = splitLicenseList(licenseList)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// TerminatedWithLicenses returns ADP employees whose position status is not
// Active but whose work email still holds licenses in the run.
func (s *Store) TerminatedWithLicenses(runID int64) ([]TerminatedLicensee, error) {
	rows, err := s.db.Query(`
		SELECT a.work_email,
		       COALESCE(a.legal_name, ''),
		       COALESCE(a.position_status, ''),
		       COALESCE(GROUP_CONCAT(COALESCE(p.sku_name, ul.sku_id), ', '), ''),
		       COALESCE(SUM(p.monthly_cost), 0)
		FROM adp_employees a
		JOIN user_licenses ul
		  ON ul.collection_run_id = ?
		 AND LOWER(ul.user_principal_name) = LOWER(a.work_email)
		LEFT JOIN price_lookup p ON ul.sku_id = p.sku_id
		WHERE LOWER(COALESCE(a.position_status, '')) != 'active'
		GROUP BY a.work_email, a.legal_name, a.position_status
		ORDER BY SUM(p.monthly_cost) DESC, a.work_email`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query terminated licensees: %w", err)
	}
	defer rows.Close()

	var out []TerminatedLicensee
	for rows.Next() {
		var t TerminatedLicensee
		var licenseList string
		if err := rows.Scan(&t.WorkEmail, &t.LegalName, &t.PositionStatus, &licenseList, &t.MonthlyCost); err != nil {
			return nil, fmt.Errorf("failed to scan terminated licensee: %w", err)
		}
		t.Licenses = splitLicenseList(licenseList)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ActiveEmployeesInactiveInM365 returns active ADP employees whose M365
// account has not signed in within the given number of days, or never.
func (s *Store) ActiveEmployeesInactiveInM365(runID int64, days int) ([]InactiveEmployee, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02T15:04:05Z")
	rows, err := s.db.Query(`
		SELECT a.work_email,
		       COALESCE(a.legal_name, ''),
		       COALESCE(a.job_title, ''),
		       COALESCE(a.position_status, ''),
		       COALESCE(a.location, ''),
		       ua.last_sign_in_date
		FROM adp_employees a
		LEFT JOIN user_activity ua
		  ON ua.collection_run_id = ?
		 AND LOWER(ua.user_principal_name) = LOWER(a.work_email)
		WHERE LOWER(COALESCE(a.position_status, '')) = 'active'
		  AND (ua.last_sign_in_date IS NULL OR ua.last_sign_in_date < ?)
		ORDER BY a.legal_name`, runID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query inactive employees: %w", err)
	}
	defer rows.Close()

	var out []InactiveEmployee
	for rows.Next() {
		var e InactiveEmployee
		if err := rows.Scan(&e.WorkEmail, &e.LegalName, &e.JobTitle, &e.PositionStatus, &e.Location, &e.LastSignIn); err != nil {
			return nil, fmt.Errorf("failed to scan inactive employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CrossReferenceSummary summarizes the ADP roster against the run's users.
func (s *Store) CrossReferenceSummary(runID int64) (*ADPSummary, error) {
	var sum ADPSummary
	if err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN LOWER(COALESCE(position_status, '')) = 'active' THEN 1 ELSE 0 END), 0),
		       COALESCE(MAX(import_timestamp), '')
		FROM adp_employees`).Scan(&sum.TotalEmployees, &sum.ActiveEmployees, &sum.ImportTimestamp); err != nil {
		return nil, fmt.Errorf("failed to summarize ADP roster: %w", err)
	}

	if err := s.db.QueryRow(`
		SELECT COUNT(DISTINCT ua.user_principal_name)
		FROM user_activity ua
		JOIN adp_employees a ON LOWER(a.work_email) = LOWER(ua.user_principal_name)
		WHERE ua.collection_run_id = ?`, runID).Scan(&sum.MatchedAccounts); err != nil {
		return nil, fmt.Errorf("failed to count matched accounts: %w", err)
	}
	return &sum, nil
}
