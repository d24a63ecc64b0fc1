package store

import (
	"fmt"
	"strings"

	"m365audit/internal/logging"
)

// SKUCost is one license SKU with pricing and utilization applied.
type SKUCost struct {
	SKUName        string  `json:"sku_name"`
	Total          int     `json:"total"`
	Assigned       int     `json:"assigned"`
	Available      int     `json:"available"`
	MonthlyCost    float64 `json:"monthly_cost"`
	TotalCost      float64 `json:"total_cost"`
	WastedCost     float64 `json:"wasted_cost"`
	UtilizationPct float64 `json:"utilization_pct"`
}

// CostSummary aggregates spend across all SKUs for a run.
type CostSummary struct {
	MonthlySpend   float64 `json:"monthly_spend"`
	AnnualSpend    float64 `json:"annual_spend"`
	WastedMonthly  float64 `json:"wasted_monthly"`
	TotalLicenses  int     `json:"total_licenses"`
	AssignedTotal  int     `json:"assigned_total"`
	AvailableTotal int     `json:"available_total"`
	UnpricedSKUs   int     `json:"unpriced_skus"`
}

// InactiveUser is a licensed user with no recent sign-in activity.
type InactiveUser struct {
	UPN          string   `json:"upn"`
	LastSignIn   string   `json:"last_sign_in"`
	DaysInactive int      `json:"days_inactive"`
	Licenses     []string `json:"licenses"`
	MonthlyCost  float64  `json:"monthly_cost"`
}

// InactivitySummary counts users by sign-in recency for a run.
type InactivitySummary struct {
	TotalUsers    int `json:"total_users"`
	ActiveUsers   int `json:"active_users"`
	InactiveUsers int `json:"inactive_users"`
	NeverSignedIn int `json:"never_signed_in"`
}

// daysInactiveNever marks users with no recorded sign-in, sorting them
// ahead of every dated entry.
const daysInactiveNever = 9999

// CostsBySKU returns per-SKU cost and utilization rows for a run, ordered
// by total monthly cost descending. SKUs absent from price_lookup carry a
// zero cost.
func (s *Store) CostsBySKU(runID int64) ([]SKUCost, error) {
	rows, err := s.db.Query(`
		SELECT l.sku_name,
		       l.total_licenses,
		       l.assigned_licenses,
		       l.available_licenses,
		       COALESCE(p.monthly_cost, 0) AS monthly_cost,
		       ROUND(100.0 * l.assigned_licenses / NULLIF(l.total_licenses, 0), 1) AS utilization_pct
		FROM licenses l
		LEFT JOIN price_lookup p ON l.sku_id = p.sku_id
		WHERE l.collection_run_id = ?
		ORDER BY l.assigned_licenses * COALESCE(p.monthly_cost, 0) DESC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query SKU costs: %w", err)
	}
	defer rows.Close()

	var costs []SKUCost
	for rows.Next() {
		var c SKUCost
		var utilization *float64
		if err := rows.Scan(&c.SKUName, &c.Total, &c.Assigned, &c.Available, &c.MonthlyCost, &utilization); err != nil {
			return nil, fmt.Errorf("failed to scan SKU cost: %w", err)
		}
		if utilization != nil {
			c.UtilizationPct = *utilization
		}
		c.TotalCost = float64(c.Assigned) * c.MonthlyCost
		c.WastedCost = float64(c.Available) * c.MonthlyCost
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

// Summarize rolls up the per-SKU costs into a single summary.
func (s *Store) Summarize(runID int64) (*CostSummary, error) {
	costs, err := s.CostsBySKU(runID)
	if err != nil {
		return nil, err
	}

	var sum CostSummary
	for _, c := range costs {
		sum.MonthlySpend += c.TotalCost
		sum.WastedMonthly += c.WastedCost
		sum.TotalLicenses += c.Total
		sum.AssignedTotal += c.Assigned
		sum.AvailableTotal += c.Available
		if c.MonthlyCost == 0 && c.Assigned > 0 {
			sum.UnpricedSKUs++
		}
	}
	sum.AnnualSpend = sum.MonthlySpend * 12
	logging.Dashboard("Run %d: monthly spend $%.2f across %d SKUs", runID, sum.MonthlySpend, len(costs))
	return &sum, nil
}

// InactivityBreakdown counts the run's users by activity bucket, using
// inactiveDays as the cutoff.
func (s *Store) InactivityBreakdown(runID int64, inactiveDays int) (*InactivitySummary, error) {
	cutoff := fmt.Sprintf("-%d days", inactiveDays)
	row := s.db.QueryRow(`
		SELECT COUNT(*),
		       SUM(CASE WHEN last_sign_in_date IS NOT NULL
		                 AND date(last_sign_in_date) >= date('now', ?) THEN 1 ELSE 0 END),
		       SUM(CASE WHEN last_sign_in_date IS NOT NULL
		                 AND date(last_sign_in_date) < date('now', ?) THEN 1 ELSE 0 END),
		       SUM(CASE WHEN last_sign_in_date IS NULL THEN 1 ELSE 0 END)
		FROM user_activity
		WHERE collection_run_id = ?`, cutoff, cutoff, runID)

	var sum InactivitySummary
	var active, inactive, never *int
	if err := row.Scan(&sum.TotalUsers, &active, &inactive, &never); err != nil {
		return nil, fmt.Errorf("failed to summarize inactivity: %w", err)
	}
	if active != nil {
		sum.ActiveUsers = *active
	}
	if inactive != nil {
		sum.InactiveUsers = *inactive
	}
	if never != nil {
		sum.NeverSignedIn = *never
	}
	return &sum, nil
}

// InactiveLicensedUsers returns users past the inactivity cutoff who hold
// at least one license, with the monthly cost of what they hold. Users who
// never signed in sort first with DaysInactive set to 9999.
func (s *Store) InactiveLicensedUsers(runID int64, inactiveDays int) ([]InactiveUser, error) {
	cutoff := fmt.Sprintf("-%d days", inactiveDays)
	rows, err := s.db.Query(`
		SELECT a.user_principal_name,
		       COALESCE(a.last_sign_in_date, ''),
		       CASE WHEN a.last_sign_in_date IS NULL THEN ?
		            ELSE CAST(julianday('now') - julianday(a.last_sign_in_date) AS INTEGER)
		       END AS days_inactive,
		       COALESCE(GROUP_CONCAT(COALESCE(p.sku_name, ul.sku_id), ', '), ''),
		       COALESCE(SUM(p.monthly_cost), 0)
		FROM user_activity a
		JOIN user_licenses ul
		  ON ul.collection_run_id = a.collection_run_id
		 AND ul.user_principal_name = a.user_principal_name
		LEFT JOIN price_lookup p ON ul.sku_id = p.sku_id
		WHERE a.collection_run_id = ?
		  AND (a.last_sign_in_date IS NULL OR date(a.last_sign_in_date) < date('now', ?))
		GROUP BY a.user_principal_name, a.last_sign_in_date
		ORDER BY days_inactive DESC, a.user_principal_name`,
		daysInactiveNever, runID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query inactive users: %w", err)
	}
	defer rows.Close()

	var users []InactiveUser
	for rows.Next() {
		var u InactiveUser
		var licenseList string
		if err := rows.Scan(&u.UPN, &u.LastSignIn, &u.DaysInactive, &licenseList, &u.MonthlyCost); err != nil {
			return nil, fmt.Errorf("failed to scan inactive user: %w", err)
		}
		u.Licenses = splitLicenseList(licenseList)
		users = append(users, u)
	}
	return users, rows.Err()
}

// WastedSpendOnInactive totals the monthly license cost carried by users
// who are past the inactivity cutoff.
func (s *Store) WastedSpendOnInactive(runID int64, inactiveDays int) (float64, error) {
	users, err := s.InactiveLicensedUsers(runID, inactiveDays)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, u := range users {
		total += u.MonthlyCost
	}
	return total, nil
}

// InactiveSKUSummary counts inactive users per SKU with the cost they tie up.
type InactiveSKUSummary struct {
	SKUName       string  `json:"sku_name"`
	InactiveCount int     `json:"inactive_count"`
	MonthlyCost   float64 `json:"monthly_cost"`
	TotalCost     float64 `json:"total_monthly_cost"`
}

// InactiveAssignment is one license held by an inactive user.
type InactiveAssignment struct {
	UPN          string  `json:"user_principal_name"`
	SKUName      string  `json:"sku_name"`
	MonthlyCost  float64 `json:"monthly_cost"`
	LastSignIn   string  `json:"last_sign_in_date"`
	DaysInactive int     `json:"days_inactive"`
}

// InactiveCostBySKU groups the licenses held by users past the inactivity
// cutoff by SKU. Only priced SKUs are included.
func (s *Store) InactiveCostBySKU(runID int64, inactiveDays int) ([]InactiveSKUSummary, error) {
	cutoff := fmt.Sprintf("-%d days", inactiveDays)
	rows, err := s.db.Query(`
		SELECT p.sku_name,
		       COUNT(DISTINCT ul.user_principal_name) AS inactive_count,
		       p.monthly_cost,
		       COUNT(DISTINCT ul.user_principal_name) * p.monthly_cost AS total_monthly_cost
		FROM user_licenses ul
		JOIN user_activity ua
		  ON ul.user_principal_name = ua.user_principal_name
		 AND ul.collection_run_id = ua.collection_run_id
		JOIN price_lookup p ON ul.sku_id = p.sku_id
		WHERE ul.collection_run_id = ?
		  AND (ua.last_sign_in_date IS NULL
		       OR date(ua.last_sign_in_date) < date('now', ?))
		GROUP BY p.sku_name, p.monthly_cost
		ORDER BY total_monthly_cost DESC`, runID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query inactive cost by SKU: %w", err)
	}
	defer rows.Close()

	var out []InactiveSKUSummary
	for rows.Next() {
		var r InactiveSKUSummary
		if err := rows.Scan(&r.SKUName, &r.InactiveCount, &r.MonthlyCost, &r.TotalCost); err != nil {
			return nil, fmt.Errorf("failed to scan inactive SKU summary: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InactiveAssignments lists every priced license held by an inactive user,
// one row per user and SKU, most expensive first.
func (s *Store) InactiveAssignments(runID int64, inactiveDays int) ([]InactiveAssignment, error) {
	cutoff := fmt.Sprintf("-%d days", inactiveDays)
	rows, err := s.db.Query(`
		SELECT ul.user_principal_name,
		       p.sku_name,
		       p.monthly_cost,
		       COALESCE(ua.last_sign_in_date, ''),
		       CASE WHEN ua.last_sign_in_date IS NULL THEN ?
		            ELSE CAST(julianday('now') - julianday(ua.last_sign_in_date) AS INTEGER)
		       END AS days_inactive
		FROM user_licenses ul
		JOIN user_activity ua
		  ON ul.user_principal_name = ua.user_principal_name
		 AND ul.collection_run_id = ua.collection_run_id
		JOIN price_lookup p ON ul.sku_id = p.sku_id
		WHERE ul.collection_run_id = ?
		  AND (ua.last_sign_in_date IS NULL
		       OR date(ua.last_sign_in_date) < date('now', ?))
		ORDER BY p.monthly_cost DESC, days_inactive DESC`,
		daysInactiveNever, runID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query inactive assignments: %w", err)
	}
	defer rows.Close()

	var out []InactiveAssignment
	for rows.Next() {
		var r InactiveAssignment
		if err := rows.Scan(&r.UPN, &r.SKUName, &r.MonthlyCost, &r.LastSignIn, &r.DaysInactive); err != nil {
			return nil, fmt.Errorf("failed to scan inactive assignment: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func splitLicenseList(list string) []string {
	if list == "" {
		return nil
	}
	return strings.Split(list, ", ")
}
