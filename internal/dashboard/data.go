// Package dashboard renders the collected audit data as a self-contained
// HTML report: cost overview, inactive users, license utilization,
// recommended actions, a pricing editor, and collection diagnostics.
package dashboard

import (
	"fmt"
	"time"

	"m365audit/internal/logging"
	"m365audit/internal/store"
)

// Metadata describes the run the dashboard reports on.
type Metadata struct {
	RunID            int64   `json:"run_id"`
	Timestamp        string  `json:"timestamp"`
	Status           string  `json:"status"`
	RecordsCollected int64   `json:"records_collected"`
	ErrorMessage     string  `json:"error_message"`
	LastPhase        string  `json:"last_phase"`
	Progress         int     `json:"progress"`
	Total            int     `json:"total"`
	ProgressPct      float64 `json:"progress_pct"`
	ProgressMessage  string  `json:"progress_message"`
	TotalUsers       int     `json:"total_users"`
	TotalSKUs        int     `json:"total_skus"`
}

// CheckpointInfo is one checkpoint row for the diagnostics tab.
type CheckpointInfo struct {
	Timestamp string `json:"timestamp"`
	Phase     string `json:"phase"`
	Progress  int    `json:"progress"`
	Total     int    `json:"total"`
}

// RetryInfo summarizes throttling during the run.
type RetryInfo struct {
	TotalRetries  int                `json:"total_retries"`
	RecentRetries []store.RetryEntry `json:"recent_retries"`
}

// PriceRow is one editable pricing entry.
type PriceRow struct {
	SKUID       string  `json:"sku_id"`
	SKUName     string  `json:"sku_name"`
	MonthlyCost float64 `json:"monthly_cost"`
}

// Data is everything the rendered dashboard embeds.
type Data struct {
	Costs           *store.CostSummary         `json:"costs"`
	CostsBySKU      []store.SKUCost            `json:"costs_by_sku"`
	InactiveSummary []store.InactiveSKUSummary `json:"inactive_summary"`
	InactiveUsers   []store.InactiveAssignment `json:"inactive_users"`
	Activity        *store.InactivitySummary   `json:"activity"`
	InactiveDays    int                        `json:"inactive_days"`
	GeneratedAt     string                     `json:"generated_at"`
	Metadata        Metadata                   `json:"metadata"`
	Checkpoints     []CheckpointInfo           `json:"checkpoints"`
	RetryInfo       RetryInfo                  `json:"retry_info"`
	Pricing         []PriceRow                 `json:"pricing"`
	IsComplete      bool                       `json:"is_complete"`
}

// Assemble gathers dashboard data for the latest reportable run. A running
// or failed run yields partial data with IsComplete false.
func Assemble(s *store.Store, inactiveDays int) (*Data, error) {
	timer := logging.StartTimer(logging.CategoryDashboard, "Assemble")
	defer timer.Stop()

	run, complete, err := s.LatestReportableRun()
	if err != nil {
		return nil, fmt.Errorf("no collected data to report on: %w", err)
	}
	runID := run.ID

	d := &Data{
		InactiveDays: inactiveDays,
		GeneratedAt:  time.Now().Format(time.RFC3339),
		IsComplete:   complete,
		Metadata: Metadata{
			RunID:            runID,
			Timestamp:        run.Timestamp,
			Status:           run.Status,
			RecordsCollected: run.RecordsCollected,
			ErrorMessage:     run.ErrorMessage,
		},
	}

	if d.Costs, err = s.Summarize(runID); err != nil {
		return nil, err
	}
	if d.CostsBySKU, err = s.CostsBySKU(runID); err != nil {
		return nil, err
	}
	if d.InactiveSummary, err = s.InactiveCostBySKU(runID, inactiveDays); err != nil {
		return nil, err
	}
	if d.InactiveUsers, err = s.InactiveAssignments(runID, inactiveDays); err != nil {
		return nil, err
	}
	if d.Activity, err = s.InactivityBreakdown(runID, inactiveDays); err != nil {
		return nil, err
	}

	if p, err := s.CollectionStatus(runID); err == nil {
		d.Metadata.LastPhase = p.Phase
		d.Metadata.Progress = p.Progress
		d.Metadata.Total = p.Total
		d.Metadata.ProgressPct = p.Percentage
		d.Metadata.ProgressMessage = p.Message
	}
	if d.Metadata.TotalUsers, err = s.CountUsersForRun(runID); err != nil {
		return nil, err
	}
	licenses, err := s.LicensesForRun(runID)
	if err != nil {
		return nil, err
	}
	d.Metadata.TotalSKUs = len(licenses)

	cps, err := s.RecentCheckpoints(runID, 10)
	if err != nil {
		return nil, err
	}
	for _, cp := range cps {
		d.Checkpoints = append(d.Checkpoints, CheckpointInfo{
			Timestamp: cp.Timestamp,
			Phase:     cp.Phase,
			Progress:  cp.Progress,
			Total:     cp.Total,
		})
	}

	total, recent, err := s.RetryStats(runID, 10)
	if err != nil {
		return nil, err
	}
	d.RetryInfo = RetryInfo{TotalRetries: total, RecentRetries: recent}

	prices, err := s.AllPrices()
	if err != nil {
		return nil, err
	}
	for _, p := range prices {
		d.Pricing = append(d.Pricing, PriceRow{SKUID: p.SKUID, SKUName: p.SKUName, MonthlyCost: p.MonthlyCost})
	}

	logging.Dashboard("Assembled dashboard data for run %d (complete=%v)", runID, complete)
	return d, nil
}

// GeneratePricingUpdateSQL emits UPDATE statements for edited prices, the
// same output the dashboard's pricing tab produces in the browser.
func GeneratePricingUpdateSQL(changes []PriceRow) string {
	if len(changes) == 0 {
		return "-- No pricing changes to apply\n"
	}

	out := "-- Pricing updates generated by M365 Cost Management Dashboard\n" +
		"-- Run these statements to update the database\n\n"
	for _, c := range changes {
		out += fmt.Sprintf("-- Update pricing for %s\n", c.SKUName)
		out += "UPDATE price_lookup\n"
		out += fmt.Sprintf("SET monthly_cost = %g\n", c.MonthlyCost)
		out += fmt.Sprintf("WHERE sku_id = '%s';\n\n", c.SKUID)
	}
	return out
}
