package store

import (
	"testing"
	"time"
)

func seedReportingRun(t *testing.T, s *Store) int64 {
	t.Helper()

	runID, err := s.StartRun()
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	skus := []SKURecord{
		{SKUID: "sku-e5", SKUName: "Microsoft 365 E5", Total: 10, Assigned: 8, Available: 2},
		{SKUID: "sku-pbi", SKUName: "Power BI Pro", Total: 5, Assigned: 5, Available: 0},
		{SKUID: "sku-mystery", SKUName: "MYSTERY_SKU", Total: 4, Assigned: 2, Available: 2},
	}
	if err := s.InsertLicenses(runID, skus); err != nil {
		t.Fatalf("InsertLicenses failed: %v", err)
	}

	prices := []Price{
		{SKUID: "sku-e5", SKUName: "Microsoft 365 E5", MonthlyCost: 57.00},
		{SKUID: "sku-pbi", SKUName: "Power BI Pro", MonthlyCost: 9.99},
	}
	if err := s.ReplaceAllPrices(prices); err != nil {
		t.Fatalf("ReplaceAllPrices failed: %v", err)
	}

	users := []UserActivity{
		{UPN: "active@contoso.com", LastSignIn: strPtr(time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02T15:04:05Z"))},
		{UPN: "stale@contoso.com", LastSignIn: strPtr(time.Now().UTC().AddDate(0, 0, -200).Format("2006-01-02T15:04:05Z"))},
		{UPN: "ghost@contoso.com"},
		{UPN: "unlicensed@contoso.com"},
	}
	if err := s.StoreUserActivityBatch(runID, users, 0, 4, ""); err != nil {
		t.Fatalf("StoreUserActivityBatch failed: %v", err)
	}

	assignments := []UserLicense{
		{UPN: "active@contoso.com", SKUID: "sku-e5"},
		{UPN: "stale@contoso.com", SKUID: "sku-e5"},
		{UPN: "stale@contoso.com", SKUID: "sku-pbi"},
		{UPN: "ghost@contoso.com", SKUID: "sku-pbi"},
	}
	if err := s.StoreUserLicensesBatch(runID, assignments, 4, 4, "unlicensed@contoso.com"); err != nil {
		t.Fatalf("StoreUserLicensesBatch failed: %v", err)
	}

	return runID
}

func TestCostsBySKU(t *testing.T) {
	s := newTestStore(t)
	runID := seedReportingRun(t, s)

	costs, err := s.CostsBySKU(runID)
	if err != nil {
		t.Fatalf("CostsBySKU failed: %v", err)
	}
	if len(costs) != 3 {
		t.Fatalf("expected 3 SKU rows, got %d", len(costs))
	}

	// Ordered by assigned spend: E5 (8 * 57.00) ahead of Power BI (5 * 9.99).
	if costs[0].SKUName != "Microsoft 365 E5" {
		t.Errorf("expected E5 first, got %s", costs[0].SKUName)
	}
	if costs[0].TotalCost != 8*57.00 {
		t.Errorf("expected E5 total cost 456.00, got %.2f", costs[0].TotalCost)
	}
	if costs[0].WastedCost != 2*57.00 {
		t.Errorf("expected E5 wasted cost 114.00, got %.2f", costs[0].WastedCost)
	}
	if costs[0].UtilizationPct != 80.0 {
		t.Errorf("expected 80%% utilization, got %.1f", costs[0].UtilizationPct)
	}

	for _, c := range costs {
		if c.SKUName == "MYSTERY_SKU" {
			if c.MonthlyCost != 0 || c.TotalCost != 0 {
				t.Errorf("expected unpriced SKU at zero cost, got %+v", c)
			}
			if c.UtilizationPct != 50.0 {
				t.Errorf("expected 50%% utilization, got %.1f", c.UtilizationPct)
			}
		}
	}
}

func TestZeroTotalSKUHasNoUtilization(t *testing.T) {
	s := newTestStore(t)
	runID, err := s.StartRun()
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := s.InsertLicenses(runID, []SKURecord{
		{SKUID: "sku-trial", SKUName: "TRIAL", Total: 0, Assigned: 0, Available: 0},
	}); err != nil {
		t.Fatalf("InsertLicenses failed: %v", err)
	}

	costs, err := s.CostsBySKU(runID)
	if err != nil {
		t.Fatalf("CostsBySKU failed: %v", err)
	}
	if len(costs) != 1 {
		t.Fatalf("expected 1 row, got %d", len(costs))
	}
	// NULLIF guards the division; the row comes back with zero utilization.
	if costs[0].UtilizationPct != 0 {
		t.Errorf("expected 0 utilization for zero-total SKU, got %.1f", costs[0].UtilizationPct)
	}
}

func TestSummarize(t *testing.T) {
	s := newTestStore(t)
	runID := seedReportingRun(t, s)

	sum, err := s.Summarize(runID)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	wantMonthly := 8*57.00 + 5*9.99
	if sum.MonthlySpend != wantMonthly {
		t.Errorf("expected monthly spend %.2f, got %.2f", wantMonthly, sum.MonthlySpend)
	}
	if sum.AnnualSpend != wantMonthly*12 {
		t.Errorf("expected annual spend %.2f, got %.2f", wantMonthly*12, sum.AnnualSpend)
	}
	if sum.WastedMonthly != 2*57.00 {
		t.Errorf("expected wasted monthly 114.00, got %.2f", sum.WastedMonthly)
	}
	if sum.TotalLicenses != 19 || sum.AssignedTotal != 15 || sum.AvailableTotal != 4 {
		t.Errorf("unexpected license totals: %+v", sum)
	}
	if sum.UnpricedSKUs != 1 {
		t.Errorf("expected 1 unpriced SKU, got %d", sum.UnpricedSKUs)
	}
}

func TestInactivityBreakdown(t *testing.T) {
	s := newTestStore(t)
	runID := seedReportingRun(t, s)

	sum, err := s.InactivityBreakdown(runID, 90)
	if err != nil {
		t.Fatalf("InactivityBreakdown failed: %v", err)
	}
	if sum.TotalUsers != 4 {
		t.Errorf("expected 4 users, got %d", sum.TotalUsers)
	}
	if sum.ActiveUsers != 1 {
		t.Errorf("expected 1 active user, got %d", sum.ActiveUsers)
	}
	if sum.InactiveUsers != 1 {
		t.Errorf("expected 1 inactive user, got %d", sum.InactiveUsers)
	}
	if sum.NeverSignedIn != 2 {
		t.Errorf("expected 2 never-signed-in users, got %d", sum.NeverSignedIn)
	}
}

func TestInactiveLicensedUsers(t *testing.T) {
	s := newTestStore(t)
	runID := seedReportingRun(t, s)

	users, err := s.InactiveLicensedUsers(runID, 90)
	if err != nil {
		t.Fatalf("InactiveLicensedUsers failed: %v", err)
	}
	// stale@ and ghost@ hold licenses; unlicensed@ never signed in but holds
	// nothing and must not appear.
	if len(users) != 2 {
		t.Fatalf("expected 2 inactive licensed users, got %+v", users)
	}

	if users[0].UPN != "ghost@contoso.com" {
		t.Errorf("expected never-signed-in user first, got %s", users[0].UPN)
	}
	if users[0].DaysInactive != 9999 {
		t.Errorf("expected 9999 days for never-signed-in, got %d", users[0].DaysInactive)
	}
	if users[0].MonthlyCost != 9.99 {
		t.Errorf("expected ghost cost 9.99, got %.2f", users[0].MonthlyCost)
	}

	if users[1].UPN != "stale@contoso.com" {
		t.Errorf("expected stale user second, got %s", users[1].UPN)
	}
	if users[1].MonthlyCost != 57.00+9.99 {
		t.Errorf("expected stale cost 66.99, got %.2f", users[1].MonthlyCost)
	}
	if len(users[1].Licenses) != 2 {
		t.Errorf("expected 2 licenses for stale user, got %v", users[1].Licenses)
	}

	wasted, err := s.WastedSpendOnInactive(runID, 90)
	if err != nil {
		t.Fatalf("WastedSpendOnInactive failed: %v", err)
	}
	if wasted != 9.99+57.00+9.99 {
		t.Errorf("expected wasted spend 76.98, got %.2f", wasted)
	}
}
