package store

import (
	"testing"
	"time"
)

func seedCrossReferenceRun(t *testing.T, s *Store) int64 {
	t.Helper()

	runID, err := s.StartRun()
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	if err := s.ReplaceAllPrices([]Price{
		{SKUID: "sku-e5", SKUName: "Microsoft 365 E5", MonthlyCost: 57.00},
		{SKUID: "sku-pbi", SKUName: "Power BI Pro", MonthlyCost: 9.99},
	}); err != nil {
		t.Fatalf("ReplaceAllPrices failed: %v", err)
	}

	users := []UserActivity{
		{UPN: "alice@contoso.com", LastSignIn: strPtr("2026-08-20T08:00:00Z")},
		{UPN: "Bob@Contoso.com", LastSignIn: strPtr("2026-08-01T08:00:00Z")},
		{UPN: "svc-backup@contoso.com"},
	}
	if err := s.StoreUserActivityBatch(runID, users, 0, 3, ""); err != nil {
		t.Fatalf("StoreUserActivityBatch failed: %v", err)
	}

	assignments := []UserLicense{
		{UPN: "alice@contoso.com", SKUID: "sku-e5"},
		{UPN: "Bob@Contoso.com", SKUID: "sku-e5"},
		{UPN: "svc-backup@contoso.com", SKUID: "sku-pbi"},
	}
	if err := s.StoreUserLicensesBatch(runID, assignments, 3, 3, "svc-backup@contoso.com"); err != nil {
		t.Fatalf("StoreUserLicensesBatch failed: %v", err)
	}

	employees := []Employee{
		{LegalName: "Alice Anderson", PositionStatus: "Active", WorkEmail: "alice@contoso.com"},
		{LegalName: "Bob Brown", PositionStatus: "Terminated", WorkEmail: "bob@contoso.com"},
		{LegalName: "Carol Chen", PositionStatus: "Active", WorkEmail: "carol@contoso.com"},
	}
	if _, err := s.ReplaceEmployees(employees); err != nil {
		t.Fatalf("ReplaceEmployees failed: %v", err)
	}

	return runID
}

func TestReplaceEmployeesDiscardsPreviousImport(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.ReplaceEmployees([]Employee{
		{LegalName: "Old Import", WorkEmail: "old@contoso.com"},
	}); err != nil {
		t.Fatalf("ReplaceEmployees failed: %v", err)
	}
	n, err := s.ReplaceEmployees([]Employee{
		{LegalName: "New One", WorkEmail: "one@contoso.com"},
		{LegalName: "New Two", WorkEmail: "two@contoso.com"},
	})
	if err != nil {
		t.Fatalf("second ReplaceEmployees failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows imported, got %d", n)
	}

	count, err := s.EmployeeCount()
	if err != nil {
		t.Fatalf("EmployeeCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected previous import replaced, got %d rows", count)
	}
}

func TestAccountsNotInADP(t *testing.T) {
	s := newTestStore(t)
	runID := seedCrossReferenceRun(t, s)

	orphans, err := s.AccountsNotInADP(runID)
	if err != nil {
		t.Fatalf("AccountsNotInADP failed: %v", err)
	}
	// alice matches exactly, Bob matches case-insensitively; only the service
	// account is unmatched.
	if len(orphans) != 1 {
		t.Fatalf("expected 1 orphaned account, got %+v", orphans)
	}
	if orphans[0].UPN != "svc-backup@contoso.com" {
		t.Errorf("unexpected orphan %s", orphans[0].UPN)
	}
	if orphans[0].MonthlyCost != 9.99 {
		t.Errorf("expected orphan cost 9.99, got %.2f", orphans[0].MonthlyCost)
	}
}

func TestTerminatedWithLicenses(t *testing.T) {
	s := newTestStore(t)
	runID := seedCrossReferenceRun(t, s)

	terminated, err := s.TerminatedWithLicenses(runID)
	if err != nil {
		t.Fatalf("TerminatedWithLicenses failed: %v", err)
	}
	if len(terminated) != 1 {
		t.Fatalf("expected 1 terminated licensee, got %+v", terminated)
	}
	if terminated[0].WorkEmail != "bob@contoso.com" {
		t.Errorf("unexpected licensee %s", terminated[0].WorkEmail)
	}
	if terminated[0].PositionStatus != "Terminated" {
		t.Errorf("unexpected status %s", terminated[0].PositionStatus)
	}
	if terminated[0].MonthlyCost != 57.00 {
		t.Errorf("expected cost 57.00, got %.2f", terminated[0].MonthlyCost)
	}
}

func TestActiveEmployeesInactiveInM365(t *testing.T) {
	s := newTestStore(t)

	runID, err := s.StartRun()
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	recent := time.Now().UTC().AddDate(0, 0, -5).Format("2006-01-02T15:04:05Z")
	stale := time.Now().UTC().AddDate(0, 0, -120).Format("2006-01-02T15:04:05Z")
	users := []UserActivity{
		{UPN: "alice@contoso.com", LastSignIn: &recent},
		{UPN: "Dan@Contoso.com", LastSignIn: &stale},
	}
	if err := s.StoreUserActivityBatch(runID, users, 0, 2, ""); err != nil {
		t.Fatalf("StoreUserActivityBatch failed: %v", err)
	}

	employees := []Employee{
		{LegalName: "Alice Anderson", JobTitle: "Engineer", PositionStatus: "Active", WorkEmail: "alice@contoso.com"},
		{LegalName: "Bob Brown", PositionStatus: "Terminated", WorkEmail: "bob@contoso.com"},
		{LegalName: "Carol Chen", JobTitle: "Analyst", PositionStatus: "Active", WorkEmail: "carol@contoso.com"},
		{LegalName: "Dan Diaz", JobTitle: "Manager", PositionStatus: "Active", WorkEmail: "dan@contoso.com"},
	}
	if _, err := s.ReplaceEmployees(employees); err != nil {
		t.Fatalf("ReplaceEmployees failed: %v", err)
	}

	dormant, err := s.ActiveEmployeesInactiveInM365(runID, 90)
	if err != nil {
		t.Fatalf("ActiveEmployeesInactiveInM365 failed: %v", err)
	}
	// Carol has no M365 account at all, Dan's sign-in is past the cutoff.
	// Alice is recent and Bob is not an active employee.
	if len(dormant) != 2 {
		t.Fatalf("expected 2 inactive employees, got %+v", dormant)
	}
	if dormant[0].WorkEmail != "carol@contoso.com" {
		t.Errorf("unexpected first employee %s", dormant[0].WorkEmail)
	}
	if dormant[0].LastSignIn != nil {
		t.Errorf("expected carol to have no sign-in, got %v", *dormant[0].LastSignIn)
	}
	if dormant[1].WorkEmail != "dan@contoso.com" {
		t.Errorf("unexpected second employee %s", dormant[1].WorkEmail)
	}
	if dormant[1].LastSignIn == nil || *dormant[1].LastSignIn != stale {
		t.Errorf("expected dan's stale sign-in, got %v", dormant[1].LastSignIn)
	}
}

func TestCrossReferenceSummary(t *testing.T) {
	s := newTestStore(t)
	runID := seedCrossReferenceRun(t, s)

	sum, err := s.CrossReferenceSummary(runID)
	if err != nil {
		t.Fatalf("CrossReferenceSummary failed: %v", err)
	}
	if sum.TotalEmployees != 3 {
		t.Errorf("expected 3 employees, got %d", sum.TotalEmployees)
	}
	if sum.ActiveEmployees != 2 {
		t.Errorf("expected 2 active employees, got %d", sum.ActiveEmployees)
	}
	if sum.MatchedAccounts != 2 {
		t.Errorf("expected 2 matched accounts, got %d", sum.MatchedAccounts)
	}
	if sum.ImportTimestamp == "" {
		t.Error("expected import timestamp to be set")
	}
}

func TestCrossReferenceSummaryEmptyRoster(t *testing.T) {
	s := newTestStore(t)

	runID, err := s.StartRun()
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	sum, err := s.CrossReferenceSummary(runID)
	if err != nil {
		t.Fatalf("CrossReferenceSummary failed: %v", err)
	}
	if sum.TotalEmployees != 0 || sum.ActiveEmployees != 0 || sum.MatchedAccounts != 0 {
		t.Errorf("expected zero summary on empty store, got %+v", sum)
	}
}
