package collector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"m365audit/internal/graph"
	"m365audit/internal/store"
)

// fakeGraph serves canned pages and license details, optionally failing
// after a set number of licenseDetails calls to simulate an interruption.
type fakeGraph struct {
	skus         []graph.SubscribedSKU
	pages        [][]graph.User
	licenses     map[string][]graph.LicenseDetail
	failAfter    int // licenseDetails calls before failing; 0 disables
	licenseCalls int
	authCalls    int
}

func (f *fakeGraph) Authenticate(ctx context.Context) error {
	f.authCalls++
	return nil
}

func (f *fakeGraph) SubscribedSKUs(ctx context.Context) ([]graph.SubscribedSKU, error) {
	return f.skus, nil
}

func (f *fakeGraph) UsersPage(ctx context.Context, nextLink string) (*graph.UserPage, error) {
	idx := 0
	if nextLink != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(nextLink, "page:"))
		if err != nil {
			return nil, fmt.Errorf("bad page link %q", nextLink)
		}
		idx = n
	}
	if idx >= len(f.pages) {
		return nil, fmt.Errorf("no such page %d", idx)
	}
	page := &graph.UserPage{Users: f.pages[idx]}
	if idx+1 < len(f.pages) {
		page.NextLink = fmt.Sprintf("page:%d", idx+1)
	}
	return page, nil
}

func (f *fakeGraph) LicenseDetails(ctx context.Context, upn string) ([]graph.LicenseDetail, error) {
	f.licenseCalls++
	if f.failAfter > 0 && f.licenseCalls > f.failAfter {
		return nil, errors.New("simulated outage")
	}
	return f.licenses[upn], nil
}

func signIn(ts string) *struct {
	LastSignInDateTime string `json:"lastSignInDateTime"`
} {
	return &struct {
		LastSignInDateTime string `json:"lastSignInDateTime"`
	}{LastSignInDateTime: ts}
}

func testGraph() *fakeGraph {
	return &fakeGraph{
		skus: []graph.SubscribedSKU{
			{SKUID: "sku-e5", SKUPartNumber: "ENTERPRISEPREMIUM",
				PrepaidUnits: struct {
					Enabled   int `json:"enabled"`
					Suspended int `json:"suspended"`
					Warning   int `json:"warning"`
				}{Enabled: 10}, ConsumedUnits: 3},
		},
		pages: [][]graph.User{
			{
				{UserPrincipalName: "alice@contoso.com", SignInActivity: signIn("2026-08-20T08:00:00Z")},
				{UserPrincipalName: "bob@contoso.com"},
			},
			{
				{UserPrincipalName: "carol@contoso.com", SignInActivity: signIn("2026-07-01T08:00:00Z")},
			},
		},
		licenses: map[string][]graph.LicenseDetail{
			"alice@contoso.com": {{SKUID: "sku-e5", SKUPartNumber: "ENTERPRISEPREMIUM"}},
			"carol@contoso.com": {{SKUID: "sku-e5", SKUPartNumber: "ENTERPRISEPREMIUM"}},
		},
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFullCollection(t *testing.T) {
	s := newTestStore(t)
	g := testGraph()
	c := &Collector{Store: s, Graph: g, BatchSize: 2}

	res, err := c.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Resumed {
		t.Error("expected a fresh run")
	}
	if res.SKUs != 1 || res.Users != 3 || res.Assignments != 2 {
		t.Errorf("unexpected result: %+v", res)
	}

	run, err := s.GetRun(res.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != store.RunCompleted {
		t.Errorf("expected completed run, got %s", run.Status)
	}
	if run.RecordsCollected != 6 {
		t.Errorf("expected 6 records, got %d", run.RecordsCollected)
	}

	licenses, err := s.LicensesForRun(res.RunID)
	if err != nil {
		t.Fatalf("LicensesForRun failed: %v", err)
	}
	if len(licenses) != 1 || licenses[0].Available != 7 {
		t.Errorf("unexpected licenses: %+v", licenses)
	}

	users, err := s.UsersForRun(res.RunID)
	if err != nil {
		t.Fatalf("UsersForRun failed: %v", err)
	}
	if len(users) != 3 {
		t.Errorf("expected 3 users, got %d", len(users))
	}

	// First collect seeds the default price catalog.
	n, err := s.PriceCount()
	if err != nil {
		t.Fatalf("PriceCount failed: %v", err)
	}
	if n == 0 {
		t.Error("expected default prices seeded")
	}
}

func TestRunStartedHookFires(t *testing.T) {
	s := newTestStore(t)
	c := &Collector{Store: s, Graph: testGraph()}

	var hookRunID int64
	c.OnRunStarted = func(runID int64) { hookRunID = runID }

	res, err := c.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if hookRunID != res.RunID {
		t.Errorf("expected hook with run %d, got %d", res.RunID, hookRunID)
	}
}

func TestInterruptedRunIsMarkedFailed(t *testing.T) {
	s := newTestStore(t)
	g := testGraph()
	g.failAfter = 1
	c := &Collector{Store: s, Graph: g, BatchSize: 1}

	_, err := c.Run(context.Background(), false)
	if err == nil {
		t.Fatal("expected run to fail")
	}

	run, err := s.LatestResumableRun()
	if err != nil {
		t.Fatalf("LatestResumableRun failed: %v", err)
	}
	if run.Status != store.RunFailed {
		t.Errorf("expected failed status, got %s", run.Status)
	}
	if run.ErrorMessage == "" {
		t.Error("expected error message recorded")
	}
}

func TestResumeSkipsCompletedWork(t *testing.T) {
	s := newTestStore(t)
	g := testGraph()
	g.failAfter = 1
	c := &Collector{Store: s, Graph: g, BatchSize: 1}

	_, err := c.Run(context.Background(), false)
	if err == nil {
		t.Fatal("expected first run to fail")
	}
	failedCalls := g.licenseCalls

	g.failAfter = 0
	res, err := c.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("resumed run failed: %v", err)
	}
	if !res.Resumed {
		t.Error("expected a resumed run")
	}

	run, err := s.GetRun(res.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != store.RunCompleted {
		t.Errorf("expected completed run after resume, got %s", run.Status)
	}

	// One user was committed before the outage; the resume must not refetch
	// that user's licenseDetails.
	resumedCalls := g.licenseCalls - failedCalls
	if resumedCalls != 2 {
		t.Errorf("expected 2 licenseDetails calls on resume, got %d", resumedCalls)
	}

	// The full assignment set is present despite the partial batches.
	var assignments int
	if err := s.DB().QueryRow(
		"SELECT COUNT(*) FROM user_licenses WHERE collection_run_id = ?", res.RunID,
	).Scan(&assignments); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if assignments != 2 {
		t.Errorf("expected 2 assignments after resume, got %d", assignments)
	}
}

func TestResumeWithoutInterruptedRunStartsFresh(t *testing.T) {
	s := newTestStore(t)
	c := &Collector{Store: s, Graph: testGraph()}

	res, err := c.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Resumed {
		t.Error("expected a fresh run when nothing is resumable")
	}
	if res.Users != 3 {
		t.Errorf("expected 3 users, got %d", res.Users)
	}
}
