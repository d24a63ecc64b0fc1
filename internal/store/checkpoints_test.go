package store

import (
	"errors"
	"testing"
)

func TestCheckpointRoundTrip(t *testing.T) {
	s := newTestStore(t)

	runID, err := s.StartRun()
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	if _, err := s.LatestCheckpoint(runID); !errors.Is(err, ErrNoCheckpoint) {
		t.Fatalf("expected ErrNoCheckpoint, got %v", err)
	}

	details := map[string]interface{}{"batch_start": float64(0), "last_user": "alice@contoso.com"}
	if err := s.CreateCheckpoint(runID, PhaseUserActivity, 999, -1, details); err != nil {
		t.Fatalf("CreateCheckpoint failed: %v", err)
	}
	if err := s.CreateCheckpoint(runID, PhaseUserActivity, 1998, 2500, nil); err != nil {
		t.Fatalf("second CreateCheckpoint failed: %v", err)
	}

	cp, err := s.LatestCheckpoint(runID)
	if err != nil {
		t.Fatalf("LatestCheckpoint failed: %v", err)
	}
	if cp.Phase != PhaseUserActivity || cp.Progress != 1998 || cp.Total != 2500 {
		t.Errorf("unexpected checkpoint: %+v", cp)
	}
	if cp.Details != nil {
		t.Errorf("expected nil details on latest checkpoint, got %v", cp.Details)
	}

	cps, err := s.RecentCheckpoints(runID, 10)
	if err != nil {
		t.Fatalf("RecentCheckpoints failed: %v", err)
	}
	if len(cps) != 2 {
		t.Fatalf("expected 2 checkpoints, got %d", len(cps))
	}
	// Newest first; the older one carries the details map back out.
	if cps[1].Details["last_user"] != "alice@contoso.com" {
		t.Errorf("expected details round-trip, got %v", cps[1].Details)
	}
}

func TestCanResume(t *testing.T) {
	s := newTestStore(t)

	runID, err := s.StartRun()
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	ok, err := s.CanResume(runID)
	if err != nil {
		t.Fatalf("CanResume failed: %v", err)
	}
	if ok {
		t.Error("expected CanResume=false without checkpoints")
	}

	if err := s.CreateCheckpoint(runID, PhaseUserLicenses, 100, 500, nil); err != nil {
		t.Fatalf("CreateCheckpoint failed: %v", err)
	}
	ok, err = s.CanResume(runID)
	if err != nil {
		t.Fatalf("CanResume failed: %v", err)
	}
	if !ok {
		t.Error("expected CanResume=true after a checkpoint")
	}
}

func TestLatestResumableRun(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.LatestResumableRun(); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("expected ErrNoRuns, got %v", err)
	}

	completed, err := s.StartRun()
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := s.CompleteRun(completed, true, 10, ""); err != nil {
		t.Fatalf("CompleteRun failed: %v", err)
	}

	interrupted, err := s.StartRun()
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	run, err := s.LatestResumableRun()
	if err != nil {
		t.Fatalf("LatestResumableRun failed: %v", err)
	}
	if run.ID != interrupted {
		t.Errorf("expected resumable run %d, got %d", interrupted, run.ID)
	}
}

func TestCollectionStatus(t *testing.T) {
	s := newTestStore(t)

	runID, err := s.StartRun()
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	// Total unknown while the first page is still in flight.
	if err := s.UpdateProgress(runID, PhaseUserActivity, 999, -1, "Fetched 999 users"); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	p, err := s.CollectionStatus(runID)
	if err != nil {
		t.Fatalf("CollectionStatus failed: %v", err)
	}
	if p.Percentage != 0 {
		t.Errorf("expected 0%% with unknown total, got %.1f", p.Percentage)
	}

	if err := s.UpdateProgress(runID, PhaseUserLicenses, 250, 1000, "Processed 250/1000 users"); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	p, err = s.CollectionStatus(runID)
	if err != nil {
		t.Fatalf("CollectionStatus failed: %v", err)
	}
	if p.Phase != PhaseUserLicenses {
		t.Errorf("expected phase %s, got %s", PhaseUserLicenses, p.Phase)
	}
	if p.Percentage != 25 {
		t.Errorf("expected 25%%, got %.1f", p.Percentage)
	}
	if p.Message != "Processed 250/1000 users" {
		t.Errorf("unexpected message %q", p.Message)
	}
}

func TestRetryLog(t *testing.T) {
	s := newTestStore(t)

	runID, err := s.StartRun()
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	for i := 1; i <= 3; i++ {
		if err := s.LogRetry(runID, "/users", i, float64(i), "429 Too Many Requests"); err != nil {
			t.Fatalf("LogRetry failed: %v", err)
		}
	}

	total, recent, err := s.RetryStats(runID, 2)
	if err != nil {
		t.Fatalf("RetryStats failed: %v", err)
	}
	if total != 3 {
		t.Errorf("expected 3 total retries, got %d", total)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent entries, got %d", len(recent))
	}
	if recent[0].Attempt != 3 {
		t.Errorf("expected newest first, got attempt %d", recent[0].Attempt)
	}
	if recent[0].Endpoint != "/users" {
		t.Errorf("unexpected endpoint %q", recent[0].Endpoint)
	}
}
