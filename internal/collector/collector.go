// Package collector orchestrates a collection run: subscribed SKUs, the
// paginated users listing, and per-user license assignments, written to the
// store page by page with checkpoints so an interrupted run can resume.
package collector

import (
	"context"
	"errors"
	"fmt"

	"m365audit/internal/graph"
	"m365audit/internal/logging"
	"m365audit/internal/pricing"
	"m365audit/internal/store"
)

// GraphAPI is the slice of the Graph client the collector needs.
type GraphAPI interface {
	Authenticate(ctx context.Context) error
	SubscribedSKUs(ctx context.Context) ([]graph.SubscribedSKU, error)
	UsersPage(ctx context.Context, nextLink string) (*graph.UserPage, error)
	LicenseDetails(ctx context.Context, upn string) ([]graph.LicenseDetail, error)
}

// Collector drives one collection run end to end.
type Collector struct {
	Store     *store.Store
	Graph     GraphAPI
	BatchSize int

	// OnRunStarted fires once the run row exists, before any Graph calls.
	// Used to bind retry logging to the run.
	OnRunStarted func(runID int64)

	// Progress, when set, receives human-readable status lines.
	Progress func(format string, args ...interface{})
}

// Result summarizes a finished run.
type Result struct {
	RunID       int64
	Resumed     bool
	SKUs        int
	Users       int
	Assignments int
}

func (c *Collector) progress(format string, args ...interface{}) {
	if c.Progress != nil {
		c.Progress(format, args...)
	}
	logging.Collect(format, args...)
}

func (c *Collector) batchSize() int {
	if c.BatchSize <= 0 {
		return 100
	}
	return c.BatchSize
}

// Run executes a collection. With resume set, an interrupted run is picked
// up from its last checkpoint instead of starting over; phases that already
// completed are skipped and the in-flight phase replays only what is left.
func (c *Collector) Run(ctx context.Context, resume bool) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryCollect, "Run")
	defer timer.Stop()

	if err := pricing.SeedDefaults(c.Store); err != nil {
		return nil, fmt.Errorf("failed to seed default prices: %w", err)
	}

	res := &Result{}
	var cp *store.Checkpoint

	if resume {
		run, err := c.Store.LatestResumableRun()
		switch {
		case err == nil:
			res.RunID = run.ID
			res.Resumed = true
			cp, err = c.Store.LatestCheckpoint(run.ID)
			if err != nil && !errors.Is(err, store.ErrNoCheckpoint) {
				return nil, err
			}
			if cp != nil {
				c.progress("Resuming run %d from phase %s (%d done)", run.ID, cp.Phase, cp.Progress)
			} else {
				c.progress("Resuming run %d from the beginning", run.ID)
			}
		case errors.Is(err, store.ErrNoRuns):
			c.progress("No interrupted run to resume, starting fresh")
		default:
			return nil, err
		}
	}

	if res.RunID == 0 {
		runID, err := c.Store.StartRun()
		if err != nil {
			return nil, err
		}
		res.RunID = runID
		c.progress("Started collection run %d", runID)
	}

	if c.OnRunStarted != nil {
		c.OnRunStarted(res.RunID)
	}

	if err := c.collect(ctx, res, cp); err != nil {
		if cerr := c.Store.CompleteRun(res.RunID, false, 0, err.Error()); cerr != nil {
			logging.Collect("Failed to mark run %d failed: %v", res.RunID, cerr)
		}
		return nil, err
	}

	records := int64(res.SKUs + res.Users + res.Assignments)
	if err := c.Store.CompleteRun(res.RunID, true, records, ""); err != nil {
		return nil, err
	}
	c.progress("Collection complete: %d SKUs, %d users, %d assignments", res.SKUs, res.Users, res.Assignments)
	return res, nil
}

func (c *Collector) collect(ctx context.Context, res *Result, cp *store.Checkpoint) error {
	if err := c.Graph.Authenticate(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	c.progress("Authenticated to Microsoft Graph")

	// Phase ordering is skus, user_activity, user_licenses. A checkpoint
	// in a later phase means the earlier ones finished.
	skipSKUs := cp != nil
	skipActivity := cp != nil && cp.Phase == store.PhaseUserLicenses

	if skipSKUs {
		licenses, err := c.Store.LicensesForRun(res.RunID)
		if err != nil {
			return err
		}
		res.SKUs = len(licenses)
	} else {
		if err := c.collectSKUs(ctx, res); err != nil {
			return err
		}
	}

	if skipActivity {
		n, err := c.Store.CountUsersForRun(res.RunID)
		if err != nil {
			return err
		}
		res.Users = n
	} else {
		activityCP := cp
		if cp != nil && cp.Phase != store.PhaseUserActivity {
			activityCP = nil
		}
		if err := c.collectUserActivity(ctx, res, activityCP); err != nil {
			return err
		}
	}

	licenseCP := cp
	if cp != nil && cp.Phase != store.PhaseUserLicenses {
		licenseCP = nil
	}
	return c.collectUserLicenses(ctx, res, licenseCP)
}

func (c *Collector) collectSKUs(ctx context.Context, res *Result) error {
	c.progress("Fetching subscribed SKUs...")
	skus, err := c.Graph.SubscribedSKUs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch subscribed SKUs: %w", err)
	}

	records := make([]store.SKURecord, 0, len(skus))
	for _, sku := range skus {
		total := int64(sku.PrepaidUnits.Enabled)
		assigned := int64(sku.ConsumedUnits)
		records = append(records, store.SKURecord{
			SKUID:     sku.SKUID,
			SKUName:   sku.SKUPartNumber,
			Total:     total,
			Assigned:  assigned,
			Available: total - assigned,
		})
	}
	if err := c.Store.InsertLicenses(res.RunID, records); err != nil {
		return err
	}
	if err := c.Store.CreateCheckpoint(res.RunID, store.PhaseSKUs, len(records), len(records), nil); err != nil {
		return err
	}
	res.SKUs = len(records)
	c.progress("Stored %d SKUs", len(records))
	return nil
}

// collectUserActivity pages through the users listing, writing each page
// with a checkpoint carrying the next link. On resume it tries the saved
// link first; Graph paging links expire, so a failed resume restarts the
// phase and relies on the upsert to make the replay harmless.
func (c *Collector) collectUserActivity(ctx context.Context, res *Result, cp *store.Checkpoint) error {
	c.progress("Fetching users with sign-in activity...")

	nextLink := ""
	stored := 0
	if cp != nil {
		if link, ok := cp.Details["next_link"].(string); ok && link != "" {
			nextLink = link
			stored = cp.Progress
			c.progress("Resuming users listing at %d already stored", stored)
		}
	}

	page, err := c.Graph.UsersPage(ctx, nextLink)
	if err != nil && nextLink != "" {
		logging.Collect("Saved page link no longer valid, restarting users listing: %v", err)
		nextLink = ""
		stored = 0
		page, err = c.Graph.UsersPage(ctx, "")
	}
	if err != nil {
		return fmt.Errorf("failed to fetch users: %w", err)
	}

	for {
		users := make([]store.UserActivity, 0, len(page.Users))
		for _, u := range page.Users {
			ua := store.UserActivity{UPN: u.UserPrincipalName}
			if u.SignInActivity != nil && u.SignInActivity.LastSignInDateTime != "" {
				t := u.SignInActivity.LastSignInDateTime
				ua.LastSignIn = &t
			}
			users = append(users, ua)
		}

		// Total user count is unknown until the last page arrives.
		total := -1
		if page.NextLink == "" {
			total = stored + len(users)
		}
		if err := c.Store.StoreUserActivityBatch(res.RunID, users, stored, total, page.NextLink); err != nil {
			return err
		}
		stored += len(users)
		c.progress("Stored %d users so far", stored)

		if page.NextLink == "" {
			break
		}
		page, err = c.Graph.UsersPage(ctx, page.NextLink)
		if err != nil {
			return fmt.Errorf("failed to fetch users page: %w", err)
		}
	}

	res.Users = stored
	return nil
}

// collectUserLicenses walks the run's stored users and fetches license
// details for each, committing a batch with a checkpoint every BatchSize
// users. On resume the first checkpoint-progress users are skipped.
func (c *Collector) collectUserLicenses(ctx context.Context, res *Result, cp *store.Checkpoint) error {
	c.progress("Fetching user license assignments...")

	users, err := c.Store.UsersForRun(res.RunID)
	if err != nil {
		return err
	}
	total := len(users)

	done := 0
	if cp != nil && cp.Progress > 0 && cp.Progress <= total {
		done = cp.Progress
		c.progress("Resuming license assignments at %d/%d users", done, total)
	}

	startedAt := done
	batch := make([]store.UserLicense, 0, c.batchSize())
	pending := 0
	lastUser := ""

	flush := func() error {
		if pending == 0 {
			return nil
		}
		if err := c.Store.StoreUserLicensesBatch(res.RunID, batch, done, total, lastUser); err != nil {
			return err
		}
		res.Assignments += len(batch)
		batch = batch[:0]
		pending = 0
		c.progress("Processed %d/%d users", done, total)
		return nil
	}

	for _, u := range users[done:] {
		details, err := c.Graph.LicenseDetails(ctx, u.UPN)
		if err != nil {
			return fmt.Errorf("failed to fetch licenses for %s: %w", u.UPN, err)
		}
		for _, d := range details {
			batch = append(batch, store.UserLicense{UPN: u.UPN, SKUID: d.SKUID})
		}
		done++
		pending++
		lastUser = u.UPN

		if pending >= c.batchSize() {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	// Nothing left to process on resume: still record the final position so
	// status reflects the finished phase.
	if done == startedAt {
		if err := c.Store.UpdateProgress(res.RunID, store.PhaseUserLicenses, done, total,
			fmt.Sprintf("Processed %d/%d users", done, total)); err != nil {
			return err
		}
	}
	return nil
}
