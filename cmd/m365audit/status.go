package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"m365audit/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and collection status",
	Long: `Prints the state of the local database: latest run, its progress and
checkpoints, throttling retries, and per-table row counts.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Printf("Database: %s\n\n", st.Path())

	run, complete, err := st.LatestReportableRun()
	if errors.Is(err, store.ErrNoRuns) {
		fmt.Println("No collection runs yet. Run: m365audit collect")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Latest run: #%d (%s) at %s\n", run.ID, run.Status, run.Timestamp)
	if run.RecordsCollected > 0 {
		fmt.Printf("Records collected: %d\n", run.RecordsCollected)
	}
	if run.ErrorMessage != "" {
		fmt.Printf("Error: %s\n", run.ErrorMessage)
	}
	if !complete {
		if r, err := st.LatestResumableRun(); err == nil {
			if ok, _ := st.CanResume(r.ID); ok {
				fmt.Println("Run is resumable: m365audit collect --resume")
			}
		}
	}

	if p, err := st.CollectionStatus(run.ID); err == nil {
		if p.Total > 0 {
			fmt.Printf("Progress: %s %d/%d (%.1f%%)\n", p.Phase, p.Progress, p.Total, p.Percentage)
		} else {
			fmt.Printf("Progress: %s %d (total unknown)\n", p.Phase, p.Progress)
		}
		if p.Message != "" {
			fmt.Printf("  %s\n", p.Message)
		}
	}

	if total, recent, err := st.RetryStats(run.ID, 3); err == nil && total > 0 {
		fmt.Printf("Throttling retries: %d\n", total)
		for _, r := range recent {
			fmt.Printf("  %s attempt %d (%.0fs) at %s\n", r.Endpoint, r.Attempt, r.Delay, r.Timestamp)
		}
	}

	stats, err := st.Stats()
	if err != nil {
		return err
	}
	fmt.Println("\nTable counts:")
	for _, table := range []string{
		"collection_runs", "licenses", "price_lookup", "user_licenses",
		"user_activity", "collection_checkpoints", "retry_log", "adp_employees",
	} {
		fmt.Printf("  %-24s %d\n", table, stats[table])
	}
	return nil
}
