package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"m365audit/internal/collector"
	"m365audit/internal/graph"
	"m365audit/internal/store"
)

var resumeRun bool

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect license and activity data from Microsoft Graph",
	Long: `Authenticates with client credentials, then pulls subscribed SKUs, the
full user listing with sign-in activity, and each user's license assignments
into the local database. Progress is checkpointed after every page and batch;
an interrupted run can be continued with --resume instead of starting over.

Requires TENANT_ID, CLIENT_ID, and CLIENT_SECRET (environment, .env file, or
config).`,
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().BoolVar(&resumeRun, "resume", false, "Resume the last interrupted run")
}

func runCollect(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateCredentials(); err != nil {
		return err
	}

	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	client := graph.NewClient(graph.Config{
		TenantID:     cfg.Graph.TenantID,
		ClientID:     cfg.Graph.ClientID,
		ClientSecret: cfg.Graph.ClientSecret,
		BaseURL:      cfg.Graph.BaseURL,
		AuthorityURL: cfg.Graph.AuthorityURL,
		PageSize:     cfg.Collection.PageSize,
		MaxRetries:   cfg.Collection.MaxRetries,
		Timeout:      cfg.GraphTimeout(),
	})

	col := &collector.Collector{
		Store:     st,
		Graph:     client,
		BatchSize: cfg.Collection.BatchSize,
		Progress: func(format string, args ...interface{}) {
			fmt.Printf(format+"\n", args...)
		},
	}
	col.OnRunStarted = func(runID int64) {
		client.OnRetry = func(endpoint string, attempt int, delay float64, reason string) {
			if err := st.LogRetry(runID, endpoint, attempt, delay, reason); err != nil {
				logger.Warn("failed to log retry", zap.Error(err))
			}
		}
	}

	// Ctrl-C cancels cleanly; the checkpoints make the run resumable.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := col.Run(ctx, resumeRun)
	if err != nil {
		return fmt.Errorf("collection failed (rerun with --resume to continue): %w", err)
	}

	fmt.Printf("\nCollection complete!\n")
	fmt.Printf("Run:         #%d\n", res.RunID)
	fmt.Printf("SKUs:        %d\n", res.SKUs)
	fmt.Printf("Users:       %d\n", res.Users)
	fmt.Printf("Assignments: %d\n", res.Assignments)
	fmt.Printf("Database:    %s\n", st.Path())
	fmt.Printf("\nNext step: m365audit dashboard\n")
	return nil
}
