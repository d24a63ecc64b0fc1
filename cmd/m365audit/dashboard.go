package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"m365audit/internal/dashboard"
	"m365audit/internal/store"
)

var (
	dashboardOutput string
	inactiveDays    int
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Generate the HTML cost dashboard",
	Long: `Renders a self-contained HTML dashboard from the latest collection run:
spending overview, inactive users, license utilization, recommended actions,
a pricing editor, and collection diagnostics. If the latest run is still in
progress or failed, the dashboard renders the partial data with a warning.`,
	RunE: runDashboard,
}

func init() {
	dashboardCmd.Flags().StringVarP(&dashboardOutput, "output", "o", "", "Output HTML path (overrides config)")
	dashboardCmd.Flags().IntVar(&inactiveDays, "inactive-days", 0, "Inactivity cutoff in days (overrides config)")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cfg.Dashboard.OutputPath
	if dashboardOutput != "" {
		out = dashboardOutput
	}
	days := cfg.Dashboard.InactiveDays
	if inactiveDays > 0 {
		days = inactiveDays
	}

	data, err := dashboard.Assemble(st, days)
	if err != nil {
		return err
	}
	if err := dashboard.Render(data, out); err != nil {
		return err
	}

	fmt.Printf("Dashboard generated: %s\n", out)
	if !data.IsComplete {
		fmt.Println("Warning: latest collection run is incomplete; dashboard shows partial data.")
	}
	return nil
}
