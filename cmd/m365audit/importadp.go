package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"m365audit/internal/adp"
	"m365audit/internal/store"
)

var importADPCmd = &cobra.Command{
	Use:   "import-adp <export.xlsx>",
	Short: "Import an ADP roster export for cross-referencing",
	Long: `Imports an ADP HR export (xlsx) into the database, replacing any previous
import. Afterwards the audit can flag licensed M365 accounts with no matching
employee and terminated employees still holding licenses.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportADP,
}

func runImportADP(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := adp.Import(args[0], st)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d employees\n", result.Imported)
	if result.SkippedNoEmail > 0 {
		fmt.Printf("Skipped %d rows without a work email\n", result.SkippedNoEmail)
	}
	for _, col := range result.MissingColumns {
		fmt.Printf("Warning: column %q not found in export\n", col)
	}

	// Cross-reference against the latest run when one exists.
	run, _, err := st.LatestReportableRun()
	if err != nil {
		fmt.Println("\nNo collection data yet; run collect to enable cross-referencing.")
		return nil
	}

	sum, err := st.CrossReferenceSummary(run.ID)
	if err != nil {
		return err
	}
	orphans, err := st.AccountsNotInADP(run.ID)
	if err != nil {
		return err
	}
	terminated, err := st.TerminatedWithLicenses(run.ID)
	if err != nil {
		return err
	}
	dormant, err := st.ActiveEmployeesInactiveInM365(run.ID, cfg.Dashboard.InactiveDays)
	if err != nil {
		return err
	}

	fmt.Printf("\nCross-reference against run #%d:\n", run.ID)
	fmt.Printf("  Employees:          %d (%d active)\n", sum.TotalEmployees, sum.ActiveEmployees)
	fmt.Printf("  Matched accounts:   %d\n", sum.MatchedAccounts)
	fmt.Printf("  Licensed, not in ADP: %d\n", len(orphans))
	for _, o := range orphans {
		fmt.Printf("    %s ($%.2f/mo)\n", o.UPN, o.MonthlyCost)
	}
	fmt.Printf("  Terminated with licenses: %d\n", len(terminated))
	for _, t := range terminated {
		fmt.Printf("    %s (%s, $%.2f/mo)\n", t.WorkEmail, t.PositionStatus, t.MonthlyCost)
	}
	fmt.Printf("  Active employees inactive >%d days: %d\n", cfg.Dashboard.InactiveDays, len(dormant))
	for _, d := range dormant {
		last := "never"
		if d.LastSignIn != nil {
			last = *d.LastSignIn
		}
		fmt.Printf("    %s (%s, last sign-in %s)\n", d.WorkEmail, d.JobTitle, last)
	}
	return nil
}
