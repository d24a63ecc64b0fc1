package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"m365audit/internal/pricing"
	"m365audit/internal/store"
)

var updatePricingCmd = &cobra.Command{
	Use:   "update-pricing",
	Short: "Sync the price lookup with collected SKUs",
	Long: `Rebuilds the price lookup table from the SKUs actually present in the
collected license inventory. Known SKU part numbers get their published list
price; unknown ones are inserted at $0.00 and flagged so they can be priced
manually via the dashboard's Pricing tab.`,
	RunE: runUpdatePricing,
}

func runUpdatePricing(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := pricing.Sync(st)
	if err != nil {
		return err
	}

	for _, s := range result.Priced {
		fmt.Printf("  %s: $%.2f/mo (%s)\n", s.PartNumber, s.MonthlyCost, s.FriendlyName)
	}
	fmt.Printf("\nUpdated %d SKUs with pricing\n", len(result.Priced))

	if len(result.Unknown) > 0 {
		fmt.Printf("\nWarning: %d SKUs have no pricing data:\n", len(result.Unknown))
		for _, name := range result.Unknown {
			fmt.Printf("  - %s\n", name)
		}
		fmt.Println("\nSet prices manually for these SKUs using the dashboard Pricing tab.")
	}
	return nil
}
