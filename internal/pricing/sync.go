package pricing

import (
	"fmt"

	"m365audit/internal/logging"
	"m365audit/internal/store"
)

// SyncResult reports what a price sync did.
type SyncResult struct {
	Priced  []SyncedSKU
	Unknown []string
}

// SyncedSKU is one SKU that matched the catalog.
type SyncedSKU struct {
	PartNumber   string
	FriendlyName string
	MonthlyCost  float64
}

// Sync rebuilds the price lookup from the SKUs present in the collected
// license inventory. Known part numbers get their catalog price; unknown
// ones are inserted at zero so they surface in the dashboard for manual
// pricing.
func Sync(s *store.Store) (*SyncResult, error) {
	skus, err := s.DistinctSKUs()
	if err != nil {
		return nil, fmt.Errorf("failed to list collected SKUs: %w", err)
	}
	if len(skus) == 0 {
		return nil, fmt.Errorf("no collected license data to price; run collect first")
	}

	result := &SyncResult{}
	prices := make([]store.Price, 0, len(skus))
	for _, sku := range skus {
		entry, known := Lookup(sku.SKUName)
		cost := 0.0
		if known {
			cost = entry.MonthlyCost
			result.Priced = append(result.Priced, SyncedSKU{
				PartNumber:   sku.SKUName,
				FriendlyName: entry.FriendlyName,
				MonthlyCost:  entry.MonthlyCost,
			})
		} else {
			result.Unknown = append(result.Unknown, sku.SKUName)
		}
		prices = append(prices, store.Price{
			SKUID:       sku.SKUID,
			SKUName:     sku.SKUName,
			MonthlyCost: cost,
		})
	}

	if err := s.ReplaceAllPrices(prices); err != nil {
		return nil, err
	}
	logging.Pricing("Synced %d SKUs, %d unknown", len(result.Priced), len(result.Unknown))
	return result, nil
}

// defaultPrices are starter rows keyed by Microsoft's published global SKU
// GUIDs, the ids the collector records from subscribedSkus. They make the
// dashboard's price joins work before update-pricing has run.
var defaultPrices = []store.Price{
	// Office 365 plans
	{SKUID: "c7df2760-2c81-4ef7-b578-5b5392b571df", SKUName: "ENTERPRISEPREMIUM", MonthlyCost: 38.00},
	{SKUID: "18181a46-0d4e-45cd-891e-60aabd171b4e", SKUName: "ENTERPRISEPACK", MonthlyCost: 23.00},
	{SKUID: "6fd2c87f-b296-42f0-b197-1e91e994b900", SKUName: "STANDARDPACK", MonthlyCost: 12.50},

	// Microsoft 365 plans
	{SKUID: "26d45bd9-adf1-46cd-a9e1-51e9a5524128", SKUName: "Microsoft 365 E3", MonthlyCost: 36.00},
	{SKUID: "06ebc4ee-1bb5-47dd-8120-11324bc54e06", SKUName: "Microsoft 365 E5", MonthlyCost: 57.00},
	{SKUID: "3b555118-da6a-4418-894f-7df1e2096870", SKUName: "Microsoft 365 Business Basic", MonthlyCost: 6.00},
	{SKUID: "f245ecc8-75af-4f8e-b61f-27d8114de5f3", SKUName: "Microsoft 365 Business Standard", MonthlyCost: 12.50},
	{SKUID: "cbdc14ab-d96c-4c30-b9f4-6ada7cdc1d46", SKUName: "Microsoft 365 Business Premium", MonthlyCost: 22.00},

	// Add-ons
	{SKUID: "f30db892-07e9-47e9-837c-80727f46fd3d", SKUName: "Microsoft Flow Free", MonthlyCost: 0.00},
	{SKUID: "f8a1db68-be16-40ed-86d5-cb42ce701560", SKUName: "Power BI Pro", MonthlyCost: 9.99},
	{SKUID: "a403ebcc-fae0-4ca2-8c8c-7a907fd6c235", SKUName: "Power BI Premium", MonthlyCost: 20.00},
	{SKUID: "440eaaa8-b3e0-484b-a8be-62870b9ba70a", SKUName: "Visio Plan 2", MonthlyCost: 15.00},
	{SKUID: "4b590615-0888-425a-a965-b3bf7789848d", SKUName: "Project Plan 3", MonthlyCost: 30.00},
}

// SeedDefaults populates an empty price lookup with the GUID-keyed starter
// prices. A lookup that already has entries is left alone.
func SeedDefaults(s *store.Store) error {
	n, err := s.PriceCount()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	for _, p := range defaultPrices {
		if err := s.UpsertPrice(p.SKUID, p.SKUName, p.MonthlyCost); err != nil {
			return err
		}
	}
	logging.Pricing("Seeded price lookup with %d default prices", len(defaultPrices))
	return nil
}
