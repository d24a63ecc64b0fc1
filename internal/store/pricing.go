package store

import (
	"fmt"

	"m365audit/internal/logging"
)

// Price is one row of the SKU price lookup table.
type Price struct {
	SKUID       string
	SKUName     string
	MonthlyCost float64
	LastUpdated string
}

// UpsertPrice inserts or replaces a single price entry.
func (s *Store) UpsertPrice(skuID, skuName string, monthlyCost float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO price_lookup (sku_id, sku_name, monthly_cost, last_updated)
		VALUES (?, ?, ?, datetime('now'))`,
		skuID, skuName, monthlyCost,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert price for %s: %w", skuID, err)
	}
	return nil
}

// ReplaceAllPrices clears the price lookup and writes the given entries in
// a single transaction.
func (s *Store) ReplaceAllPrices(prices []Price) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM price_lookup"); err != nil {
		return fmt.Errorf("failed to clear price lookup: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO price_lookup (sku_id, sku_name, monthly_cost, last_updated)
		VALUES (?, ?, ?, datetime('now'))`)
	if err != nil {
		return fmt.Errorf("failed to prepare price insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range prices {
		if _, err := stmt.Exec(p.SKUID, p.SKUName, p.MonthlyCost); err != nil {
			return fmt.Errorf("failed to insert price for %s: %w", p.SKUID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prices: %w", err)
	}
	logging.Pricing("Replaced price lookup with %d entries", len(prices))
	return nil
}

// AllPrices returns the price lookup table ordered by monthly cost descending.
func (s *Store) AllPrices() ([]Price, error) {
	rows, err := s.db.Query(`
		SELECT sku_id, sku_name, monthly_cost, last_updated
		FROM price_lookup
		ORDER BY monthly_cost DESC, sku_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var prices []Price
	for rows.Next() {
		var p Price
		if err := rows.Scan(&p.SKUID, &p.SKUName, &p.MonthlyCost, &p.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// PriceCount returns the number of entries in the price lookup.
func (s *Store) PriceCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM price_lookup").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count prices: %w", err)
	}
	return n, nil
}
