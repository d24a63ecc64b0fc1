package store

import (
	"fmt"

	"m365audit/internal/logging"
)

// SKURecord is one subscribed SKU captured during a collection run.
type SKURecord struct {
	SKUID     string
	SKUName   string
	Total     int64
	Assigned  int64
	Available int64
}

// InsertLicenses stores the subscribed SKU inventory for a run.
func (s *Store) InsertLicenses(runID int64, skus []SKURecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO licenses (
			collection_run_id, sku_id, sku_name,
			total_licenses, assigned_licenses, available_licenses
		) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare license insert: %w", err)
	}
	defer stmt.Close()

	for _, sku := range skus {
		if _, err := stmt.Exec(runID, sku.SKUID, sku.SKUName, sku.Total, sku.Assigned, sku.Available); err != nil {
			return fmt.Errorf("failed to insert license %s: %w", sku.SKUName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit licenses: %w", err)
	}
	logging.Store("Stored %d SKUs for run %d", len(skus), runID)
	return nil
}

// LicensesForRun returns the stored SKU inventory for a run.
func (s *Store) LicensesForRun(runID int64) ([]SKURecord, error) {
	rows, err := s.db.Query(`
		SELECT sku_id, sku_name, total_licenses, assigned_licenses, available_licenses
		FROM licenses
		WHERE collection_run_id = ?
		ORDER BY sku_name`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query licenses: %w", err)
	}
	defer rows.Close()

	var skus []SKURecord
	for rows.Next() {
		var sku SKURecord
		if err := rows.Scan(&sku.SKUID, &sku.SKUName, &sku.Total, &sku.Assigned, &sku.Available); err != nil {
			return nil, fmt.Errorf("failed to scan license row: %w", err)
		}
		skus = append(skus, sku)
	}
	return skus, rows.Err()
}

// DistinctSKUs returns all distinct (sku_id, sku_name) pairs ever observed in
// the licenses table, for pricing sync.
func (s *Store) DistinctSKUs() ([]SKURecord, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT sku_id, sku_name
		FROM licenses
		ORDER BY sku_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct SKUs: %w", err)
	}
	defer rows.Close()

	var skus []SKURecord
	for rows.Next() {
		var sku SKURecord
		if err := rows.Scan(&sku.SKUID, &sku.SKUName); err != nil {
			return nil, fmt.Errorf("failed to scan SKU row: %w", err)
		}
		skus = append(skus, sku)
	}
	return skus, rows.Err()
}
