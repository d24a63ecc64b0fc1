// This file implements the column-add migration pass for databases created by
// earlier versions of the tool, which predate run tokens and the progress
// table's message column.
package store

import (
	"database/sql"
	"fmt"

	"m365audit/internal/logging"
)

// Migration defines a single additive schema migration.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists all schema migrations to apply. These handle cases
// where tables exist but are missing newer columns.
var pendingMigrations = []Migration{
	// Run correlation token (added so external reports can reference a run
	// without depending on AUTOINCREMENT ids surviving a vacuum).
	{"collection_runs", "run_token", "TEXT"},
	// Progress messages (added with incremental fetch)
	{"collection_progress", "message", "TEXT"},
	// Retry reasons were originally unrecorded
	{"retry_log", "reason", "TEXT"},
}

// RunMigrations applies additive schema migrations for existing databases.
func RunMigrations(db *sql.DB) error {
	applied := 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %s.%s failed: %w", m.Table, m.Column, err)
		}
		logging.Store("Applied migration: %s.%s", m.Table, m.Column)
		applied++
	}
	if applied > 0 {
		logging.Store("Schema migrations applied: %d", applied)
	}
	return nil
}

// tableExists reports whether the named table exists.
func tableExists(db *sql.DB, table string) bool {
	var name string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
	).Scan(&name)
	return err == nil
}

// columnExists reports whether the named column exists on the table.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}
