// Package store persists M365 cost-audit data in SQLite: collection runs,
// license inventory, per-user assignments and sign-in activity, the price
// lookup table, checkpoints and retry history for resumable collection, and
// imported ADP employee records.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"m365audit/internal/logging"
)

// Store wraps the SQLite database holding all audit data.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Open initializes the SQLite database at the given path, creating the
// parent directory and schema as needed.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	logging.Store("Opening store at %s", path)

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set journal_mode=WAL: %v", err)
	}
	// NORMAL is safe under WAL and much faster than FULL for batch writes.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set synchronous=NORMAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logging.StoreDebug("Failed to enable foreign_keys: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.StoreDebug("Schema initialized")
	return s, nil
}

// initialize creates the required tables and indexes.
func (s *Store) initialize() error {
	runsTable := `
	CREATE TABLE IF NOT EXISTS collection_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_token TEXT,
		timestamp TEXT NOT NULL DEFAULT (datetime('now')),
		status TEXT NOT NULL CHECK(status IN ('completed', 'failed', 'running')),
		error_message TEXT,
		records_collected INTEGER
	);
	`

	licensesTable := `
	CREATE TABLE IF NOT EXISTS licenses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection_run_id INTEGER NOT NULL,
		sku_id TEXT NOT NULL,
		sku_name TEXT NOT NULL,
		total_licenses INTEGER NOT NULL,
		assigned_licenses INTEGER NOT NULL,
		available_licenses INTEGER NOT NULL,
		FOREIGN KEY (collection_run_id) REFERENCES collection_runs(id)
	);
	CREATE INDEX IF NOT EXISTS idx_licenses_run ON licenses(collection_run_id);
	`

	priceTable := `
	CREATE TABLE IF NOT EXISTS price_lookup (
		sku_id TEXT PRIMARY KEY,
		sku_name TEXT NOT NULL,
		monthly_cost REAL NOT NULL CHECK(monthly_cost >= 0),
		last_updated TEXT NOT NULL DEFAULT (datetime('now'))
	);
	`

	userLicensesTable := `
	CREATE TABLE IF NOT EXISTS user_licenses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection_run_id INTEGER NOT NULL,
		user_principal_name TEXT NOT NULL,
		sku_id TEXT NOT NULL,
		FOREIGN KEY (collection_run_id) REFERENCES collection_runs(id),
		UNIQUE(collection_run_id, user_principal_name, sku_id)
	);
	CREATE INDEX IF NOT EXISTS idx_user_licenses_run ON user_licenses(collection_run_id);
	`

	userActivityTable := `
	CREATE TABLE IF NOT EXISTS user_activity (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection_run_id INTEGER NOT NULL,
		user_principal_name TEXT NOT NULL,
		last_sign_in_date TEXT,
		FOREIGN KEY (collection_run_id) REFERENCES collection_runs(id),
		UNIQUE(collection_run_id, user_principal_name)
	);
	CREATE INDEX IF NOT EXISTS idx_user_activity_run ON user_activity(collection_run_id);
	`

	checkpointsTable := `
	CREATE TABLE IF NOT EXISTS collection_checkpoints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection_run_id INTEGER NOT NULL,
		timestamp TEXT NOT NULL DEFAULT (datetime('now')),
		phase TEXT NOT NULL,
		progress INTEGER NOT NULL,
		total INTEGER NOT NULL,
		details TEXT,
		FOREIGN KEY (collection_run_id) REFERENCES collection_runs(id)
	);
	CREATE INDEX IF NOT EXISTS idx_checkpoints_run ON collection_checkpoints(collection_run_id);
	`

	progressTable := `
	CREATE TABLE IF NOT EXISTS collection_progress (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection_run_id INTEGER NOT NULL,
		timestamp TEXT NOT NULL DEFAULT (datetime('now')),
		phase TEXT NOT NULL,
		progress INTEGER NOT NULL,
		total INTEGER NOT NULL,
		message TEXT,
		FOREIGN KEY (collection_run_id) REFERENCES collection_runs(id)
	);
	CREATE INDEX IF NOT EXISTS idx_progress_run ON collection_progress(collection_run_id);
	`

	retryTable := `
	CREATE TABLE IF NOT EXISTS retry_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection_run_id INTEGER NOT NULL,
		timestamp TEXT NOT NULL DEFAULT (datetime('now')),
		endpoint TEXT NOT NULL,
		attempt INTEGER NOT NULL,
		delay REAL NOT NULL,
		reason TEXT,
		FOREIGN KEY (collection_run_id) REFERENCES collection_runs(id)
	);
	CREATE INDEX IF NOT EXISTS idx_retry_run ON retry_log(collection_run_id);
	`

	adpTable := `
	CREATE TABLE IF NOT EXISTS adp_employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		import_timestamp TEXT NOT NULL,
		legal_name TEXT,
		preferred_first_name TEXT,
		preferred_last_name TEXT,
		position_id TEXT,
		hire_date TEXT,
		job_title TEXT,
		position_start_date TEXT,
		position_status TEXT,
		location TEXT,
		work_email TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_adp_email ON adp_employees(work_email);
	CREATE INDEX IF NOT EXISTS idx_adp_status ON adp_employees(position_status);
	`

	for _, table := range []string{
		runsTable,
		licensesTable,
		priceTable,
		userLicensesTable,
		userActivityTable,
		checkpointsTable,
		progressTable,
		retryTable,
		adpTable,
	} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	if err := RunMigrations(s.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	logging.Store("Closing store")
	return s.db.Close()
}

// DB returns the underlying SQL database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Stats returns row counts per table, for the status command.
func (s *Store) Stats() (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(map[string]int64)
	tables := []string{
		"collection_runs", "licenses", "price_lookup", "user_licenses",
		"user_activity", "collection_checkpoints", "retry_log", "adp_employees",
	}
	for _, table := range tables {
		var count int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			logging.StoreDebug("Count failed for %s: %v", table, err)
			continue
		}
		stats[table] = count
	}
	return stats, nil
}
