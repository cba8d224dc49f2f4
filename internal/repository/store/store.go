package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DB wraps the analytics database connection with thread-safe access.
// The same schema runs on SQLite (default) and PostgreSQL.
type DB struct {
	conn   *sql.DB
	driver string
	mu     sync.RWMutex
}

// New opens the database for the given driver and applies the schema.
func New(driver, dsn string) (*DB, error) {
	var conn *sql.DB
	var err error

	switch driver {
	case DriverSQLite:
		conn, err = sql.Open(DriverSQLite, dsn+"?_journal_mode=WAL&_busy_timeout=5000")
		if err == nil {
			conn.SetMaxOpenConns(1)
			conn.SetMaxIdleConns(1)
			conn.SetConnMaxLifetime(0)
		}
	case DriverPostgres:
		conn, err = sql.Open(DriverPostgres, dsn)
		if err == nil {
			conn.SetMaxOpenConns(10)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, driver: driver}

	if err := db.Migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// NewWithConn wraps an already opened connection without migrating it.
func NewWithConn(conn *sql.DB, driver string) *DB {
	return &DB{conn: conn, driver: driver}
}

// Migrate creates the tables if they don't exist.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, stmt := range schema(db.driver) {
		if _, err := db.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func schema(driver string) []string {
	id := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	ts := "DATETIME"
	if driver == DriverPostgres {
		id = "id BIGSERIAL PRIMARY KEY"
		ts = "TIMESTAMPTZ"
	}

	// date trzymamy jako TEXT (YYYY-MM-DD) w obu bazach
	return []string{
		`CREATE TABLE IF NOT EXISTS visitors (
			` + id + `,
			visitor_count INTEGER NOT NULL DEFAULT 0,
			timestamp ` + ts + ` NOT NULL,
			date TEXT NOT NULL,
			hour INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS section_analytics (
			` + id + `,
			section_name TEXT NOT NULL,
			visitor_count INTEGER NOT NULL DEFAULT 0,
			male_count INTEGER NOT NULL DEFAULT 0,
			female_count INTEGER NOT NULL DEFAULT 0,
			heatmap_data TEXT,
			object_counts TEXT,
			timestamp ` + ts + ` NOT NULL,
			date TEXT NOT NULL,
			hour INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cashier_analytics (
			` + id + `,
			queue_length INTEGER NOT NULL DEFAULT 0,
			estimated_wait_time REAL NOT NULL DEFAULT 0,
			is_busy BOOLEAN NOT NULL DEFAULT FALSE,
			estimated_transactions INTEGER NOT NULL DEFAULT 0,
			timestamp ` + ts + ` NOT NULL,
			date TEXT NOT NULL,
			hour INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS customer_dwell_time (
			` + id + `,
			session_id TEXT NOT NULL,
			track_id INTEGER NOT NULL,
			section_name TEXT NOT NULL,
			entry_time ` + ts + ` NOT NULL,
			exit_time ` + ts + ` NOT NULL,
			duration_seconds REAL NOT NULL,
			date TEXT NOT NULL,
			hour INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_visitors_date ON visitors(date, hour)`,
		`CREATE INDEX IF NOT EXISTS idx_section_date ON section_analytics(date, section_name)`,
		`CREATE INDEX IF NOT EXISTS idx_cashier_date ON cashier_analytics(date, hour)`,
		`CREATE INDEX IF NOT EXISTS idx_cashier_timestamp ON cashier_analytics(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_dwell_date ON customer_dwell_time(date, section_name)`,
	}
}

// Rebind rewrites ? placeholders into the driver's syntax.
func (db *DB) Rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Driver returns the driver name.
func (db *DB) Driver() string {
	return db.driver
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection for use by repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Lock acquires a write lock.
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the write lock.
func (db *DB) Unlock() {
	db.mu.Unlock()
}

// RLock acquires a read lock.
func (db *DB) RLock() {
	db.mu.RLock()
}

// RUnlock releases the read lock.
func (db *DB) RUnlock() {
	db.mu.RUnlock()
}
