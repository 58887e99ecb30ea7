package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect names the SQL flavour behind a DB.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DB wraps sql.DB for Postgres (pgx) or SQLite (go-sqlite3).
type DB struct {
	Client  *sql.DB
	Dialect Dialect
}

// NewDB opens the database named by url. postgres:// and postgresql:// URLs
// use pgx; sqlite://path or a bare file path use SQLite.
func NewDB(url string) (*DB, error) {
	dialect, driver, dsn := parseURL(url)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	switch dialect {
	case SQLite:
		// One writer at a time; concurrent callers queue on the pool.
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return &DB{Client: db, Dialect: dialect}, nil
}

func parseURL(url string) (Dialect, string, string) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return Postgres, "pgx", url
	default:
		path := strings.TrimPrefix(url, "sqlite://")
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return SQLite, "sqlite3", path + sep + "_journal_mode=WAL&_busy_timeout=5000"
	}
}

// Migrate creates the subject registry and attendance tables if missing.
// UNIQUE(code, date) is the once-per-day guarantee the ledger relies on.
func (d *DB) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if d.Dialect == Postgres {
		schema = postgresSchema
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Healthy verifies database connectivity.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.Client == nil {
		return false
	}
	return d.Client.PingContext(ctx) == nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS subjects (
	code        TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	major       TEXT NOT NULL DEFAULT '',
	enrolled_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS attendance_records (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	major       TEXT NOT NULL DEFAULT '',
	code        TEXT NOT NULL,
	date        TEXT NOT NULL,
	scans       INTEGER NOT NULL DEFAULT 1,
	source      TEXT NOT NULL DEFAULT '',
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (code, date)
);
CREATE INDEX IF NOT EXISTS idx_attendance_records_date ON attendance_records (date);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS subjects (
	code        TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	major       TEXT NOT NULL DEFAULT '',
	enrolled_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS attendance_records (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	major       TEXT NOT NULL DEFAULT '',
	code        TEXT NOT NULL,
	date        TEXT NOT NULL,
	scans       INTEGER NOT NULL DEFAULT 1,
	source      TEXT NOT NULL DEFAULT '',
	recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (code, date)
);
CREATE INDEX IF NOT EXISTS idx_attendance_records_date ON attendance_records (date);
`
