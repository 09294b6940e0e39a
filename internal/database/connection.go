package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names registered by the imported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Connect opens the database and creates the schema. For SQLite the dsn is
// a file path whose directory is created when missing.
func Connect(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	if driver == DriverSQLite {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []struct {
	name string
	stmt string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			xp INTEGER NOT NULL DEFAULT 0,
			xp_max INTEGER NOT NULL DEFAULT 10,
			level INTEGER NOT NULL DEFAULT 1,
			next_bonus BIGINT NOT NULL,
			notification_hour INTEGER NOT NULL DEFAULT 9,
			created_at BIGINT NOT NULL
		)`},
	{"tier_counters", `
		CREATE TABLE IF NOT EXISTS tier_counters (
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			next_tier INTEGER NOT NULL,
			PRIMARY KEY (user_id, kind)
		)`},
	{"srs_records", `
		CREATE TABLE IF NOT EXISTS srs_records (
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			item_id TEXT NOT NULL,
			level INTEGER NOT NULL DEFAULT 0,
			level_old INTEGER NOT NULL DEFAULT 0,
			incorrect INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, kind, item_id)
		)`},
	{"lesson_queue", `
		CREATE TABLE IF NOT EXISTS lesson_queue (
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			track TEXT NOT NULL,
			kind TEXT NOT NULL,
			item_id TEXT NOT NULL,
			mode INTEGER NOT NULL,
			due_at BIGINT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (user_id, kind, item_id)
		)`},
	{"lesson_queue_due", `
		CREATE INDEX IF NOT EXISTS lesson_queue_due ON lesson_queue (user_id, track, due_at)`},
	{"tiers", `
		CREATE TABLE IF NOT EXISTS tiers (
			kind TEXT NOT NULL,
			tier INTEGER NOT NULL,
			PRIMARY KEY (kind, tier)
		)`},
	{"content_items", `
		CREATE TABLE IF NOT EXISTS content_items (
			kind TEXT NOT NULL,
			item_id TEXT NOT NULL,
			tier INTEGER NOT NULL,
			position INTEGER NOT NULL,
			answers TEXT NOT NULL,
			details TEXT NOT NULL,
			PRIMARY KEY (kind, item_id)
		)`},
	{"content_items_tier", `
		CREATE INDEX IF NOT EXISTS content_items_tier ON content_items (kind, tier, position)`},
}

// Migrate creates the tables that don't exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, s := range schema {
		if _, err := db.ExecContext(ctx, s.stmt); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.name, err)
		}
	}
	return nil
}
