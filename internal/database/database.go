package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DB is a connection together with the SQL dialect of its driver.
type DB struct {
	*sql.DB
	Driver string
}

// NewConnection opens and pings a database. Driver is "sqlite" or "postgres".
func NewConnection(ctx context.Context, driver, connectStr string) (*DB, error) {
	switch driver {
	case "", "sqlite":
		driver = "sqlite"
	case "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, connectStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if driver == "sqlite" {
		// One connection keeps :memory: databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	slog.Debug("database connection established", "driver", driver)
	return &DB{DB: db, Driver: driver}, nil
}

// Rebind rewrites ? placeholders into the driver's bind syntax.
func (db *DB) Rebind(query string) string {
	if db.Driver != "postgres" {
		return query
	}
	var b strings.Builder
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

var schema = []string{
	`CREATE TABLE IF NOT EXISTS conversions (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		source_path TEXT NOT NULL,
		output_path TEXT NOT NULL,
		checksum TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		slides INTEGER NOT NULL DEFAULT 0,
		frames INTEGER NOT NULL DEFAULT 0,
		sections INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		images INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS conversions_checksum ON conversions (checksum)`,
	`CREATE TABLE IF NOT EXISTS converted_slides (
		conversion_id TEXT NOT NULL REFERENCES conversions (id) ON DELETE CASCADE,
		slide_number INTEGER NOT NULL,
		title TEXT NOT NULL,
		section INTEGER NOT NULL DEFAULT 0,
		items INTEGER NOT NULL DEFAULT 0,
		images TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (conversion_id, slide_number)
	)`,
	`CREATE TABLE IF NOT EXISTS ai_usage (
		conversion_id TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
}

// EnsureSchema creates the tables used by the watcher.
func EnsureSchema(ctx context.Context, db *DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
