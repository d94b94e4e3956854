// Package database provides helpers to initialize and manage the SQLite
// database connection and run embedded migrations.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed sql/0*.sql
var migrations embed.FS

// InitDB initializes a SQLite database connection
// Returns *sql.DB ready for use with NewQueries
// Supports both file-based and in-memory databases (:memory:)
func InitDB(ctx context.Context, dbPath string) (*sql.DB, error) {
	var dsn string

	if dbPath == ":memory:" {
		// In-memory database - no file operations needed
		dsn = ":memory:?_pragma=foreign_keys(ON)&_pragma=temp_store(MEMORY)&_pragma=cache_size(-64000)"
	} else {
		// File-based database with optimizations for API usage. _txlock=
		// immediate makes every BeginTx take the write lock up front instead
		// of deferring it to the first write statement, so concurrent
		// ReserveBatch callers (see internal/database/queries.go) serialize
		// against each other rather than both reading the same unchecked
		// rows before either commits.
		dsn = fmt.Sprintf(
			"file:%s?mode=rwc"+
				"&_pragma=journal_mode(WAL)"+
				"&_pragma=synchronous(NORMAL)"+
				"&_pragma=busy_timeout(10000)"+
				"&_pragma=journal_size_limit(67108864)"+
				"&_pragma=mmap_size(536870912)"+
				"&_pragma=cache_size(-64000)"+
				"&_pragma=foreign_keys(ON)"+
				"&_txlock=immediate",
			dbPath,
		)
	}

	// Open connection with modernc.org/sqlite
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool to deal with concurrent access patterns (single writer, multiple readers)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("failed to ping database: %w", errors.Join(err, cerr))
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Apply schema migrations
	if err := migrate(ctx, db); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("failed to apply database schema: %w", errors.Join(err, cerr))
		}
		return nil, fmt.Errorf("failed to apply database schema: %w", err)
	}

	return db, nil
}

// NewQueries creates a Queries instance from database connection
func NewQueries(db *sql.DB) *Queries {
	return New(db)
}

// CloseDB closes the database connection
func CloseDB(db *sql.DB) error {
	if db != nil {
		if err := db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}

// migrate applies the database schema using goose migrations
// Safe to run multiple times (idempotent via goose version tracking)
func migrate(ctx context.Context, db *sql.DB) error {
	// Create a sub filesystem for the sql directory
	subFS, err := fs.Sub(migrations, "sql")
	if err != nil {
		return fmt.Errorf("failed to create sub filesystem: %w", err)
	}

	// Use goose.NewProvider to avoid global state race conditions (SetBaseFS/SetDialect)
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("failed to create goose provider: %w", err)
	}

	// Run all up migrations
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply schema migrations: %w", err)
	}

	return nil
}
