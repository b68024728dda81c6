// Package storage persists the balance tracker's domain model in SQLite.
// The database is the single source of truth: callers re-read current
// state inside a transaction before mutating it.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Repository owns the SQLite connection pool and hands out query sets,
// either pool-bound for reads or transaction-bound via InTx.
type Repository struct {
	db *sql.DB
	q  *Queries
}

// NewRepository opens (creating if necessary) the database at dbPath and
// runs pending migrations.
func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// The pragma rides on the DSN so every pooled connection enforces
	// foreign keys, not just the first one.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Single logical writer: one connection serializes all statements and
	// keeps the pure-Go driver clear of SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, q: NewQueries(db)}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// DB exposes the underlying pool for observability hooks.
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Queries returns the pool-bound query set for read operations.
func (r *Repository) Queries() *Queries {
	return r.q
}

// InTx runs fn inside a single transaction. The query set passed to fn
// is bound to that transaction; any error rolls everything back.
func (r *Repository) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(NewQueries(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
