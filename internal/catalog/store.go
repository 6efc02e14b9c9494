// Package catalog owns the persistent book catalog: the SQLite store, the
// schema, and the repository primitives used by the ingestion pipeline.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps the catalog database connection.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the catalog database at the given path and runs
// the schema migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("failed to connect to catalog database: %w", err), closeErr)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(err, closeErr)
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	for _, schema := range allSchemas {
		if _, err := s.db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create catalog table: %w", err)
		}
	}
	return nil
}

// DB exposes the underlying handle for operations that run outside the
// per-run transaction (log writes, last-scraped touches).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Begin opens the transaction that scopes one ingestion run.
func (s *Store) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
