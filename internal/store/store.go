// Package store builds the embedded SQLite database shipped to the mobile
// client. A Store owns a single connection and a single transaction that
// spans the whole load; Finalize commits it and leaves a compact,
// self-contained file behind.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/JonMunkholm/dbexport/internal/core"
)

// ErrClosed is returned by operations on a finalized or closed Store.
var ErrClosed = errors.New("store: closed")

// Store is the write side of the output database.
type Store struct {
	path string
	db   *sqlx.DB
	tx   *sqlx.Tx
}

// Create replaces any database at path (including WAL side files), applies
// the bulk-load pragmas, creates the empty tables and opens the load
// transaction.
func Create(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("store: remove %s: %w", p, err)
		}
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Pragmas are per connection; pin the pool to one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range loadPragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: begin: %w", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			db.Close()
			return nil, fmt.Errorf("store: create schema: %w", err)
		}
	}

	return &Store{path: path, db: db, tx: tx}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// InsertInventory writes one batch of product rows.
func (s *Store) InsertInventory(ctx context.Context, records []core.InventoryRecord) error {
	if err := s.execBatch(ctx, insertInventorySQL, len(records), func(stmt *sqlx.NamedStmt, i int) error {
		_, err := stmt.ExecContext(ctx, records[i])
		return err
	}); err != nil {
		return fmt.Errorf("store: insert %s: %w", TableInventory, err)
	}
	return nil
}

// UpsertStock writes stock rows; a repeated (code, location) pair keeps the
// last quantity written.
func (s *Store) UpsertStock(ctx context.Context, records []core.StockRecord) error {
	if err := s.execBatch(ctx, upsertStockSQL, len(records), func(stmt *sqlx.NamedStmt, i int) error {
		_, err := stmt.ExecContext(ctx, records[i])
		return err
	}); err != nil {
		return fmt.Errorf("store: upsert %s: %w", TableStock, err)
	}
	return nil
}

// InsertPurchases writes one batch of purchase lines.
func (s *Store) InsertPurchases(ctx context.Context, records []core.PurchaseRecord) error {
	if err := s.execBatch(ctx, insertPurchaseSQL, len(records), func(stmt *sqlx.NamedStmt, i int) error {
		_, err := stmt.ExecContext(ctx, records[i])
		return err
	}); err != nil {
		return fmt.Errorf("store: insert %s: %w", TablePurchases, err)
	}
	return nil
}

// execBatch prepares query once and runs exec for each of the n records.
func (s *Store) execBatch(ctx context.Context, query string, n int, exec func(*sqlx.NamedStmt, int) error) error {
	if s.tx == nil {
		return ErrClosed
	}
	if n == 0 {
		return nil
	}

	stmt, err := s.tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// CreateInventoryIndexes indexes the inventory and stock tables.
func (s *Store) CreateInventoryIndexes(ctx context.Context) error {
	return s.createIndexes(ctx, inventoryIndexes)
}

// CreatePurchaseIndexes indexes the purchases table.
func (s *Store) CreatePurchaseIndexes(ctx context.Context) error {
	return s.createIndexes(ctx, purchaseIndexes)
}

func (s *Store) createIndexes(ctx context.Context, stmts []string) error {
	if s.tx == nil {
		return ErrClosed
	}
	for _, stmt := range stmts {
		if _, err := s.tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: create index: %w", err)
		}
	}
	return nil
}

// Finalize commits the load, restores normal durability, folds the WAL back
// into the main file, compacts it and closes the database. On success the
// file at Path is the only artifact left on disk.
func (s *Store) Finalize(ctx context.Context) error {
	if s.tx == nil {
		return ErrClosed
	}

	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		s.db.Close()
		return fmt.Errorf("store: commit: %w", err)
	}

	for _, stmt := range []string{
		"PRAGMA synchronous=NORMAL",
		"PRAGMA wal_checkpoint(TRUNCATE)",
		"PRAGMA journal_mode=DELETE",
		"VACUUM",
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.db.Close()
			return fmt.Errorf("store: %s: %w", stmt, err)
		}
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

// Close rolls back an unfinished load and releases the connection. It is
// safe to call after Finalize and more than once.
func (s *Store) Close() error {
	if s.tx == nil {
		return nil
	}
	s.tx.Rollback()
	s.tx = nil
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
