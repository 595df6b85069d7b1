// Package localstore provides the SQLite-backed relational cache for
// marketplace data synchronized from the remote catalog service.
//
// The store is the single shared mutable resource of the sync engine:
// reconcilers write through its upsert primitives, read models observe
// it through Watch. All rows are re-derivable from the remote
// authority, so a schema version bump destructively re-creates the
// tables instead of migrating them.
// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Store manages the local SQLite database and reactive notifications.
type Store struct {
	DB      *sql.DB
	logger  *slog.Logger
	writeMu sync.Mutex // serialize write transactions to prevent SQLite locking issues

	watchMu  sync.Mutex
	watchers map[*Watcher]struct{}
}

// Open opens (or creates) the database at dsn and prepares the schema.
// Use ":memory:" for an ephemeral store in tests.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every pooled connection to ":memory:" gets its own database, so
	// the pool must collapse to a single connection there.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}
	store, err := NewStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an existing database handle and prepares the schema.
func NewStore(db *sql.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		DB:       db,
		logger:   logger,
		watchers: make(map[*Watcher]struct{}),
	}
	if err := s.initialize(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	// WAL keeps readers unblocked while sync stages write.
	if _, err := s.DB.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.DB.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := s.ensureSchema(); err != nil {
		return fmt.Errorf("failed to prepare schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle. Watchers are closed
// first so observers do not block on a dead store.
func (s *Store) Close() error {
	s.watchMu.Lock()
	for w := range s.watchers {
		close(w.c)
	}
	s.watchers = make(map[*Watcher]struct{})
	s.watchMu.Unlock()
	return s.DB.Close()
}

// write runs fn inside a serialized write transaction and, on commit,
// notifies watchers of the touched tables.
func (s *Store) write(ctx context.Context, tables []string, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	s.notify(tables)
	return nil
}
