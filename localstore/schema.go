// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"fmt"
)

// SchemaVersion is stored in PRAGMA user_version. Bumping it drops and
// re-creates every table on the next Open: there is no migration path,
// because every row is re-derivable from the remote authority.
const SchemaVersion = 3

var tableNames = []string{"bookmark", "listing", "merchant", "account", "_sync_remote_identity"}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS account (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name        TEXT NOT NULL DEFAULT '',
		last_name         TEXT NOT NULL DEFAULT '',
		email             TEXT NOT NULL UNIQUE,
		password_hash     TEXT NOT NULL,
		role              TEXT NOT NULL CHECK (role IN ('CLIENT','MERCHANT')),
		image_path        TEXT,
		email_verified    INTEGER NOT NULL DEFAULT 0,
		verification_code TEXT,
		created_at        TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,

	// Shared-key relationship: a merchant id IS its account id.
	`CREATE TABLE IF NOT EXISTS merchant (
		id         INTEGER PRIMARY KEY REFERENCES account(id) ON DELETE CASCADE,
		phone      TEXT NOT NULL DEFAULT '',
		address    TEXT NOT NULL DEFAULT '',
		store_name TEXT NOT NULL,
		image_path TEXT
	)`,

	// Ownership is nullable: deleting an account orphans its listings
	// into the public pool instead of cascading.
	`CREATE TABLE IF NOT EXISTS listing (
		id          INTEGER PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category    TEXT NOT NULL DEFAULT '',
		owner_id    INTEGER REFERENCES account(id) ON DELETE SET NULL,
		producer    TEXT NOT NULL DEFAULT '',
		images      TEXT NOT NULL, -- JSON array, 1..10 entries
		price       REAL NOT NULL CHECK (price >= 0),
		location    TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS bookmark (
		account_id INTEGER NOT NULL REFERENCES account(id) ON DELETE CASCADE,
		listing_id INTEGER NOT NULL REFERENCES listing(id) ON DELETE CASCADE,
		PRIMARY KEY (account_id, listing_id)
	)`,

	// Sync metadata: remote-id -> email correlation learned from
	// merchant batches. The remote authority's ids are unrelated to
	// local account ids; email is the bridge between them.
	`CREATE TABLE IF NOT EXISTS _sync_remote_identity (
		remote_id INTEGER PRIMARY KEY,
		email     TEXT NOT NULL
	)`,
}

func (s *Store) ensureSchema() error {
	var version int
	if err := s.DB.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version != 0 && version != SchemaVersion {
		s.logger.Warn("schema version mismatch, recreating all tables",
			"have", version, "want", SchemaVersion)
		for _, name := range tableNames {
			if _, err := s.DB.Exec(`DROP TABLE IF EXISTS ` + name); err != nil {
				return fmt.Errorf("failed to drop table %s: %w", name, err)
			}
		}
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	if _, err := s.DB.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, SchemaVersion)); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}
