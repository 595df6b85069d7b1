// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

const listingColumns = `id, name, description, category, owner_id, producer, images, price, location`

// UpsertListing inserts the listing or fully replaces the existing row
// with the same id. No field-level merge: every column comes from l.
func (s *Store) UpsertListing(ctx context.Context, l *Listing) error {
	if err := l.Validate(); err != nil {
		return err
	}
	return s.write(ctx, []string{"listing"}, func(tx *sql.Tx) error {
		return upsertListingTx(ctx, tx, l)
	})
}

func upsertListingTx(ctx context.Context, tx *sql.Tx, l *Listing) error {
	images, err := json.Marshal(l.Images)
	if err != nil {
		return fmt.Errorf("failed to encode listing images: %w", err)
	}
	// Not INSERT OR REPLACE: with foreign keys on, REPLACE deletes the
	// old row first and that delete cascades into bookmarks. Upsert of
	// an existing listing must leave its bookmarks alone.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO listing (id, name, description, category, owner_id, producer, images, price, location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, description = excluded.description,
			category = excluded.category, owner_id = excluded.owner_id,
			producer = excluded.producer, images = excluded.images,
			price = excluded.price, location = excluded.location`,
		l.ID, l.Name, l.Description, l.Category, l.OwnerID, l.Producer, string(images), l.Price, l.Location)
	if err != nil {
		return fmt.Errorf("failed to upsert listing %d: %w", l.ID, err)
	}
	return nil
}

// DeleteListing removes a single listing; its bookmarks cascade.
func (s *Store) DeleteListing(ctx context.Context, id int64) error {
	return s.write(ctx, []string{"listing", "bookmark"}, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM listing WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete listing: %w", err)
		}
		return requireRow(res, "listing", id)
	})
}

// ReplaceListings applies remote full-replacement semantics in one
// transaction: every given listing is upserted, and local listings
// absent from both the batch and keepIDs are removed (their bookmarks
// cascade). keepIDs shields rows whose remote counterpart was present
// but unusable, so a malformed remote record never deletes a healthy
// local row.
func (s *Store) ReplaceListings(ctx context.Context, listings []Listing, keepIDs ...int64) error {
	for i := range listings {
		if err := listings[i].Validate(); err != nil {
			return err
		}
	}
	return s.write(ctx, []string{"listing", "bookmark"}, func(tx *sql.Tx) error {
		keep := make([]string, 0, len(listings)+len(keepIDs))
		args := make([]any, 0, len(listings)+len(keepIDs))
		for i := range listings {
			if err := upsertListingTx(ctx, tx, &listings[i]); err != nil {
				return err
			}
			keep = append(keep, "?")
			args = append(args, listings[i].ID)
		}
		for _, id := range keepIDs {
			keep = append(keep, "?")
			args = append(args, id)
		}
		del := `DELETE FROM listing`
		if len(keep) > 0 {
			del += ` WHERE id NOT IN (` + strings.Join(keep, ",") + `)`
		}
		if _, err := tx.ExecContext(ctx, del, args...); err != nil {
			return fmt.Errorf("failed to remove stale listings: %w", err)
		}
		return nil
	})
}

// GetListing returns the listing with the given id, or ErrNotFound.
func (s *Store) GetListing(ctx context.Context, id int64) (*Listing, error) {
	rows, err := s.queryListings(ctx, `SELECT `+listingColumns+` FROM listing WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	return &rows[0], nil
}

// ListListings returns every listing ordered by id.
func (s *Store) ListListings(ctx context.Context) ([]Listing, error) {
	return s.queryListings(ctx, `SELECT `+listingColumns+` FROM listing ORDER BY id`)
}

// ListListingsByOwner returns the listings owned by the given account.
func (s *Store) ListListingsByOwner(ctx context.Context, ownerID int64) ([]Listing, error) {
	return s.queryListings(ctx,
		`SELECT `+listingColumns+` FROM listing WHERE owner_id = ? ORDER BY id`, ownerID)
}

// ListListingsByCategory returns the listings tagged with category.
func (s *Store) ListListingsByCategory(ctx context.Context, category string) ([]Listing, error) {
	return s.queryListings(ctx,
		`SELECT `+listingColumns+` FROM listing WHERE category = ? ORDER BY id`, category)
}

// SearchListings performs a case-insensitive substring match across
// name, category, location and producer.
func (s *Store) SearchListings(ctx context.Context, term string) ([]Listing, error) {
	// LIKE is case-insensitive for ASCII in SQLite; escape the LIKE
	// metacharacters so user input is matched literally.
	pattern := "%" + escapeLike(term) + "%"
	return s.queryListings(ctx, `
		SELECT `+listingColumns+` FROM listing
		WHERE name LIKE ? ESCAPE '\'
		   OR category LIKE ? ESCAPE '\'
		   OR location LIKE ? ESCAPE '\'
		   OR producer LIKE ? ESCAPE '\'
		ORDER BY id`, pattern, pattern, pattern, pattern)
}

// ListFavoriteListings returns the bookmark-joined listing set for an
// account, ordered by listing id.
func (s *Store) ListFavoriteListings(ctx context.Context, accountID int64) ([]Listing, error) {
	return s.queryListings(ctx, `
		SELECT l.id, l.name, l.description, l.category, l.owner_id, l.producer, l.images, l.price, l.location
		FROM listing l JOIN bookmark b ON b.listing_id = l.id
		WHERE b.account_id = ? ORDER BY l.id`, accountID)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *Store) queryListings(ctx context.Context, query string, args ...any) ([]Listing, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		var l Listing
		var images string
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.Category, &l.OwnerID,
			&l.Producer, &images, &l.Price, &l.Location); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		if err := json.Unmarshal([]byte(images), &l.Images); err != nil {
			return nil, fmt.Errorf("failed to decode listing images: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
