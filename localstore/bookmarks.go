// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"context"
	"database/sql"
	"fmt"
)

// AddBookmark records a favorite relationship. Adding an existing
// (account, listing) pair is a no-op: the composite primary key plus
// conflict handling guarantee at most one row per pair.
func (s *Store) AddBookmark(ctx context.Context, accountID, listingID int64) error {
	return s.write(ctx, []string{"bookmark"}, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bookmark (account_id, listing_id) VALUES (?, ?)
			ON CONFLICT(account_id, listing_id) DO NOTHING`,
			accountID, listingID)
		if err != nil {
			return fmt.Errorf("failed to add bookmark (%d,%d): %w", accountID, listingID, err)
		}
		return nil
	})
}

// RemoveBookmark deletes a favorite relationship if present.
func (s *Store) RemoveBookmark(ctx context.Context, accountID, listingID int64) error {
	return s.write(ctx, []string{"bookmark"}, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM bookmark WHERE account_id = ? AND listing_id = ?`,
			accountID, listingID)
		if err != nil {
			return fmt.Errorf("failed to remove bookmark (%d,%d): %w", accountID, listingID, err)
		}
		return nil
	})
}

// IsBookmarked reports whether the account has favorited the listing.
func (s *Store) IsBookmarked(ctx context.Context, accountID, listingID int64) (bool, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookmark WHERE account_id = ? AND listing_id = ?`,
		accountID, listingID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query bookmark: %w", err)
	}
	return n > 0, nil
}
