// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"context"
	"fmt"
	"strings"
)

// Snapshot renders every table as deterministic text, ordered by
// primary key. Two stores hold identical data iff their snapshots are
// byte-identical, which is how sync idempotence is verified.
func (s *Store) Snapshot(ctx context.Context) (string, error) {
	var b strings.Builder
	queries := []struct {
		table string
		query string
	}{
		{"account", `SELECT id, first_name, last_name, email, role, image_path,
			email_verified, verification_code FROM account ORDER BY id`},
		{"merchant", `SELECT id, phone, address, store_name, image_path FROM merchant ORDER BY id`},
		{"listing", `SELECT ` + listingColumns + ` FROM listing ORDER BY id`},
		{"bookmark", `SELECT account_id, listing_id FROM bookmark ORDER BY account_id, listing_id`},
		{"_sync_remote_identity", `SELECT remote_id, email FROM _sync_remote_identity ORDER BY remote_id`},
	}
	// password_hash and created_at are volatile (salted hash, wall
	// clock) and deliberately excluded from the account dump.
	for _, q := range queries {
		fmt.Fprintf(&b, "-- %s\n", q.table)
		rows, err := s.DB.QueryContext(ctx, q.query)
		if err != nil {
			return "", fmt.Errorf("failed to snapshot %s: %w", q.table, err)
		}
		cols, err := rows.Columns()
		if err != nil {
			rows.Close()
			return "", fmt.Errorf("failed to read %s columns: %w", q.table, err)
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		for rows.Next() {
			if err := rows.Scan(ptrs...); err != nil {
				rows.Close()
				return "", fmt.Errorf("failed to scan %s row: %w", q.table, err)
			}
			parts := make([]string, len(vals))
			for i, v := range vals {
				parts[i] = fmt.Sprintf("%v", v)
			}
			fmt.Fprintln(&b, strings.Join(parts, "|"))
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return "", fmt.Errorf("failed to iterate %s rows: %w", q.table, err)
		}
		rows.Close()
	}
	return b.String(), nil
}
