// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertMerchant inserts the merchant or fully replaces the existing
// row with the same id. The id must reference an existing account row;
// a foreign key failure here indicates an ordering bug in the caller
// (account not persisted first) and is returned as-is.
func (s *Store) UpsertMerchant(ctx context.Context, m *Merchant) error {
	return s.write(ctx, []string{"merchant"}, func(tx *sql.Tx) error {
		return upsertMerchantTx(ctx, tx, m)
	})
}

func upsertMerchantTx(ctx context.Context, tx *sql.Tx, m *Merchant) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO merchant (id, phone, address, store_name, image_path)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phone = excluded.phone, address = excluded.address,
			store_name = excluded.store_name, image_path = excluded.image_path`,
		m.ID, m.Phone, m.Address, m.StoreName, m.ImagePath)
	if err != nil {
		return fmt.Errorf("failed to upsert merchant %d: %w", m.ID, err)
	}
	return nil
}

// GetMerchant returns the merchant with the given id, or ErrNotFound.
func (s *Store) GetMerchant(ctx context.Context, id int64) (*Merchant, error) {
	var m Merchant
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, phone, address, store_name, image_path FROM merchant WHERE id = ?`, id).
		Scan(&m.ID, &m.Phone, &m.Address, &m.StoreName, &m.ImagePath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan merchant: %w", err)
	}
	return &m, nil
}

// ReplaceMerchant rewrites the merchant row and propagates the
// storefront name to the producer field of every listing owned by the
// same account, in one transaction. Callers observing the store after
// this returns never see a merchant rename without the matching
// listing producers.
func (s *Store) ReplaceMerchant(ctx context.Context, m *Merchant) error {
	return s.write(ctx, []string{"merchant", "listing"}, func(tx *sql.Tx) error {
		if err := upsertMerchantTx(ctx, tx, m); err != nil {
			return err
		}
		return propagateProducerTx(ctx, tx, m.ID, m.StoreName)
	})
}

func propagateProducerTx(ctx context.Context, tx *sql.Tx, ownerID int64, producer string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE listing SET producer = ? WHERE owner_id = ?`, producer, ownerID)
	if err != nil {
		return fmt.Errorf("failed to propagate producer name for owner %d: %w", ownerID, err)
	}
	return nil
}

// CountMerchants returns the number of merchant rows.
func (s *Store) CountMerchants(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM merchant`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count merchants: %w", err)
	}
	return n, nil
}

// OrphanMerchantIDs returns merchant ids with no matching account row.
// A non-empty result indicates a broken ordering invariant upstream;
// with foreign keys enabled it should always be empty.
func (s *Store) OrphanMerchantIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT m.id FROM merchant m LEFT JOIN account a ON a.id = m.id
		WHERE a.id IS NULL ORDER BY m.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query orphan merchants: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan orphan merchant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
