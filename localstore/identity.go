// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// The remote service and this store assign ids independently, so the
// correlation remote-id -> email learned during merchant sync is kept
// in a metadata table. It lets listing owner resolution work even on
// cycles where the merchant fetch failed and no fresh batch exists.

// RememberRemoteIdentity records (or refreshes) the email the remote
// service associates with remoteID.
func (s *Store) RememberRemoteIdentity(ctx context.Context, remoteID int64, email string) error {
	return s.write(ctx, []string{"_sync_remote_identity"}, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO _sync_remote_identity (remote_id, email) VALUES (?, ?)
			ON CONFLICT(remote_id) DO UPDATE SET email = excluded.email`,
			remoteID, email)
		if err != nil {
			return fmt.Errorf("failed to remember remote identity %d: %w", remoteID, err)
		}
		return nil
	})
}

// ResolveRemoteOwner maps a remote merchant id to the local account id
// of the same logical seller, through the remembered email. Returns
// ErrNotFound when the remote id was never seen or its email has no
// local account.
func (s *Store) ResolveRemoteOwner(ctx context.Context, remoteID int64) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		SELECT a.id FROM _sync_remote_identity ri
		JOIN account a ON a.email = ri.email
		WHERE ri.remote_id = ?`, remoteID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("remote id %d: %w", remoteID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve remote owner: %w", err)
	}
	return id, nil
}
