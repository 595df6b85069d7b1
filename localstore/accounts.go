// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by point reads when no row matches.
var ErrNotFound = errors.New("localstore: not found")

const accountColumns = `id, first_name, last_name, email, password_hash, role,
	image_path, email_verified, verification_code, created_at`

// CreateAccount inserts a new account and assigns its local id. The
// assigned id is authoritative for all local relations, regardless of
// what id the remote authority uses for the same logical identity.
func (s *Store) CreateAccount(ctx context.Context, a *Account) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return s.write(ctx, []string{"account"}, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO account (first_name, last_name, email, password_hash, role,
				image_path, email_verified, verification_code, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.FirstName, a.LastName, a.Email, a.PasswordHash, a.Role,
			a.ImagePath, a.EmailVerified, a.VerificationCode, a.CreatedAt.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("failed to insert account: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read assigned account id: %w", err)
		}
		a.ID = id
		return nil
	})
}

// GetAccount returns the account with the given id, or ErrNotFound.
func (s *Store) GetAccount(ctx context.Context, id int64) (*Account, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM account WHERE id = ?`, id)
	return scanAccount(row)
}

// GetAccountByEmail returns the account with the given email, or
// ErrNotFound. Matching is case-sensitive, mirroring the uniqueness
// constraint on the column.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM account WHERE email = ?`, email)
	return scanAccount(row)
}

// UpdateAccountProfile replaces the mutable profile fields of an account.
func (s *Store) UpdateAccountProfile(ctx context.Context, id int64, firstName, lastName string, imagePath *string) error {
	return s.write(ctx, []string{"account"}, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE account SET first_name = ?, last_name = ?, image_path = ? WHERE id = ?`,
			firstName, lastName, imagePath, id)
		if err != nil {
			return fmt.Errorf("failed to update account profile: %w", err)
		}
		return requireRow(res, "account", id)
	})
}

// UpdateAccountPassword replaces the stored credential hash.
func (s *Store) UpdateAccountPassword(ctx context.Context, id int64, passwordHash string) error {
	return s.write(ctx, []string{"account"}, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE account SET password_hash = ? WHERE id = ?`, passwordHash, id)
		if err != nil {
			return fmt.Errorf("failed to update account password: %w", err)
		}
		return requireRow(res, "account", id)
	})
}

// MarkEmailVerified sets the verification flag and clears the
// transient verification code.
func (s *Store) MarkEmailVerified(ctx context.Context, id int64) error {
	return s.write(ctx, []string{"account"}, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE account SET email_verified = 1, verification_code = NULL WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to mark email verified: %w", err)
		}
		return requireRow(res, "account", id)
	})
}

// DeleteAccount removes the account. The merchant row (shared key) and
// bookmarks cascade; owned listings survive with owner cleared.
func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	return s.write(ctx, []string{"account", "merchant", "listing", "bookmark"}, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM account WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		return requireRow(res, "account", id)
	})
}

func requireRow(res sql.Result, table string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var a Account
	var createdAt string
	err := row.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.PasswordHash,
		&a.Role, &a.ImagePath, &a.EmailVerified, &a.VerificationCode, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	if t, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
		a.CreatedAt = t
	}
	return &a, nil
}
