// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mobiletoly/go-marketsync/credstore"
	"github.com/mobiletoly/go-marketsync/localstore"
	"github.com/mobiletoly/go-marketsync/remotegw"
)

// derivedCredential is the deterministic placeholder plaintext hashed
// into accounts synthesized from remote merchants. Such accounts exist
// to satisfy the merchant foreign key; their owners sign in through
// the remote identity service, not with this credential.
const derivedCredential = "!remote-derived-account!"

// AccountDeriver synthesizes local accounts for remote merchants that
// have none yet, matched by email.
type AccountDeriver struct {
	Store  *localstore.Store
	Logger *slog.Logger
}

// NewAccountDeriver creates a deriver writing through store.
func NewAccountDeriver(store *localstore.Store, logger *slog.Logger) *AccountDeriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountDeriver{Store: store, Logger: logger}
}

// Derive ensures every remote merchant DTO has a local account and
// returns the email-to-local-account-id mapping for the batch. The
// mapping (not the remote ids) keys the merchant upsert that follows:
// merchant rows must reference account ids that already exist locally.
//
// Entities that cannot be derived (blank email, duplicate email,
// conflicting insert) are skipped; their failures are joined into the
// returned error while the rest of the batch proceeds.
func (d *AccountDeriver) Derive(ctx context.Context, dtos []remotegw.MerchantDTO) (map[string]int64, error) {
	dup := ambiguousEmails(dtos)

	ids := make(map[string]int64, len(dtos))
	var errs []error
	reported := make(map[string]bool)

	for _, dto := range dtos {
		if dto.Email == "" {
			d.Logger.Warn("skipping remote merchant without email", "remote_id", dto.ID.Value)
			continue
		}
		if count, ok := dup[dto.Email]; ok {
			if !reported[dto.Email] {
				reported[dto.Email] = true
				err := &DuplicateEmailError{Email: dto.Email, Count: count}
				d.Logger.Error("ambiguous remote identity", "email", dto.Email, "count", count)
				errs = append(errs, err)
			}
			continue
		}
		if _, ok := ids[dto.Email]; ok {
			continue
		}

		account, err := d.Store.GetAccountByEmail(ctx, dto.Email)
		switch {
		case err == nil:
			ids[dto.Email] = account.ID
		case errors.Is(err, localstore.ErrNotFound):
			id, derr := d.deriveAccount(ctx, dto)
			if derr != nil {
				d.Logger.Error("failed to derive account", "email", dto.Email, "error", derr)
				errs = append(errs, derr)
				continue
			}
			d.Logger.Info("derived account for remote merchant", "email", dto.Email, "account_id", id)
			ids[dto.Email] = id
		default:
			errs = append(errs, fmt.Errorf("failed to look up account %q: %w", dto.Email, err))
		}
	}
	return ids, errors.Join(errs...)
}

func (d *AccountDeriver) deriveAccount(ctx context.Context, dto remotegw.MerchantDTO) (int64, error) {
	hash, err := credstore.Hash(derivedCredential)
	if err != nil {
		return 0, err
	}
	account := &localstore.Account{
		FirstName:    dto.StoreName,
		Email:        dto.Email,
		PasswordHash: hash,
		Role:         localstore.RoleMerchant,
		ImagePath:    dto.ImageURL,
		// The remote identity service already owns this email.
		EmailVerified: true,
	}
	if err := d.Store.CreateAccount(ctx, account); err != nil {
		return 0, fmt.Errorf("failed to create derived account %q: %w", dto.Email, err)
	}
	return account.ID, nil
}
