// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mobiletoly/go-marketsync/localstore"
	"github.com/mobiletoly/go-marketsync/remotegw"
)

// MerchantReconciler upserts remote merchants into the local store
// under the shared-key rule: a merchant row's id is the owning local
// account's id, never the remote id.
type MerchantReconciler struct {
	Store  *localstore.Store
	Logger *slog.Logger
}

// NewMerchantReconciler creates a reconciler writing through store.
func NewMerchantReconciler(store *localstore.Store, logger *slog.Logger) *MerchantReconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MerchantReconciler{Store: store, Logger: logger}
}

// UpsertBatch persists the remote merchant set. accountIDs is the
// email-to-local-id mapping produced by AccountDeriver for the same
// batch; a DTO absent from it falls back to a store lookup, and one
// whose account cannot be resolved at all is skipped (the account
// derivation failed — the next cycle heals it). DTOs sharing an email
// within the batch are all skipped: resolving the email to an account,
// even a pre-existing one, would silently pick one of the ambiguous
// records.
//
// A foreign key failure is returned immediately: it means a merchant
// was written before its account, which stage ordering must prevent.
func (r *MerchantReconciler) UpsertBatch(ctx context.Context, dtos []remotegw.MerchantDTO, accountIDs map[string]int64) error {
	dup := ambiguousEmails(dtos)
	for _, dto := range dtos {
		if _, ok := dup[dto.Email]; ok {
			r.Logger.Warn("skipping merchant with ambiguous email", "email", dto.Email)
			continue
		}
		id, ok := accountIDs[dto.Email]
		if !ok {
			account, err := r.Store.GetAccountByEmail(ctx, dto.Email)
			if errors.Is(err, localstore.ErrNotFound) {
				r.Logger.Warn("skipping merchant without local account", "email", dto.Email)
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to resolve account for %q: %w", dto.Email, err)
			}
			id = account.ID
		}

		merchant := &localstore.Merchant{
			ID:        id,
			Phone:     dto.Phone,
			Address:   dto.Address,
			StoreName: dto.StoreName,
			ImagePath: dto.ImageURL,
		}
		// Remote wins on refresh: whole-row replace, and the storefront
		// name fans out to owned listings in the same transaction.
		if err := r.Store.ReplaceMerchant(ctx, merchant); err != nil {
			return fmt.Errorf("failed to upsert merchant %d (%s): %w", id, dto.Email, err)
		}
		if remoteID, ok := dto.ID.Int64(); ok {
			if err := r.Store.RememberRemoteIdentity(ctx, remoteID, dto.Email); err != nil {
				return err
			}
		}
	}
	return nil
}
