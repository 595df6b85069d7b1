// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mobiletoly/go-marketsync/localstore"
	"github.com/mobiletoly/go-marketsync/remotegw"
)

// MerchantEditor applies explicit user edits: local first (with the
// producer propagation), then pushed to the remote authority. Unlike
// background sync, failures here surface to the caller — the user
// asked for this write.
type MerchantEditor struct {
	Store   *localstore.Store
	Gateway *remotegw.Gateway
	Logger  *slog.Logger
}

// NewMerchantEditor creates an editor over store and gateway.
func NewMerchantEditor(store *localstore.Store, gateway *remotegw.Gateway, logger *slog.Logger) *MerchantEditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &MerchantEditor{Store: store, Gateway: gateway, Logger: logger}
}

// UpdateMerchant replaces the local merchant row for accountID (its
// storefront name fanning out to owned listings atomically) and pushes
// the edit to the remote service.
func (e *MerchantEditor) UpdateMerchant(ctx context.Context, accountID int64, m localstore.Merchant) error {
	account, err := e.Store.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account %d: %w", accountID, err)
	}
	m.ID = accountID
	if err := e.Store.ReplaceMerchant(ctx, &m); err != nil {
		return fmt.Errorf("failed to apply local merchant edit: %w", err)
	}
	return e.push(ctx, account.Email, m)
}

// push writes the merchant state to the remote authority. The remote
// id is resolved by email immediately before the write — the remote
// service assigns its own ids, so any id cached locally (or mirrored
// from the local account id) may address someone else's record.
// Writing to an assumed id would silently corrupt a foreign merchant.
func (e *MerchantEditor) push(ctx context.Context, email string, m localstore.Merchant) error {
	remote, err := e.Gateway.FindMerchantByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to resolve remote merchant %q: %w", email, err)
	}

	if remote == nil {
		dto := remotegw.MerchantDTO{
			Email:     email,
			StoreName: m.StoreName,
			Phone:     m.Phone,
			Address:   m.Address,
			ImageURL:  m.ImagePath,
		}
		if _, err := e.Gateway.CreateMerchant(ctx, dto); err != nil {
			return fmt.Errorf("failed to create remote merchant %q: %w", email, err)
		}
		e.Logger.Info("created remote merchant", "email", email)
		return nil
	}

	remoteID, ok := remote.ID.Int64()
	if !ok {
		return fmt.Errorf("remote merchant %q has no usable id", email)
	}
	patch := remotegw.MerchantPatch{
		StoreName: m.StoreName,
		Phone:     m.Phone,
		Address:   m.Address,
		ImageURL:  m.ImagePath,
	}
	if _, err := e.Gateway.UpdateMerchant(ctx, remoteID, patch); err != nil {
		return fmt.Errorf("failed to update remote merchant %q: %w", email, err)
	}
	e.Logger.Info("updated remote merchant", "email", email, "remote_id", remoteID)
	return nil
}
