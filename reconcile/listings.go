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

// OwnerResolver maps a remote merchant id to the local account id of
// the same logical seller. ok is false when no local owner exists, in
// which case the listing persists as an unowned public item.
type OwnerResolver func(remoteID int64) (localID int64, ok bool)

// ListingReconciler applies remote full-replacement semantics to the
// local listing table.
type ListingReconciler struct {
	Store  *localstore.Store
	Logger *slog.Logger
}

// NewListingReconciler creates a reconciler writing through store.
func NewListingReconciler(store *localstore.Store, logger *slog.Logger) *ListingReconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingReconciler{Store: store, Logger: logger}
}

// Replace persists the remote listing set, replacing the local table:
// every valid DTO is upserted whole-row and local listings missing
// from the batch are deleted. Invalid entities (absent id, image count
// outside 1..10, negative price) are skipped with a logged reason and
// KEPT locally if already present — a malformed remote record must not
// destroy a healthy local row.
func (r *ListingReconciler) Replace(ctx context.Context, dtos []remotegw.ListingDTO, resolve OwnerResolver) error {
	rows := make([]localstore.Listing, 0, len(dtos))
	var keepIDs []int64
	for _, dto := range dtos {
		id, ok := dto.ID.Int64()
		if !ok {
			r.Logger.Warn("skipping remote listing without id", "name", dto.Name)
			continue
		}
		row := localstore.Listing{
			ID:          id,
			Name:        dto.Name,
			Description: dto.Description,
			Category:    dto.Category,
			Producer:    dto.Producer,
			Images:      dto.Images,
			Price:       dto.Price,
			Location:    dto.Location,
		}
		if remoteOwner, ok := dto.OwnerID.Int64(); ok && resolve != nil {
			if localID, ok := resolve(remoteOwner); ok {
				row.OwnerID = &localID
			}
		}
		if err := row.Validate(); err != nil {
			r.Logger.Warn("skipping invalid remote listing", "listing_id", id, "error", err)
			keepIDs = append(keepIDs, id)
			continue
		}
		rows = append(rows, row)
	}
	if err := r.Store.ReplaceListings(ctx, rows, keepIDs...); err != nil {
		return fmt.Errorf("failed to replace listings: %w", err)
	}
	r.Logger.Info("replaced listing set", "count", len(rows), "skipped", len(dtos)-len(rows))
	return nil
}
