// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mobiletoly/go-marketsync/localstore"
	"github.com/mobiletoly/go-marketsync/reconcile"
	"github.com/mobiletoly/go-marketsync/remotegw"
)

// Stage names of the catalog pipeline, in dependency order.
const (
	StageFetchMerchants   = "fetch-merchants"
	StageDeriveAccounts   = "derive-accounts"
	StagePersistMerchants = "persist-merchants"
	StageSyncListings     = "sync-listings"
)

// MerchantStages is the subset the periodic timer re-runs to pick up
// remote merchant edits.
var MerchantStages = []string{StageFetchMerchants, StageDeriveAccounts, StagePersistMerchants}

// CatalogPipeline wires the reconcilers into the four-stage catalog
// sync. Run state (the fetched merchant batch and the derived account
// id mapping) lives on the pipeline and is reset by the fetch stage;
// the orchestrator's single-flight guard keeps runs from overlapping.
type CatalogPipeline struct {
	Gateway   *remotegw.Gateway
	Deriver   *reconcile.AccountDeriver
	Merchants *reconcile.MerchantReconciler
	Listings  *reconcile.ListingReconciler
	Store     *localstore.Store
	Logger    *slog.Logger

	merchants  []remotegw.MerchantDTO
	accountIDs map[string]int64
}

// NewCatalogPipeline builds the default pipeline over store and gateway.
func NewCatalogPipeline(store *localstore.Store, gateway *remotegw.Gateway, logger *slog.Logger) *CatalogPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogPipeline{
		Gateway:   gateway,
		Deriver:   reconcile.NewAccountDeriver(store, logger),
		Merchants: reconcile.NewMerchantReconciler(store, logger),
		Listings:  reconcile.NewListingReconciler(store, logger),
		Store:     store,
		Logger:    logger,
	}
}

// Stages returns the ordered stage list. Account derivation must
// complete before merchants persist — a merchant row referencing an
// account id that does not exist yet fails the foreign key, by design.
// Listing sync runs last so owner resolution sees this run's accounts,
// but its precondition tolerates earlier failures: with merchants
// already cached locally it still makes progress.
func (p *CatalogPipeline) Stages() []Stage {
	return []Stage{
		{
			Name: StageFetchMerchants,
			Run:  p.fetchMerchants,
		},
		{
			Name:         StageDeriveAccounts,
			Precondition: p.requireMerchantBatch,
			Run:          p.deriveAccounts,
		},
		{
			Name:         StagePersistMerchants,
			Precondition: p.requireMerchantBatch,
			Run:          p.persistMerchants,
		},
		{
			Name: StageSyncListings,
			Run:  p.syncListings,
		},
	}
}

func (p *CatalogPipeline) fetchMerchants(ctx context.Context) error {
	p.merchants = nil
	p.accountIDs = nil
	dtos, err := p.Gateway.FetchMerchants(ctx)
	if err != nil {
		return err
	}
	p.merchants = dtos
	p.Logger.Debug("fetched remote merchants", "count", len(dtos))
	return nil
}

func (p *CatalogPipeline) requireMerchantBatch(context.Context) error {
	if p.merchants == nil {
		return fmt.Errorf("no merchant batch fetched this run")
	}
	return nil
}

func (p *CatalogPipeline) deriveAccounts(ctx context.Context) error {
	ids, err := p.Deriver.Derive(ctx, p.merchants)
	// Partial derivation still feeds the next stage; unresolved
	// merchants are skipped there.
	p.accountIDs = ids
	return err
}

func (p *CatalogPipeline) persistMerchants(ctx context.Context) error {
	ids := p.accountIDs
	if ids == nil {
		ids = map[string]int64{}
	}
	return p.Merchants.UpsertBatch(ctx, p.merchants, ids)
}

func (p *CatalogPipeline) syncListings(ctx context.Context) error {
	dtos, err := p.Gateway.FetchListings(ctx)
	if err != nil {
		return err
	}
	return p.Listings.Replace(ctx, dtos, p.ownerResolver(ctx))
}

// ownerResolver maps remote merchant ids to local account ids through
// the email bridge: remote id -> remote merchant email -> local
// account. On runs where the merchant fetch failed it falls back to
// the identity correlations remembered during earlier cycles.
func (p *CatalogPipeline) ownerResolver(ctx context.Context) reconcile.OwnerResolver {
	emailByRemoteID := make(map[int64]string, len(p.merchants))
	for _, dto := range p.merchants {
		if remoteID, ok := dto.ID.Int64(); ok && dto.Email != "" {
			emailByRemoteID[remoteID] = dto.Email
		}
	}
	return func(remoteID int64) (int64, bool) {
		if email, ok := emailByRemoteID[remoteID]; ok {
			if id, ok := p.accountIDs[email]; ok {
				return id, true
			}
			if account, err := p.Store.GetAccountByEmail(ctx, email); err == nil {
				return account.ID, true
			}
			return 0, false
		}
		id, err := p.Store.ResolveRemoteOwner(ctx, remoteID)
		if err != nil {
			return 0, false
		}
		return id, true
	}
}
