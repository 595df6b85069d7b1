// Package readmodel derives the reactive queries served to
// presentation code. Each query registers once and keeps delivering a
// fresh result set after every committed write that could affect it —
// including writes made mid-run by the sync orchestrator — until
// cancelled. Reads observe whatever state the store holds at that
// moment; a half-finished sync run is visible and must be tolerable
// for consumers.
// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package readmodel

import (
	"context"
	"log/slog"

	"github.com/mobiletoly/go-marketsync/localstore"
)

// ReadModel builds reactive queries over the local store.
type ReadModel struct {
	Store  *localstore.Store
	Logger *slog.Logger
}

// New creates a read model over store.
func New(store *localstore.Store, logger *slog.Logger) *ReadModel {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadModel{Store: store, Logger: logger}
}

// Subscription is a registered reactive query. C delivers the current
// result set on registration and again after every relevant write;
// only the freshest result is retained for a slow consumer. C closes
// on Cancel or when the owning context ends.
type Subscription[T any] struct {
	c      chan T
	cancel context.CancelFunc
}

// C returns the result channel.
func (s *Subscription[T]) C() <-chan T { return s.c }

// Cancel unsubscribes the query and closes C.
func (s *Subscription[T]) Cancel() { s.cancel() }

// deliver replaces any undrained previous result with v.
func (s *Subscription[T]) deliver(v T) {
	for {
		select {
		case s.c <- v:
			return
		default:
			select {
			case <-s.c: // drop the stale result
			default:
			}
		}
	}
}

func observe[T any](ctx context.Context, rm *ReadModel, tables []string, query func(ctx context.Context) (T, error)) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription[T]{
		c:      make(chan T, 1),
		cancel: cancel,
	}
	watcher := rm.Store.Watch(tables...)

	go func() {
		defer close(sub.c)
		defer watcher.Cancel()

		for {
			result, err := query(ctx)
			if err != nil {
				if ctx.Err() == nil {
					rm.Logger.Error("reactive query failed", "error", err)
				}
			} else {
				sub.deliver(result)
			}

			select {
			case <-ctx.Done():
				return
			case _, ok := <-watcher.C():
				if !ok {
					return
				}
			}
		}
	}()
	return sub
}

// Listings observes the full listing set.
func (rm *ReadModel) Listings(ctx context.Context) *Subscription[[]localstore.Listing] {
	return observe(ctx, rm, []string{"listing"}, rm.Store.ListListings)
}

// ListingsByOwner observes the listings owned by one account.
func (rm *ReadModel) ListingsByOwner(ctx context.Context, ownerID int64) *Subscription[[]localstore.Listing] {
	return observe(ctx, rm, []string{"listing"}, func(ctx context.Context) ([]localstore.Listing, error) {
		return rm.Store.ListListingsByOwner(ctx, ownerID)
	})
}

// ListingsByCategory observes the listings tagged with category.
func (rm *ReadModel) ListingsByCategory(ctx context.Context, category string) *Subscription[[]localstore.Listing] {
	return observe(ctx, rm, []string{"listing"}, func(ctx context.Context) ([]localstore.Listing, error) {
		return rm.Store.ListListingsByCategory(ctx, category)
	})
}

// SearchListings observes a case-insensitive substring search across
// name, category, location and producer.
func (rm *ReadModel) SearchListings(ctx context.Context, term string) *Subscription[[]localstore.Listing] {
	return observe(ctx, rm, []string{"listing"}, func(ctx context.Context) ([]localstore.Listing, error) {
		return rm.Store.SearchListings(ctx, term)
	})
}

// FavoriteListings observes the bookmark-joined favorites of an
// account. Producer renames surface here too: the join re-runs on
// listing writes, not only bookmark writes.
func (rm *ReadModel) FavoriteListings(ctx context.Context, accountID int64) *Subscription[[]localstore.Listing] {
	return observe(ctx, rm, []string{"bookmark", "listing"}, func(ctx context.Context) ([]localstore.Listing, error) {
		return rm.Store.ListFavoriteListings(ctx, accountID)
	})
}
