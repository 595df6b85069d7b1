package syncer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mobiletoly/go-marketsync/localstore"
	"github.com/mobiletoly/go-marketsync/remotegw"
)

// catalogFixture is a stub catalog service whose merchant endpoint can
// be forced to fail while listings stay reachable.
type catalogFixture struct {
	merchantsJSON  string
	listingsJSON   string
	merchantsFail  atomic.Bool
	merchantsCalls atomic.Int32
}

func (f *catalogFixture) start(t *testing.T) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/merchants", func(w http.ResponseWriter, r *http.Request) {
		f.merchantsCalls.Add(1)
		if f.merchantsFail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, f.merchantsJSON)
	})
	mux.HandleFunc("/listings", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, f.listingsJSON)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server.URL
}

func newPipelineFixture(t *testing.T, f *catalogFixture) (*Orchestrator, *localstore.Store) {
	t.Helper()
	store, err := localstore.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	gateway := remotegw.NewGateway(f.start(t), nil, nil)
	pipeline := NewCatalogPipeline(store, gateway, nil)
	orch, err := New(pipeline.Stages(), nil)
	require.NoError(t, err)
	return orch, store
}

func defaultFixture() *catalogFixture {
	return &catalogFixture{
		// Remote ids are strings on purpose: the wire tolerates it.
		merchantsJSON: `[
			{"id": "501", "email": "ana@x.com", "name": "Ana's Apiary"},
			{"id": 502, "email": "bo@x.com", "name": "Bo's Bakery"}
		]`,
		listingsJSON: `[
			{"id": 1, "name": "Honey", "ownerId": 501, "producer": "Ana's Apiary", "images": ["h.jpg"], "price": 9.5},
			{"id": 2, "name": "Loaf", "ownerId": "502", "producer": "Bo's Bakery", "images": ["l.jpg"], "price": 6},
			{"id": 3, "name": "Seed Rye", "ownerId": null, "producer": "", "images": ["r.jpg"], "price": 5}
		]`,
	}
}

func TestFullPipelineRun(t *testing.T) {
	ctx := context.Background()
	orch, store := newPipelineFixture(t, defaultFixture())

	require.NoError(t, orch.Sync(ctx))

	// Every merchant row's id equals an existing account row's id.
	orphans, err := store.OrphanMerchantIDs(ctx)
	require.NoError(t, err)
	require.Empty(t, orphans)

	ana, err := store.GetAccountByEmail(ctx, "ana@x.com")
	require.NoError(t, err)
	require.Equal(t, localstore.RoleMerchant, ana.Role)
	merchant, err := store.GetMerchant(ctx, ana.ID)
	require.NoError(t, err)
	require.Equal(t, "Ana's Apiary", merchant.StoreName)

	// Remote owner id 501 resolved to Ana's LOCAL account id.
	listings, err := store.ListListingsByOwner(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.Equal(t, int64(1), listings[0].ID)

	all, err := store.ListListings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Nil(t, all[2].OwnerID)
}

func TestPipelineIdempotence(t *testing.T) {
	ctx := context.Background()
	orch, store := newPipelineFixture(t, defaultFixture())

	require.NoError(t, orch.Sync(ctx))
	first, err := store.Snapshot(ctx)
	require.NoError(t, err)

	require.NoError(t, orch.Sync(ctx))
	second, err := store.Snapshot(ctx)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestListingsSyncDespiteMerchantFailure(t *testing.T) {
	ctx := context.Background()
	fixture := defaultFixture()
	orch, store := newPipelineFixture(t, fixture)

	// Seed accounts and merchants with a healthy run.
	require.NoError(t, orch.Sync(ctx))

	// Next run: merchant fetch is down, listings still reachable.
	fixture.merchantsFail.Store(true)
	err := orch.Sync(ctx)
	require.Error(t, err)
	require.True(t, remotegw.IsTransient(err))

	// Listings made progress with owners resolved against previously
	// synced local data; dependent stages were skipped, not failed.
	all, lerr := store.ListListings(ctx)
	require.NoError(t, lerr)
	require.Len(t, all, 3)

	ana, aerr := store.GetAccountByEmail(ctx, "ana@x.com")
	require.NoError(t, aerr)
	owned, oerr := store.ListListingsByOwner(ctx, ana.ID)
	require.NoError(t, oerr)
	require.Len(t, owned, 1)
}

func TestReRunHealsPartialState(t *testing.T) {
	ctx := context.Background()
	fixture := defaultFixture()
	orch, store := newPipelineFixture(t, fixture)

	// First cycle happens with the merchant endpoint down.
	fixture.merchantsFail.Store(true)
	require.Error(t, orch.Sync(ctx))
	n, err := store.CountMerchants(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	// The next scheduled cycle heals everything.
	fixture.merchantsFail.Store(false)
	require.NoError(t, orch.Sync(ctx))
	n, err = store.CountMerchants(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestMerchantStagesSubsetSkipsListings(t *testing.T) {
	ctx := context.Background()
	fixture := defaultFixture()
	orch, store := newPipelineFixture(t, fixture)

	require.NoError(t, orch.SyncStages(ctx, MerchantStages...))

	n, err := store.CountMerchants(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	all, err := store.ListListings(ctx)
	require.NoError(t, err)
	require.Empty(t, all, "timer subset must not touch listings")
}
