package readmodel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mobiletoly/go-marketsync/localstore"
)

func newFixture(t *testing.T) (*ReadModel, *localstore.Store) {
	t.Helper()
	store, err := localstore.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store, nil), store
}

func upsert(t *testing.T, store *localstore.Store, l localstore.Listing) {
	t.Helper()
	require.NoError(t, store.UpsertListing(context.Background(), &l))
}

func listing(id int64, name, category string) localstore.Listing {
	return localstore.Listing{
		ID: id, Name: name, Category: category,
		Images: []string{"x.jpg"}, Price: 1, Location: "Town", Producer: "P",
	}
}

// recv waits for the next result set on a subscription.
func recv(t *testing.T, sub *Subscription[[]localstore.Listing]) []localstore.Listing {
	t.Helper()
	select {
	case v, ok := <-sub.C():
		require.True(t, ok, "subscription closed unexpectedly")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a result set")
		return nil
	}
}

// waitFor keeps receiving until the predicate holds; every delivery is
// a fresh full result set, so intermediate states may be observed.
func waitFor(t *testing.T, sub *Subscription[[]localstore.Listing], pred func([]localstore.Listing) bool) []localstore.Listing {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-sub.C():
			require.True(t, ok, "subscription closed unexpectedly")
			if pred(v) {
				return v
			}
		case <-deadline:
			t.Fatal("timed out waiting for expected result set")
			return nil
		}
	}
}

func TestSubscriptionDeliversInitialAndUpdatedResults(t *testing.T) {
	ctx := context.Background()
	rm, store := newFixture(t)
	upsert(t, store, listing(1, "First", "pantry"))

	sub := rm.Listings(ctx)
	defer sub.Cancel()

	require.Len(t, recv(t, sub), 1)

	// The query is never re-issued by the consumer; the write alone
	// triggers a fresh result set.
	upsert(t, store, listing(2, "Second", "bakery"))
	waitFor(t, sub, func(ls []localstore.Listing) bool { return len(ls) == 2 })
}

func TestListingsByOwnerReactsToSyncWrites(t *testing.T) {
	ctx := context.Background()
	rm, store := newFixture(t)

	account := &localstore.Account{Email: "a@x.com", PasswordHash: "h", Role: localstore.RoleMerchant}
	require.NoError(t, store.CreateAccount(ctx, account))

	sub := rm.ListingsByOwner(ctx, account.ID)
	defer sub.Cancel()
	require.Empty(t, recv(t, sub))

	owned := listing(1, "Mine", "pantry")
	owned.OwnerID = &account.ID
	upsert(t, store, owned)
	upsert(t, store, listing(2, "Not mine", "pantry"))

	got := waitFor(t, sub, func(ls []localstore.Listing) bool { return len(ls) == 1 })
	require.Equal(t, int64(1), got[0].ID)
}

func TestSearchSubscription(t *testing.T) {
	ctx := context.Background()
	rm, store := newFixture(t)
	upsert(t, store, listing(1, "Wildflower Honey", "pantry"))
	upsert(t, store, listing(2, "Socks", "clothing"))

	sub := rm.SearchListings(ctx, "honey")
	defer sub.Cancel()

	got := recv(t, sub)
	require.Len(t, got, 1)
	require.Equal(t, int64(1), got[0].ID)

	hit := listing(3, "Honeycomb", "pantry")
	upsert(t, store, hit)
	waitFor(t, sub, func(ls []localstore.Listing) bool { return len(ls) == 2 })
}

func TestFavoritesJoinReactsToBookmarkAndListingWrites(t *testing.T) {
	ctx := context.Background()
	rm, store := newFixture(t)

	account := &localstore.Account{Email: "b@x.com", PasswordHash: "h", Role: localstore.RoleClient}
	require.NoError(t, store.CreateAccount(ctx, account))
	upsert(t, store, listing(1, "Honey", "pantry"))
	upsert(t, store, listing(2, "Loaf", "bakery"))

	sub := rm.FavoriteListings(ctx, account.ID)
	defer sub.Cancel()
	require.Empty(t, recv(t, sub))

	require.NoError(t, store.AddBookmark(ctx, account.ID, 1))
	got := waitFor(t, sub, func(ls []localstore.Listing) bool { return len(ls) == 1 })
	require.Equal(t, "Honey", got[0].Name)

	// A producer rename on the bookmarked listing flows through the join.
	renamed := listing(1, "Honey", "pantry")
	renamed.Producer = "New Name"
	upsert(t, store, renamed)
	waitFor(t, sub, func(ls []localstore.Listing) bool {
		return len(ls) == 1 && ls[0].Producer == "New Name"
	})

	require.NoError(t, store.RemoveBookmark(ctx, account.ID, 1))
	waitFor(t, sub, func(ls []localstore.Listing) bool { return len(ls) == 0 })
}

func TestCancelClosesSubscription(t *testing.T) {
	rm, _ := newFixture(t)
	sub := rm.Listings(context.Background())
	recv(t, sub)

	sub.Cancel()
	select {
	case _, ok := <-sub.C():
		require.False(t, ok, "channel must close after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close after cancel")
	}
}
