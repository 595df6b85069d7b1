package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mobiletoly/go-marketsync/localstore"
	"github.com/mobiletoly/go-marketsync/remotegw"
)

// stubCatalog records merchant writes and answers email lookups with a
// remote id unrelated to any local account id.
type stubCatalog struct {
	remoteIDByEmail map[string]int64
	updatedIDs      []int64
	createdEmails   []string
}

func (s *stubCatalog) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /merchants", func(w http.ResponseWriter, r *http.Request) {
		email := r.URL.Query().Get("email")
		if id, ok := s.remoteIDByEmail[email]; ok {
			fmt.Fprintf(w, `[{"id": %d, "email": %q, "name": "whatever"}]`, id, email)
			return
		}
		w.Write([]byte(`[]`))
	})
	mux.HandleFunc("PUT /merchants/{id}", func(w http.ResponseWriter, r *http.Request) {
		var id int64
		fmt.Sscanf(r.PathValue("id"), "%d", &id)
		s.updatedIDs = append(s.updatedIDs, id)
		fmt.Fprintf(w, `{"id": %d, "email": "x", "name": "x"}`, id)
	})
	mux.HandleFunc("POST /merchants", func(w http.ResponseWriter, r *http.Request) {
		var dto remotegw.MerchantDTO
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			t.Errorf("bad create payload: %v", err)
		}
		s.createdEmails = append(s.createdEmails, dto.Email)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id": 900, "email": %q, "name": %q}`, dto.Email, dto.StoreName)
	})
	return mux
}

func newEditorFixture(t *testing.T, catalog *stubCatalog) (*MerchantEditor, *localstore.Store) {
	t.Helper()
	server := httptest.NewServer(catalog.handler(t))
	t.Cleanup(server.Close)

	store := newTestStore(t)
	gateway := remotegw.NewGateway(server.URL, nil, nil)
	return NewMerchantEditor(store, gateway, nil), store
}

func TestEditResolvesRemoteIDByEmailBeforeWrite(t *testing.T) {
	ctx := context.Background()
	// Remote knows this seller as 8831; locally the account id will be 1.
	catalog := &stubCatalog{remoteIDByEmail: map[string]int64{"a@x.com": 8831}}
	editor, store := newEditorFixture(t, catalog)

	account := &localstore.Account{Email: "a@x.com", PasswordHash: "h", Role: localstore.RoleMerchant}
	require.NoError(t, store.CreateAccount(ctx, account))
	require.NoError(t, store.UpsertMerchant(ctx, &localstore.Merchant{ID: account.ID, StoreName: "Old"}))

	require.NoError(t, editor.UpdateMerchant(ctx, account.ID, localstore.Merchant{StoreName: "New"}))

	// The PUT went to the remote's id for this email, never to the
	// locally mirrored id.
	require.Equal(t, []int64{8831}, catalog.updatedIDs)
	require.Empty(t, catalog.createdEmails)

	got, err := store.GetMerchant(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, "New", got.StoreName)
}

func TestEditCreatesRemoteWhenAbsent(t *testing.T) {
	ctx := context.Background()
	catalog := &stubCatalog{remoteIDByEmail: map[string]int64{}}
	editor, store := newEditorFixture(t, catalog)

	account := &localstore.Account{Email: "new@x.com", PasswordHash: "h", Role: localstore.RoleMerchant}
	require.NoError(t, store.CreateAccount(ctx, account))

	require.NoError(t, editor.UpdateMerchant(ctx, account.ID, localstore.Merchant{StoreName: "Fresh"}))
	require.Equal(t, []string{"new@x.com"}, catalog.createdEmails)
	require.Empty(t, catalog.updatedIDs)
}

func TestEditPropagatesProducerBeforePush(t *testing.T) {
	ctx := context.Background()
	catalog := &stubCatalog{remoteIDByEmail: map[string]int64{"a@x.com": 8831}}
	editor, store := newEditorFixture(t, catalog)

	account := &localstore.Account{Email: "a@x.com", PasswordHash: "h", Role: localstore.RoleMerchant}
	require.NoError(t, store.CreateAccount(ctx, account))
	require.NoError(t, store.UpsertMerchant(ctx, &localstore.Merchant{ID: account.ID, StoreName: "Old"}))
	listing := localstore.Listing{ID: 1, Name: "Item", OwnerID: &account.ID, Producer: "Old",
		Images: []string{"a.jpg"}, Price: 1}
	require.NoError(t, store.UpsertListing(ctx, &listing))

	require.NoError(t, editor.UpdateMerchant(ctx, account.ID, localstore.Merchant{StoreName: "New"}))

	got, err := store.GetListing(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "New", got.Producer)
}

func TestEditSurfacesUnknownAccount(t *testing.T) {
	catalog := &stubCatalog{}
	editor, _ := newEditorFixture(t, catalog)

	err := editor.UpdateMerchant(context.Background(), 12345, localstore.Merchant{StoreName: "X"})
	require.ErrorIs(t, err, localstore.ErrNotFound)
}
