package handlers

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/identity-registry/addressbook"
	"github.com/ruteri/identity-registry/api"
	"github.com/ruteri/identity-registry/config"
	"github.com/ruteri/identity-registry/events"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router   *chi.Mux
	registry *registry.Registry
	book     *addressbook.AddressBook
	log      *events.Log

	admin, alice, bob *ecdsa.PrivateKey
}

func newKey(t *testing.T) *ecdsa.PrivateKey {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func accountOf(key *ecdsa.PrivateKey) interfaces.AccountID {
	return interfaces.AccountID(crypto.PubkeyToAddress(key.PublicKey))
}

func setupTestEnvironment(t *testing.T) *testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		admin: newKey(t),
		alice: newKey(t),
		bob:   newKey(t),
		log:   events.NewLog(0),
	}

	env.registry = registry.New(accountOf(env.admin), config.DefaultLimits(), env.log)
	env.book = addressbook.New(env.registry, config.DefaultLimits(), env.log)

	env.router = chi.NewRouter()
	NewHandler(env.registry, env.book, env.log, logger).RegisterRoutes(env.router)
	return env
}

// do sends a request signed by key, or an unsigned one when key is nil.
func (env *testEnv) do(t *testing.T, key *ecdsa.PrivateKey, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	if key != nil {
		require.NoError(t, api.SignRequest(req, raw, key, time.Now()))
	}

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func requireCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rr.Code, rr.Body.String())
	assert.Equal(t, code, decodeBody[api.ErrorResponse](t, rr).Error)
}

func TestIdentityLifecycle(t *testing.T) {
	env := setupTestEnvironment(t)

	rr := env.do(t, env.admin, http.MethodPost, "/api/v1/chains", interfaces.ChainInfo{
		Name:        "Polkadot",
		AccountType: interfaces.AccountId32,
		RPCURLs:     []string{"wss://rpc.polkadot.io"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	chain := decodeBody[api.AddChainResponse](t, rr).ChainID
	assert.Equal(t, interfaces.ChainID(0), chain)

	rr = env.do(t, env.alice, http.MethodPost, "/api/v1/identity", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	no := decodeBody[api.CreateIdentityResponse](t, rr).IdentityNo

	rr = env.do(t, env.alice, http.MethodPost, "/api/v1/identity", nil)
	requireCode(t, rr, http.StatusConflict, "AlreadyIdentityOwner")

	path := fmt.Sprintf("/api/v1/identity/addresses/%d", chain)
	rr = env.do(t, env.alice, http.MethodPost, path, api.AddressRequest{Address: interfaces.ChainAddress{0xde, 0xad}})
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = env.do(t, env.alice, http.MethodPost, path, api.AddressRequest{Address: interfaces.ChainAddress{0xbe, 0xef}})
	requireCode(t, rr, http.StatusConflict, "AddressAlreadyAdded")

	rr = env.do(t, env.alice, http.MethodPut, path, api.AddressRequest{Address: interfaces.ChainAddress{0xbe, 0xef}})
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = env.do(t, nil, http.MethodGet, fmt.Sprintf("/api/v1/identities/%d/destination/%d", no, chain), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, interfaces.ChainAddress{0xbe, 0xef}, decodeBody[api.DestinationResponse](t, rr).Address)

	rr = env.do(t, nil, http.MethodGet, fmt.Sprintf("/api/v1/identities/%d/destination/%d", no, chain+1), nil)
	requireCode(t, rr, http.StatusNotFound, "InvalidChain")

	// Recovery account takes over the identity.
	rr = env.do(t, env.alice, http.MethodPut, "/api/v1/identity/recovery", api.RecoveryRequest{RecoveryAccount: accountOf(env.bob)})
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = env.do(t, env.bob, http.MethodPost, fmt.Sprintf("/api/v1/identities/%d/transfer", no), api.TransferRequest{NewOwner: accountOf(env.bob)})
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = env.do(t, nil, http.MethodGet, fmt.Sprintf("/api/v1/identities/%d", no), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	identity := decodeBody[api.IdentityResponse](t, rr)
	assert.Equal(t, accountOf(env.bob), identity.Owner)
	require.NotNil(t, identity.RecoveryAccount)
	assert.Equal(t, []interfaces.ChainAddressEntry{{Chain: chain, Address: interfaces.ChainAddress{0xbe, 0xef}}}, identity.Addresses)

	rr = env.do(t, nil, http.MethodGet, "/api/v1/accounts/"+accountOf(env.bob).String()+"/identity", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, no, decodeBody[api.AccountIdentityResponse](t, rr).IdentityNo)

	rr = env.do(t, nil, http.MethodGet, "/api/v1/accounts/"+accountOf(env.alice).String()+"/identity", nil)
	requireCode(t, rr, http.StatusNotFound, "IdentityDoesntExist")

	rr = env.do(t, env.bob, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = env.do(t, env.bob, http.MethodDelete, "/api/v1/identity", nil)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = env.do(t, nil, http.MethodGet, fmt.Sprintf("/api/v1/identities/%d", no), nil)
	requireCode(t, rr, http.StatusNotFound, "IdentityDoesntExist")
}

func TestChainDirectoryEndpoints(t *testing.T) {
	env := setupTestEnvironment(t)

	rr := env.do(t, env.alice, http.MethodPost, "/api/v1/chains", interfaces.ChainInfo{Name: "Moonbeam", AccountType: interfaces.AccountKey20})
	requireCode(t, rr, http.StatusForbidden, "NotContractOwner")

	rr = env.do(t, env.admin, http.MethodPost, "/api/v1/chains", interfaces.ChainInfo{Name: "this chain name is far too long to be accepted", AccountType: interfaces.AccountKey20})
	requireCode(t, rr, http.StatusBadRequest, "ChainNameTooLong")

	rr = env.do(t, env.admin, http.MethodPost, "/api/v1/chains", interfaces.ChainInfo{Name: "Moonbeam", AccountType: interfaces.AccountKey20, RPCURLs: []string{"wss://a"}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rpc := "wss://b"
	rr = env.do(t, env.admin, http.MethodPatch, "/api/v1/chains/0", interfaces.ChainUpdate{RPCURL: &rpc})
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = env.do(t, nil, http.MethodGet, "/api/v1/chains/0", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"wss://a", "wss://b"}, decodeBody[interfaces.Chain](t, rr).Info.RPCURLs)

	rr = env.do(t, nil, http.MethodGet, "/api/v1/chains", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, decodeBody[[]interfaces.Chain](t, rr), 1)

	rr = env.do(t, env.admin, http.MethodDelete, "/api/v1/chains/0", nil)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = env.do(t, nil, http.MethodGet, "/api/v1/chains/0", nil)
	requireCode(t, rr, http.StatusNotFound, "InvalidChain")

	rr = env.do(t, env.admin, http.MethodPatch, "/api/v1/chains/0", interfaces.ChainUpdate{RPCURL: &rpc})
	requireCode(t, rr, http.StatusNotFound, "InvalidChain")
}

func TestAddressBookEndpoints(t *testing.T) {
	env := setupTestEnvironment(t)

	rr := env.do(t, env.bob, http.MethodPost, "/api/v1/identity", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	bobNo := decodeBody[api.CreateIdentityResponse](t, rr).IdentityNo

	rr = env.do(t, env.alice, http.MethodPost, "/api/v1/addressbook/contacts", api.ContactRequest{IdentityNo: bobNo})
	requireCode(t, rr, http.StatusNotFound, "AddressBookDoesntExist")

	rr = env.do(t, env.alice, http.MethodPost, "/api/v1/addressbook", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(t, env.alice, http.MethodPost, "/api/v1/addressbook", nil)
	requireCode(t, rr, http.StatusConflict, "AddressBookAlreadyCreated")

	nick := "bob"
	rr = env.do(t, env.alice, http.MethodPost, "/api/v1/addressbook/contacts", api.ContactRequest{IdentityNo: bobNo, Nickname: &nick})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(t, env.alice, http.MethodPost, "/api/v1/addressbook/contacts", api.ContactRequest{IdentityNo: bobNo + 1})
	requireCode(t, rr, http.StatusNotFound, "IdentityDoesntExist")

	long := "a nickname that is too long"
	rr = env.do(t, env.alice, http.MethodPut, fmt.Sprintf("/api/v1/addressbook/contacts/%d", bobNo), api.NicknameRequest{Nickname: &long})
	requireCode(t, rr, http.StatusBadRequest, "NickNameTooLong")

	rr = env.do(t, env.alice, http.MethodPut, fmt.Sprintf("/api/v1/addressbook/contacts/%d", bobNo), api.NicknameRequest{})
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = env.do(t, nil, http.MethodGet, "/api/v1/accounts/"+accountOf(env.alice).String()+"/addressbook", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []interfaces.Contact{{IdentityNo: bobNo}}, decodeBody[api.AddressBookResponse](t, rr).Contacts)

	rr = env.do(t, env.alice, http.MethodDelete, fmt.Sprintf("/api/v1/addressbook/contacts/%d", bobNo), nil)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = env.do(t, env.alice, http.MethodDelete, fmt.Sprintf("/api/v1/addressbook/contacts/%d", bobNo), nil)
	requireCode(t, rr, http.StatusNotFound, "IdentityNotAdded")

	rr = env.do(t, env.alice, http.MethodDelete, "/api/v1/addressbook", nil)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = env.do(t, nil, http.MethodGet, "/api/v1/accounts/"+accountOf(env.alice).String()+"/addressbook", nil)
	requireCode(t, rr, http.StatusNotFound, "AddressBookDoesntExist")
}

func TestAuthentication(t *testing.T) {
	env := setupTestEnvironment(t)

	rr := env.do(t, nil, http.MethodPost, "/api/v1/identity", nil)
	requireCode(t, rr, http.StatusUnauthorized, api.CodeUnauthenticated)

	// A signature by alice cannot be replayed under bob's account.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/identity", nil)
	require.NoError(t, api.SignRequest(req, nil, env.alice, time.Now()))
	req.Header.Set(api.AccountHeader, accountOf(env.bob).String())
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	requireCode(t, rr, http.StatusUnauthorized, api.CodeUnauthenticated)

	_, found := env.registry.IdentityOf(accountOf(env.bob))
	assert.False(t, found)
}

func TestBadRequests(t *testing.T) {
	env := setupTestEnvironment(t)

	tests := []struct {
		name   string
		key    *ecdsa.PrivateKey
		method string
		path   string
		body   any
	}{
		{"invalid identity number", nil, http.MethodGet, "/api/v1/identities/abc", nil},
		{"identity number out of range", nil, http.MethodGet, "/api/v1/identities/4294967296", nil},
		{"invalid chain id", env.alice, http.MethodDelete, "/api/v1/identity/addresses/-1", nil},
		{"invalid account", nil, http.MethodGet, "/api/v1/accounts/0x1234/identity", nil},
		{"invalid body", env.alice, http.MethodPost, "/api/v1/identity/addresses/0", "not an object"},
		{"missing new owner", env.alice, http.MethodPost, "/api/v1/identities/0/transfer", api.TransferRequest{}},
		{"invalid since", nil, http.MethodGet, "/api/v1/events?since=x", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, tt.key, tt.method, tt.path, tt.body)
			requireCode(t, rr, http.StatusBadRequest, api.CodeBadRequest)
		})
	}
}

func TestEventsFeed(t *testing.T) {
	env := setupTestEnvironment(t)

	env.do(t, env.alice, http.MethodPost, "/api/v1/identity", nil)
	env.do(t, env.alice, http.MethodPut, "/api/v1/identity/recovery", api.RecoveryRequest{RecoveryAccount: accountOf(env.bob)})
	env.do(t, env.bob, http.MethodPost, "/api/v1/addressbook", nil)

	rr := env.do(t, nil, http.MethodGet, "/api/v1/events", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decodeBody[api.EventsResponse](t, rr)
	assert.Equal(t, uint64(3), resp.LastSeq)
	require.Len(t, resp.Events, 3)
	assert.Equal(t, "IdentityCreated", resp.Events[0].Name)
	assert.Equal(t, "RecoveryAccountSet", resp.Events[1].Name)
	assert.Equal(t, "AddressBookCreated", resp.Events[2].Name)

	var created events.IdentityCreated
	require.NoError(t, json.Unmarshal(resp.Events[0].Data, &created))
	assert.Equal(t, accountOf(env.alice), created.Owner)

	rr = env.do(t, nil, http.MethodGet, "/api/v1/events?since=1&limit=1", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp = decodeBody[api.EventsResponse](t, rr)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, uint64(2), resp.Events[0].Seq)
}

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) ObserveOperation(operation string, started time.Time, err error) {
	m.Called(operation, err)
}

func TestObserverAndLookupFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lookup := &registry.MockIdentityLookup{}
	lookup.On("IdentityExists", mock.Anything, interfaces.IdentityNo(7)).Return(false, errors.New("connection refused"))

	reg := registry.New(interfaces.AccountID{}, config.DefaultLimits(), nil)
	book := addressbook.New(lookup, config.DefaultLimits(), nil)

	observer := &mockObserver{}
	observer.On("ObserveOperation", "create_address_book", nil).Once()
	observer.On("ObserveOperation", "add_identity", mock.MatchedBy(func(err error) bool { return err != nil })).Once()

	router := chi.NewRouter()
	NewHandler(reg, book, nil, logger).WithObserver(observer).RegisterRoutes(router)

	key := newKey(t)
	send := func(path string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequestWithContext(context.Background(), http.MethodPost, path, bytes.NewReader(body))
		require.NoError(t, api.SignRequest(req, body, key, time.Now()))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	rr := send("/api/v1/addressbook", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = send("/api/v1/addressbook/contacts", []byte(`{"identity_no":7}`))
	requireCode(t, rr, http.StatusInternalServerError, api.CodeInternal)
	assert.Empty(t, book.IdentitiesOf(accountOf(key)))

	observer.AssertExpectations(t)
	lookup.AssertExpectations(t)

	// Without an event source the feed is not mounted.
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
