package clients

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/identity-registry/api"
	"github.com/ruteri/identity-registry/interfaces"
)

// ErrNoSigningKey is returned when a mutating call is made on a client
// created without a key.
var ErrNoSigningKey = errors.New("client has no signing key")

// APIError is a non-2xx response whose code is not a registry error.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("registry api returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// RegistryClient calls the registry HTTP API. Mutating calls are signed with
// the client's key, so the key's account is the caller of every operation.
type RegistryClient struct {
	baseURL    string
	key        *ecdsa.PrivateKey
	httpClient *http.Client
}

// DefaultTimeout bounds every request. An address book using the client as
// its identity lookup holds its write lock for the duration of the call, so
// this stays well below the lock watchdog's 30s deadline.
const DefaultTimeout = 10 * time.Second

// NewRegistryClient creates a client for the API at baseURL, for example
// "http://localhost:8080". key may be nil for a read-only client.
func NewRegistryClient(baseURL string, key *ecdsa.PrivateKey, timeout ...time.Duration) *RegistryClient {
	clientTimeout := DefaultTimeout
	if len(timeout) > 0 {
		clientTimeout = timeout[0]
	}

	return &RegistryClient{
		baseURL:    baseURL,
		key:        key,
		httpClient: &http.Client{Timeout: clientTimeout},
	}
}

// Account returns the account of the signing key.
func (c *RegistryClient) Account() (interfaces.AccountID, error) {
	if c.key == nil {
		return interfaces.AccountID{}, ErrNoSigningKey
	}
	return interfaces.AccountID(crypto.PubkeyToAddress(c.key.PublicKey)), nil
}

func (c *RegistryClient) CreateIdentity(ctx context.Context) (interfaces.IdentityNo, error) {
	var resp api.CreateIdentityResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/identity", true, nil, &resp); err != nil {
		return 0, err
	}
	return resp.IdentityNo, nil
}

func (c *RegistryClient) RemoveIdentity(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/identity", true, nil, nil)
}

func (c *RegistryClient) AddAddress(ctx context.Context, chain interfaces.ChainID, address interfaces.ChainAddress) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/identity/addresses/%d", chain), true, api.AddressRequest{Address: address}, nil)
}

func (c *RegistryClient) UpdateAddress(ctx context.Context, chain interfaces.ChainID, address interfaces.ChainAddress) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/identity/addresses/%d", chain), true, api.AddressRequest{Address: address}, nil)
}

func (c *RegistryClient) RemoveAddress(ctx context.Context, chain interfaces.ChainID) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/identity/addresses/%d", chain), true, nil, nil)
}

func (c *RegistryClient) SetRecoveryAccount(ctx context.Context, recovery interfaces.AccountID) error {
	return c.do(ctx, http.MethodPut, "/api/v1/identity/recovery", true, api.RecoveryRequest{RecoveryAccount: recovery}, nil)
}

func (c *RegistryClient) TransferOwnership(ctx context.Context, identityNo interfaces.IdentityNo, newOwner interfaces.AccountID) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/identities/%d/transfer", identityNo), true, api.TransferRequest{NewOwner: newOwner}, nil)
}

func (c *RegistryClient) Identity(ctx context.Context, identityNo interfaces.IdentityNo) (*api.IdentityResponse, error) {
	var resp api.IdentityResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/identities/%d", identityNo), false, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RegistryClient) IdentityOf(ctx context.Context, account interfaces.AccountID) (interfaces.IdentityNo, error) {
	var resp api.AccountIdentityResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/accounts/"+account.String()+"/identity", false, nil, &resp); err != nil {
		return 0, err
	}
	return resp.IdentityNo, nil
}

func (c *RegistryClient) TransactionDestination(ctx context.Context, receiver interfaces.IdentityNo, chain interfaces.ChainID) (interfaces.ChainAddress, error) {
	var resp api.DestinationResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/identities/%d/destination/%d", receiver, chain), false, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Address, nil
}

// IdentityExists implements interfaces.IdentityLookup against a remote
// registry. Transport failures are returned as errors, never as false.
func (c *RegistryClient) IdentityExists(ctx context.Context, identityNo interfaces.IdentityNo) (bool, error) {
	_, err := c.Identity(ctx, identityNo)
	if errors.Is(err, interfaces.ErrIdentityDoesntExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *RegistryClient) AddChain(ctx context.Context, info interfaces.ChainInfo) (interfaces.ChainID, error) {
	var resp api.AddChainResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/chains", true, info, &resp); err != nil {
		return 0, err
	}
	return resp.ChainID, nil
}

func (c *RegistryClient) UpdateChain(ctx context.Context, chain interfaces.ChainID, update interfaces.ChainUpdate) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/v1/chains/%d", chain), true, update, nil)
}

func (c *RegistryClient) RemoveChain(ctx context.Context, chain interfaces.ChainID) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/chains/%d", chain), true, nil, nil)
}

func (c *RegistryClient) ChainInfo(ctx context.Context, chain interfaces.ChainID) (interfaces.ChainInfo, error) {
	var resp interfaces.Chain
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/chains/%d", chain), false, nil, &resp); err != nil {
		return interfaces.ChainInfo{}, err
	}
	return resp.Info, nil
}

func (c *RegistryClient) AvailableChains(ctx context.Context) ([]interfaces.Chain, error) {
	var resp []interfaces.Chain
	if err := c.do(ctx, http.MethodGet, "/api/v1/chains", false, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *RegistryClient) CreateAddressBook(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/addressbook", true, nil, nil)
}

func (c *RegistryClient) RemoveAddressBook(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/addressbook", true, nil, nil)
}

func (c *RegistryClient) AddContact(ctx context.Context, identityNo interfaces.IdentityNo, nickname *string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/addressbook/contacts", true, api.ContactRequest{IdentityNo: identityNo, Nickname: nickname}, nil)
}

func (c *RegistryClient) RemoveContact(ctx context.Context, identityNo interfaces.IdentityNo) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/addressbook/contacts/%d", identityNo), true, nil, nil)
}

func (c *RegistryClient) UpdateNickname(ctx context.Context, identityNo interfaces.IdentityNo, nickname *string) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/addressbook/contacts/%d", identityNo), true, api.NicknameRequest{Nickname: nickname}, nil)
}

func (c *RegistryClient) Contacts(ctx context.Context, account interfaces.AccountID) ([]interfaces.Contact, error) {
	var resp api.AddressBookResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/accounts/"+account.String()+"/addressbook", false, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Contacts, nil
}

// Events returns up to limit events after since. A non-positive limit uses
// the server default.
func (c *RegistryClient) Events(ctx context.Context, since uint64, limit int) (*api.EventsResponse, error) {
	query := url.Values{}
	query.Set("since", strconv.FormatUint(since, 10))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp api.EventsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/events?"+query.Encode(), false, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RegistryClient) do(ctx context.Context, method, path string, signed bool, body, out any) error {
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if raw != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if signed {
		if c.key == nil {
			return ErrNoSigningKey
		}
		if err := api.SignRequest(req, raw, c.key, time.Now()); err != nil {
			return err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// decodeError turns an error response back into the registry sentinel it
// was produced from, when there is one.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, api.MaxBodySize))

	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	if sentinel, ok := interfaces.ErrorFromCode(errResp.Error); ok {
		return sentinel
	}
	return &APIError{StatusCode: resp.StatusCode, Code: errResp.Error, Message: errResp.Message}
}
