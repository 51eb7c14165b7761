package interfaces

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AccountID identifies an external account. Accounts are secp256k1 keys and
// are represented by their 20-byte address.
type AccountID [20]byte

// NewAccountIDFromBytes creates an account identifier from a 20-byte slice.
func NewAccountIDFromBytes(addr []byte) (AccountID, error) {
	if len(addr) != 20 {
		return AccountID{}, errors.New("invalid account length: must be 20 bytes")
	}

	var res AccountID
	copy(res[:], addr)
	return res, nil
}

// NewAccountIDFromHex parses a 40-character hex string, with or without 0x prefix.
func NewAccountIDFromHex(addr string) (AccountID, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	if len(clean) != 40 {
		return AccountID{}, errors.New("invalid account length: hex string must be 40 characters")
	}

	addrBytes, err := hex.DecodeString(clean)
	if err != nil {
		return AccountID{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewAccountIDFromBytes(addrBytes)
}

// String returns the 0x-prefixed hex representation of the account.
func (a AccountID) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Bytes returns the raw 20-byte account.
func (a AccountID) Bytes() []byte {
	return a[:]
}

// IsZero reports whether the account is the zero address.
func (a AccountID) IsZero() bool {
	return a == AccountID{}
}

// MarshalText implements encoding.TextMarshaler.
func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AccountID) UnmarshalText(text []byte) error {
	parsed, err := NewAccountIDFromHex(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// IdentityNo is the sequentially assigned number of an identity. Numbers are
// never reused, even after the identity is removed.
type IdentityNo uint32

// ParseIdentityNo parses a decimal identity number.
func ParseIdentityNo(s string) (IdentityNo, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid identity number %q: %w", s, err)
	}
	return IdentityNo(n), nil
}

// ChainID identifies a chain in the chain directory. Like identity numbers,
// chain ids are assigned sequentially and never reused.
type ChainID uint32

// ParseChainID parses a decimal chain id.
func ParseChainID(s string) (ChainID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid chain id %q: %w", s, err)
	}
	return ChainID(n), nil
}

// ChainAddress is an opaque destination address on a specific chain.
// Clients encrypt addresses before submitting them, the registry never
// interprets the bytes.
type ChainAddress []byte

// String returns the 0x-prefixed hex representation of the address.
func (a ChainAddress) String() string {
	return "0x" + hex.EncodeToString(a)
}

// MarshalText implements encoding.TextMarshaler.
func (a ChainAddress) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *ChainAddress) UnmarshalText(text []byte) error {
	clean := strings.TrimPrefix(strings.TrimPrefix(string(text), "0x"), "0X")
	decoded, err := hex.DecodeString(clean)
	if err != nil {
		return fmt.Errorf("invalid address hex: %w", err)
	}
	*a = decoded
	return nil
}

// AccountType describes the address format used by a chain.
type AccountType int

const (
	// AccountId32 is a 32-byte substrate-style account.
	AccountId32 AccountType = iota
	// AccountKey20 is a 20-byte Ethereum-style account.
	AccountKey20
)

// String returns the account type name.
func (t AccountType) String() string {
	switch t {
	case AccountId32:
		return "AccountId32"
	case AccountKey20:
		return "AccountKey20"
	default:
		return "unknown"
	}
}

// ParseAccountType parses an account type name, case-insensitively.
func ParseAccountType(s string) (AccountType, error) {
	switch strings.ToLower(s) {
	case "accountid32":
		return AccountId32, nil
	case "accountkey20":
		return AccountKey20, nil
	default:
		return 0, fmt.Errorf("unknown account type: %s", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t AccountType) MarshalText() ([]byte, error) {
	if t != AccountId32 && t != AccountKey20 {
		return nil, fmt.Errorf("unknown account type: %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *AccountType) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ChainInfo is the chain directory metadata for one chain.
type ChainInfo struct {
	// Name is a human readable chain name, may be empty.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// AccountType is required by clients to validate address formats.
	AccountType AccountType `json:"account_type" yaml:"account_type"`

	// SS58Prefix is the address prefix for substrate chains.
	SS58Prefix *uint16 `json:"ss58_prefix,omitempty" yaml:"ss58_prefix,omitempty"`

	// RPCURLs lists the chain's RPC endpoints in the order they were added.
	RPCURLs []string `json:"rpc_urls" yaml:"rpc_urls"`
}

// Clone returns a deep copy of the chain info.
func (c ChainInfo) Clone() ChainInfo {
	out := c
	out.RPCURLs = make([]string, len(c.RPCURLs))
	copy(out.RPCURLs, c.RPCURLs)
	if c.SS58Prefix != nil {
		prefix := *c.SS58Prefix
		out.SS58Prefix = &prefix
	}
	return out
}

// ChainUpdate holds the optional changes applied by an update_chain call.
// A present RPCURL is appended to the endpoint list, every other present
// field replaces the stored value.
type ChainUpdate struct {
	Name        *string      `json:"name,omitempty"`
	RPCURL      *string      `json:"rpc_url,omitempty"`
	AccountType *AccountType `json:"account_type,omitempty"`
	SS58Prefix  *uint16      `json:"ss58_prefix,omitempty"`
}

// Chain pairs a chain id with its directory entry.
type Chain struct {
	ID   ChainID   `json:"chain_id"`
	Info ChainInfo `json:"info"`
}

// ChainAddressEntry is one (chain, address) pair of an identity.
type ChainAddressEntry struct {
	Chain   ChainID      `json:"chain"`
	Address ChainAddress `json:"address"`
}

// IdentityInfo holds the per-chain addresses of an identity. At most one
// address is stored per chain, in insertion order.
type IdentityInfo struct {
	Addresses []ChainAddressEntry `json:"addresses"`
}

// Clone returns a deep copy of the identity info.
func (i IdentityInfo) Clone() IdentityInfo {
	out := IdentityInfo{Addresses: make([]ChainAddressEntry, 0, len(i.Addresses))}
	for _, entry := range i.Addresses {
		out.Addresses = append(out.Addresses, ChainAddressEntry{
			Chain:   entry.Chain,
			Address: append(ChainAddress(nil), entry.Address...),
		})
	}
	return out
}

// AddressOn returns the address registered for the chain, if any.
func (i IdentityInfo) AddressOn(chain ChainID) (ChainAddress, bool) {
	for _, entry := range i.Addresses {
		if entry.Chain == chain {
			return entry.Address, true
		}
	}
	return nil, false
}

// IdentityDetails is a consistent view of one identity: its owner, recovery
// account and addresses as of a single point in time.
type IdentityDetails struct {
	IdentityNo      IdentityNo
	Owner           AccountID
	RecoveryAccount *AccountID
	Info            IdentityInfo
}

// Contact is one address book entry: an identity with an optional nickname.
type Contact struct {
	IdentityNo IdentityNo `json:"identity_no"`
	Nickname   *string    `json:"nickname,omitempty"`
}

// NewContact creates a contact, an empty nickname is stored as no nickname.
func NewContact(identityNo IdentityNo, nickname string) Contact {
	if nickname == "" {
		return Contact{IdentityNo: identityNo}
	}
	return Contact{IdentityNo: identityNo, Nickname: &nickname}
}
