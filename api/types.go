package api

import (
	"encoding/json"
	"time"

	"github.com/ruteri/identity-registry/interfaces"
)

// CreateIdentityResponse is returned by POST /api/v1/identity.
type CreateIdentityResponse struct {
	IdentityNo interfaces.IdentityNo `json:"identity_no"`
}

// AddressRequest carries an already encrypted chain address.
type AddressRequest struct {
	Address interfaces.ChainAddress `json:"address"`
}

type RecoveryRequest struct {
	RecoveryAccount interfaces.AccountID `json:"recovery_account"`
}

type TransferRequest struct {
	NewOwner interfaces.AccountID `json:"new_owner"`
}

// IdentityResponse describes an identity together with its accounts.
type IdentityResponse struct {
	IdentityNo      interfaces.IdentityNo          `json:"identity_no"`
	Owner           interfaces.AccountID           `json:"owner"`
	RecoveryAccount *interfaces.AccountID          `json:"recovery_account,omitempty"`
	Addresses       []interfaces.ChainAddressEntry `json:"addresses"`
}

type DestinationResponse struct {
	IdentityNo interfaces.IdentityNo   `json:"identity_no"`
	Chain      interfaces.ChainID      `json:"chain"`
	Address    interfaces.ChainAddress `json:"address"`
}

type AccountIdentityResponse struct {
	Account    interfaces.AccountID  `json:"account"`
	IdentityNo interfaces.IdentityNo `json:"identity_no"`
}

type AddChainResponse struct {
	ChainID interfaces.ChainID `json:"chain_id"`
}

// ContactRequest adds an identity to the caller's address book.
type ContactRequest struct {
	IdentityNo interfaces.IdentityNo `json:"identity_no"`
	Nickname   *string               `json:"nickname,omitempty"`
}

// NicknameRequest replaces a contact's nickname. A missing nickname clears it.
type NicknameRequest struct {
	Nickname *string `json:"nickname,omitempty"`
}

type AddressBookResponse struct {
	Owner    interfaces.AccountID `json:"owner"`
	Contacts []interfaces.Contact `json:"contacts"`
}

// EventRecord is one entry of the event feed. Data holds the event fields and
// is left undecoded so clients can pick the type from Name.
type EventRecord struct {
	Seq  uint64          `json:"seq"`
	Time time.Time       `json:"time"`
	Name string          `json:"name"`
	Data json.RawMessage `json:"event"`
}

type EventsResponse struct {
	LastSeq uint64        `json:"last_seq"`
	Events  []EventRecord `json:"events"`
}

// ErrorResponse is the body of every non-2xx API response. Error holds a
// stable code, for registry errors the same code as interfaces.Error.Code.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
