// Package events defines the audit events emitted by the registries and the
// sinks that record them.
package events

import (
	"github.com/ruteri/identity-registry/interfaces"
)

// Event is a structured record of one successful mutating operation.
type Event interface {
	EventName() string
}

// Emitter receives events. Registries call Emit while holding their own lock,
// so implementations must not block and must not call back into a registry.
type Emitter interface {
	Emit(ev Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ev Event)

func (f EmitterFunc) Emit(ev Event) { f(ev) }

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(Event) {})

type IdentityCreated struct {
	Owner      interfaces.AccountID  `json:"owner"`
	IdentityNo interfaces.IdentityNo `json:"identity_no"`
}

type AddressAdded struct {
	IdentityNo interfaces.IdentityNo   `json:"identity_no"`
	Chain      interfaces.ChainID      `json:"chain"`
	Address    interfaces.ChainAddress `json:"address"`
}

type AddressUpdated struct {
	IdentityNo     interfaces.IdentityNo   `json:"identity_no"`
	Chain          interfaces.ChainID      `json:"chain"`
	UpdatedAddress interfaces.ChainAddress `json:"updated_address"`
}

type AddressRemoved struct {
	IdentityNo interfaces.IdentityNo `json:"identity_no"`
	Chain      interfaces.ChainID    `json:"chain"`
}

type IdentityRemoved struct {
	IdentityNo interfaces.IdentityNo `json:"identity_no"`
}

type RecoveryAccountSet struct {
	IdentityNo      interfaces.IdentityNo `json:"identity_no"`
	RecoveryAccount interfaces.AccountID  `json:"recovery_account"`
}

type OwnershipTransferred struct {
	IdentityNo    interfaces.IdentityNo `json:"identity_no"`
	PreviousOwner interfaces.AccountID  `json:"previous_owner"`
	NewOwner      interfaces.AccountID  `json:"new_owner"`
}

type ChainAdded struct {
	ChainID interfaces.ChainID   `json:"chain_id"`
	Info    interfaces.ChainInfo `json:"info"`
}

// ChainUpdated carries the chain entry as it is after the update.
type ChainUpdated struct {
	ChainID interfaces.ChainID   `json:"chain_id"`
	Info    interfaces.ChainInfo `json:"info"`
}

type ChainRemoved struct {
	ChainID interfaces.ChainID `json:"chain_id"`
}

type AddressBookCreated struct {
	Owner interfaces.AccountID `json:"owner"`
}

type AddressBookRemoved struct {
	Owner interfaces.AccountID `json:"owner"`
}

type IdentityAdded struct {
	Owner      interfaces.AccountID  `json:"owner"`
	IdentityNo interfaces.IdentityNo `json:"identity_no"`
	Nickname   *string               `json:"nickname,omitempty"`
}

// ContactRemoved is emitted when an identity is removed from an address book.
type ContactRemoved struct {
	Owner      interfaces.AccountID  `json:"owner"`
	IdentityNo interfaces.IdentityNo `json:"identity_no"`
}

type NickNameUpdated struct {
	Owner       interfaces.AccountID  `json:"owner"`
	IdentityNo  interfaces.IdentityNo `json:"identity_no"`
	NewNickname *string               `json:"new_nickname,omitempty"`
}

func (IdentityCreated) EventName() string      { return "IdentityCreated" }
func (AddressAdded) EventName() string         { return "AddressAdded" }
func (AddressUpdated) EventName() string       { return "AddressUpdated" }
func (AddressRemoved) EventName() string       { return "AddressRemoved" }
func (IdentityRemoved) EventName() string      { return "IdentityRemoved" }
func (RecoveryAccountSet) EventName() string   { return "RecoveryAccountSet" }
func (OwnershipTransferred) EventName() string { return "OwnershipTransferred" }
func (ChainAdded) EventName() string           { return "ChainAdded" }
func (ChainUpdated) EventName() string         { return "ChainUpdated" }
func (ChainRemoved) EventName() string         { return "ChainRemoved" }
func (AddressBookCreated) EventName() string   { return "AddressBookCreated" }
func (AddressBookRemoved) EventName() string   { return "AddressBookRemoved" }
func (IdentityAdded) EventName() string        { return "IdentityAdded" }
func (ContactRemoved) EventName() string       { return "ContactRemoved" }
func (NickNameUpdated) EventName() string      { return "NickNameUpdated" }
