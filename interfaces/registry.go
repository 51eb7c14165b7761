package interfaces

import (
	"context"
)

// IdentityLookup is the query the address book issues against the identity
// registry before accepting a contact. Implementations must not mutate state.
// A false result with a nil error means the identity does not exist; a non-nil
// error means the question could not be answered.
type IdentityLookup interface {
	IdentityExists(ctx context.Context, identityNo IdentityNo) (bool, error)
}

// ChainDirectory is the admin-curated list of supported chains.
type ChainDirectory interface {
	// AddChain registers a new chain and returns its sequentially assigned id.
	AddChain(caller AccountID, info ChainInfo) (ChainID, error)

	// UpdateChain applies the present fields of update to an existing chain.
	UpdateChain(caller AccountID, chain ChainID, update ChainUpdate) error

	// RemoveChain deletes a chain. Identities referencing it are not touched.
	RemoveChain(caller AccountID, chain ChainID) error

	// ChainInfoOf returns the directory entry for a chain.
	ChainInfoOf(chain ChainID) (ChainInfo, bool)

	// AvailableChains returns the directory ordered by chain id.
	AvailableChains() []Chain
}

// IdentityRegistry manages identities, their per-chain addresses and the
// ownership and recovery protocol. The caller is always the account the host
// authenticated, never a user-supplied value.
type IdentityRegistry interface {
	ChainDirectory
	IdentityLookup

	CreateIdentity(caller AccountID) (IdentityNo, error)
	RemoveIdentity(caller AccountID) error

	AddAddress(caller AccountID, chain ChainID, address ChainAddress) error
	UpdateAddress(caller AccountID, chain ChainID, address ChainAddress) error
	RemoveAddress(caller AccountID, chain ChainID) error

	SetRecoveryAccount(caller AccountID, recovery AccountID) error
	TransferOwnership(caller AccountID, identityNo IdentityNo, newOwner AccountID) error

	// TransactionDestination resolves the address of receiver on chain.
	TransactionDestination(receiver IdentityNo, chain ChainID) (ChainAddress, error)

	IdentityOf(account AccountID) (IdentityNo, bool)
	OwnerOf(identityNo IdentityNo) (AccountID, bool)
	RecoveryAccountOf(identityNo IdentityNo) (AccountID, bool)
	Identity(identityNo IdentityNo) (IdentityInfo, bool)

	// IdentityDetails returns the owner, recovery account and addresses of
	// identityNo read together.
	IdentityDetails(identityNo IdentityNo) (IdentityDetails, bool)
}

// AddressBook is a per-account contact list layered over identities.
type AddressBook interface {
	CreateAddressBook(caller AccountID) error
	RemoveAddressBook(caller AccountID) error

	// AddIdentity appends a contact after confirming the identity exists.
	// Any failure leaves the caller's book unchanged.
	AddIdentity(ctx context.Context, caller AccountID, identityNo IdentityNo, nickname *string) error
	RemoveIdentity(caller AccountID, identityNo IdentityNo) error
	UpdateNickname(caller AccountID, identityNo IdentityNo, nickname *string) error

	// IdentitiesOf returns the contacts of account in insertion order, empty
	// if the account has no address book.
	IdentitiesOf(account AccountID) []Contact
	HasAddressBook(account AccountID) bool
}
