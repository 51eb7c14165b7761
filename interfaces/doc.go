// Package interfaces defines the core types and interfaces of the identity
// registry system, separating the contracts between components from their
// implementations.
//
// # Registry Interfaces
//
// IdentityRegistry: identity lifecycle, per-chain addresses, ownership transfer
// and recovery, and destination resolution.
//
// ChainDirectory: the admin-curated list of supported chains.
//
// AddressBook: per-account contact lists layered over identities.
//
// IdentityLookup: the existence query the address book issues before accepting
// a contact. Both the in-process registry and the HTTP client implement it.
//
// # Storage Interfaces
//
// StorageBackend: content-addressed storage used for state checkpoints across
// multiple backend types (file, S3, IPFS, Vault).
//
// StorageBackendFactory: creates storage backends from location URIs.
//
// # Errors
//
// Registry errors are *Error sentinels carrying an ErrorKind and a stable code.
// Compare them with errors.Is and classify with KindOf:
//
//	if interfaces.KindOf(err) == interfaces.KindNotFound {
//	    // ...
//	}
//
// Components should depend on these interfaces rather than on concrete
// implementations, which keeps them testable with mocks.
package interfaces
