/*
Package handlers implements the HTTP endpoints of the identity registry.

A single Handler serves the identity registry, the chain directory, the
address book and the event feed. Mutating routes require a signed request
(see package api); the recovered signer becomes the caller of the registry
operation. Read routes are public.

Signed routes:

	POST   /api/v1/identity
	DELETE /api/v1/identity
	POST   /api/v1/identity/addresses/{chain_id}
	PUT    /api/v1/identity/addresses/{chain_id}
	DELETE /api/v1/identity/addresses/{chain_id}
	PUT    /api/v1/identity/recovery
	POST   /api/v1/identities/{identity_no}/transfer
	POST   /api/v1/chains
	PATCH  /api/v1/chains/{chain_id}
	DELETE /api/v1/chains/{chain_id}
	POST   /api/v1/addressbook
	DELETE /api/v1/addressbook
	POST   /api/v1/addressbook/contacts
	PUT    /api/v1/addressbook/contacts/{identity_no}
	DELETE /api/v1/addressbook/contacts/{identity_no}

Public routes:

	GET /api/v1/identities/{identity_no}
	GET /api/v1/identities/{identity_no}/destination/{chain_id}
	GET /api/v1/accounts/{account}/identity
	GET /api/v1/accounts/{account}/addressbook
	GET /api/v1/chains
	GET /api/v1/chains/{chain_id}
	GET /api/v1/events?since=N&limit=M
*/
package handlers
