/*
Package clients provides a Go client for the identity registry API.

RegistryClient signs every mutating request with its ECDSA key, so the key's
account is the caller of the operation. Error responses carrying a registry
error code are turned back into the matching interfaces sentinel, which lets
callers use errors.Is exactly as they would against an in-process registry:

	c := clients.NewRegistryClient("http://localhost:8080", key)
	if _, err := c.CreateIdentity(ctx); errors.Is(err, interfaces.ErrAlreadyIdentityOwner) {
		...
	}

RegistryClient also implements interfaces.IdentityLookup, so an address book
can run in a different process from the registry it references.
*/
package clients
