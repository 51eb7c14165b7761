/*
Package api holds the HTTP wire types of the identity registry together with
the request authentication scheme shared by the server and its clients.

Mutating requests are signed by the calling account. The signature is an
EIP-191 personal signature over

	METHOD \n PATH \n UNIX_TIMESTAMP \n hex(keccak256(BODY))

sent in the X-Registry-Signature header, alongside the signer's address in
X-Registry-Account and the timestamp in X-Registry-Timestamp. The server
recovers the signer and uses it as the caller of the registry operation, so
a caller can never act on behalf of another account.

Errors are returned as {"error": CODE, "message": TEXT}. Registry errors use
their stable code and map to 403, 404, 409 or 400 by kind.

Subpackages:

  - handlers: chi handlers for the identity, chain directory, address book
    and event endpoints
  - clients: a signing HTTP client for those endpoints
*/
package api
