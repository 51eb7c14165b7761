// Command registrycli is a command line client for registryserver.
//
// Every mutating command is signed with the key in --key-file; the key's
// account is the caller of the operation. Read commands work without a key.
//
//	registrycli --key-file alice.key keygen
//	registrycli --key-file alice.key create-identity
//	registrycli --key-file alice.key add-address 0 0x5a3c...
//	registrycli destination 0 0
//	registrycli --key-file bob.key create-book
//	registrycli --key-file bob.key add-contact --nickname alice 0
package main
