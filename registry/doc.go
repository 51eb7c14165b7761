// Package registry implements the identity registry and the chain directory.
//
// A Registry owns four mutually consistent maps: account to identity,
// identity to owner, identity to recovery account, and identity to its
// per-chain addresses, plus the admin-curated chain directory. Every
// operation runs under a single instance lock. Mutating operations validate
// completely before touching state and emit exactly one event on success,
// so readers never observe a partially applied operation and the event
// stream is totally ordered.
//
// Identity numbers and chain ids are allocated from monotonic counters and
// are never reused, also across Export and Restore.
//
// The caller of every mutating method is the account the host environment
// authenticated (see package api), never a value taken from the request
// body.
package registry
