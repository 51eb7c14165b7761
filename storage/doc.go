// Package storage provides content-addressed blob storage for registry state
// checkpoints, with pluggable backends.
//
// Every blob is identified by the SHA-256 hash of its bytes, so the same
// checkpoint written to several backends has the same ContentID everywhere
// and a reader can verify what it fetched.
//
//   - File system storage for local deployments and tests
//   - S3-compatible object storage
//   - IPFS, through the node's mutable file system
//   - HashiCorp Vault KV v2, with token or TLS client certificate auth
//
// # Storage URI Format
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
//   - file:///var/lib/identity-registry/checkpoints
//   - s3://ACCESS:SECRET@bucket-name/prefix?region=eu-west-1&endpoint=minio:9000
//   - ipfs://localhost:5001/identity-registry?timeout=30s
//   - vault://vault.example.com:8200/secret/identity-registry?token=...
//
// # Redundancy
//
// MultiStorageBackend writes to every available backend and reads from the
// first backend that returns content whose hash matches the requested id.
package storage
