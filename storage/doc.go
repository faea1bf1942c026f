// Package storage provides content-addressed blob store backends for
// encrypted vault envelopes. Every backend implements interfaces.BlobStore:
// envelopes are stored and retrieved by the SHA-256 hash of their bytes, so
// a fetched blob can always be checked against its pointer.
//
// Backends are constructed from location URIs via the BlobStoreFactory:
//
//   - ipfs://host:port - IPFS node or gateway
//   - s3://bucket/prefix?region=... - Amazon S3 or compatible object store
//   - vault://host:port/mount/path - HashiCorp Vault KV v2
//   - file:///path - local filesystem
//   - mem:// - in-memory, for tests and development
//
// MultiBlobStore aggregates several backends for redundancy: Put writes to
// all available backends, Get returns from the first that has the content.
package storage
