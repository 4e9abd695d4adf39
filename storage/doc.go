// Package storage persists registry snapshots in content-addressed backends.
//
// Content is identified by the SHA-256 hash of its bytes, so any backend can
// serve any snapshot and a fetched blob can always be verified against the
// ID it was requested by. Backends are configured by URI:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/registry/snapshots
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/prefix/?region=us-west-2&endpoint=custom.s3.com
//   - ipfs://localhost:5001/registry?timeout=30s
//   - vault://vault.example.com:8200/secret/registry?token=...&tls=false
//   - github://owner/repo/snapshots?ref=main (read-only)
//
// MultiStorageBackend writes to every available backend and reads from the
// first one holding the content. Head stores track the latest snapshot ID
// of every registry, which is the only mutable piece of persisted state.
package storage
