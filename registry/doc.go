// Package registry hosts weighted membership registries.
//
// A Service owns one membership.Registry per hosted registry address and
// serializes every invocation against it. Each successful mutation runs on a
// private clone of the registry, is written to a content-addressed
// StorageBackend as a Snapshot, has its head pointer moved in a HeadStore,
// and only then replaces the in-memory registry. The events the mutation
// caused are published to an EventSink once the new state is durable.
//
// Snapshots link to their predecessor by content ID, so the full history of
// a registry can be walked back from its head:
//
//	head -> snapshot(seq=n) -> snapshot(seq=n-1) -> ... -> snapshot(seq=0)
//
// On startup Load restores every registry from its head snapshot, re-checking
// the membership invariants of each one.
package registry
