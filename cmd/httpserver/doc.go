// Package main (cmd/httpserver) runs the registry server.
//
// On start the server loads the latest snapshot of every registry listed in
// the heads file and verifies it against the membership invariants. A
// corrupted or missing snapshot aborts the start.
//
// Snapshots are written to every --storage backend. Reads try the backends
// in order, so the first URI should be the fastest one.
//
// Example usage:
//
//	registry-server --listen-addr=0.0.0.0:8080 \
//	    --storage=file:///var/lib/registry \
//	    --storage='s3://bucket/registry?region=us-east-1' \
//	    --heads-file=/var/lib/registry/heads.json
package main
