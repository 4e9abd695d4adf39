/*
Package api defines the HTTP surface of the weighted membership registry
server.

It is organized into two subpackages:

 1. handlers - chi routes binding registry operations to HTTP
 2. clients - a Go client for the same routes

This package holds what both sides share: request and response bodies, the
JSON error envelope with its machine-readable codes, and the server
configuration.

# Routes

	POST /api/registries                              create (signed)
	GET  /api/registries                              list hosted registries
	GET  /api/registries/{registry}/admin             current admin
	GET  /api/registries/{registry}/members           all members, in insertion order
	GET  /api/registries/{registry}/members/{member}  one member
	GET  /api/registries/{registry}/total_weight      aggregate weight
	GET  /api/registries/{registry}/history?limit=N   snapshot chain, newest first
	POST /api/registries/{registry}/admin             transfer admin (signed)
	POST /api/registries/{registry}/members           batch update (signed)

# Signed requests

Mutations identify their caller by the X-Flashbots-Signature header (see
package identity). Signed bodies of registry mutations name the target
registry, and a body whose registry does not match the path is rejected, so
a signature cannot be replayed against another registry. Bodies must also
carry expected_sequence, the sequence the caller last read. A body is only
valid at that one sequence: once the registry moves on, the same signed bytes
fail with 409, so a captured request cannot be replayed later.

# Errors

Failed requests return {"error": message, "code": code} with an optional
"address" for duplicate members. See ErrorStatus for the code table.
*/
package api
