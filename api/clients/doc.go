/*
Package clients provides a Go client for the registry HTTP API.

RegistryClient wraps every route served by api/handlers. Mutating calls
(Create, UpdateAdmin, UpdateMembers) marshal the request body once, sign it
with an identity.Signer and send it with the X-Flashbots-Signature header.
Queries need no signer.

Failed requests come back as errors that match the sentinels in the
interfaces package, so callers can write:

	_, err := client.UpdateMembers(ctx, id, upserts, nil, nil)
	if errors.Is(err, interfaces.ErrUnauthorized) {
		...
	}

A duplicate member error is returned as *interfaces.DuplicateMemberError
carrying the offending address.
*/
package clients
