// Package main (cmd/registry_client) is a command line client for the
// registry server.
//
// Queries need only a server address. Mutations are signed with the key
// given by --privkey (or REGISTRY_PRIVKEY); generate-key prints a fresh one.
// With --srv-domain the server address is taken from the first SRV record
// of the domain.
//
// Example usage:
//
//	registry-client generate-key
//	registry-client --privkey=$KEY create --member 0xaa..:1 --member 0xbb..:1
//	registry-client --privkey=$KEY update-members --registry 0x.. \
//	    --upsert 0xcc..:2 --remove 0xaa.. --expected-sequence 0
//	registry-client history --registry 0x.. --limit 10
package main
