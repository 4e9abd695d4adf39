// Package interfaces defines the types and contracts shared by the weighted
// membership registry and the host that runs it.
//
// # Membership
//
//   - Address: 20-byte opaque member/admin/registry identifier
//   - Member: an address with a uint64 voting weight
//   - Event: notification reported by a successful mutation
//   - MembershipRegistry: query, admin transfer and batch update surface
//
// # Host collaborators
//
//   - EventSink: receives the events of committed mutations
//   - HeadStore: tracks the latest snapshot of every hosted registry
//   - StorageBackend: content-addressed storage for snapshots
//   - StorageBackendFactory: creates storage backends from location URIs
//
// # Errors
//
// Membership errors are sentinels (ErrZeroMembers, ErrNoMember,
// ErrUnauthorized, ErrInvariantViolated, ErrWeightOverflow) plus
// DuplicateMemberError, which carries the offending address and matches
// ErrDuplicateMember under errors.Is. Storage errors are ErrContentNotFound,
// ErrBackendUnavailable and ErrInvalidLocationURI.
package interfaces
