package interfaces

import (
	"context"
	"errors"
	"fmt"
)

// Member is a registry entry. Two members are the same member iff their
// addresses are equal; weight is not part of identity. A zero weight is valid.
type Member struct {
	Address Address `json:"address"`
	Weight  uint64  `json:"weight"`
}

// EventKind names a membership notification.
type EventKind string

const (
	MemberAdded   EventKind = "member_added"
	MemberUpdated EventKind = "member_updated"
	MemberRemoved EventKind = "member_removed"
	AdminChanged  EventKind = "admin_changed"
)

// Event is reported for every observable change a mutation makes.
// Member events set Member, admin events set OldAdmin and NewAdmin.
type Event struct {
	Kind     EventKind `json:"kind"`
	Member   *Address  `json:"member,omitempty"`
	OldAdmin *Address  `json:"old_admin,omitempty"`
	NewAdmin *Address  `json:"new_admin,omitempty"`
}

func NewMemberAdded(member Address) Event {
	return Event{Kind: MemberAdded, Member: &member}
}

func NewMemberUpdated(member Address) Event {
	return Event{Kind: MemberUpdated, Member: &member}
}

func NewMemberRemoved(member Address) Event {
	return Event{Kind: MemberRemoved, Member: &member}
}

func NewAdminChanged(oldAdmin, newAdmin Address) Event {
	return Event{Kind: AdminChanged, OldAdmin: &oldAdmin, NewAdmin: &newAdmin}
}

var (
	// ErrZeroMembers is returned when a registry would be left without members.
	ErrZeroMembers = errors.New("no members entered")

	// ErrDuplicateMember is matched by every DuplicateMemberError.
	ErrDuplicateMember = errors.New("entered duplicate member")

	// ErrNoMember is returned by lookups of an address that is not a member.
	ErrNoMember = errors.New("member not found")

	// ErrUnauthorized is returned when a privileged operation is not called by the admin.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvariantViolated signals a bug in the core or corrupted persisted state,
	// never a caller mistake.
	ErrInvariantViolated = errors.New("registry invariant violated")

	// ErrWeightOverflow is returned when the total weight would not fit in a uint64.
	ErrWeightOverflow = errors.New("total weight overflows uint64")

	// ErrRegistryNotFound is returned by the host for unknown registry addresses.
	ErrRegistryNotFound = errors.New("registry not found")

	// ErrSequenceMismatch is returned by the host when a mutation was prepared
	// against a different registry state than the current one.
	ErrSequenceMismatch = errors.New("registry sequence mismatch")
)

// DuplicateMemberError reports the first repeated address found in a batch.
type DuplicateMemberError struct {
	Address Address
}

func (e *DuplicateMemberError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDuplicateMember, e.Address)
}

// Is makes errors.Is(err, ErrDuplicateMember) hold.
func (e *DuplicateMemberError) Is(target error) bool {
	return target == ErrDuplicateMember
}

// MembershipRegistry is the behavioral surface of a registry: queries, admin
// transfer and batch membership update. Mutations are authorized against the
// caller address supplied by the host.
type MembershipRegistry interface {
	// Admin returns the current admin.
	Admin() (Address, error)

	// Members returns all members in insertion order.
	Members() ([]Member, error)

	// Member looks up a member by address, failing with ErrNoMember.
	Member(addr Address) (Member, error)

	// TotalWeight returns the sum of all member weights.
	TotalWeight() uint64

	// UpdateAdmin transfers the admin role. Only the current admin may call it.
	UpdateAdmin(caller, newAdmin Address) error

	// UpdateMembers applies upserts, then removals, atomically.
	// Only the admin may call it.
	UpdateMembers(caller Address, upserts []Member, removals []Address) error
}

// EventSink receives the events of committed mutations for one registry.
type EventSink interface {
	Publish(ctx context.Context, registry Address, events []Event) error
}

// HeadStore tracks the content ID of the latest snapshot of each registry.
type HeadStore interface {
	// Heads returns the latest snapshot ID of every known registry.
	Heads(ctx context.Context) (map[Address]ContentID, error)

	// SetHead records id as the latest snapshot of registry.
	SetHead(ctx context.Context, registry Address, id ContentID) error
}
