package membership

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/ruteri/weighted-membership-registry/interfaces"
)

// Registry is the in-memory membership state of a single registry.
// It is not safe for concurrent use; the host serializes invocations.
type Registry struct {
	admin       interfaces.Address
	hasAdmin    bool
	members     []interfaces.Member
	totalWeight uint64
}

// State is the exported form of a Registry, used for persistence.
type State struct {
	Admin       interfaces.Address  `json:"admin"`
	Members     []interfaces.Member `json:"members"`
	TotalWeight uint64              `json:"total_weight"`
}

// New constructs a registry owned by admin, or by creator when admin is nil.
// It returns one member_added event per initial member, in input order.
func New(creator interfaces.Address, admin *interfaces.Address, initial []interfaces.Member) (*Registry, []interfaces.Event, error) {
	if len(initial) == 0 {
		return nil, nil, interfaces.ErrZeroMembers
	}

	if err := CheckUnique(initial); err != nil {
		return nil, nil, err
	}

	total, err := sumWeights(initial)
	if err != nil {
		return nil, nil, err
	}

	r := &Registry{
		admin:       creator,
		hasAdmin:    true,
		members:     slices.Clone(initial),
		totalWeight: total,
	}
	if admin != nil {
		r.admin = *admin
	}

	events := make([]interfaces.Event, 0, len(initial))
	for _, m := range initial {
		events = append(events, interfaces.NewMemberAdded(m.Address))
	}

	return r, events, nil
}

// Restore rebuilds a registry from persisted state, re-checking every
// invariant. Violations wrap interfaces.ErrInvariantViolated.
func Restore(state State) (*Registry, error) {
	if len(state.Members) == 0 {
		return nil, fmt.Errorf("%w: no members", interfaces.ErrInvariantViolated)
	}

	if err := CheckUnique(state.Members); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvariantViolated, err)
	}

	total, err := sumWeights(state.Members)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvariantViolated, err)
	}
	if total != state.TotalWeight {
		return nil, fmt.Errorf("%w: total weight %d does not match member sum %d", interfaces.ErrInvariantViolated, state.TotalWeight, total)
	}

	return &Registry{
		admin:       state.Admin,
		hasAdmin:    true,
		members:     slices.Clone(state.Members),
		totalWeight: total,
	}, nil
}

// State exports a copy of the registry state.
func (r *Registry) State() State {
	return State{
		Admin:       r.admin,
		Members:     slices.Clone(r.members),
		TotalWeight: r.totalWeight,
	}
}

// Clone returns a deep copy.
func (r *Registry) Clone() *Registry {
	return &Registry{
		admin:       r.admin,
		hasAdmin:    r.hasAdmin,
		members:     slices.Clone(r.members),
		totalWeight: r.totalWeight,
	}
}

// Admin returns the current admin.
func (r *Registry) Admin() (interfaces.Address, error) {
	if !r.hasAdmin {
		return interfaces.Address{}, fmt.Errorf("%w: admin unset", interfaces.ErrInvariantViolated)
	}
	return r.admin, nil
}

// Members returns a copy of all members in stored order.
func (r *Registry) Members() ([]interfaces.Member, error) {
	if len(r.members) == 0 {
		return nil, fmt.Errorf("%w: no members", interfaces.ErrInvariantViolated)
	}
	return slices.Clone(r.members), nil
}

// Member looks up a member by address.
func (r *Registry) Member(addr interfaces.Address) (interfaces.Member, error) {
	idx := indexOf(r.members, addr)
	if idx < 0 {
		return interfaces.Member{}, fmt.Errorf("%w: %s", interfaces.ErrNoMember, addr)
	}
	return r.members[idx], nil
}

// TotalWeight returns the sum of all member weights.
func (r *Registry) TotalWeight() uint64 {
	return r.totalWeight
}

// UpdateAdmin transfers the admin role to newAdmin. Transferring to the
// current admin is allowed and still reported.
func (r *Registry) UpdateAdmin(caller, newAdmin interfaces.Address) ([]interfaces.Event, error) {
	if err := r.authorize(caller); err != nil {
		return nil, err
	}

	old := r.admin
	r.admin = newAdmin
	return []interfaces.Event{interfaces.NewAdminChanged(old, newAdmin)}, nil
}

// UpdateMembers applies upserts in input order and then removals in input
// order, so an address present in both lists ends up removed. Unknown
// removals are ignored. The batch is computed on a private copy and only
// committed if every step succeeds, including the check that at least one
// member remains.
func (r *Registry) UpdateMembers(caller interfaces.Address, upserts []interfaces.Member, removals []interfaces.Address) ([]interfaces.Event, error) {
	if err := r.authorize(caller); err != nil {
		return nil, err
	}

	if err := CheckUnique(upserts); err != nil {
		return nil, err
	}

	members := slices.Clone(r.members)
	total := r.totalWeight
	events := make([]interfaces.Event, 0, len(upserts)+len(removals))

	for _, upsert := range upserts {
		idx := indexOf(members, upsert.Address)
		if idx >= 0 {
			// old weight is part of total, cannot underflow
			total -= members[idx].Weight
			members[idx].Weight = upsert.Weight
			events = append(events, interfaces.NewMemberUpdated(upsert.Address))
		} else {
			members = append(members, upsert)
			events = append(events, interfaces.NewMemberAdded(upsert.Address))
		}

		var err error
		if total, err = addWeight(total, upsert.Weight); err != nil {
			return nil, err
		}
	}

	for _, addr := range removals {
		idx := indexOf(members, addr)
		if idx < 0 {
			continue
		}
		total -= members[idx].Weight
		members = slices.Delete(members, idx, idx+1)
		events = append(events, interfaces.NewMemberRemoved(addr))
	}

	if len(members) == 0 {
		return nil, interfaces.ErrZeroMembers
	}

	r.members = members
	r.totalWeight = total
	return events, nil
}

func (r *Registry) authorize(caller interfaces.Address) error {
	if !r.hasAdmin || caller != r.admin {
		return fmt.Errorf("%w: %s is not the admin", interfaces.ErrUnauthorized, caller)
	}
	return nil
}

func indexOf(members []interfaces.Member, addr interfaces.Address) int {
	return slices.IndexFunc(members, func(m interfaces.Member) bool {
		return m.Address == addr
	})
}

func addWeight(total, weight uint64) (uint64, error) {
	sum, carry := bits.Add64(total, weight, 0)
	if carry != 0 {
		return 0, interfaces.ErrWeightOverflow
	}
	return sum, nil
}
