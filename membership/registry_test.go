package membership

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/ruteri/weighted-membership-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addrA = interfaces.Address{0xa}
	addrB = interfaces.Address{0xb}
	addrC = interfaces.Address{0xc}
	addrD = interfaces.Address{0xd}
)

func member(addr interfaces.Address, weight uint64) interfaces.Member {
	return interfaces.Member{Address: addr, Weight: weight}
}

func newTestRegistry(t *testing.T, members ...interfaces.Member) *Registry {
	t.Helper()
	r, _, err := New(addrA, nil, members)
	require.NoError(t, err)
	return r
}

func requireInvariants(t *testing.T, r *Registry) {
	t.Helper()

	members, err := r.Members()
	require.NoError(t, err)
	require.NoError(t, CheckUnique(members))

	var sum uint64
	for _, m := range members {
		sum += m.Weight
	}
	require.Equal(t, sum, r.TotalWeight())
}

func TestNew(t *testing.T) {
	t.Run("admin defaults to creator", func(t *testing.T) {
		r, events, err := New(addrA, nil, []interfaces.Member{member(addrB, 3), member(addrC, 0)})
		require.NoError(t, err)

		admin, err := r.Admin()
		require.NoError(t, err)
		assert.Equal(t, addrA, admin)
		assert.Equal(t, uint64(3), r.TotalWeight())
		assert.Equal(t, []interfaces.Event{
			interfaces.NewMemberAdded(addrB),
			interfaces.NewMemberAdded(addrC),
		}, events)
	})

	t.Run("explicit admin", func(t *testing.T) {
		r, _, err := New(addrA, &addrD, []interfaces.Member{member(addrB, 1)})
		require.NoError(t, err)

		admin, err := r.Admin()
		require.NoError(t, err)
		assert.Equal(t, addrD, admin)
	})

	t.Run("empty member set", func(t *testing.T) {
		_, _, err := New(addrA, nil, nil)
		assert.ErrorIs(t, err, interfaces.ErrZeroMembers)
	})

	t.Run("non-adjacent duplicate", func(t *testing.T) {
		_, _, err := New(addrA, nil, []interfaces.Member{member(addrB, 1), member(addrC, 1), member(addrB, 2)})
		require.ErrorIs(t, err, interfaces.ErrDuplicateMember)

		var dup *interfaces.DuplicateMemberError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, addrB, dup.Address)
	})

	t.Run("overflow", func(t *testing.T) {
		_, _, err := New(addrA, nil, []interfaces.Member{member(addrB, math.MaxUint64), member(addrC, 1)})
		assert.ErrorIs(t, err, interfaces.ErrWeightOverflow)
	})

	t.Run("input is not aliased", func(t *testing.T) {
		initial := []interfaces.Member{member(addrB, 1)}
		r, _, err := New(addrA, nil, initial)
		require.NoError(t, err)

		initial[0].Weight = 100
		m, err := r.Member(addrB)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), m.Weight)
	})
}

func TestCheckUnique(t *testing.T) {
	testCases := []struct {
		name    string
		members []interfaces.Member
		dup     *interfaces.Address
	}{
		{name: "empty"},
		{name: "distinct", members: []interfaces.Member{member(addrA, 1), member(addrB, 1), member(addrC, 1)}},
		{name: "adjacent", members: []interfaces.Member{member(addrA, 1), member(addrA, 2)}, dup: &addrA},
		{name: "apart", members: []interfaces.Member{member(addrC, 1), member(addrA, 1), member(addrB, 1), member(addrA, 1)}, dup: &addrA},
		{name: "first conflict by index", members: []interfaces.Member{member(addrB, 1), member(addrC, 1), member(addrC, 1), member(addrB, 1)}, dup: &addrC},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckUnique(tc.members)
			if tc.dup == nil {
				assert.NoError(t, err)
				return
			}

			var dup *interfaces.DuplicateMemberError
			require.True(t, errors.As(err, &dup))
			assert.Equal(t, *tc.dup, dup.Address)
		})
	}
}

func TestQueries(t *testing.T) {
	r := newTestRegistry(t, member(addrA, 1), member(addrB, 2))

	members, err := r.Members()
	require.NoError(t, err)
	assert.Equal(t, []interfaces.Member{member(addrA, 1), member(addrB, 2)}, members)

	// callers get a copy
	members[0].Weight = 50
	m, err := r.Member(addrA)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.Weight)

	_, err = r.Member(addrC)
	assert.ErrorIs(t, err, interfaces.ErrNoMember)

	var empty Registry
	_, err = empty.Admin()
	assert.ErrorIs(t, err, interfaces.ErrInvariantViolated)
	_, err = empty.Members()
	assert.ErrorIs(t, err, interfaces.ErrInvariantViolated)
	assert.Zero(t, empty.TotalWeight())
}

func TestUpdateAdmin(t *testing.T) {
	r := newTestRegistry(t, member(addrB, 1))

	_, err := r.UpdateAdmin(addrB, addrB)
	require.ErrorIs(t, err, interfaces.ErrUnauthorized)
	admin, _ := r.Admin()
	assert.Equal(t, addrA, admin)

	events, err := r.UpdateAdmin(addrA, addrA)
	require.NoError(t, err)
	assert.Equal(t, []interfaces.Event{interfaces.NewAdminChanged(addrA, addrA)}, events)

	events, err = r.UpdateAdmin(addrA, addrC)
	require.NoError(t, err)
	assert.Equal(t, []interfaces.Event{interfaces.NewAdminChanged(addrA, addrC)}, events)

	_, err = r.UpdateAdmin(addrA, addrA)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)
}

func TestUpdateMembers_Scenario(t *testing.T) {
	r, _, err := New(addrA, &addrA, []interfaces.Member{member(addrA, 1), member(addrB, 1)})
	require.NoError(t, err)
	require.Equal(t, uint64(2), r.TotalWeight())

	events, err := r.UpdateMembers(addrA, []interfaces.Member{member(addrA, 2)}, nil)
	require.NoError(t, err)
	assert.Equal(t, []interfaces.Event{interfaces.NewMemberUpdated(addrA)}, events)
	m, err := r.Member(addrA)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), m.Weight)
	assert.Equal(t, uint64(3), r.TotalWeight())

	events, err = r.UpdateMembers(addrA, []interfaces.Member{member(addrC, 1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, []interfaces.Event{interfaces.NewMemberAdded(addrC)}, events)
	members, _ := r.Members()
	assert.Len(t, members, 3)
	assert.Equal(t, uint64(4), r.TotalWeight())

	events, err = r.UpdateMembers(addrA, nil, []interfaces.Address{addrA})
	require.NoError(t, err)
	assert.Equal(t, []interfaces.Event{interfaces.NewMemberRemoved(addrA)}, events)
	members, _ = r.Members()
	assert.Equal(t, []interfaces.Member{member(addrB, 1), member(addrC, 1)}, members)
	assert.Equal(t, uint64(2), r.TotalWeight())

	before := r.State()
	_, err = r.UpdateMembers(addrA, []interfaces.Member{member(addrB, 1), member(addrB, 1)}, nil)
	var dup *interfaces.DuplicateMemberError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, addrB, dup.Address)
	assert.Equal(t, before, r.State())
}

func TestUpdateMembers(t *testing.T) {
	t.Run("unauthorized leaves state", func(t *testing.T) {
		r := newTestRegistry(t, member(addrA, 1), member(addrB, 1))
		before := r.State()

		_, err := r.UpdateMembers(addrB, []interfaces.Member{member(addrC, 5)}, []interfaces.Address{addrA})
		assert.ErrorIs(t, err, interfaces.ErrUnauthorized)
		assert.Equal(t, before, r.State())
	})

	t.Run("removal wins over upsert", func(t *testing.T) {
		r := newTestRegistry(t, member(addrA, 1))

		events, err := r.UpdateMembers(addrA, []interfaces.Member{member(addrB, 5)}, []interfaces.Address{addrB})
		require.NoError(t, err)
		assert.Equal(t, []interfaces.Event{
			interfaces.NewMemberAdded(addrB),
			interfaces.NewMemberRemoved(addrB),
		}, events)

		_, err = r.Member(addrB)
		assert.ErrorIs(t, err, interfaces.ErrNoMember)
		assert.Equal(t, uint64(1), r.TotalWeight())
	})

	t.Run("unknown and repeated removals", func(t *testing.T) {
		r := newTestRegistry(t, member(addrA, 1), member(addrB, 2))

		events, err := r.UpdateMembers(addrA, nil, []interfaces.Address{addrD})
		require.NoError(t, err)
		assert.Empty(t, events)
		assert.Equal(t, uint64(3), r.TotalWeight())

		events, err = r.UpdateMembers(addrA, nil, []interfaces.Address{addrB, addrB})
		require.NoError(t, err)
		assert.Equal(t, []interfaces.Event{interfaces.NewMemberRemoved(addrB)}, events)
		assert.Equal(t, uint64(1), r.TotalWeight())
	})

	t.Run("zero weight members", func(t *testing.T) {
		r := newTestRegistry(t, member(addrA, 4))

		_, err := r.UpdateMembers(addrA, []interfaces.Member{member(addrB, 0), member(addrA, 0)}, nil)
		require.NoError(t, err)
		assert.Zero(t, r.TotalWeight())

		m, err := r.Member(addrB)
		require.NoError(t, err)
		assert.Zero(t, m.Weight)
	})

	t.Run("emptying is rejected", func(t *testing.T) {
		r := newTestRegistry(t, member(addrA, 1), member(addrB, 1))
		before := r.State()

		_, err := r.UpdateMembers(addrA, []interfaces.Member{member(addrC, 1)}, []interfaces.Address{addrA, addrB, addrC})
		assert.ErrorIs(t, err, interfaces.ErrZeroMembers)
		assert.Equal(t, before, r.State())
	})

	t.Run("overflow is atomic", func(t *testing.T) {
		r := newTestRegistry(t, member(addrA, math.MaxUint64-1))
		before := r.State()

		_, err := r.UpdateMembers(addrA, []interfaces.Member{member(addrB, 1), member(addrC, 1)}, nil)
		assert.ErrorIs(t, err, interfaces.ErrWeightOverflow)
		assert.Equal(t, before, r.State())

		// replacing a large weight does not overflow transiently
		_, err = r.UpdateMembers(addrA, []interfaces.Member{member(addrA, math.MaxUint64)}, nil)
		require.NoError(t, err)
		assert.Equal(t, uint64(math.MaxUint64), r.TotalWeight())
	})

	t.Run("insertion order", func(t *testing.T) {
		r := newTestRegistry(t, member(addrC, 1))

		_, err := r.UpdateMembers(addrA, []interfaces.Member{member(addrB, 1), member(addrA, 1), member(addrC, 2)}, nil)
		require.NoError(t, err)

		members, err := r.Members()
		require.NoError(t, err)
		assert.Equal(t, []interfaces.Member{member(addrC, 2), member(addrB, 1), member(addrA, 1)}, members)
	})
}

func TestRestore(t *testing.T) {
	r := newTestRegistry(t, member(addrA, 1), member(addrB, 2))

	restored, err := Restore(r.State())
	require.NoError(t, err)
	assert.Equal(t, r.State(), restored.State())

	testCases := []struct {
		name  string
		state State
	}{
		{"empty", State{Admin: addrA}},
		{"duplicate", State{Admin: addrA, Members: []interfaces.Member{member(addrA, 1), member(addrA, 1)}, TotalWeight: 2}},
		{"wrong total", State{Admin: addrA, Members: []interfaces.Member{member(addrA, 1)}, TotalWeight: 7}},
		{"overflow", State{Admin: addrA, Members: []interfaces.Member{member(addrA, math.MaxUint64), member(addrB, 1)}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Restore(tc.state)
			assert.ErrorIs(t, err, interfaces.ErrInvariantViolated)
		})
	}
}

func TestClone(t *testing.T) {
	r := newTestRegistry(t, member(addrA, 1))
	c := r.Clone()

	_, err := c.UpdateMembers(addrA, []interfaces.Member{member(addrB, 1)}, nil)
	require.NoError(t, err)
	_, err = c.UpdateAdmin(addrA, addrB)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), r.TotalWeight())
	admin, _ := r.Admin()
	assert.Equal(t, addrA, admin)
}

func TestInvariants_RandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pool := make([]interfaces.Address, 8)
	for i := range pool {
		pool[i] = interfaces.Address{byte(i + 1)}
	}

	r, _, err := New(pool[0], nil, []interfaces.Member{member(pool[0], 1)})
	require.NoError(t, err)

	for i := 0; i < 2000; i++ {
		admin, err := r.Admin()
		require.NoError(t, err)

		caller := admin
		if rng.Intn(10) == 0 {
			caller = pool[rng.Intn(len(pool))]
		}

		if rng.Intn(20) == 0 {
			_, err = r.UpdateAdmin(caller, pool[rng.Intn(len(pool))])
		} else {
			var upserts []interfaces.Member
			for n := rng.Intn(4); n > 0; n-- {
				upserts = append(upserts, member(pool[rng.Intn(len(pool))], uint64(rng.Intn(100))))
			}
			var removals []interfaces.Address
			for n := rng.Intn(3); n > 0; n-- {
				removals = append(removals, pool[rng.Intn(len(pool))])
			}

			before := r.State()
			_, err = r.UpdateMembers(caller, upserts, removals)
			if err != nil {
				assert.Equal(t, before, r.State())
			}
		}

		if caller != admin {
			assert.ErrorIs(t, err, interfaces.ErrUnauthorized)
		}
		requireInvariants(t, r)
	}
}
