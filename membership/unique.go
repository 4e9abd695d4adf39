package membership

import (
	"github.com/ruteri/weighted-membership-registry/interfaces"
)

// CheckUnique returns a *interfaces.DuplicateMemberError for the first entry
// whose address already appeared earlier in members, scanning by increasing
// index. Order of the input does not matter for detection.
func CheckUnique(members []interfaces.Member) error {
	seen := make(map[interfaces.Address]struct{}, len(members))
	for _, m := range members {
		if _, found := seen[m.Address]; found {
			return &interfaces.DuplicateMemberError{Address: m.Address}
		}
		seen[m.Address] = struct{}{}
	}
	return nil
}

// sumWeights adds up member weights, failing on uint64 overflow.
func sumWeights(members []interfaces.Member) (uint64, error) {
	var total uint64
	for _, m := range members {
		var err error
		if total, err = addWeight(total, m.Weight); err != nil {
			return 0, err
		}
	}
	return total, nil
}
