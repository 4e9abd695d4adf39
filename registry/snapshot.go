package registry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ruteri/weighted-membership-registry/interfaces"
	"github.com/ruteri/weighted-membership-registry/membership"
)

// Snapshot is the persisted state of a registry after one committed operation.
type Snapshot struct {
	Registry    interfaces.Address    `json:"registry"`
	Sequence    uint64                `json:"sequence"`
	Previous    *interfaces.ContentID `json:"previous,omitempty"`
	Admin       interfaces.Address    `json:"admin"`
	Members     []interfaces.Member   `json:"members"`
	TotalWeight uint64                `json:"total_weight"`
	Events      []interfaces.Event    `json:"events"`
	CreatedAt   time.Time             `json:"created_at"`
}

// State returns the membership state recorded in the snapshot.
func (s *Snapshot) State() membership.State {
	return membership.State{
		Admin:       s.Admin,
		Members:     s.Members,
		TotalWeight: s.TotalWeight,
	}
}

func newSnapshot(registry interfaces.Address, seq uint64, previous *interfaces.ContentID, state membership.State, events []interfaces.Event, now time.Time) *Snapshot {
	return &Snapshot{
		Registry:    registry,
		Sequence:    seq,
		Previous:    previous,
		Admin:       state.Admin,
		Members:     state.Members,
		TotalWeight: state.TotalWeight,
		Events:      events,
		CreatedAt:   now.UTC(),
	}
}

func encodeSnapshot(s *Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}
