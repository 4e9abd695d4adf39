package api

import (
	"github.com/ruteri/weighted-membership-registry/interfaces"
	"github.com/ruteri/weighted-membership-registry/registry"
)

// MaxBodySize caps request bodies.
const MaxBodySize = 1 << 20

// CreateRequest constructs a registry. The admin defaults to the signer.
type CreateRequest struct {
	Admin   *interfaces.Address `json:"admin,omitempty"`
	Members []interfaces.Member `json:"members"`
}

// UpdateAdminRequest transfers the admin role of Registry.
//
// ExpectedSequence is required. It binds the signed body to the one state it
// was signed against, so a captured body cannot be applied a second time.
type UpdateAdminRequest struct {
	Registry         interfaces.Address `json:"registry"`
	NewAdmin         interfaces.Address `json:"new_admin"`
	ExpectedSequence *uint64            `json:"expected_sequence"`
}

// UpdateMembersRequest applies Upserts, then Removals, to Registry.
// ExpectedSequence is required, as for UpdateAdminRequest.
type UpdateMembersRequest struct {
	Registry         interfaces.Address   `json:"registry"`
	Upserts          []interfaces.Member  `json:"upserts"`
	Removals         []interfaces.Address `json:"removals"`
	ExpectedSequence *uint64              `json:"expected_sequence"`
}

// MutationResponse is returned by every successful mutation.
type MutationResponse struct {
	Registry   interfaces.Address   `json:"registry"`
	Sequence   uint64               `json:"sequence"`
	SnapshotID interfaces.ContentID `json:"snapshot_id"`
	Events     []interfaces.Event   `json:"events"`
}

func NewMutationResponse(res *registry.Result) *MutationResponse {
	events := res.Events
	if events == nil {
		events = []interfaces.Event{}
	}
	return &MutationResponse{
		Registry:   res.Registry,
		Sequence:   res.Sequence,
		SnapshotID: res.SnapshotID,
		Events:     events,
	}
}

type RegistriesResponse struct {
	Registries []interfaces.Address `json:"registries"`
}

type AdminResponse struct {
	Admin    interfaces.Address `json:"admin"`
	Sequence uint64             `json:"sequence"`
}

type MembersResponse struct {
	Members  []interfaces.Member `json:"members"`
	Sequence uint64              `json:"sequence"`
}

type TotalWeightResponse struct {
	TotalWeight uint64 `json:"total_weight"`
	Sequence    uint64 `json:"sequence"`
}

type HistoryResponse struct {
	Snapshots []*registry.Snapshot `json:"snapshots"`
}
