package registry

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/ruteri/weighted-membership-registry/interfaces"
	"github.com/ruteri/weighted-membership-registry/membership"
)

// DefaultHistoryLimit caps History when no positive limit is given.
const DefaultHistoryLimit = 100

// Result describes a committed operation.
type Result struct {
	Registry   interfaces.Address
	Sequence   uint64
	SnapshotID interfaces.ContentID
	Events     []interfaces.Event
}

// hosted is one registry with the bookkeeping of its latest snapshot.
type hosted struct {
	mu   sync.RWMutex
	core *membership.Registry
	seq  uint64
	head interfaces.ContentID
}

// Service hosts many registries. Operations on one registry are serialized;
// operations on different registries run concurrently.
type Service struct {
	backend interfaces.StorageBackend
	heads   interfaces.HeadStore
	sink    interfaces.EventSink
	log     *slog.Logger
	now     func() time.Time

	mu         sync.RWMutex
	registries map[interfaces.Address]*hosted
}

// NewService creates an empty service. A nil sink discards events.
func NewService(backend interfaces.StorageBackend, heads interfaces.HeadStore, sink interfaces.EventSink, log *slog.Logger) *Service {
	if sink == nil {
		sink = MultiSink{}
	}
	return &Service{
		backend:    backend,
		heads:      heads,
		sink:       sink,
		log:        log,
		now:        time.Now,
		registries: make(map[interfaces.Address]*hosted),
	}
}

// Create constructs a new registry on behalf of creator and persists its
// first snapshot with sequence 0.
func (s *Service) Create(ctx context.Context, creator interfaces.Address, admin *interfaces.Address, members []interfaces.Member) (*Result, error) {
	core, events, err := membership.New(creator, admin, members)
	if err != nil {
		return nil, err
	}

	id := s.newRegistryAddress(creator)

	snapshot := newSnapshot(id, 0, nil, core.State(), events, s.now())
	snapshotID, err := s.persist(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.registries[id] = &hosted{core: core, head: snapshotID}
	s.mu.Unlock()

	s.log.Info("Created registry",
		slog.String("registry", id.String()),
		slog.String("creator", creator.String()),
		slog.Int("members", len(members)),
		slog.String("snapshot", snapshotID.String()))

	s.publish(ctx, id, events)

	return &Result{Registry: id, Sequence: 0, SnapshotID: snapshotID, Events: events}, nil
}

// Registries returns the addresses of all hosted registries in ascending order.
func (s *Service) Registries() []interfaces.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]interfaces.Address, 0, len(s.registries))
	for id := range s.registries {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b interfaces.Address) int {
		return slices.Compare(a[:], b[:])
	})
	return ids
}

func (s *Service) Admin(id interfaces.Address) (interfaces.Address, error) {
	var admin interfaces.Address
	err := s.read(id, func(h *hosted) (err error) {
		admin, err = h.core.Admin()
		return err
	})
	return admin, err
}

func (s *Service) Members(id interfaces.Address) ([]interfaces.Member, error) {
	var members []interfaces.Member
	err := s.read(id, func(h *hosted) (err error) {
		members, err = h.core.Members()
		return err
	})
	return members, err
}

func (s *Service) Member(id, addr interfaces.Address) (interfaces.Member, error) {
	var member interfaces.Member
	err := s.read(id, func(h *hosted) (err error) {
		member, err = h.core.Member(addr)
		return err
	})
	return member, err
}

func (s *Service) TotalWeight(id interfaces.Address) (uint64, error) {
	var total uint64
	err := s.read(id, func(h *hosted) error {
		total = h.core.TotalWeight()
		return nil
	})
	return total, err
}

// Sequence returns the sequence number of the registry's latest snapshot.
func (s *Service) Sequence(id interfaces.Address) (uint64, error) {
	var seq uint64
	err := s.read(id, func(h *hosted) error {
		seq = h.seq
		return nil
	})
	return seq, err
}

// AdminAt returns the admin together with the sequence of the snapshot it
// was read from.
func (s *Service) AdminAt(id interfaces.Address) (admin interfaces.Address, seq uint64, err error) {
	err = s.read(id, func(h *hosted) (err error) {
		admin, err = h.core.Admin()
		seq = h.seq
		return err
	})
	return admin, seq, err
}

// MembersAt returns all members together with the sequence of the snapshot
// they were read from.
func (s *Service) MembersAt(id interfaces.Address) (members []interfaces.Member, seq uint64, err error) {
	err = s.read(id, func(h *hosted) (err error) {
		members, err = h.core.Members()
		seq = h.seq
		return err
	})
	return members, seq, err
}

// TotalWeightAt returns the total weight together with the sequence of the
// snapshot it was read from.
func (s *Service) TotalWeightAt(id interfaces.Address) (total, seq uint64, err error) {
	err = s.read(id, func(h *hosted) error {
		total = h.core.TotalWeight()
		seq = h.seq
		return nil
	})
	return total, seq, err
}

// UpdateAdmin transfers the admin role of registry id.
// A non-nil expectedSeq must match the current sequence.
func (s *Service) UpdateAdmin(ctx context.Context, id, caller, newAdmin interfaces.Address, expectedSeq *uint64) (*Result, error) {
	return s.mutate(ctx, id, expectedSeq, func(r interfaces.MembershipRegistry) error {
		return r.UpdateAdmin(caller, newAdmin)
	})
}

// UpdateMembers applies a batch membership update to registry id.
// A non-nil expectedSeq must match the current sequence.
func (s *Service) UpdateMembers(ctx context.Context, id, caller interfaces.Address, upserts []interfaces.Member, removals []interfaces.Address, expectedSeq *uint64) (*Result, error) {
	return s.mutate(ctx, id, expectedSeq, func(r interfaces.MembershipRegistry) error {
		return r.UpdateMembers(caller, upserts, removals)
	})
}

// History returns up to limit snapshots of registry id, newest first.
func (s *Service) History(ctx context.Context, id interfaces.Address, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var next interfaces.ContentID
	if err := s.read(id, func(h *hosted) error {
		next = h.head
		return nil
	}); err != nil {
		return nil, err
	}

	var history []*Snapshot
	for len(history) < limit {
		snapshot, err := s.fetch(ctx, next)
		if err != nil {
			return history, err
		}
		if snapshot.Registry != id {
			return history, fmt.Errorf("%w: snapshot %s belongs to registry %s", interfaces.ErrInvariantViolated, next, snapshot.Registry)
		}

		history = append(history, snapshot)
		if snapshot.Previous == nil {
			break
		}
		next = *snapshot.Previous
	}

	return history, nil
}

// Load restores every registry listed in the head store. Registries that
// are already hosted are replaced. A snapshot that cannot be fetched or that
// violates the membership invariants fails the whole load.
func (s *Service) Load(ctx context.Context) error {
	heads, err := s.heads.Heads(ctx)
	if err != nil {
		return fmt.Errorf("failed to read registry heads: %w", err)
	}

	loaded := make(map[interfaces.Address]*hosted, len(heads))
	for id, head := range heads {
		snapshot, err := s.fetch(ctx, head)
		if err != nil {
			return fmt.Errorf("registry %s: %w", id, err)
		}
		if snapshot.Registry != id {
			return fmt.Errorf("registry %s: %w: head snapshot belongs to %s", id, interfaces.ErrInvariantViolated, snapshot.Registry)
		}

		core, err := membership.Restore(snapshot.State())
		if err != nil {
			return fmt.Errorf("registry %s: %w", id, err)
		}

		loaded[id] = &hosted{core: core, seq: snapshot.Sequence, head: head}
	}

	s.mu.Lock()
	for id, h := range loaded {
		s.registries[id] = h
	}
	s.mu.Unlock()

	s.log.Info("Loaded registries", slog.Int("count", len(loaded)))
	return nil
}

func (s *Service) lookup(id interfaces.Address) (*hosted, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, found := s.registries[id]
	if !found {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrRegistryNotFound, id)
	}
	return h, nil
}

func (s *Service) read(id interfaces.Address, fn func(h *hosted) error) error {
	h, err := s.lookup(id)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	return fn(h)
}

// mutate runs op against a clone of the registry and commits the clone only
// after its snapshot and head are durable.
func (s *Service) mutate(ctx context.Context, id interfaces.Address, expectedSeq *uint64, op func(interfaces.MembershipRegistry) error) (*Result, error) {
	h, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if expectedSeq != nil && *expectedSeq != h.seq {
		current := h.seq
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: expected %d, current %d", interfaces.ErrSequenceMismatch, *expectedSeq, current)
	}

	clone := h.core.Clone()
	recorder := &membership.Recorder{}
	if err := op(membership.NewNotifying(clone, recorder)); err != nil {
		h.mu.Unlock()
		return nil, err
	}

	events := recorder.Events()
	previous := h.head
	snapshot := newSnapshot(id, h.seq+1, &previous, clone.State(), events, s.now())

	snapshotID, err := s.persist(ctx, snapshot)
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}

	h.core = clone
	h.seq = snapshot.Sequence
	h.head = snapshotID
	h.mu.Unlock()

	s.log.Info("Committed registry update",
		slog.String("registry", id.String()),
		slog.Uint64("sequence", snapshot.Sequence),
		slog.Int("events", len(events)),
		slog.String("snapshot", snapshotID.String()))

	s.publish(ctx, id, events)

	return &Result{Registry: id, Sequence: snapshot.Sequence, SnapshotID: snapshotID, Events: events}, nil
}

func (s *Service) persist(ctx context.Context, snapshot *Snapshot) (interfaces.ContentID, error) {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return interfaces.ContentID{}, err
	}

	snapshotID, err := s.backend.Store(ctx, data, interfaces.SnapshotType)
	if err != nil {
		s.log.Error("Failed to store snapshot",
			slog.String("registry", snapshot.Registry.String()),
			"err", err)
		return interfaces.ContentID{}, fmt.Errorf("failed to store snapshot: %w", err)
	}

	if err := s.heads.SetHead(ctx, snapshot.Registry, snapshotID); err != nil {
		s.log.Error("Failed to update registry head",
			slog.String("registry", snapshot.Registry.String()),
			"err", err)
		return interfaces.ContentID{}, fmt.Errorf("failed to update registry head: %w", err)
	}

	return snapshotID, nil
}

func (s *Service) fetch(ctx context.Context, snapshotID interfaces.ContentID) (*Snapshot, error) {
	data, err := s.backend.Fetch(ctx, snapshotID, interfaces.SnapshotType)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot %s: %w", snapshotID, err)
	}
	return decodeSnapshot(data)
}

// publish hands events to the sink. The state is already durable, so sink
// failures are logged and not returned.
func (s *Service) publish(ctx context.Context, id interfaces.Address, events []interfaces.Event) {
	if len(events) == 0 {
		return
	}
	if err := s.sink.Publish(ctx, id, events); err != nil {
		s.log.Warn("Failed to publish registry events",
			slog.String("registry", id.String()),
			"err", err)
	}
}

// newRegistryAddress derives keccak256(creator || uuid)[12:], retrying on
// the vanishingly unlikely collision with a hosted registry.
func (s *Service) newRegistryAddress(creator interfaces.Address) interfaces.Address {
	for {
		salt := uuid.New()
		hash := crypto.Keccak256(creator.Bytes(), salt[:])

		var id interfaces.Address
		copy(id[:], hash[12:])

		s.mu.RLock()
		_, taken := s.registries[id]
		s.mu.RUnlock()
		if !taken {
			return id
		}
	}
}
