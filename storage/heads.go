package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"sync"

	"github.com/ruteri/weighted-membership-registry/interfaces"
)

var (
	_ interfaces.HeadStore = (*FileHeadStore)(nil)
	_ interfaces.HeadStore = (*MemoryHeadStore)(nil)
)

// FileHeadStore keeps registry heads in a single JSON file that is
// rewritten atomically on every update.
type FileHeadStore struct {
	mu    sync.Mutex
	path  string
	heads map[interfaces.Address]interfaces.ContentID
	log   *slog.Logger
}

// NewFileHeadStore loads heads from path. A missing file is an empty store.
func NewFileHeadStore(path string, log *slog.Logger) (*FileHeadStore, error) {
	heads := make(map[interfaces.Address]interfaces.ContentID)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read heads file: %w", err)
	default:
		if err := json.Unmarshal(data, &heads); err != nil {
			return nil, fmt.Errorf("failed to parse heads file: %w", err)
		}
	}

	log.Debug("Loaded registry heads",
		slog.String("path", path),
		slog.Int("registries", len(heads)))

	return &FileHeadStore{path: path, heads: heads, log: log}, nil
}

func (s *FileHeadStore) Heads(ctx context.Context) (map[interfaces.Address]interfaces.ContentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.heads), nil
}

// SetHead persists the new head before making it visible.
func (s *FileHeadStore) SetHead(ctx context.Context, registry interfaces.Address, id interfaces.ContentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.heads)
	next[registry] = id

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode heads: %w", err)
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to persist heads: %w", err)
	}

	s.heads = next
	return nil
}

// MemoryHeadStore keeps heads in memory only.
type MemoryHeadStore struct {
	mu    sync.Mutex
	heads map[interfaces.Address]interfaces.ContentID
}

func NewMemoryHeadStore() *MemoryHeadStore {
	return &MemoryHeadStore{heads: make(map[interfaces.Address]interfaces.ContentID)}
}

func (s *MemoryHeadStore) Heads(ctx context.Context) (map[interfaces.Address]interfaces.ContentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.heads), nil
}

func (s *MemoryHeadStore) SetHead(ctx context.Context, registry interfaces.Address, id interfaces.ContentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heads[registry] = id
	return nil
}
