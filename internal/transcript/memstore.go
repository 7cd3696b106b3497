package transcript

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store]. It is
// suitable for development and testing; records do not survive a restart.
type MemStore struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]Transcript
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[int64]Transcript)}
}

// Create implements [Store.Create].
func (s *MemStore) Create(ctx context.Context, t *Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := time.Now()
	t.ID = s.nextID
	t.CreatedAt = now
	t.UpdatedAt = now

	stored := *t
	stored.Audio = slices.Clone(t.Audio)
	s.records[t.ID] = stored
	return nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, id int64) (Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.records[id]
	if !ok {
		return Transcript{}, ErrNotFound
	}
	t.Audio = slices.Clone(t.Audio)
	return t, nil
}

// List implements [Store.List].
func (s *MemStore) List(ctx context.Context) ([]Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Transcript, 0, len(s.records))
	for _, t := range s.records {
		t.Audio = nil
		result = append(result, t)
	}
	slices.SortFunc(result, func(a, b Transcript) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		// Ties happen in tests where records share a timestamp.
		return int(b.ID - a.ID)
	})
	return result, nil
}

// Delete implements [Store.Delete].
func (s *MemStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// Ping implements [Store.Ping]. A MemStore is always reachable.
func (s *MemStore) Ping(ctx context.Context) error { return nil }
