package memory

import (
	"context"
	"sync"

	"github.com/Darobeats/Chequi-sub000/internal/chequi/store"
)

// QueueStore is an in-memory offline queue for tests. It is ordered and
// idempotent like the SQLite queue but does not survive restarts.
type QueueStore struct {
	mu      sync.Mutex
	nextSeq int64
	items   []store.PendingScan
}

func NewQueueStore() *QueueStore {
	return &QueueStore{nextSeq: 1}
}

func (s *QueueStore) Enqueue(_ context.Context, ps store.PendingScan) (store.PendingScan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps.Seq = s.nextSeq
	s.nextSeq++
	s.items = append(s.items, ps)
	return ps, nil
}

func (s *QueueStore) Oldest(_ context.Context) (*store.PendingScan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return nil, nil
	}
	head := s.items[0]
	return &head, nil
}

func (s *QueueStore) Remove(_ context.Context, seq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if it.Seq == seq {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *QueueStore) NoteAttempt(_ context.Context, seq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].Seq == seq {
			s.items[i].Attempts++
			return nil
		}
	}
	return nil
}

func (s *QueueStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items), nil
}
