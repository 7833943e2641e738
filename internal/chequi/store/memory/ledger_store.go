package memory

import (
	"context"
	"sync"

	"github.com/Darobeats/Chequi-sub000/internal/chequi/store"
)

// LedgerStore is an in-memory append-only usage ledger for tests and dev.
// A single mutex serializes AppendWithinCap, giving it the same atomicity
// the SQLite implementation gets from the serialized write transaction.
type LedgerStore struct {
	mu      sync.Mutex
	records []store.UsageRecord
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{}
}

func (s *LedgerStore) AppendWithinCap(_ context.Context, rec store.UsageRecord, maxUses int) (store.AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Lost-ack replay: the natural key is already committed.
	if rec.CapturedAt != nil {
		for _, r := range s.records {
			if r.CapturedAt != nil &&
				r.AttendeeID == rec.AttendeeID &&
				r.ControlTypeID == rec.ControlTypeID &&
				r.CapturedAt.Equal(*rec.CapturedAt) &&
				r.RecordedBy == rec.RecordedBy {
				return store.AppendResult{
					Replayed:    true,
					CurrentUses: s.countLocked(rec.AttendeeID, rec.ControlTypeID),
				}, nil
			}
		}
	}

	count := s.countLocked(rec.AttendeeID, rec.ControlTypeID)
	if count >= maxUses {
		return store.AppendResult{
			CurrentUses: count,
			Last:        s.mostRecentLocked(rec.AttendeeID, rec.ControlTypeID),
		}, nil
	}

	s.records = append(s.records, rec)
	return store.AppendResult{Inserted: true, CurrentUses: count + 1}, nil
}

func (s *LedgerStore) CountFor(_ context.Context, attendeeID, controlTypeID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(attendeeID, controlTypeID), nil
}

func (s *LedgerStore) HasUsage(_ context.Context, attendeeID, controlTypeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(attendeeID, controlTypeID) > 0, nil
}

func (s *LedgerStore) MostRecent(_ context.Context, attendeeID, controlTypeID string) (*store.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mostRecentLocked(attendeeID, controlTypeID), nil
}

// Records returns a copy of all committed records. Test-only helper.
func (s *LedgerStore) Records() []store.UsageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.UsageRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *LedgerStore) countLocked(attendeeID, controlTypeID string) int {
	n := 0
	for _, r := range s.records {
		if r.AttendeeID == attendeeID && r.ControlTypeID == controlTypeID {
			n++
		}
	}
	return n
}

func (s *LedgerStore) mostRecentLocked(attendeeID, controlTypeID string) *store.UsageRecord {
	var last *store.UsageRecord
	for i := range s.records {
		r := s.records[i]
		if r.AttendeeID != attendeeID || r.ControlTypeID != controlTypeID {
			continue
		}
		if last == nil || r.UsedAt.After(last.UsedAt) {
			last = &r
		}
	}
	if last == nil {
		return nil
	}
	cp := *last
	return &cp
}
