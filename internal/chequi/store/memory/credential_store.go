package memory

import (
	"context"
	"sync"

	"github.com/Darobeats/Chequi-sub000/internal/chequi/store"
)

// CredentialStore is an in-memory credential resolver for tests and dev.
type CredentialStore struct {
	mu   sync.RWMutex
	byID map[string]store.Credential
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{byID: make(map[string]store.Credential)}
}

// Put inserts or replaces a credential.
func (s *CredentialStore) Put(c store.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[c.AttendeeID] = c
}

// SetStatus updates an attendee's lifecycle status (e.g. an operator block).
func (s *CredentialStore) SetStatus(attendeeID string, status store.CredentialStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byID[attendeeID]; ok {
		c.Status = status
		s.byID[attendeeID] = c
	}
}

func (s *CredentialStore) Resolve(_ context.Context, code, eventID string) (*store.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *store.Credential
	for _, c := range s.byID {
		if c.EventID != eventID {
			continue
		}
		if c.TicketCode == code || (c.BadgeCode != "" && c.BadgeCode == code) {
			if found != nil && found.AttendeeID != c.AttendeeID {
				return nil, store.ErrAmbiguousCredential
			}
			cc := c
			found = &cc
		}
	}
	if found == nil {
		return nil, store.ErrCredentialNotFound
	}
	return found, nil
}
