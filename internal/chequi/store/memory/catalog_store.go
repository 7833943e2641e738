package memory

import (
	"context"
	"sync"

	"github.com/Darobeats/Chequi-sub000/internal/chequi/store"
)

// CatalogStore is an in-memory control-type catalog for tests and dev.
type CatalogStore struct {
	mu           sync.RWMutex
	controlTypes map[string]store.ControlType
	grants       map[string]store.Grant // key: categoryID + "\x00" + controlTypeID
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		controlTypes: make(map[string]store.ControlType),
		grants:       make(map[string]store.Grant),
	}
}

func grantKey(categoryID, controlTypeID string) string {
	return categoryID + "\x00" + controlTypeID
}

// PutGrant inserts or replaces an authorization rule.
func (s *CatalogStore) PutGrant(g store.Grant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grantKey(g.CategoryID, g.ControlTypeID)] = g
}

func (s *CatalogStore) ControlType(_ context.Context, controlTypeID string) (*store.ControlType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ct, ok := s.controlTypes[controlTypeID]
	if !ok {
		return nil, store.ErrControlTypeNotFound
	}
	return &ct, nil
}

func (s *CatalogStore) GrantFor(_ context.Context, categoryID, controlTypeID string) (*store.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grants[grantKey(categoryID, controlTypeID)]
	if !ok {
		return nil, store.ErrNoGrant
	}
	return &g, nil
}

func (s *CatalogStore) PutControlType(_ context.Context, ct store.ControlType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Walk the prerequisite chain as it would exist after this write.
	next := ct.RequiresControlTypeID
	for next != "" {
		if next == ct.ControlTypeID {
			return store.ErrPrerequisiteCycle
		}
		parent, ok := s.controlTypes[next]
		if !ok {
			break
		}
		next = parent.RequiresControlTypeID
	}

	s.controlTypes[ct.ControlTypeID] = ct
	return nil
}
