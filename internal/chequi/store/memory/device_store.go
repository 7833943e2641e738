package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Darobeats/Chequi-sub000/internal/chequi/store"
)

// DeviceStore is an in-memory scanner registry for tests and dev.
type DeviceStore struct {
	mu      sync.Mutex
	devices map[string]store.DeviceRecord
}

func NewDeviceStore() *DeviceStore {
	return &DeviceStore{devices: make(map[string]store.DeviceRecord)}
}

func (s *DeviceStore) MarkSeen(_ context.Context, deviceLabel string, t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[deviceLabel]
	if !ok {
		d = store.DeviceRecord{DeviceLabel: deviceLabel, FirstSeen: t}
	}
	d.LastSeen = t
	d.ScanCount++
	s.devices[deviceLabel] = d
	return nil
}

func (s *DeviceStore) Device(_ context.Context, deviceLabel string) (*store.DeviceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceLabel]
	if !ok {
		return nil, nil
	}
	return &d, nil
}
