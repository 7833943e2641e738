package store

import (
	"context"
	"time"
)

type DeviceRecord struct {
	DeviceLabel string
	FirstSeen   time.Time
	LastSeen    time.Time
	ScanCount   int64
}

// DeviceStore tracks which scanner devices have been seen and how busy
// they are. Purely observational — it never gates a decision.
type DeviceStore interface {
	MarkSeen(ctx context.Context, deviceLabel string, t time.Time) error
	Device(ctx context.Context, deviceLabel string) (*DeviceRecord, error)
}
