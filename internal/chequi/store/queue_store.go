package store

import (
	"context"
	"time"
)

// PendingScan is a scan captured while the device was offline, waiting to
// be replayed. Created once, deleted once successfully replayed, never
// mutated (Attempts is bookkeeping, not payload).
type PendingScan struct {
	Seq              int64 // insertion order, assigned by the store
	PendingID        string
	TicketCode       string
	ControlTypeID    string
	EventID          string
	DeviceLabel      string
	CapturedAtMillis int64
	CallerID         string
	Signature        string
	Attempts         int
	CreatedAt        time.Time
}

// QueueStore is the durable offline queue. It survives process restarts
// and is drained strictly in insertion order.
type QueueStore interface {
	// Enqueue appends the scan and returns it with Seq assigned.
	Enqueue(ctx context.Context, ps PendingScan) (PendingScan, error)

	// Oldest returns the head of the queue, or nil when empty.
	Oldest(ctx context.Context) (*PendingScan, error)

	// Remove deletes one pending scan by Seq. Removing an already-removed
	// scan is not an error.
	Remove(ctx context.Context, seq int64) error

	// NoteAttempt increments the attempt counter after a transient failure.
	NoteAttempt(ctx context.Context, seq int64) error

	// Count is the operator-visible queue length gauge.
	Count(ctx context.Context) (int, error)
}
