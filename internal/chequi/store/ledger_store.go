package store

import (
	"context"
	"time"
)

// UsageRecord is one immutable fact: a credential consumed one use of a
// control type. CapturedAt is set only for scans replayed from the offline
// queue; together with RecordedBy it forms the natural key that makes
// replay idempotent.
type UsageRecord struct {
	UsageID       string
	AttendeeID    string
	ControlTypeID string
	UsedAt        time.Time
	DeviceLabel   string
	RecordedBy    string
	CapturedAt    *time.Time
}

// AppendResult reports what AppendWithinCap did.
//
// Exactly one of these shapes comes back:
//   - Inserted:  a new record was committed; CurrentUses includes it.
//   - Replayed:  the natural key already existed (lost-ack replay); nothing
//     was written; CurrentUses reflects the committed state.
//   - neither:   the cap blocked the insert; CurrentUses is the standing
//     count and Last is the most recent prior record, for operator context.
type AppendResult struct {
	Inserted    bool
	Replayed    bool
	CurrentUses int
	Last        *UsageRecord
}

// LedgerStore is the append-only usage ledger and the sole source of usage
// counts.
type LedgerStore interface {
	// AppendWithinCap runs the dedupe check, the count, the cap check and
	// the insert as one atomic unit. Implementations must serialize this
	// against concurrent appends for the same (attendee, control type) so
	// that two racing scans can never both observe count < maxUses.
	AppendWithinCap(ctx context.Context, rec UsageRecord, maxUses int) (AppendResult, error)

	// CountFor reflects all previously committed records.
	CountFor(ctx context.Context, attendeeID, controlTypeID string) (int, error)

	// HasUsage reports whether at least one committed record exists,
	// which is what prerequisite checks ask.
	HasUsage(ctx context.Context, attendeeID, controlTypeID string) (bool, error)

	// MostRecent is used only to enrich denial messages. Returns nil when
	// no record exists.
	MostRecent(ctx context.Context, attendeeID, controlTypeID string) (*UsageRecord, error)
}
