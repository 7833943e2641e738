package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/Darobeats/Chequi-sub000/internal/db"

	"github.com/Darobeats/Chequi-sub000/internal/chequi/store"
)

type LedgerStore struct {
	db     *sql.DB
	writer *dbpkg.Writer
}

func NewLedgerStore(db *sql.DB, writer *dbpkg.Writer) *LedgerStore {
	return &LedgerStore{db: db, writer: writer}
}

// AppendWithinCap runs dedupe -> count -> cap check -> insert inside one
// serialized write transaction. Because every write goes through the same
// single-goroutine writer, two concurrent scans of the same credential can
// never both observe count < maxUses.
func (s *LedgerStore) AppendWithinCap(ctx context.Context, rec store.UsageRecord, maxUses int) (store.AppendResult, error) {
	if rec.UsedAt.IsZero() {
		rec.UsedAt = time.Now().UTC()
	}
	usedMs := rec.UsedAt.UTC().UnixMilli()

	var capturedMs any
	if rec.CapturedAt != nil {
		capturedMs = rec.CapturedAt.UTC().UnixMilli()
	}

	var res store.AppendResult
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// Replay dedupe on the natural key. Only offline-captured scans
		// carry a capture time; live scans never collide here.
		if capturedMs != nil {
			var existing int
			err := tx.QueryRowContext(ctx, `
SELECT COUNT(*) FROM usage_records
WHERE attendee_id = ? AND control_type_id = ? AND captured_at_ms = ? AND recorded_by = ?;
`, rec.AttendeeID, rec.ControlTypeID, capturedMs, rec.RecordedBy).Scan(&existing)
			if err != nil {
				return fmt.Errorf("AppendWithinCap dedupe check: %w", err)
			}
			if existing > 0 {
				n, err := countInTx(ctx, tx, rec.AttendeeID, rec.ControlTypeID)
				if err != nil {
					return err
				}
				res = store.AppendResult{Replayed: true, CurrentUses: n}
				return nil
			}
		}

		n, err := countInTx(ctx, tx, rec.AttendeeID, rec.ControlTypeID)
		if err != nil {
			return err
		}

		if n >= maxUses {
			last, err := mostRecentInTx(ctx, tx, rec.AttendeeID, rec.ControlTypeID)
			if err != nil {
				return err
			}
			res = store.AppendResult{CurrentUses: n, Last: last}
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO usage_records(
  usage_id, attendee_id, control_type_id, used_at_ms,
  device_label, recorded_by, captured_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?);
`,
			rec.UsageID, rec.AttendeeID, rec.ControlTypeID, usedMs,
			rec.DeviceLabel, rec.RecordedBy, capturedMs,
		); err != nil {
			return fmt.Errorf("AppendWithinCap insert: %w", err)
		}

		res = store.AppendResult{Inserted: true, CurrentUses: n + 1}
		return nil
	})
	if err != nil {
		return store.AppendResult{}, err
	}
	return res, nil
}

func (s *LedgerStore) CountFor(ctx context.Context, attendeeID, controlTypeID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM usage_records
WHERE attendee_id = ? AND control_type_id = ?;
`, attendeeID, controlTypeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountFor: %w", err)
	}
	return n, nil
}

func (s *LedgerStore) HasUsage(ctx context.Context, attendeeID, controlTypeID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
SELECT 1 FROM usage_records
WHERE attendee_id = ? AND control_type_id = ?
LIMIT 1;
`, attendeeID, controlTypeID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("HasUsage: %w", err)
	}
	return true, nil
}

func (s *LedgerStore) MostRecent(ctx context.Context, attendeeID, controlTypeID string) (*store.UsageRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT usage_id, attendee_id, control_type_id, used_at_ms, device_label, recorded_by, captured_at_ms
FROM usage_records
WHERE attendee_id = ? AND control_type_id = ?
ORDER BY used_at_ms DESC, usage_id DESC
LIMIT 1;
`, attendeeID, controlTypeID)

	rec, err := scanUsageRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("MostRecent: %w", err)
	}
	return rec, nil
}

func countInTx(ctx context.Context, tx *sql.Tx, attendeeID, controlTypeID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `
SELECT COUNT(*) FROM usage_records
WHERE attendee_id = ? AND control_type_id = ?;
`, attendeeID, controlTypeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count usage: %w", err)
	}
	return n, nil
}

func mostRecentInTx(ctx context.Context, tx *sql.Tx, attendeeID, controlTypeID string) (*store.UsageRecord, error) {
	row := tx.QueryRowContext(ctx, `
SELECT usage_id, attendee_id, control_type_id, used_at_ms, device_label, recorded_by, captured_at_ms
FROM usage_records
WHERE attendee_id = ? AND control_type_id = ?
ORDER BY used_at_ms DESC, usage_id DESC
LIMIT 1;
`, attendeeID, controlTypeID)

	rec, err := scanUsageRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("most recent usage: %w", err)
	}
	return rec, nil
}

func scanUsageRecord(row *sql.Row) (*store.UsageRecord, error) {
	var rec store.UsageRecord
	var usedMs int64
	var capturedMs sql.NullInt64

	if err := row.Scan(
		&rec.UsageID, &rec.AttendeeID, &rec.ControlTypeID, &usedMs,
		&rec.DeviceLabel, &rec.RecordedBy, &capturedMs,
	); err != nil {
		return nil, err
	}

	rec.UsedAt = time.UnixMilli(usedMs).UTC()
	if capturedMs.Valid {
		t := time.UnixMilli(capturedMs.Int64).UTC()
		rec.CapturedAt = &t
	}
	return &rec, nil
}
