package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/Darobeats/Chequi-sub000/internal/db"

	"github.com/Darobeats/Chequi-sub000/internal/chequi/store"
)

type QueueStore struct {
	db     *sql.DB
	writer *dbpkg.Writer
}

func NewQueueStore(db *sql.DB, writer *dbpkg.Writer) *QueueStore {
	return &QueueStore{db: db, writer: writer}
}

func (s *QueueStore) Enqueue(ctx context.Context, ps store.PendingScan) (store.PendingScan, error) {
	if ps.CreatedAt.IsZero() {
		ps.CreatedAt = time.Now().UTC()
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO pending_scans(
  pending_id, ticket_code, control_type_id, event_id,
  device_label, captured_at_ms, caller_id, signature, attempts, created_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?);
`,
			ps.PendingID, ps.TicketCode, ps.ControlTypeID, ps.EventID,
			ps.DeviceLabel, ps.CapturedAtMillis, ps.CallerID, ps.Signature,
			ps.CreatedAt.UTC().UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("Enqueue insert: %w", err)
		}
		seq, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("Enqueue last insert id: %w", err)
		}
		ps.Seq = seq
		return nil
	})
	if err != nil {
		return store.PendingScan{}, err
	}
	return ps, nil
}

func (s *QueueStore) Oldest(ctx context.Context) (*store.PendingScan, error) {
	var ps store.PendingScan
	var createdMs int64

	err := s.db.QueryRowContext(ctx, `
SELECT seq, pending_id, ticket_code, control_type_id, event_id,
       device_label, captured_at_ms, caller_id, signature, attempts, created_at_ms
FROM pending_scans
ORDER BY seq ASC
LIMIT 1;
`).Scan(
		&ps.Seq, &ps.PendingID, &ps.TicketCode, &ps.ControlTypeID, &ps.EventID,
		&ps.DeviceLabel, &ps.CapturedAtMillis, &ps.CallerID, &ps.Signature,
		&ps.Attempts, &createdMs,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Oldest query: %w", err)
	}

	ps.CreatedAt = time.UnixMilli(createdMs).UTC()
	return &ps, nil
}

func (s *QueueStore) Remove(ctx context.Context, seq int64) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM pending_scans WHERE seq = ?;`, seq); err != nil {
			return fmt.Errorf("Remove: %w", err)
		}
		return nil
	})
}

func (s *QueueStore) NoteAttempt(ctx context.Context, seq int64) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE pending_scans SET attempts = attempts + 1 WHERE seq = ?;`, seq); err != nil {
			return fmt.Errorf("NoteAttempt: %w", err)
		}
		return nil
	})
}

func (s *QueueStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_scans;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}
