package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/Darobeats/Chequi-sub000/internal/db"

	"github.com/Darobeats/Chequi-sub000/internal/chequi/store"
)

type DeviceStore struct {
	db     *sql.DB
	writer *dbpkg.Writer
}

func NewDeviceStore(db *sql.DB, writer *dbpkg.Writer) *DeviceStore {
	return &DeviceStore{db: db, writer: writer}
}

func (s *DeviceStore) MarkSeen(ctx context.Context, deviceLabel string, t time.Time) error {
	deviceLabel = strings.TrimSpace(deviceLabel)
	if deviceLabel == "" {
		return nil
	}
	if t.IsZero() {
		t = time.Now().UTC()
	}
	ms := t.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO devices(device_label, first_seen_at_ms, last_seen_at_ms, scan_count)
VALUES (?, ?, ?, 1)
ON CONFLICT(device_label) DO UPDATE SET
  last_seen_at_ms = excluded.last_seen_at_ms,
  scan_count = devices.scan_count + 1;
`, deviceLabel, ms, ms); err != nil {
			return fmt.Errorf("MarkSeen upsert: %w", err)
		}
		return nil
	})
}

func (s *DeviceStore) Device(ctx context.Context, deviceLabel string) (*store.DeviceRecord, error) {
	var d store.DeviceRecord
	var firstMs, lastMs int64

	err := s.db.QueryRowContext(ctx, `
SELECT device_label, first_seen_at_ms, last_seen_at_ms, scan_count
FROM devices
WHERE device_label = ?;
`, deviceLabel).Scan(&d.DeviceLabel, &firstMs, &lastMs, &d.ScanCount)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Device query: %w", err)
	}

	d.FirstSeen = time.UnixMilli(firstMs).UTC()
	d.LastSeen = time.UnixMilli(lastMs).UTC()
	return &d, nil
}
