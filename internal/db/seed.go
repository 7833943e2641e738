package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev populates a demo event with two categories, a small control-type
// catalog (including a prerequisite chain: beverage requires entry) and a
// handful of attendees. Intended for dev environments only; every insert
// is idempotent so re-running on an existing database is safe.
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO events(event_id, name, created_at_ms)
VALUES ('evt_demo', 'Demo Event', ?);`, now); err != nil {
		return fmt.Errorf("seed event: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO categories(category_id, event_id, name) VALUES
  ('cat_general', 'evt_demo', 'General'),
  ('cat_vip',     'evt_demo', 'VIP');`); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO control_types(control_type_id, event_id, name, requires_control_type_id) VALUES
  ('ctl_entry',    'evt_demo', 'entry',    NULL),
  ('ctl_beverage', 'evt_demo', 'beverage', 'ctl_entry'),
  ('ctl_merch',    'evt_demo', 'merch',    'ctl_entry');`); err != nil {
		return fmt.Errorf("seed control types: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO category_grants(category_id, control_type_id, max_uses) VALUES
  ('cat_general', 'ctl_entry',    1),
  ('cat_vip',     'ctl_entry',    1),
  ('cat_vip',     'ctl_beverage', 3),
  ('cat_vip',     'ctl_merch',    1);`); err != nil {
		return fmt.Errorf("seed grants: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO attendees(attendee_id, event_id, category_id, name, ticket_code, badge_code, status, created_at_ms) VALUES
  ('att_001', 'evt_demo', 'cat_general', 'Ada Tester',  'TCK-001', 'BDG-001', 'valid', ?),
  ('att_002', 'evt_demo', 'cat_vip',     'Vip Tester',  'TCK-002', 'BDG-002', 'valid', ?),
  ('att_003', 'evt_demo', 'cat_general', 'Blocked One', 'TCK-003', NULL,      'blocked', ?);`,
		now, now, now); err != nil {
		return fmt.Errorf("seed attendees: %w", err)
	}

	return nil
}
