package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Darobeats/Chequi-sub000/internal/db"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production.  The connection is closed automatically when the
// test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Each call gets a unique in-memory database.  The shared-cache URI
	// keeps the database alive for the lifetime of the connection pool
	// (important because sql.DB may close/reopen the underlying conn).
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		t.Name(),
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}

	// Match production: single connection for SQLite safety.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}

	// Apply the same migrations as production.
	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Writer backed by conn.  The writer is closed
// automatically when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Writer {
	t.Helper()

	w := db.NewWriter(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

// seedCatalog inserts the FK parents most store tests need: one event, one
// category, one attendee (att1 / TCK-1 / BDG-1) and one entry control type.
func seedCatalog(t *testing.T, conn *sql.DB) {
	t.Helper()
	ctx := context.Background()
	nowMs := time.Now().UTC().UnixMilli()

	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO events(event_id, name, created_at_ms) VALUES ('evt1', 'Demo Event', ?);`, []any{nowMs}},
		{`INSERT INTO categories(category_id, event_id, name) VALUES ('cat1', 'evt1', 'General');`, nil},
		{`INSERT INTO attendees(attendee_id, event_id, category_id, name, ticket_code, badge_code, status, created_at_ms)
VALUES ('att1', 'evt1', 'cat1', 'Ada Tester', 'TCK-1', 'BDG-1', 'valid', ?);`, []any{nowMs}},
		{`INSERT INTO control_types(control_type_id, event_id, name) VALUES ('ctl_entry', 'evt1', 'entry');`, nil},
	}
	for _, s := range stmts {
		if _, err := conn.ExecContext(ctx, s.sql, s.args...); err != nil {
			t.Fatalf("seedCatalog: %v", err)
		}
	}
}
