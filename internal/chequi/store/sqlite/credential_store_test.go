package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Darobeats/Chequi-sub000/internal/chequi/store"
	sqlitestore "github.com/Darobeats/Chequi-sub000/internal/chequi/store/sqlite"
)

// ═══════════════════════════════════════════════════════════════════════════
// Resolve — ticket and badge codes
// ═══════════════════════════════════════════════════════════════════════════

func TestCredentialStore_ResolveByTicketCode(t *testing.T) {
	conn := openTestDB(t)
	seedCatalog(t, conn)
	cs := sqlitestore.NewCredentialStore(conn)

	c, err := cs.Resolve(context.Background(), "TCK-1", "evt1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if c.AttendeeID != "att1" || c.Name != "Ada Tester" {
		t.Errorf("unexpected credential: %+v", c)
	}
	if c.Status != store.StatusValid {
		t.Errorf("expected valid status, got %q", c.Status)
	}
}

func TestCredentialStore_ResolveByBadgeCode(t *testing.T) {
	conn := openTestDB(t)
	seedCatalog(t, conn)
	cs := sqlitestore.NewCredentialStore(conn)

	c, err := cs.Resolve(context.Background(), "BDG-1", "evt1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if c.AttendeeID != "att1" {
		t.Errorf("expected att1 via badge code, got %+v", c)
	}
}

func TestCredentialStore_ResolveUnknownAndBlank(t *testing.T) {
	conn := openTestDB(t)
	seedCatalog(t, conn)
	cs := sqlitestore.NewCredentialStore(conn)
	ctx := context.Background()

	if _, err := cs.Resolve(ctx, "NOPE", "evt1"); !errors.Is(err, store.ErrCredentialNotFound) {
		t.Fatalf("unknown code: expected ErrCredentialNotFound, got %v", err)
	}
	if _, err := cs.Resolve(ctx, "   ", "evt1"); !errors.Is(err, store.ErrCredentialNotFound) {
		t.Fatalf("blank code: expected ErrCredentialNotFound, got %v", err)
	}
}

func TestCredentialStore_ResolveScopedToEvent(t *testing.T) {
	conn := openTestDB(t)
	seedCatalog(t, conn)
	cs := sqlitestore.NewCredentialStore(conn)

	_, err := cs.Resolve(context.Background(), "TCK-1", "evt_other")
	if !errors.Is(err, store.ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound outside the event, got %v", err)
	}
}

func TestCredentialStore_ResolveAmbiguousCode(t *testing.T) {
	conn := openTestDB(t)
	seedCatalog(t, conn)
	cs := sqlitestore.NewCredentialStore(conn)
	ctx := context.Background()

	// A second attendee whose badge collides with att1's ticket code.
	nowMs := time.Now().UTC().UnixMilli()
	_, err := conn.ExecContext(ctx, `
INSERT INTO attendees(attendee_id, event_id, category_id, name, ticket_code, badge_code, status, created_at_ms)
VALUES ('att2', 'evt1', 'cat1', 'Bad Data', 'TCK-2', 'TCK-1', 'valid', ?);`, nowMs)
	if err != nil {
		t.Fatalf("seed attendee: %v", err)
	}

	_, err = cs.Resolve(ctx, "TCK-1", "evt1")
	if !errors.Is(err, store.ErrAmbiguousCredential) {
		t.Fatalf("expected ErrAmbiguousCredential, got %v", err)
	}
}
