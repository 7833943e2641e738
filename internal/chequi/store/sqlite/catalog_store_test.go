package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Darobeats/Chequi-sub000/internal/chequi/store"
	sqlitestore "github.com/Darobeats/Chequi-sub000/internal/chequi/store/sqlite"
)

// ═══════════════════════════════════════════════════════════════════════════
// ControlType / GrantFor — lookups
// ═══════════════════════════════════════════════════════════════════════════

func TestCatalogStore_ControlTypeLookup(t *testing.T) {
	conn := openTestDB(t)
	seedCatalog(t, conn)
	cs := sqlitestore.NewCatalogStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	ct, err := cs.ControlType(ctx, "ctl_entry")
	if err != nil {
		t.Fatalf("ControlType: %v", err)
	}
	if ct.Name != "entry" || ct.EventID != "evt1" {
		t.Errorf("unexpected control type: %+v", ct)
	}
	if ct.RequiresControlTypeID != "" {
		t.Errorf("entry has no prerequisite, got %q", ct.RequiresControlTypeID)
	}

	_, err = cs.ControlType(ctx, "ctl_missing")
	if !errors.Is(err, store.ErrControlTypeNotFound) {
		t.Fatalf("expected ErrControlTypeNotFound, got %v", err)
	}
}

func TestCatalogStore_GrantForLookup(t *testing.T) {
	conn := openTestDB(t)
	seedCatalog(t, conn)
	cs := sqlitestore.NewCatalogStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	_, err := conn.ExecContext(ctx,
		`INSERT INTO category_grants(category_id, control_type_id, max_uses) VALUES ('cat1', 'ctl_entry', 3);`)
	if err != nil {
		t.Fatalf("seed grant: %v", err)
	}

	g, err := cs.GrantFor(ctx, "cat1", "ctl_entry")
	if err != nil {
		t.Fatalf("GrantFor: %v", err)
	}
	if g.MaxUses != 3 {
		t.Errorf("expected max_uses=3, got %d", g.MaxUses)
	}

	_, err = cs.GrantFor(ctx, "cat_other", "ctl_entry")
	if !errors.Is(err, store.ErrNoGrant) {
		t.Fatalf("expected ErrNoGrant, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// PutControlType — upsert and cycle rejection
// ═══════════════════════════════════════════════════════════════════════════

func TestCatalogStore_PutControlTypeUpserts(t *testing.T) {
	conn := openTestDB(t)
	seedCatalog(t, conn)
	cs := sqlitestore.NewCatalogStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	err := cs.PutControlType(ctx, store.ControlType{
		ControlTypeID: "ctl_drink", EventID: "evt1", Name: "drink",
		RequiresControlTypeID: "ctl_entry",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Update the same id: rename and drop the prerequisite.
	err = cs.PutControlType(ctx, store.ControlType{
		ControlTypeID: "ctl_drink", EventID: "evt1", Name: "beverage",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	ct, err := cs.ControlType(ctx, "ctl_drink")
	if err != nil {
		t.Fatalf("ControlType: %v", err)
	}
	if ct.Name != "beverage" {
		t.Errorf("expected renamed control type, got %q", ct.Name)
	}
	if ct.RequiresControlTypeID != "" {
		t.Errorf("expected prerequisite cleared, got %q", ct.RequiresControlTypeID)
	}
}

func TestCatalogStore_PutControlTypeRejectsSelfCycle(t *testing.T) {
	conn := openTestDB(t)
	seedCatalog(t, conn)
	cs := sqlitestore.NewCatalogStore(conn, newTestWriter(t, conn))

	err := cs.PutControlType(context.Background(), store.ControlType{
		ControlTypeID: "ctl_entry", EventID: "evt1", Name: "entry",
		RequiresControlTypeID: "ctl_entry",
	})
	if !errors.Is(err, store.ErrPrerequisiteCycle) {
		t.Fatalf("expected ErrPrerequisiteCycle, got %v", err)
	}
}

func TestCatalogStore_PutControlTypeRejectsIndirectCycle(t *testing.T) {
	conn := openTestDB(t)
	seedCatalog(t, conn)
	cs := sqlitestore.NewCatalogStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	// entry <- drink <- merch, then closing the loop entry -> merch.
	if err := cs.PutControlType(ctx, store.ControlType{
		ControlTypeID: "ctl_drink", EventID: "evt1", Name: "drink",
		RequiresControlTypeID: "ctl_entry",
	}); err != nil {
		t.Fatalf("put drink: %v", err)
	}
	if err := cs.PutControlType(ctx, store.ControlType{
		ControlTypeID: "ctl_merch", EventID: "evt1", Name: "merch",
		RequiresControlTypeID: "ctl_drink",
	}); err != nil {
		t.Fatalf("put merch: %v", err)
	}

	err := cs.PutControlType(ctx, store.ControlType{
		ControlTypeID: "ctl_entry", EventID: "evt1", Name: "entry",
		RequiresControlTypeID: "ctl_merch",
	})
	if !errors.Is(err, store.ErrPrerequisiteCycle) {
		t.Fatalf("expected ErrPrerequisiteCycle for indirect cycle, got %v", err)
	}

	// The rejected write must not have touched the row.
	ct, err := cs.ControlType(ctx, "ctl_entry")
	if err != nil {
		t.Fatalf("ControlType: %v", err)
	}
	if ct.RequiresControlTypeID != "" {
		t.Errorf("rejected write leaked: entry now requires %q", ct.RequiresControlTypeID)
	}
}
