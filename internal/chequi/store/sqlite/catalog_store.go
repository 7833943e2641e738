package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	dbpkg "github.com/Darobeats/Chequi-sub000/internal/db"

	"github.com/Darobeats/Chequi-sub000/internal/chequi/store"
)

type CatalogStore struct {
	db     *sql.DB
	writer *dbpkg.Writer
}

func NewCatalogStore(db *sql.DB, writer *dbpkg.Writer) *CatalogStore {
	return &CatalogStore{db: db, writer: writer}
}

func (s *CatalogStore) ControlType(ctx context.Context, controlTypeID string) (*store.ControlType, error) {
	var ct store.ControlType
	var requires sql.NullString

	err := s.db.QueryRowContext(ctx, `
SELECT control_type_id, event_id, name, requires_control_type_id
FROM control_types
WHERE control_type_id = ?;
`, controlTypeID).Scan(&ct.ControlTypeID, &ct.EventID, &ct.Name, &requires)

	if err == sql.ErrNoRows {
		return nil, store.ErrControlTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ControlType query: %w", err)
	}
	if requires.Valid {
		ct.RequiresControlTypeID = requires.String
	}
	return &ct, nil
}

func (s *CatalogStore) GrantFor(ctx context.Context, categoryID, controlTypeID string) (*store.Grant, error) {
	g := store.Grant{CategoryID: categoryID, ControlTypeID: controlTypeID}

	err := s.db.QueryRowContext(ctx, `
SELECT max_uses FROM category_grants
WHERE category_id = ? AND control_type_id = ?;
`, categoryID, controlTypeID).Scan(&g.MaxUses)

	if err == sql.ErrNoRows {
		return nil, store.ErrNoGrant
	}
	if err != nil {
		return nil, fmt.Errorf("GrantFor query: %w", err)
	}
	return &g, nil
}

// PutControlType upserts a control type. The prerequisite chain that would
// exist after the write is walked inside the same transaction; a cycle
// rejects the whole write, so validation never has to re-check.
func (s *CatalogStore) PutControlType(ctx context.Context, ct store.ControlType) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		next := ct.RequiresControlTypeID
		for next != "" {
			if next == ct.ControlTypeID {
				return store.ErrPrerequisiteCycle
			}
			var parent sql.NullString
			err := tx.QueryRowContext(ctx, `
SELECT requires_control_type_id FROM control_types WHERE control_type_id = ?;
`, next).Scan(&parent)
			if err == sql.ErrNoRows {
				break
			}
			if err != nil {
				return fmt.Errorf("PutControlType walk chain: %w", err)
			}
			if !parent.Valid {
				break
			}
			next = parent.String
		}

		var requires any
		if ct.RequiresControlTypeID != "" {
			requires = ct.RequiresControlTypeID
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO control_types(control_type_id, event_id, name, requires_control_type_id)
VALUES (?, ?, ?, ?)
ON CONFLICT(control_type_id) DO UPDATE SET
  event_id = excluded.event_id,
  name = excluded.name,
  requires_control_type_id = excluded.requires_control_type_id;
`, ct.ControlTypeID, ct.EventID, ct.Name, requires); err != nil {
			return fmt.Errorf("PutControlType upsert: %w", err)
		}

		return nil
	})
}
