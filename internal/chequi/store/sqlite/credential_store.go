package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Darobeats/Chequi-sub000/internal/chequi/store"
)

type CredentialStore struct {
	db *sql.DB
}

func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Resolve looks the code up against both the ticket code and the badge
// code, scoped to the event. One match resolves; zero is not-found; more
// than one distinct attendee is ambiguous (a data problem, never a deny).
func (s *CredentialStore) Resolve(ctx context.Context, code, eventID string) (*store.Credential, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, store.ErrCredentialNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT attendee_id, event_id, category_id, name, ticket_code, COALESCE(badge_code, ''), status
FROM attendees
WHERE event_id = ? AND (ticket_code = ? OR badge_code = ?)
LIMIT 2;
`, eventID, code, code)
	if err != nil {
		return nil, fmt.Errorf("Resolve query: %w", err)
	}
	defer rows.Close()

	var found *store.Credential
	for rows.Next() {
		var c store.Credential
		if err := rows.Scan(
			&c.AttendeeID, &c.EventID, &c.CategoryID, &c.Name,
			&c.TicketCode, &c.BadgeCode, &c.Status,
		); err != nil {
			return nil, fmt.Errorf("Resolve scan: %w", err)
		}
		if found != nil {
			return nil, store.ErrAmbiguousCredential
		}
		cc := c
		found = &cc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Resolve rows: %w", err)
	}
	if found == nil {
		return nil, store.ErrCredentialNotFound
	}
	return found, nil
}
