package store

import (
	"context"
	"errors"
)

type CredentialStatus string

const (
	StatusValid   CredentialStatus = "valid"
	StatusUsed    CredentialStatus = "used"
	StatusBlocked CredentialStatus = "blocked"
)

var (
	// ErrCredentialNotFound means the code resolves no attendee in the event.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrAmbiguousCredential means the code matched more than one attendee
	// (ticket code of one, badge code of another). This is a data problem,
	// not a denial — callers must surface it as a processing failure.
	ErrAmbiguousCredential = errors.New("credential resolution is ambiguous")
)

// Credential is the scanned ticket/badge entity being checked.
type Credential struct {
	AttendeeID string
	EventID    string
	CategoryID string
	Name       string
	TicketCode string
	BadgeCode  string // empty when the attendee has no badge
	Status     CredentialStatus
}

// CredentialStore resolves scanned codes to attendees. Either the primary
// ticket code or the secondary badge code may resolve a credential; lookup
// is always scoped to one event.
type CredentialStore interface {
	Resolve(ctx context.Context, code, eventID string) (*Credential, error)
}
