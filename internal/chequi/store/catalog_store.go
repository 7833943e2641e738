package store

import (
	"context"
	"errors"
)

var (
	ErrControlTypeNotFound = errors.New("control type not found")

	// ErrNoGrant means the category has no row for this control type.
	// Equivalent to max_uses = 0: no access.
	ErrNoGrant = errors.New("no grant for category and control type")

	// ErrPrerequisiteCycle is returned by PutControlType when the requested
	// prerequisite link would close a cycle. Cycles are rejected at
	// configuration time so validation can trust the prerequisite chain.
	ErrPrerequisiteCycle = errors.New("prerequisite chain forms a cycle")
)

// ControlType is a named checkpoint category (entry, beverage, ...) scoped
// to one event. RequiresControlTypeID optionally names another control type
// that must have at least one usage record before this one may be used.
type ControlType struct {
	ControlTypeID         string
	EventID               string
	Name                  string
	RequiresControlTypeID string // empty when there is no prerequisite
}

// Grant is the (category, control type) -> max uses authorization rule.
type Grant struct {
	CategoryID    string
	ControlTypeID string
	MaxUses       int
}

// CatalogStore serves the control-type catalog and the authorization matrix.
type CatalogStore interface {
	ControlType(ctx context.Context, controlTypeID string) (*ControlType, error)
	GrantFor(ctx context.Context, categoryID, controlTypeID string) (*Grant, error)

	// PutControlType creates or updates a control type, rejecting any
	// prerequisite assignment that would form a cycle.
	PutControlType(ctx context.Context, ct ControlType) error
}
