package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Darobeats/Chequi-sub000/internal/chequi/store"
	"github.com/Darobeats/Chequi-sub000/internal/chequi/types"
)

// Validator is the single authoritative access decision: given a scanned
// code and a requested control type, may this scan proceed, and what is
// the resulting usage state. Rules are evaluated in order and short-
// circuit on the first failure; denial is returned as data, never as an
// error. A non-nil error means the evaluation could not complete and
// nothing was written.
type Validator struct {
	credentials store.CredentialStore
	catalog     store.CatalogStore
	ledger      store.LedgerStore
	now         func() time.Time
}

func NewValidator(cs store.CredentialStore, cat store.CatalogStore, ledger store.LedgerStore) *Validator {
	return &Validator{
		credentials: cs,
		catalog:     cat,
		ledger:      ledger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Validate decides one scan and, when allowed, appends the usage record in
// the same atomic unit as the cap check. capturedAt is non-nil only for
// scans replayed from the offline queue; it carries the natural dedupe key.
func (v *Validator) Validate(
	ctx context.Context,
	code, eventID, controlTypeID, deviceLabel, recordedBy string,
	capturedAt *time.Time,
) (types.ScanOutcome, error) {
	cred, err := v.credentials.Resolve(ctx, code, eventID)
	if errors.Is(err, store.ErrCredentialNotFound) {
		return types.ScanOutcome{Kind: types.OutcomeNotFound}, nil
	}
	if err != nil {
		return types.ScanOutcome{}, fmt.Errorf("resolve credential: %w", err)
	}

	if cred.Status == store.StatusBlocked {
		return types.ScanOutcome{
			Kind:           types.OutcomeDenied,
			Reason:         types.DenyBlocked,
			CredentialName: cred.Name,
		}, nil
	}

	grant, err := v.catalog.GrantFor(ctx, cred.CategoryID, controlTypeID)
	if errors.Is(err, store.ErrNoGrant) {
		grant = &store.Grant{MaxUses: 0}
	} else if err != nil {
		return types.ScanOutcome{}, fmt.Errorf("look up grant: %w", err)
	}
	if grant.MaxUses == 0 {
		return types.ScanOutcome{
			Kind:           types.OutcomeDenied,
			Reason:         types.DenyNotAuthorized,
			CredentialName: cred.Name,
		}, nil
	}

	ct, err := v.catalog.ControlType(ctx, controlTypeID)
	if err != nil {
		return types.ScanOutcome{}, fmt.Errorf("look up control type: %w", err)
	}
	if ct.EventID != eventID {
		return types.ScanOutcome{}, fmt.Errorf("control type %s does not belong to event %s", controlTypeID, eventID)
	}

	if ct.RequiresControlTypeID != "" {
		met, err := v.ledger.HasUsage(ctx, cred.AttendeeID, ct.RequiresControlTypeID)
		if err != nil {
			return types.ScanOutcome{}, fmt.Errorf("check prerequisite usage: %w", err)
		}
		if !met {
			prereq, err := v.catalog.ControlType(ctx, ct.RequiresControlTypeID)
			if err != nil {
				return types.ScanOutcome{}, fmt.Errorf("look up prerequisite: %w", err)
			}
			return types.ScanOutcome{
				Kind:             types.OutcomeDenied,
				Reason:           types.DenyPrerequisiteNotMet,
				PrerequisiteName: prereq.Name,
				CredentialName:   cred.Name,
				MaxUses:          grant.MaxUses,
			}, nil
		}
	}

	rec := store.UsageRecord{
		UsageID:       uuid.NewString(),
		AttendeeID:    cred.AttendeeID,
		ControlTypeID: controlTypeID,
		UsedAt:        v.now(),
		DeviceLabel:   deviceLabel,
		RecordedBy:    recordedBy,
		CapturedAt:    capturedAt,
	}

	res, err := v.ledger.AppendWithinCap(ctx, rec, grant.MaxUses)
	if err != nil {
		return types.ScanOutcome{}, fmt.Errorf("append usage: %w", err)
	}

	if res.Inserted || res.Replayed {
		return types.ScanOutcome{
			Kind:           types.OutcomeAllowed,
			CredentialName: cred.Name,
			CurrentUses:    res.CurrentUses,
			MaxUses:        grant.MaxUses,
		}, nil
	}

	out := types.ScanOutcome{
		Kind:           types.OutcomeDenied,
		Reason:         types.DenyLimitReached,
		CredentialName: cred.Name,
		CurrentUses:    res.CurrentUses,
		MaxUses:        grant.MaxUses,
	}
	if res.Last != nil {
		out.LastUsage = &types.LastUsage{
			UsedAt:      res.Last.UsedAt,
			DeviceLabel: res.Last.DeviceLabel,
		}
	}
	return out, nil
}
