package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/Darobeats/Chequi-sub000/internal/chequi/store"
	"github.com/Darobeats/Chequi-sub000/internal/chequi/types"
)

// Processor orchestrates one scan end-to-end for a device session:
// session lock, duplicate suppression, signature check (offline replays
// only), access validation, ledger append, result display.
type Processor struct {
	sessions  *SessionManager
	verifier  *Verifier
	validator *Validator
	devices   store.DeviceStore
	logger    *log.Logger
	now       func() time.Time
}

func NewProcessor(
	sessions *SessionManager,
	verifier *Verifier,
	validator *Validator,
	devices store.DeviceStore,
	logger *log.Logger,
) *Processor {
	return &Processor{
		sessions:  sessions,
		verifier:  verifier,
		validator: validator,
		devices:   devices,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Process handles one decoded payload. A nil outcome with a nil error
// means the scan was silently ignored: the device session was already
// processing another frame, or the payload is the one currently displayed.
func (p *Processor) Process(ctx context.Context, req types.ScanRequest) (*types.ScanOutcome, error) {
	payload := strings.TrimSpace(req.Payload)
	if payload == "" {
		out := p.stamp(types.ScanOutcome{
			Kind:   types.OutcomeProcessingFailed,
			Detail: "empty payload",
		})
		return &out, nil
	}

	sess := p.sessions.Get(req.DeviceLabel)
	if !sess.TryLock(payload) {
		return nil, nil
	}

	displayed := false
	defer func() {
		// The lock must never survive an error or panic.
		if !displayed {
			sess.Abort()
		}
	}()

	outcome := p.decide(ctx, req)

	sess.FinishDisplay(payload, outcome.Allowed())
	displayed = true

	out := p.stamp(outcome)
	return &out, nil
}

// Dismiss clears the displayed result for a device and lifts duplicate
// suppression for its payload.
func (p *Processor) Dismiss(deviceLabel string) {
	p.sessions.Dismiss(deviceLabel)
}

// decide runs the signature check and the access validation without any
// session bookkeeping. The sync reconciler replays queued scans through
// this same path.
func (p *Processor) decide(ctx context.Context, req types.ScanRequest) types.ScanOutcome {
	payload := strings.TrimSpace(req.Payload)

	// Best-effort device tracking; a failed write never blocks a decision.
	_ = p.devices.MarkSeen(ctx, req.DeviceLabel, p.now())

	if req.Signature != "" {
		if err := p.verifier.Verify(payload, req.ControlTypeID, req.CapturedAtMillis, req.CallerID, req.Signature); err != nil {
			// Integrity failures are more severe than denials; keep them
			// separable in the audit log.
			p.logger.Printf("integrity failure device=%s caller=%s: %v", req.DeviceLabel, req.CallerID, err)
			return types.ScanOutcome{
				Kind:   types.OutcomeSignatureInvalid,
				Detail: err.Error(),
			}
		}
	}

	var capturedAt *time.Time
	if req.CapturedAtMillis != 0 {
		t := time.UnixMilli(req.CapturedAtMillis).UTC()
		capturedAt = &t
	}

	outcome, err := p.validator.Validate(ctx, payload, req.EventID, req.ControlTypeID, req.DeviceLabel, req.CallerID, capturedAt)
	if err != nil {
		p.logger.Printf("processing failed device=%s: %v", req.DeviceLabel, err)
		return types.ScanOutcome{
			Kind:   types.OutcomeProcessingFailed,
			Detail: err.Error(),
		}
	}

	switch outcome.Kind {
	case types.OutcomeAllowed:
		p.logger.Printf("allowed device=%s uses=%d/%d", req.DeviceLabel, outcome.CurrentUses, outcome.MaxUses)
	case types.OutcomeDenied:
		p.logger.Printf("denied device=%s reason=%s", req.DeviceLabel, outcome.Reason)
	case types.OutcomeNotFound:
		p.logger.Printf("not found device=%s event=%s", req.DeviceLabel, req.EventID)
	}
	return outcome
}

func (p *Processor) stamp(o types.ScanOutcome) types.ScanOutcome {
	o.ServerTime = p.now().Format(time.RFC3339Nano)
	return o
}
