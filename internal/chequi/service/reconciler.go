package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Darobeats/Chequi-sub000/internal/chequi/store"
	"github.com/Darobeats/Chequi-sub000/internal/chequi/types"
)

var (
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrEmptyPayload   = errors.New("payload is required")
)

// ReconcilerConfig tunes the replay loop.
type ReconcilerConfig struct {
	// MaxAttempts bounds how many times one sync run retries the head of
	// the queue on transient failure before giving up for this run (the
	// scan stays queued). Defaults to 5.
	MaxAttempts int

	// BackoffBase is the first retry delay; it doubles per attempt, capped
	// at 16x. Defaults to 250ms.
	BackoffBase time.Duration

	// AttemptTimeout bounds one replay attempt; an attempt that does not
	// acknowledge in time counts as a transient failure. Defaults to 10s.
	AttemptTimeout time.Duration
}

func (c *ReconcilerConfig) withDefaults() ReconcilerConfig {
	out := *c
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 5
	}
	if out.BackoffBase <= 0 {
		out.BackoffBase = 250 * time.Millisecond
	}
	if out.AttemptTimeout <= 0 {
		out.AttemptTimeout = 10 * time.Second
	}
	return out
}

// Reconciler buffers scans taken while offline and replays them once
// connectivity returns, strictly in insertion order, one at a time.
type Reconciler struct {
	queue     store.QueueStore
	processor *Processor
	signer    *Signer
	cfg       ReconcilerConfig
	logger    *log.Logger
	now       func() time.Time

	mu sync.Mutex // serializes Sync runs
}

func NewReconciler(queue store.QueueStore, processor *Processor, signer *Signer, cfg ReconcilerConfig, logger *log.Logger) *Reconciler {
	return &Reconciler{
		queue:     queue,
		processor: processor,
		signer:    signer,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue captures one offline scan: signs it with the day-scoped key and
// appends it durably. Returns the new queue length. The operator-facing
// "allowed" placeholder is the caller's concern; the authoritative
// decision is deferred until replay.
func (r *Reconciler) Enqueue(ctx context.Context, req types.EnqueueRequest) (int, error) {
	payload := strings.TrimSpace(req.Payload)
	if payload == "" {
		return 0, ErrEmptyPayload
	}

	capturedAt := req.CapturedAtMillis
	if capturedAt == 0 {
		capturedAt = r.now().UnixMilli()
	}

	ps := store.PendingScan{
		PendingID:        uuid.NewString(),
		TicketCode:       payload,
		ControlTypeID:    req.ControlTypeID,
		EventID:          req.EventID,
		DeviceLabel:      req.DeviceLabel,
		CapturedAtMillis: capturedAt,
		CallerID:         req.CallerID,
		Signature:        r.signer.Sign(payload, req.ControlTypeID, capturedAt, req.CallerID),
		CreatedAt:        r.now(),
	}

	if _, err := r.queue.Enqueue(ctx, ps); err != nil {
		return 0, err
	}
	return r.queue.Count(ctx)
}

// PendingCount is the operator-visible queue length gauge.
func (r *Reconciler) PendingCount(ctx context.Context) (int, error) {
	return r.queue.Count(ctx)
}

// Sync drains the queue in insertion order, one scan at a time. Scans the
// engine denies (or whose signature fails) are removed and reported as
// post-hoc denials; transient failures retry with exponential backoff and
// keep the scan queued. The loop is cancellable between items; an
// in-flight replay completes rather than being torn down mid-write.
func (r *Reconciler) Sync(ctx context.Context) (types.SyncReport, error) {
	if !r.mu.TryLock() {
		return types.SyncReport{}, ErrSyncInProgress
	}
	defer r.mu.Unlock()

	var report types.SyncReport

	for {
		if err := ctx.Err(); err != nil {
			break
		}

		head, err := r.queue.Oldest(ctx)
		if err != nil {
			return report, err
		}
		if head == nil {
			break
		}

		outcome, ok := r.replayWithRetry(ctx, head)
		if !ok {
			// Still failing transiently; the head blocks the queue, so
			// stop this run and leave everything pending.
			break
		}

		// Removal is part of completing the item: a committed replay must
		// not linger in the queue because the run was cancelled meanwhile.
		if err := r.queue.Remove(context.WithoutCancel(ctx), head.Seq); err != nil {
			return report, err
		}

		if outcome.Allowed() {
			report.Succeeded++
		} else {
			report.Denied++
			r.logger.Printf("post-hoc denial pending=%s kind=%s reason=%s", head.PendingID, outcome.Kind, outcome.Reason)
		}
	}

	// Count with a detached context so a cancelled drain still reports an
	// accurate gauge.
	pending, err := r.queue.Count(context.WithoutCancel(ctx))
	if err != nil {
		return report, err
	}
	report.StillPending = pending
	return report, nil
}

// replayWithRetry pushes one pending scan through the processor's decide
// path, retrying transient failures with backoff. ok=false means the scan
// is still pending after MaxAttempts (or the context was cancelled).
func (r *Reconciler) replayWithRetry(ctx context.Context, ps *store.PendingScan) (types.ScanOutcome, bool) {
	req := types.ScanRequest{
		Payload:          ps.TicketCode,
		ControlTypeID:    ps.ControlTypeID,
		EventID:          ps.EventID,
		DeviceLabel:      ps.DeviceLabel,
		CallerID:         ps.CallerID,
		CapturedAtMillis: ps.CapturedAtMillis,
		Signature:        ps.Signature,
	}

	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if !r.sleep(ctx, r.backoff(attempt)) {
				return types.ScanOutcome{}, false
			}
		}

		// Only the per-attempt timeout bounds an in-flight replay.
		// Cancelling the sync run stops the loop between items; the item
		// already being replayed completes instead of being torn down
		// mid-write.
		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.AttemptTimeout)
		outcome := r.processor.decide(attemptCtx, req)
		cancel()

		// ProcessingFailed here means storage/transport trouble — the only
		// transient class. Every other outcome is final for this scan;
		// idempotent appends make a lost-ack retry safe.
		if outcome.Kind != types.OutcomeProcessingFailed {
			return outcome, true
		}

		// Detached context: the attempts counter matters most exactly when
		// replays are failing, so a cancelled run must still record it.
		if err := r.queue.NoteAttempt(context.WithoutCancel(ctx), ps.Seq); err != nil {
			r.logger.Printf("note attempt pending=%s: %v", ps.PendingID, err)
		}
		r.logger.Printf("replay attempt %d failed pending=%s: %s", attempt+1, ps.PendingID, outcome.Detail)
	}

	return types.ScanOutcome{}, false
}

func (r *Reconciler) backoff(attempt int) time.Duration {
	d := r.cfg.BackoffBase
	for i := 1; i < attempt && d < 16*r.cfg.BackoffBase; i++ {
		d *= 2
	}
	return d
}

// sleep waits for d, returning false if ctx expires first.
func (r *Reconciler) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// SyncScheduler periodically triggers a sync run. It runs as a background
// goroutine and is safe to stop via its context or the Stop method.
//
// An interval of 0 disables scheduling entirely.
type SyncScheduler struct {
	rec      *Reconciler
	interval time.Duration
	logger   *log.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSyncScheduler(rec *Reconciler, interval time.Duration, logger *log.Logger) *SyncScheduler {
	return &SyncScheduler{
		rec:      rec,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the background loop. It runs an immediate sync on startup
// to drain any backlog left from a previous run, then repeats on the
// configured interval. The loop exits when ctx is cancelled or Stop is
// called.
func (s *SyncScheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Printf("sync scheduler disabled (interval=0)")
		close(s.done)
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)

	go s.loop(ctx)

	s.logger.Printf("sync scheduler started (interval=%s)", s.interval)
}

// Stop signals the scheduler to exit and waits for it to finish.
func (s *SyncScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

func (s *SyncScheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.run(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *SyncScheduler) run(ctx context.Context) {
	report, err := s.rec.Sync(ctx)
	if errors.Is(err, ErrSyncInProgress) {
		return
	}
	if err != nil {
		s.logger.Printf("scheduled sync error: %v", err)
		return
	}
	if report.Succeeded > 0 || report.Denied > 0 {
		s.logger.Printf("scheduled sync: succeeded=%d denied=%d still_pending=%d",
			report.Succeeded, report.Denied, report.StillPending)
	}
}
