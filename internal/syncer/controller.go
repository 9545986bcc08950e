package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fiscalia/campo/internal/queue"
	"github.com/fiscalia/campo/internal/record"
	"github.com/fiscalia/campo/internal/remote"
)

// Submitter is the remote submission client contract the controller drives.
// Submit returns nil only on a definitive server acknowledgment; any network
// failure, timeout or non-success response is an error, and the implementation
// must not retry internally - retry policy lives here.
type Submitter interface {
	Submit(ctx context.Context, sub record.Submission) error
}

// Prober answers "is the API reachable right now".
type Prober interface {
	Ping(ctx context.Context) error
}

const probeTimeout = 5 * time.Second

// Controller reacts to connectivity transitions and explicit submit calls,
// draining the queue against the remote client. One conceptual state per
// drain cycle: Idle -> Draining -> Idle. There is no retrying sub-state; a
// failed item halts the cycle and the next trigger starts a fresh cycle that
// sees the same still-pending item first.
type Controller struct {
	queue  *queue.Queue
	client Submitter
	prober Prober
	logger *slog.Logger

	mu       sync.Mutex
	draining bool
	rerun    bool
}

// New creates a controller. prober may be nil, in which case the device is
// treated as offline and every submission goes through the queue.
func New(q *queue.Queue, client Submitter, prober Prober, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{queue: q, client: client, prober: prober, logger: logger}
}

// SubmitResult reports how SubmitOrQueue resolved a request.
type SubmitResult struct {
	// Delivered is true when the record reached the server directly,
	// bypassing the queue; false means it was persisted for a later drain.
	Delivered bool
	Record    record.Submission
}

// SubmitOrQueue is the single authoritative entry point for a logical
// submission. The record is built (validated, photos encoded, timestamped)
// exactly once. When the device is online it is sent directly; a failed
// direct delivery falls back to the queue. Offline, it is queued immediately.
//
// Build and queue errors (ValidationError, codec.Error, StoreUnavailableError)
// surface to the caller: a submission that could be neither delivered nor
// persisted is a data-loss risk and must never fail silently.
func (c *Controller) SubmitOrQueue(ctx context.Context, req record.Request) (SubmitResult, error) {
	sub, err := c.queue.Build(req)
	if err != nil {
		return SubmitResult{}, err
	}

	if c.Online(ctx) {
		if err := c.client.Submit(ctx, sub); err == nil {
			c.logger.Info("submission delivered directly", "target", sub.TargetID)
			// A previously queued record for this target is now stale:
			// the direct send carried newer data for the same key.
			if err := c.queue.Acknowledge(ctx, sub.TargetID); err != nil {
				return SubmitResult{Delivered: true, Record: sub}, err
			}
			return SubmitResult{Delivered: true, Record: sub}, nil
		} else {
			c.logger.Warn("direct delivery failed, falling back to queue",
				"target", sub.TargetID, "error", err)
		}
	}

	if err := c.queue.Put(ctx, sub); err != nil {
		return SubmitResult{}, err
	}
	c.logger.Info("submission saved offline", "target", sub.TargetID)
	return SubmitResult{Delivered: false, Record: sub}, nil
}

// DrainReport summarizes one DrainAll call.
type DrainReport struct {
	// Cycle is the token identifying this drain in the logs.
	Cycle string
	// Coalesced is true when a drain was already in flight; this call did
	// not run a cycle itself but scheduled one follow-up pass.
	Coalesced bool
	Attempted int
	Delivered int
	Remaining int
	// FailedTarget is the target whose delivery halted the cycle, 0 if none.
	FailedTarget int64
	// FailureErr is the delivery error that halted the cycle. It is carried
	// in the report, not returned: a failed delivery means "stay queued",
	// not a failed drain.
	FailureErr error
}

// DrainAll attempts delivery of every pending submission, strictly
// sequentially in key order, acknowledging each on confirmed success and
// stopping the entire cycle at the first failure. Later records are left
// untouched even if they might have succeeded: the pending count must shrink
// monotonically, never oscillate.
//
// Re-entrancy: a DrainAll arriving while another is in flight does not
// interleave with it. It sets a coalesced flag and returns immediately; the
// active drain runs exactly one follow-up pass when it finishes.
//
// The returned error is reserved for store failures. Delivery failures are
// recovered locally and reported via DrainReport.FailureErr.
func (c *Controller) DrainAll(ctx context.Context) (DrainReport, error) {
	c.mu.Lock()
	if c.draining {
		c.rerun = true
		c.mu.Unlock()
		c.logger.Debug("drain already in flight, coalescing trigger")
		return DrainReport{Coalesced: true}, nil
	}
	c.draining = true
	c.mu.Unlock()

	for {
		report, err := c.drainOnce(ctx)

		c.mu.Lock()
		again := c.rerun && err == nil
		c.rerun = false
		if !again {
			c.draining = false
		}
		c.mu.Unlock()

		if !again {
			return report, err
		}
		c.logger.Debug("running coalesced follow-up drain")
	}
}

// drainOnce runs a single drain cycle.
func (c *Controller) drainOnce(ctx context.Context) (DrainReport, error) {
	report := DrainReport{Cycle: newCycleToken()}
	log := c.logger.With("cycle", report.Cycle)

	subs, err := c.queue.ListPending(ctx)
	if err != nil {
		return report, err
	}
	report.Attempted = len(subs)
	report.Remaining = len(subs)
	if len(subs) == 0 {
		log.Debug("queue empty, nothing to drain")
		return report, nil
	}

	log.Info("draining pending submissions", "pending", len(subs))
	for _, sub := range subs {
		if err := c.client.Submit(ctx, sub); err != nil {
			// Stop the whole cycle. The record stays queued; the next
			// trigger starts a fresh cycle that sees it first.
			log.Warn("delivery failed, stopping drain",
				"target", sub.TargetID, "error", err)
			report.FailedTarget = sub.TargetID
			report.FailureErr = err
			break
		}

		// Acknowledge only after confirmed remote success. An interrupt
		// between submit and acknowledge re-delivers on the next drain;
		// the target-keyed overwrite bounds the duplication.
		if err := c.queue.Acknowledge(ctx, sub.TargetID); err != nil {
			return report, err
		}
		report.Delivered++
		report.Remaining--
		log.Info("submission synced", "target", sub.TargetID)
	}

	log.Info("drain finished",
		"delivered", report.Delivered, "remaining", report.Remaining)
	return report, nil
}

// Online probes API reachability with a bounded timeout.
func (c *Controller) Online(ctx context.Context) bool {
	if c.prober == nil {
		return false
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return c.prober.Ping(probeCtx) == nil
}

// newCycleToken returns the log token for one drain cycle. UUIDv7 keeps the
// tokens time-sortable across log files.
func newCycleToken() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

var _ Submitter = (*remote.Client)(nil)
var _ Prober = (*remote.Client)(nil)
