// Package queue implements the pending-submission queue on top of the
// durable store, enforcing the one-pending-record-per-target invariant and
// owning all access to the collection.
//
// Lifecycle of a record: created by Enqueue, mutated only by full replacement
// (a re-enqueue for the same target), destroyed only by Acknowledge after the
// remote system confirmed acceptance. No other component deletes or mutates
// queue entries.
package queue

import (
	"context"
	"time"

	"github.com/fiscalia/campo/internal/codec"
	"github.com/fiscalia/campo/internal/record"
	"github.com/fiscalia/campo/internal/store"
)

// Queue is the durable pending-submission collection.
type Queue struct {
	store *store.Store
	now   func() time.Time
}

// New creates a queue over the given store.
func New(st *store.Store) *Queue {
	return &Queue{store: st, now: time.Now}
}

// NewWithClock creates a queue with an injected clock. Used by tests that
// need deterministic capture timestamps.
func NewWithClock(st *store.Store, now func() time.Time) *Queue {
	return &Queue{store: st, now: now}
}

// Build validates a request and constructs the storable submission record:
// photos are flattened through the codec, CapturedAt is stamped once, and
// PendingSync is set. Build does not persist anything; callers either hand
// the record to the remote client directly or Put it into the queue.
func (q *Queue) Build(req record.Request) (record.Submission, error) {
	if err := req.Validate(); err != nil {
		return record.Submission{}, err
	}

	photos, err := codec.EncodeAll(req.Photos)
	if err != nil {
		return record.Submission{}, err
	}

	checklist := req.Checklist
	if checklist == nil {
		checklist = []record.ChecklistEntry{}
	}

	return record.Submission{
		TargetID:    req.TargetID,
		Status:      req.Status,
		Observation: req.Observation,
		UserID:      req.UserID,
		Checklist:   checklist,
		Photos:      photos,
		CapturedAt:  q.now(),
		PendingSync: true,
	}, nil
}

// Put persists a built record, replacing any prior pending record for the
// same target. The empty-photo invariant is re-checked here: a record with
// zero photos must never reach the store, whatever the collaborator did.
func (q *Queue) Put(ctx context.Context, sub record.Submission) error {
	if len(sub.Photos) == 0 {
		return &record.ValidationError{Field: "photos", Message: "refusing to persist a submission without photos"}
	}
	return q.store.PutSubmission(ctx, sub)
}

// Enqueue validates, builds and persists a submission in one call, returning
// the stored record.
func (q *Queue) Enqueue(ctx context.Context, req record.Request) (record.Submission, error) {
	sub, err := q.Build(req)
	if err != nil {
		return record.Submission{}, err
	}
	if err := q.Put(ctx, sub); err != nil {
		return record.Submission{}, err
	}
	return sub, nil
}

// ListPending returns all pending submissions in key order. Read-only and
// side-effect free; safe to call while a drain is in flight.
func (q *Queue) ListPending(ctx context.Context) ([]record.Submission, error) {
	return q.store.ListSubmissions(ctx)
}

// Count returns how many submissions are pending.
func (q *Queue) Count(ctx context.Context) (int, error) {
	return q.store.CountSubmissions(ctx)
}

// Acknowledge removes the pending record for a target after the remote
// system confirmed acceptance. Idempotent: acknowledging an absent target is
// not an error.
func (q *Queue) Acknowledge(ctx context.Context, targetID int64) error {
	return q.store.DeleteSubmission(ctx, targetID)
}

// Clear empties the queue. Debug/reset operation only.
func (q *Queue) Clear(ctx context.Context) error {
	return q.store.ClearSubmissions(ctx)
}
