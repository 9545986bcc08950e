package syncer

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscalia/campo/internal/queue"
	"github.com/fiscalia/campo/internal/record"
	"github.com/fiscalia/campo/internal/remote"
	"github.com/fiscalia/campo/internal/store"
)

// fakeSubmitter records delivery attempts and fails the targets listed in
// failTargets.
type fakeSubmitter struct {
	mu          sync.Mutex
	calls       []int64
	failTargets map[int64]bool
	block       chan struct{} // when non-nil, Submit waits on it
	started     chan struct{} // signalled once per Submit entry
}

func (f *fakeSubmitter) Submit(ctx context.Context, sub record.Submission) error {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sub.TargetID)
	if f.failTargets[sub.TargetID] {
		return &remote.DeliveryError{TargetID: sub.TargetID, Err: errors.New("connection reset")}
	}
	return nil
}

func (f *fakeSubmitter) submitted() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64{}, f.calls...)
}

type fakeProber struct {
	mu     sync.Mutex
	online bool
}

func (f *fakeProber) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.online {
		return errors.New("no route to host")
	}
	return nil
}

func (f *fakeProber) set(online bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online = online
}

func newTestQueue(t *testing.T) *queue.Queue {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "campo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return queue.New(st)
}

func testRequest(targetID int64) record.Request {
	return record.Request{
		TargetID: targetID,
		Status:   record.StatusInProgress,
		UserID:   9,
		Photos: []record.PhotoSource{
			{Name: "obra.jpg", MIMEType: "image/jpeg", Reader: bytes.NewReader([]byte{0xff, 0xd8})},
		},
	}
}

func TestSubmitOrQueue_OfflineQueues(t *testing.T) {
	q := newTestQueue(t)
	sub := &fakeSubmitter{}
	c := New(q, sub, &fakeProber{online: false}, nil)
	ctx := context.Background()

	result, err := c.SubmitOrQueue(ctx, testRequest(42))
	require.NoError(t, err)
	assert.False(t, result.Delivered)
	assert.Empty(t, sub.submitted(), "offline submissions must not hit the wire")

	pending, err := q.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(42), pending[0].TargetID)
	assert.True(t, pending[0].PendingSync)
}

func TestSubmitOrQueue_NilProberMeansOffline(t *testing.T) {
	q := newTestQueue(t)
	sub := &fakeSubmitter{}
	c := New(q, sub, nil, nil)

	result, err := c.SubmitOrQueue(context.Background(), testRequest(42))
	require.NoError(t, err)
	assert.False(t, result.Delivered)
	assert.Empty(t, sub.submitted())
}

func TestSubmitOrQueue_OnlineDeliversDirectly(t *testing.T) {
	q := newTestQueue(t)
	sub := &fakeSubmitter{}
	c := New(q, sub, &fakeProber{online: true}, nil)
	ctx := context.Background()

	result, err := c.SubmitOrQueue(ctx, testRequest(42))
	require.NoError(t, err)
	assert.True(t, result.Delivered)
	assert.Equal(t, []int64{42}, sub.submitted())

	count, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "direct delivery must not leave a queue record")
}

func TestSubmitOrQueue_DirectDeliveryRemovesStaleRecord(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	// An older submission for the same target sits in the queue from an
	// offline session.
	_, err := q.Enqueue(ctx, testRequest(42))
	require.NoError(t, err)

	sub := &fakeSubmitter{}
	c := New(q, sub, &fakeProber{online: true}, nil)

	fresh := testRequest(42)
	fresh.Status = record.StatusCompleted
	result, err := c.SubmitOrQueue(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, result.Delivered)

	count, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "the stale queued record carries older data for the same key")
}

func TestSubmitOrQueue_DirectFailureFallsBackToQueue(t *testing.T) {
	q := newTestQueue(t)
	sub := &fakeSubmitter{failTargets: map[int64]bool{42: true}}
	c := New(q, sub, &fakeProber{online: true}, nil)
	ctx := context.Background()

	result, err := c.SubmitOrQueue(ctx, testRequest(42))
	require.NoError(t, err, "a failed direct send is not an error, the record is safe")
	assert.False(t, result.Delivered)
	assert.Equal(t, []int64{42}, sub.submitted())

	pending, err := q.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(42), pending[0].TargetID)
}

func TestSubmitOrQueue_ValidationErrorSurfaces(t *testing.T) {
	q := newTestQueue(t)
	c := New(q, &fakeSubmitter{}, &fakeProber{online: true}, nil)
	ctx := context.Background()

	req := testRequest(42)
	req.Photos = nil
	_, err := c.SubmitOrQueue(ctx, req)
	require.Error(t, err)
	assert.True(t, record.IsValidationError(err))

	count, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDrainAll_OfflineThenOnline(t *testing.T) {
	q := newTestQueue(t)
	sub := &fakeSubmitter{}
	prober := &fakeProber{online: false}
	c := New(q, sub, prober, nil)
	ctx := context.Background()

	// Captured offline: the record lands in the queue.
	_, err := c.SubmitOrQueue(ctx, testRequest(42))
	require.NoError(t, err)

	pending, err := q.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// Connectivity returns; the drain delivers and empties the queue.
	prober.set(true)
	report, err := c.DrainAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, 0, report.Remaining)
	assert.Equal(t, []int64{42}, sub.submitted(), "exactly one delivery for the queued target")

	pending, err = q.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDrainAll_StopsAtFirstFailure(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	for _, id := range []int64{7, 42, 103} {
		_, err := q.Enqueue(ctx, testRequest(id))
		require.NoError(t, err)
	}

	sub := &fakeSubmitter{failTargets: map[int64]bool{7: true}}
	c := New(q, sub, nil, nil)

	report, err := c.DrainAll(ctx)
	require.NoError(t, err, "delivery failures are reported, not returned")
	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 0, report.Delivered)
	assert.Equal(t, 3, report.Remaining)
	assert.Equal(t, int64(7), report.FailedTarget)
	require.Error(t, report.FailureErr)
	assert.True(t, remote.IsDeliveryError(report.FailureErr))

	// Later records are never attempted after a failure.
	assert.Equal(t, []int64{7}, sub.submitted())

	count, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDrainAll_PartialDeliveryKeepsRemainder(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	for _, id := range []int64{7, 42, 103} {
		_, err := q.Enqueue(ctx, testRequest(id))
		require.NoError(t, err)
	}

	sub := &fakeSubmitter{failTargets: map[int64]bool{42: true}}
	c := New(q, sub, nil, nil)

	report, err := c.DrainAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, 2, report.Remaining)
	assert.Equal(t, int64(42), report.FailedTarget)
	assert.Equal(t, []int64{7, 42}, sub.submitted())

	pending, err := q.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, int64(42), pending[0].TargetID)
	assert.Equal(t, int64(103), pending[1].TargetID)
}

func TestDrainAll_PartialDrainSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campo.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	q := queue.New(st)
	ctx := context.Background()

	for _, id := range []int64{7, 42, 103} {
		_, err := q.Enqueue(ctx, testRequest(id))
		require.NoError(t, err)
	}
	before, err := q.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, before, 3)

	// Target 7 delivers and is acknowledged; 42 fails and halts the cycle.
	sub := &fakeSubmitter{failTargets: map[int64]bool{42: true}}
	c := New(q, sub, nil, nil)
	_, err = c.DrainAll(ctx)
	require.NoError(t, err)

	// Simulate a process restart between drains.
	require.NoError(t, st.Close())
	st2, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { st2.Close() })

	pending, err := queue.New(st2).ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, int64(42), pending[0].TargetID, "acknowledged target must not reappear")
	assert.Equal(t, int64(103), pending[1].TargetID)

	// The record that halted the drain reloads unchanged.
	assert.Equal(t, before[1].Status, pending[0].Status)
	assert.True(t, before[1].CapturedAt.Equal(pending[0].CapturedAt))
	require.Len(t, pending[0].Photos, 1)
	assert.Equal(t, before[1].Photos[0].Data, pending[0].Photos[0].Data)
}

func TestDrainAll_EmptyQueue(t *testing.T) {
	q := newTestQueue(t)
	sub := &fakeSubmitter{}
	c := New(q, sub, nil, nil)

	report, err := c.DrainAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Attempted)
	assert.Empty(t, sub.submitted())
}

func TestDrainAll_DrainsInKeyOrder(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	for _, id := range []int64{103, 7, 42} {
		_, err := q.Enqueue(ctx, testRequest(id))
		require.NoError(t, err)
	}

	sub := &fakeSubmitter{}
	c := New(q, sub, nil, nil)

	_, err := c.DrainAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 42, 103}, sub.submitted())
}

func TestDrainAll_CoalescesReentrantCalls(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	_, err := q.Enqueue(ctx, testRequest(7))
	require.NoError(t, err)

	sub := &fakeSubmitter{
		block:   make(chan struct{}),
		started: make(chan struct{}, 4),
	}
	c := New(q, sub, nil, nil)

	done := make(chan DrainReport, 1)
	go func() {
		report, err := c.DrainAll(ctx)
		if err != nil {
			t.Error(err)
		}
		done <- report
	}()

	// Wait until the first delivery is in flight, then trigger again: the
	// second call must coalesce instead of interleaving a second cycle.
	<-sub.started
	report, err := c.DrainAll(ctx)
	require.NoError(t, err)
	assert.True(t, report.Coalesced)

	// A record enqueued mid-drain is picked up by the follow-up pass.
	_, err = q.Enqueue(ctx, testRequest(42))
	require.NoError(t, err)

	close(sub.block)
	<-done

	// Drain the remaining started signals so nothing blocks teardown.
	for len(sub.started) > 0 {
		<-sub.started
	}

	assert.Equal(t, []int64{7, 42}, sub.submitted())

	count, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestOnline(t *testing.T) {
	q := newTestQueue(t)
	prober := &fakeProber{online: true}
	c := New(q, &fakeSubmitter{}, prober, nil)
	ctx := context.Background()

	assert.True(t, c.Online(ctx))
	prober.set(false)
	assert.False(t, c.Online(ctx))

	noProber := New(q, &fakeSubmitter{}, nil, nil)
	assert.False(t, noProber.Online(ctx))
}
