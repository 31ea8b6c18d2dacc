package pile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyoxu/rouge/internal/event"
	"github.com/skyoxu/rouge/internal/fault"
	"github.com/skyoxu/rouge/internal/ident"
	"github.com/skyoxu/rouge/internal/testutil"
)

func TestPublish_NoPublisherStillMutates(t *testing.T) {
	e := newTestEngine(t, 1)
	refs := addCards(t, e, "a", "b")
	require.NoError(t, e.Draw(2))
	require.NoError(t, e.Discard(refs[0].InstanceID))

	assert.Len(t, e.Hand(), 1)
	assert.Len(t, e.DiscardPile(), 1)
	assert.Equal(t, int64(2), e.DrawOrder())
}

// Scenario C: the publisher throws on the first draw.
func TestPublish_SynchronousThrow(t *testing.T) {
	cause := errors.New("transport offline")
	pub := testutil.NewScriptedPublisher(testutil.Throw).WithCause(cause)
	var rec testutil.FailureRecorder
	e := newTestEngine(t, 1, WithPublisher(pub), WithPublishErrorHandler(rec.Record))
	addCards(t, e, "a", "b")

	err := e.Draw(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), event.TypeCardDrawn)
	assert.True(t, IsPublishError(err))
	assert.False(t, IsCanceled(err))
	assert.ErrorIs(t, err, cause)

	var pe *PublishError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, event.TypeCardDrawn, pe.EventType)

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Same(t, cause, calls[0].Cause)
	assert.Equal(t, event.TypeCardDrawn, calls[0].Envelope.Type)

	assert.Len(t, e.Hand(), 1, "the draw is not rolled back")
	assert.Equal(t, int64(1), e.DrawOrder())
}

func TestPublish_ThrowAbandonsRemainingDraws(t *testing.T) {
	pub := testutil.NewScriptedPublisher(testutil.Succeed, testutil.Throw)
	e := newTestEngine(t, 1, WithPublisher(pub))
	addCards(t, e, "a", "b", "c", "d")

	err := e.Draw(4)
	require.Error(t, err)
	assert.Len(t, e.Hand(), 2)
	assert.Len(t, e.DrawPile(), 2)
}

func TestPublish_PanicIsSynchronousFailure(t *testing.T) {
	pub := testutil.Always(testutil.Panic)
	var rec testutil.FailureRecorder
	e := newTestEngine(t, 1, WithPublisher(pub), WithPublishErrorHandler(rec.Record))
	addCards(t, e, "a")

	err := e.Draw(1)
	require.Error(t, err)
	assert.True(t, IsPublishError(err))
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, 1, rec.Len())
}

func TestPublish_PanicKeepsCause(t *testing.T) {
	cause := errors.New("transport exploded")
	pub := testutil.Always(testutil.Panic).WithCause(cause)
	var rec testutil.FailureRecorder
	e := newTestEngine(t, 1, WithPublisher(pub), WithPublishErrorHandler(rec.Record))
	addCards(t, e, "a")

	err := e.Draw(1)
	require.Error(t, err)
	assert.True(t, IsPublishError(err))
	assert.ErrorIs(t, err, cause)

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.ErrorIs(t, calls[0].Cause, cause)
	assert.Equal(t, event.TypeCardDrawn, calls[0].Envelope.Type)
}

func TestPublish_RejectedEnvelopeReachesCallback(t *testing.T) {
	pub := testutil.Always(testutil.Succeed)
	var rec testutil.FailureRecorder
	e := newTestEngine(t, 1,
		WithPublisher(pub),
		WithPublishErrorHandler(rec.Record),
		WithEventIDGenerator(ident.NewFixed(" ")))
	addCards(t, e, "a")

	err := e.Draw(1)
	require.Error(t, err)
	assert.True(t, IsPublishError(err))
	assert.True(t, fault.IsInvalidArgument(err))

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, event.TypeCardDrawn, calls[0].Envelope.Type)
	assert.Len(t, e.Hand(), 1, "the draw is not rolled back")
	assert.Empty(t, pub.Published())
}

func TestPublish_AlreadyFaulted(t *testing.T) {
	cause := errors.New("rejected")
	pub := testutil.Always(testutil.Fault).WithCause(cause)
	var rec testutil.FailureRecorder
	e := newTestEngine(t, 1, WithPublisher(pub), WithPublishErrorHandler(rec.Record))
	addCards(t, e, "a", "b")

	err := e.Draw(2)
	require.Error(t, err)
	assert.True(t, IsPublishError(err))
	assert.False(t, IsCanceled(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), event.TypeCardDrawn)

	require.Equal(t, 1, rec.Len())
	assert.Same(t, cause, rec.Calls()[0].Cause)
	assert.Len(t, e.Hand(), 1)
}

func TestPublish_AlreadyCanceled(t *testing.T) {
	pub := testutil.Always(testutil.Cancel)
	var rec testutil.FailureRecorder
	e := newTestEngine(t, 1, WithPublisher(pub), WithPublishErrorHandler(rec.Record))
	addCards(t, e, "a")

	err := e.Draw(1)
	require.Error(t, err)
	assert.True(t, IsCanceled(err))
	assert.False(t, IsPublishError(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), event.TypeCardDrawn)

	require.Equal(t, 1, rec.Len())
	assert.ErrorIs(t, rec.Calls()[0].Cause, context.Canceled)
}

func TestPublish_DiscardFailureSurfaces(t *testing.T) {
	pub := testutil.NewScriptedPublisher(testutil.Succeed, testutil.Fault)
	var rec testutil.FailureRecorder
	e := newTestEngine(t, 1, WithPublisher(pub), WithPublishErrorHandler(rec.Record))
	refs := addCards(t, e, "a")
	require.NoError(t, e.Draw(1))

	err := e.Discard(refs[0].InstanceID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), event.TypeCardDiscarded)
	assert.Len(t, e.DiscardPile(), 1, "the discard is not rolled back")
	require.Equal(t, 1, rec.Len())
	assert.Equal(t, event.TypeCardDiscarded, rec.Calls()[0].Envelope.Type)
}

func TestPublish_PendingThenFault(t *testing.T) {
	pub := testutil.Always(testutil.Pend)
	var rec testutil.FailureRecorder
	e := newTestEngine(t, 1, WithPublisher(pub), WithPublishErrorHandler(rec.Record))
	addCards(t, e, "a")

	require.NoError(t, e.Draw(1))
	assert.Zero(t, rec.Len())

	cause := errors.New("late failure")
	pub.FaultPending(cause)

	require.Eventually(t, func() bool { return rec.Len() == 1 }, time.Second, time.Millisecond)
	assert.Same(t, cause, rec.Calls()[0].Cause)
	assert.Equal(t, event.TypeCardDrawn, rec.Calls()[0].Envelope.Type)
	assert.Len(t, e.Hand(), 1)
}

func TestPublish_PendingThenCancel(t *testing.T) {
	pub := testutil.Always(testutil.Pend)
	var rec testutil.FailureRecorder
	e := newTestEngine(t, 1, WithPublisher(pub), WithPublishErrorHandler(rec.Record))
	addCards(t, e, "a")

	require.NoError(t, e.Draw(1))
	pub.CancelPending()

	require.Eventually(t, func() bool { return rec.Len() == 1 }, time.Second, time.Millisecond)
	assert.ErrorIs(t, rec.Calls()[0].Cause, context.Canceled)
}

func TestPublish_PendingThenSuccess(t *testing.T) {
	pub := testutil.Always(testutil.Pend)
	var rec testutil.FailureRecorder
	e := newTestEngine(t, 1, WithPublisher(pub), WithPublishErrorHandler(rec.Record))
	addCards(t, e, "a")

	require.NoError(t, e.Draw(1))
	pub.CompletePending()

	assert.Never(t, func() bool { return rec.Len() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestPublish_PendingKeepsHandlerFromPublishTime(t *testing.T) {
	pub := testutil.Always(testutil.Pend)
	var first, second testutil.FailureRecorder
	e := newTestEngine(t, 1, WithPublisher(pub), WithPublishErrorHandler(first.Record))
	addCards(t, e, "a")

	require.NoError(t, e.Draw(1))
	e.SetPublishErrorHandler(second.Record)
	pub.FaultPending(errors.New("late"))

	require.Eventually(t, func() bool { return first.Len() == 1 }, time.Second, time.Millisecond)
	assert.Zero(t, second.Len())
}

func TestPublish_NoHandlerStillReturnsError(t *testing.T) {
	e := newTestEngine(t, 1, WithPublisher(testutil.Always(testutil.Throw)))
	addCards(t, e, "a")
	assert.True(t, IsPublishError(e.Draw(1)))
}

func TestPublish_InMemoryBusSucceeds(t *testing.T) {
	bus := event.NewInMemoryBus()
	var got []event.Envelope
	bus.Subscribe(func(_ context.Context, env event.Envelope) error {
		got = append(got, env)
		return errors.New("subscriber failures stay inside the bus")
	})
	var rec testutil.FailureRecorder
	e := newTestEngine(t, 1, WithPublisher(bus), WithPublishErrorHandler(rec.Record))
	addCards(t, e, "a", "b")

	require.NoError(t, e.Draw(2))
	assert.Len(t, got, 2)
	assert.Zero(t, rec.Len())
}
