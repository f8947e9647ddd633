package pushauth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/lifevault/core/autherr"
	"github.com/dmitrymomot/lifevault/core/pushauth"
	"github.com/dmitrymomot/lifevault/pkg/broadcast"
)

type recorder struct {
	mu     sync.Mutex
	events []pushauth.Event
	err    error
}

func (r *recorder) Notify(_ context.Context, ev pushauth.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil && ev.Kind == pushauth.EventRequested {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) kinds() []pushauth.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]pushauth.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func awaitAsync(ctx context.Context, ch *pushauth.Channel, id string) <-chan pushauth.Request {
	out := make(chan pushauth.Request, 1)
	go func() {
		req, _ := ch.Await(ctx, id)
		out <- req
	}()
	return out
}

func wait(t *testing.T, ch <-chan pushauth.Request) pushauth.Request {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("await did not resolve")
		return pushauth.Request{}
	}
}

func TestChannel_Approve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rec := &recorder{}
	ch := pushauth.New(rec)
	defer ch.Close()

	req, err := ch.Request(ctx, "A@x.com")
	require.NoError(t, err)
	assert.Equal(t, pushauth.StatusPending, req.Status)
	assert.Equal(t, "a@x.com", req.Email)

	pending, ok := ch.Pending(ctx, "a@x.com")
	require.True(t, ok)
	assert.Equal(t, req.ID, pending.ID)

	result := awaitAsync(ctx, ch, req.ID)
	require.NoError(t, ch.Approve(ctx, req.ID, "phone"))

	got := wait(t, result)
	assert.Equal(t, pushauth.StatusApproved, got.Status)
	assert.Equal(t, "phone", got.ApprovedBy)
	assert.NoError(t, got.Err())

	assert.ErrorIs(t, ch.Deny(ctx, req.ID), pushauth.ErrAlreadyResolved)
	assert.ErrorIs(t, ch.Cancel(ctx, req.ID), autherr.ErrInvalidState)

	_, ok = ch.Pending(ctx, "a@x.com")
	assert.False(t, ok)
	assert.Equal(t, []pushauth.EventKind{pushauth.EventRequested, pushauth.EventResolved}, rec.kinds())
}

func TestChannel_Deny(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := pushauth.New(&recorder{})
	defer ch.Close()

	req, err := ch.Request(ctx, "a@x.com")
	require.NoError(t, err)
	require.NoError(t, ch.Deny(ctx, req.ID))

	got, err := ch.Await(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, pushauth.StatusDenied, got.Status)
	assert.ErrorIs(t, got.Err(), pushauth.ErrDenied)
}

func TestChannel_CancelResolvesAwait(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := pushauth.New(&recorder{})
	defer ch.Close()

	req, err := ch.Request(ctx, "a@x.com")
	require.NoError(t, err)

	result := awaitAsync(ctx, ch, req.ID)
	require.NoError(t, ch.Cancel(ctx, req.ID))

	got := wait(t, result)
	assert.Equal(t, pushauth.StatusCancelled, got.Status)
	assert.ErrorIs(t, got.Err(), autherr.ErrCancelled)

	assert.ErrorIs(t, ch.Approve(ctx, req.ID, "phone"), pushauth.ErrAlreadyResolved, "cancelled request must never become approved")
}

func TestChannel_SecondRequestSupersedesFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := pushauth.New(&recorder{})
	defer ch.Close()

	first, err := ch.Request(ctx, "a@x.com")
	require.NoError(t, err)
	firstResult := awaitAsync(ctx, ch, first.ID)

	second, err := ch.Request(ctx, "a@x.com")
	require.NoError(t, err)

	got := wait(t, firstResult)
	assert.Equal(t, pushauth.StatusSuperseded, got.Status)
	assert.ErrorIs(t, got.Err(), autherr.ErrCancelled)

	pending, ok := ch.Pending(ctx, "a@x.com")
	require.True(t, ok)
	assert.Equal(t, second.ID, pending.ID)
}

func TestChannel_Timeout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := pushauth.New(&recorder{}, pushauth.WithConfig(pushauth.Config{Timeout: 30 * time.Millisecond}))
	defer ch.Close()

	req, err := ch.Request(ctx, "a@x.com")
	require.NoError(t, err)

	got, err := ch.Await(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, pushauth.StatusExpired, got.Status)
	assert.ErrorIs(t, got.Err(), autherr.ErrExpired)

	assert.ErrorIs(t, ch.Approve(ctx, req.ID, "phone"), autherr.ErrExpired)
}

func TestChannel_ApproveAfterDeadlineBeforeTimer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := pushauth.New(&recorder{}, pushauth.WithConfig(pushauth.Config{Timeout: time.Nanosecond}))
	defer ch.Close()

	req, err := ch.Request(ctx, "a@x.com")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	assert.ErrorIs(t, ch.Approve(ctx, req.ID, "phone"), autherr.ErrExpired)
	got, err := ch.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, pushauth.StatusExpired, got.Status)
}

func TestChannel_AwaitContext(t *testing.T) {
	t.Parallel()

	ch := pushauth.New(&recorder{})
	defer ch.Close()

	req, err := ch.Request(context.Background(), "a@x.com")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = ch.Await(ctx, req.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	got, err := ch.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, pushauth.StatusPending, got.Status)

	_, err = ch.Await(context.Background(), "missing")
	assert.ErrorIs(t, err, pushauth.ErrNotFound)
}

func TestChannel_NotifyFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := pushauth.New(&recorder{err: errors.New("push gateway down")})
	defer ch.Close()

	_, err := ch.Request(ctx, "a@x.com")
	assert.ErrorIs(t, err, autherr.ErrUnavailable)

	_, ok := ch.Pending(ctx, "a@x.com")
	assert.False(t, ok)

	_, err = ch.Request(ctx, " ")
	assert.ErrorIs(t, err, pushauth.ErrInvalidEmail)
}

func TestChannel_Close(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := pushauth.New(&recorder{})

	req, err := ch.Request(ctx, "a@x.com")
	require.NoError(t, err)
	result := awaitAsync(ctx, ch, req.ID)

	require.NoError(t, ch.Close())
	assert.Equal(t, pushauth.StatusCancelled, wait(t, result).Status)

	_, err = ch.Request(ctx, "a@x.com")
	assert.ErrorIs(t, err, pushauth.ErrClosed)
}

func TestBroadcastNotifier(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := broadcast.NewMemoryBroadcaster[pushauth.Event](8)
	defer b.Close()

	notifier := pushauth.NewBroadcastNotifier(b)
	device := notifier.Subscribe(ctx, "A@x.com")
	other := notifier.Subscribe(ctx, "b@x.com")

	ch := pushauth.New(notifier)
	defer ch.Close()

	req, err := ch.Request(ctx, "a@x.com")
	require.NoError(t, err)

	select {
	case msg := <-device.Receive(ctx):
		assert.Equal(t, pushauth.EventRequested, msg.Data.Kind)
		assert.Equal(t, req.ID, msg.Data.Request.ID)
	case <-time.After(time.Second):
		t.Fatal("device was not notified")
	}

	select {
	case <-other.Receive(ctx):
		t.Fatal("other account must not be notified")
	default:
	}
}
