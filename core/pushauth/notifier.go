package pushauth

import (
	"context"

	"github.com/dmitrymomot/lifevault/core/account"
	"github.com/dmitrymomot/lifevault/pkg/broadcast"
)

// EventKind distinguishes request announcements from resolutions.
type EventKind string

const (
	EventRequested EventKind = "push_login.requested"
	EventResolved  EventKind = "push_login.resolved"
)

// Event is delivered to the account's devices.
type Event struct {
	Kind    EventKind
	Request Request
}

// Notifier announces push login events to the account's devices.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// BroadcastNotifier publishes events on a broadcaster using the normalised email as topic.
type BroadcastNotifier struct {
	b broadcast.Broadcaster[Event]
}

// NewBroadcastNotifier creates a notifier on top of b.
func NewBroadcastNotifier(b broadcast.Broadcaster[Event]) *BroadcastNotifier {
	return &BroadcastNotifier{b: b}
}

func (n *BroadcastNotifier) Notify(ctx context.Context, ev Event) error {
	return n.b.Broadcast(ctx, broadcast.Message[Event]{Topic: ev.Request.Email, Data: ev})
}

// Subscribe returns the event stream for one account email, as consumed by its trusted devices.
func (n *BroadcastNotifier) Subscribe(ctx context.Context, email string) broadcast.Subscriber[Event] {
	return n.b.SubscribeTopic(ctx, account.NormalizeEmail(email))
}
