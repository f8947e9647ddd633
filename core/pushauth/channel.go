package pushauth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/lifevault/core/account"
	"github.com/dmitrymomot/lifevault/core/autherr"
	"github.com/dmitrymomot/lifevault/core/logger"
)

// Config controls request lifetime.
type Config struct {
	Timeout   time.Duration `env:"PUSH_LOGIN_TIMEOUT" envDefault:"2m"`
	Retention time.Duration `env:"PUSH_LOGIN_RETENTION" envDefault:"5m"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{Timeout: 2 * time.Minute, Retention: 5 * time.Minute}
}

type entry struct {
	req   Request
	done  chan struct{}
	timer *time.Timer
}

// Channel owns the in-flight push login requests.
type Channel struct {
	mu       sync.Mutex
	requests map[string]*entry
	pending  map[string]string // email -> request id
	closed   bool

	notifier Notifier
	cfg      Config
	logger   *slog.Logger
}

// Option configures a Channel.
type Option func(*Channel)

// WithConfig sets timeout and retention. Non-positive values keep the defaults.
func WithConfig(cfg Config) Option {
	return func(c *Channel) {
		if cfg.Timeout > 0 {
			c.cfg.Timeout = cfg.Timeout
		}
		if cfg.Retention > 0 {
			c.cfg.Retention = cfg.Retention
		}
	}
}

// WithLogger sets the channel logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Channel that announces requests through notifier.
func New(notifier Notifier, opts ...Option) *Channel {
	c := &Channel{
		requests: make(map[string]*entry),
		pending:  make(map[string]string),
		notifier: notifier,
		cfg:      DefaultConfig(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("pushauth"))
	return c
}

// Request creates a pending request for email, superseding any pending one, and notifies the
// account's devices. A notification failure cancels the new request.
func (c *Channel) Request(ctx context.Context, email string) (Request, error) {
	email = account.NormalizeEmail(email)
	if email == "" {
		return Request{}, ErrInvalidEmail
	}

	now := time.Now()
	e := &entry{
		req: Request{
			ID:        uuid.NewString(),
			Email:     email,
			Status:    StatusPending,
			CreatedAt: now,
			ExpiresAt: now.Add(c.cfg.Timeout),
		},
		done: make(chan struct{}),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Request{}, ErrClosed
	}
	var superseded *Request
	if prevID, ok := c.pending[email]; ok {
		if prev := c.requests[prevID]; prev != nil && c.resolveLocked(prev, StatusSuperseded, "") {
			snap := prev.req
			superseded = &snap
		}
	}
	c.requests[e.req.ID] = e
	c.pending[email] = e.req.ID
	id := e.req.ID
	e.timer = time.AfterFunc(c.cfg.Timeout, func() { c.expire(id) })
	req := e.req
	c.mu.Unlock()

	if superseded != nil {
		c.announce(ctx, EventResolved, *superseded)
	}

	if err := c.notifier.Notify(ctx, Event{Kind: EventRequested, Request: req}); err != nil {
		c.mu.Lock()
		c.resolveLocked(e, StatusCancelled, "")
		c.mu.Unlock()
		c.logger.WarnContext(ctx, "push login notification failed", logger.Email(email), logger.Error(err))
		return Request{}, autherr.Unavailable(err)
	}

	c.logger.InfoContext(ctx, "push login requested", logger.Email(email), logger.PushRequestID(id))
	return req, nil
}

// Await blocks until the request reaches a terminal state or ctx is done.
// A ctx error leaves the request untouched; use Cancel to abandon it.
func (c *Channel) Await(ctx context.Context, id string) (Request, error) {
	c.mu.Lock()
	e, ok := c.requests[id]
	c.mu.Unlock()
	if !ok {
		return Request{}, ErrNotFound
	}

	select {
	case <-e.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return e.req, nil
	case <-ctx.Done():
		return Request{}, ctx.Err()
	}
}

// Get returns the current snapshot of a request.
func (c *Channel) Get(_ context.Context, id string) (Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return e.req, nil
}

// Pending returns the pending request for email, if any.
func (c *Channel) Pending(_ context.Context, email string) (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.pending[account.NormalizeEmail(email)]
	if !ok {
		return Request{}, false
	}
	return c.requests[id].req, true
}

// Cancel abandons a pending request on behalf of the requester.
func (c *Channel) Cancel(ctx context.Context, id string) error {
	return c.transition(ctx, id, StatusCancelled, "")
}

// Approve resolves a pending request as approved by deviceID. Approval after the deadline fails
// with autherr.ErrExpired and expires the request.
func (c *Channel) Approve(ctx context.Context, id, deviceID string) error {
	return c.transition(ctx, id, StatusApproved, deviceID)
}

// Deny resolves a pending request as denied.
func (c *Channel) Deny(ctx context.Context, id string) error {
	return c.transition(ctx, id, StatusDenied, "")
}

// Close cancels every pending request and stops all timers.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, e := range c.requests {
		c.resolveLocked(e, StatusCancelled, "")
		e.timer.Stop()
	}
	return nil
}

func (c *Channel) transition(ctx context.Context, id string, to Status, deviceID string) error {
	c.mu.Lock()
	e, ok := c.requests[id]
	if !ok {
		c.mu.Unlock()
		return ErrNotFound
	}

	switch {
	case e.req.Status == StatusExpired:
		c.mu.Unlock()
		return autherr.ErrExpired
	case e.req.Status.Terminal():
		c.mu.Unlock()
		return ErrAlreadyResolved
	case to == StatusApproved && !time.Now().Before(e.req.ExpiresAt):
		c.resolveLocked(e, StatusExpired, "")
		snap := e.req
		c.mu.Unlock()
		c.announce(ctx, EventResolved, snap)
		return autherr.ErrExpired
	}

	c.resolveLocked(e, to, deviceID)
	snap := e.req
	c.mu.Unlock()

	c.announce(ctx, EventResolved, snap)
	c.logger.InfoContext(ctx, "push login resolved",
		logger.PushRequestID(id),
		logger.Result(string(to)),
	)
	return nil
}

func (c *Channel) expire(id string) {
	c.mu.Lock()
	e, ok := c.requests[id]
	if !ok || !c.resolveLocked(e, StatusExpired, "") {
		c.mu.Unlock()
		return
	}
	snap := e.req
	c.mu.Unlock()

	c.announce(context.Background(), EventResolved, snap)
}

// resolveLocked moves a pending entry to status and schedules its removal.
// It reports false when the entry was already terminal.
func (c *Channel) resolveLocked(e *entry, status Status, deviceID string) bool {
	if e.req.Status != StatusPending {
		return false
	}
	e.req.Status = status
	e.req.ResolvedAt = time.Now()
	e.req.ApprovedBy = deviceID
	if e.timer != nil {
		e.timer.Stop()
	}
	if c.pending[e.req.Email] == e.req.ID {
		delete(c.pending, e.req.Email)
	}
	close(e.done)

	id := e.req.ID
	time.AfterFunc(c.cfg.Retention, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.requests, id)
	})
	return true
}

func (c *Channel) announce(ctx context.Context, kind EventKind, req Request) {
	if err := c.notifier.Notify(context.WithoutCancel(ctx), Event{Kind: kind, Request: req}); err != nil {
		c.logger.WarnContext(ctx, "push login event not delivered",
			logger.PushRequestID(req.ID),
			logger.Error(err),
		)
	}
}
