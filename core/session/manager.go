package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

// Manager handles session lifecycle including creation, retrieval, and expiration.
type Manager[Data any] struct {
	store  Store[Data]
	cfg    Config
	logger *slog.Logger
}

// NewManager creates a session manager backed by store.
func NewManager[Data any](store Store[Data], opts ...Option) *Manager[Data] {
	s := settings{
		cfg:    defaultConfig(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&s)
	}

	return &Manager[Data]{
		store:  store,
		cfg:    s.cfg,
		logger: s.logger,
	}
}

// Issue creates and persists a new session for the account.
func (m *Manager[Data]) Issue(ctx context.Context, accountID, deviceID string, data Data) (Session[Data], error) {
	sess, err := New(accountID, deviceID, data, m.cfg.TTL)
	if err != nil {
		return Session[Data]{}, err
	}

	if err := m.store.Save(ctx, &sess); err != nil {
		return Session[Data]{}, errors.Join(ErrSaveSession, err)
	}

	return sess, nil
}

// GetByToken retrieves a session by token and validates expiration.
func (m *Manager[Data]) GetByToken(ctx context.Context, token string) (Session[Data], error) {
	if token == "" {
		return Session[Data]{}, ErrNotFound
	}

	session, err := m.store.GetByToken(ctx, token)
	if err != nil {
		return Session[Data]{}, err
	}

	if session.IsDeleted() {
		return Session[Data]{}, ErrNotFound
	}
	if session.IsExpired() {
		return Session[Data]{}, ErrExpired
	}

	return *session, nil
}

// Save handles session persistence based on session state.
// Deleted sessions are removed from the store; live sessions are touched and written when modified.
// Writing a session that was revoked in the meantime fails with ErrNotFound.
func (m *Manager[Data]) Save(ctx context.Context, sess Session[Data]) error {
	if sess.IsDeleted() {
		if err := m.store.Delete(ctx, sess.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return errors.Join(ErrDeleteSession, err)
		}
		return nil
	}

	sess.Touch(m.cfg.TTL, m.cfg.TouchInterval)

	if sess.IsModified() {
		if err := m.store.Update(ctx, &sess); err != nil {
			return errors.Join(ErrSaveSession, err)
		}
	}

	return nil
}

// Revoke deletes the session identified by token. Unknown tokens are not an error.
func (m *Manager[Data]) Revoke(ctx context.Context, token string) error {
	sess, err := m.store.GetByToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Join(ErrDeleteSession, err)
	}

	if err := m.store.Delete(ctx, sess.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return errors.Join(ErrDeleteSession, err)
	}
	return nil
}

// CleanupExpired removes all expired sessions from the store.
func (m *Manager[Data]) CleanupExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx)
}

// Run purges expired sessions every cleanup interval until ctx is cancelled.
// Designed for errgroup: cancellation returns nil.
func (m *Manager[Data]) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := m.CleanupExpired(ctx)
			if err != nil {
				m.logger.WarnContext(ctx, "session cleanup failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				m.logger.DebugContext(ctx, "expired sessions removed", slog.Int64("count", n))
			}
		}
	}
}

// TTL returns the session time-to-live duration.
func (m *Manager[Data]) TTL() time.Duration {
	return m.cfg.TTL
}
