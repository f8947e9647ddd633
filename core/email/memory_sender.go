package email

import (
	"context"
	"slices"
	"sync"
)

// MemorySender records messages instead of sending them. Failures can be injected with FailWith.
type MemorySender struct {
	mu   sync.Mutex
	sent []SendEmailParams
	err  error
}

// NewMemorySender creates an empty MemorySender.
func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

func (m *MemorySender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, params)
	return nil
}

// FailWith makes every following send return err. Pass nil to recover.
func (m *MemorySender) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Sent returns a copy of the recorded messages.
func (m *MemorySender) Sent() []SendEmailParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sent)
}

// Last returns the most recent message.
func (m *MemorySender) Last() (SendEmailParams, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return SendEmailParams{}, false
	}
	return m.sent[len(m.sent)-1], true
}
