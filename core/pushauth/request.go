package pushauth

import (
	"time"

	"github.com/dmitrymomot/lifevault/core/autherr"
)

// Status is the lifecycle state of a push login request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusDenied     Status = "denied"
	StatusExpired    Status = "expired"
	StatusCancelled  Status = "cancelled"
	StatusSuperseded Status = "superseded"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s != StatusPending && s != ""
}

// Request is a snapshot of a push login request.
type Request struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	ResolvedAt time.Time `json:"resolved_at,omitzero"`
	// ApprovedBy is the device that approved the request, if any.
	ApprovedBy string `json:"approved_by,omitempty"`
}

// Err maps the outcome to the error taxonomy. Approved maps to nil.
func (r Request) Err() error {
	switch r.Status {
	case StatusApproved:
		return nil
	case StatusDenied:
		return ErrDenied
	case StatusExpired:
		return autherr.ErrExpired
	case StatusCancelled, StatusSuperseded:
		return autherr.ErrCancelled
	default:
		return autherr.ErrInvalidState
	}
}
