package login

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrymomot/lifevault/core/account"
	"github.com/dmitrymomot/lifevault/core/autherr"
)

// State is a step of the sign-in flow.
type State string

const (
	StateCollectingEmail     State = "collecting_email"
	StateCollectingPassword  State = "collecting_password"
	StateCheckingDeviceTrust State = "checking_device_trust"
	StateAwaitingCode        State = "awaiting_code"
	StateAwaitingPush        State = "awaiting_push"
	StateAuthenticated       State = "authenticated"
	StateFailed              State = "failed"
)

// Flow is one sign-in attempt from one device. It is safe for concurrent use; the Orchestrator
// is the only writer.
type Flow struct {
	mu sync.Mutex

	state         State
	deviceID      string
	email         string
	accountID     string
	hints         account.Hints
	registration  bool
	credential    *account.CredentialSession
	pushRequestID string
	reason        error
	session       *Session
}

// Snapshot is a read-only copy of a flow.
type Snapshot struct {
	State    State
	DeviceID string
	Email    string
	// Hints are cosmetic profile values preloaded once the email is recognised.
	Hints account.Hints
	// RegistrationRequired is set when the submitted email has no account.
	RegistrationRequired bool
	PushRequestID        string
	// Reason is the failure surfaced when State is StateFailed.
	Reason       error
	SessionToken string
}

// NewFlow starts a flow for deviceID at StateCollectingEmail.
func NewFlow(deviceID string) *Flow {
	return &Flow{state: StateCollectingEmail, deviceID: deviceID}
}

// State returns the current step.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Snapshot copies the flow for rendering.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := Snapshot{
		State:                f.state,
		DeviceID:             f.deviceID,
		Email:                f.email,
		Hints:                f.hints,
		RegistrationRequired: f.registration,
		PushRequestID:        f.pushRequestID,
		Reason:               f.reason,
	}
	if f.session != nil {
		s.SessionToken = f.session.Token
	}
	return s
}

// Session returns the session issued when the flow authenticated.
func (f *Flow) Session() (Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return Session{}, false
	}
	return *f.session, true
}

func (f *Flow) expectLocked(allowed ...State) error {
	if slices.Contains(allowed, f.state) {
		return nil
	}
	return fmt.Errorf("%w: flow is %s", autherr.ErrInvalidState, f.state)
}

func (f *Flow) recognizeLocked(acc account.Account) {
	f.email = acc.Email
	f.accountID = acc.ID
	f.hints = acc.Profile.Hints()
	f.registration = false
}

func (f *Flow) authenticateLocked(sess Session) {
	f.state = StateAuthenticated
	f.session = &sess
	f.pushRequestID = ""
	f.reason = nil
}

func (f *Flow) failLocked(reason error) {
	f.state = StateFailed
	f.reason = reason
	f.pushRequestID = ""
}

// resetLocked returns to the email step. The device and the recognised email survive so the
// caller can prefill the form.
func (f *Flow) resetLocked() {
	f.state = StateCollectingEmail
	f.credential = nil
	f.pushRequestID = ""
	f.session = nil
	f.registration = false
}
