package login

import (
	"context"
	"errors"

	"github.com/dmitrymomot/lifevault/core/autherr"
	"github.com/dmitrymomot/lifevault/core/logger"
	"github.com/dmitrymomot/lifevault/core/pushauth"
)

// RequestPushLogin asks the account's signed-in devices to approve this flow. It skips the
// password step: it is accepted at CollectingEmail (email required) and CollectingPassword
// (email optional). Calling it again while AwaitingPush withdraws the outstanding request
// first, whichever email it was for.
func (o *Orchestrator) RequestPushLogin(ctx context.Context, f *Flow, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.expectLocked(StateCollectingEmail, StateCollectingPassword, StateAwaitingPush); err != nil {
		return err
	}

	if email == "" {
		email = f.email
	}
	acc, err := o.lookup(ctx, email)
	if err != nil {
		if errors.Is(err, autherr.ErrUnavailable) {
			return err
		}
		return autherr.ErrInvalidCredential
	}

	if f.state == StateAwaitingPush && f.pushRequestID != "" {
		if err := o.deps.Push.Cancel(ctx, f.pushRequestID); err != nil && !isSettled(err) {
			return err
		}
		f.resetLocked()
		f.reason = autherr.ErrCancelled
	}

	req, err := o.deps.Push.Request(ctx, acc.Email)
	if err != nil {
		return err
	}

	f.recognizeLocked(acc)
	f.pushRequestID = req.ID
	f.reason = nil
	f.state = StateAwaitingPush
	o.logger.InfoContext(ctx, "waiting for push approval",
		logger.AccountID(acc.ID),
		logger.PushRequestID(req.ID),
	)
	return nil
}

// AwaitPushLogin suspends until the outstanding push request is resolved or ctx is done.
//
// Approved authenticates the flow. Denied and Expired fail it with the reason. Cancelled and
// superseded requests return the flow to CollectingEmail. If the flow moved on while waiting
// (cancel, restart, a newer request) the outcome is autherr.ErrCancelled and the flow is left
// untouched. A ctx error leaves both the flow and the request pending.
func (o *Orchestrator) AwaitPushLogin(ctx context.Context, f *Flow) (pushauth.Request, error) {
	f.mu.Lock()
	if err := f.expectLocked(StateAwaitingPush); err != nil {
		f.mu.Unlock()
		return pushauth.Request{}, err
	}
	id := f.pushRequestID
	f.mu.Unlock()

	req, err := o.deps.Push.Await(ctx, id)
	if err != nil {
		return req, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateAwaitingPush || f.pushRequestID != id {
		// An approval that raced the withdrawal must not be reported as one.
		return pushauth.Request{ID: id, Email: req.Email, Status: pushauth.StatusCancelled}, autherr.ErrCancelled
	}

	switch req.Status {
	case pushauth.StatusApproved:
		if err := o.authenticateLocked(ctx, f, MethodPush); err != nil {
			f.failLocked(err)
			return req, err
		}
		return req, nil
	case pushauth.StatusCancelled, pushauth.StatusSuperseded:
		f.resetLocked()
		f.reason = req.Err()
		return req, req.Err()
	default:
		f.failLocked(req.Err())
		o.logger.InfoContext(ctx, "push login failed",
			logger.AccountID(f.accountID),
			logger.PushRequestID(id),
			logger.Result(string(req.Status)),
		)
		return req, req.Err()
	}
}

// CancelPushLogin withdraws the outstanding push request and returns the flow to CollectingEmail.
// A concurrent AwaitPushLogin resolves with autherr.ErrCancelled.
func (o *Orchestrator) CancelPushLogin(ctx context.Context, f *Flow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.expectLocked(StateAwaitingPush); err != nil {
		return err
	}

	if err := o.deps.Push.Cancel(ctx, f.pushRequestID); err != nil && !isSettled(err) {
		return err
	}
	f.resetLocked()
	f.reason = autherr.ErrCancelled
	return nil
}

// ApprovePushLogin approves a push request from a signed-in session of the same account.
func (o *Orchestrator) ApprovePushLogin(ctx context.Context, token, requestID string) error {
	sess, err := o.ownRequest(ctx, token, requestID)
	if err != nil {
		return err
	}
	return o.deps.Push.Approve(ctx, requestID, sess.DeviceID)
}

// DenyPushLogin rejects a push request from a signed-in session of the same account.
func (o *Orchestrator) DenyPushLogin(ctx context.Context, token, requestID string) error {
	if _, err := o.ownRequest(ctx, token, requestID); err != nil {
		return err
	}
	return o.deps.Push.Deny(ctx, requestID)
}

func (o *Orchestrator) ownRequest(ctx context.Context, token, requestID string) (Session, error) {
	sess, err := o.Session(ctx, token)
	if err != nil {
		return Session{}, err
	}
	req, err := o.deps.Push.Get(ctx, requestID)
	if err != nil {
		return Session{}, err
	}
	if req.Email != sess.Data.Email {
		o.logger.WarnContext(ctx, "push request resolution refused",
			logger.AccountID(sess.AccountID),
			logger.PushRequestID(requestID),
		)
		return Session{}, ErrForeignRequest
	}
	return sess, nil
}
