// Package pushauth implements push-approval login requests.
//
// A request is created Pending for an email and announced to the account's other devices through
// a Notifier. It resolves exactly once:
//
//	Pending -> Approved | Denied | Expired | Cancelled | Superseded
//
// Expiry is driven by a server-side timer started at creation. Approving after the deadline is
// rejected with autherr.ErrExpired even if the timer has not fired yet. Only one request per email
// is pending at a time: a new request supersedes the old one, which wakes its waiters with
// StatusSuperseded. Resolved requests stay readable for the retention period so late Await calls
// still observe the outcome.
//
// Await blocks on the request's done channel, not on polling, and returns early when the caller's
// context is cancelled. A cancelled or superseded request never reports approval.
package pushauth
