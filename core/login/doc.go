// Package login drives the multi-step sign-in of a vault account.
//
// A Flow is the per-attempt state value. The Orchestrator moves it through
//
//	CollectingEmail -> CollectingPassword -> CheckingDeviceTrust -> AwaitingCode -> Authenticated
//
// or, skipping the password, through AwaitingPush when the user approves the sign-in from a device
// that is already signed in. Failed is reachable from any step and Restart returns the flow to
// CollectingEmail.
//
// Every step is triggered by one caller request. The only suspension point is AwaitPushLogin, which
// waits on the push channel without holding the flow lock, so CancelPushLogin and Restart can run
// while it is blocked. A wait that resumes after its request was cancelled or replaced reports
// autherr.ErrCancelled and never authenticates the flow.
//
// Authenticated flows carry an explicit session token issued by session.Manager. Post-login
// operations (vault PIN, authenticator codes, device list, push approval, logout) take that token
// instead of reading ambient state:
//
//	f := o.Start(deviceID)
//	if err := o.SubmitEmail(ctx, f, email); err != nil { ... }
//	if err := o.BeginPasswordLogin(ctx, f, password); err != nil { ... }
//	if err := o.CheckDeviceTrust(ctx, f); err != nil { ... }
//	if f.State() == login.StateAwaitingCode {
//		err = o.VerifyLoginCode(ctx, f, code)
//	}
//	token := f.Snapshot().SessionToken
package login
