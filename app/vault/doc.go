// Package vault assembles the sign-in and vault-unlock services into one application.
//
// NewApp reads Config from the environment (or takes it from WithConfig), opens the selected
// backends and wires the login orchestrator:
//
//	app, err := vault.NewApp(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer app.Close()
//
//	go func() { _ = app.Run(ctx) }()
//
//	orch := app.Orchestrator()
//	flow := orch.Start(deviceID)
//
// Account data lives in memory or Postgres (ACCOUNT_BACKEND). Codes, sessions and attempt
// counters live in memory or Redis (STATE_BACKEND). Verification mail goes through the dev
// file sender, SMTP or Postmark (MAIL_DRIVER).
//
// Run drives the background jobs (expired-session purge, in-memory rate-limit cleanup) under an
// errgroup and returns when the context is cancelled.
package vault
