// Package health provides the liveness and readiness probe handlers.
//
//	mux := health.Handler(log, app.Healthcheck)
//	// GET /health/live  -> 200 ALIVE
//	// GET /health/ready -> 200 READY or 503 NOT READY
//
// Checks follow the func(context.Context) error signature returned by pg.Healthcheck and
// redis.Healthcheck.
package health
