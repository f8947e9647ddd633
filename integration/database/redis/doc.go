// Package redis provides Redis connectivity and the Redis-backed stores of the vault's
// authentication components.
//
// # Connecting
//
// Connect parses a redis:// or rediss:// URL, then pings the server with exponential backoff
// before returning the client. Healthcheck wraps a ping for readiness probes.
//
//	cfg := redis.Config{
//		ConnectionURL: "redis://localhost:6379/0",
//		RetryAttempts: 3,
//		RetryInterval: 5 * time.Second,
//	}
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// # Stores
//
// Every store takes a key prefix (Config.KeyPrefix) so several deployments can share a server.
//
//   - VerificationStore implements verification.Store. Codes live in hashes that expire with their
//     retention; Consume is a Lua compare-and-delete, so one code is accepted at most once even
//     when several nodes verify concurrently.
//   - SessionStore implements session.Store. Sessions are JSON documents keyed by token, with a
//     reverse index by session ID. Both keys carry the session TTL, so Redis expires them itself.
//   - RateLimitStore implements ratelimiter.Store with a Lua token bucket, sharing attempt budgets
//     (verification guesses, PIN failures, passwords) across nodes.
//
//	codes, err := verification.New(
//		redis.NewVerificationStore(client, cfg.KeyPrefix),
//		dispatcher,
//		verification.WithAttemptStore(redis.NewRateLimitStore(client, cfg.KeyPrefix)),
//	)
//
// # Errors
//
//   - ErrEmptyConnectionURL: no URL configured
//   - ErrFailedToParseRedisConnString: the URL is malformed or uses another scheme
//   - ErrRedisNotReady: the server did not answer within the retry budget
//   - ErrHealthcheckFailed: a probe ping failed
//   - ErrCorruptRecord: a stored value could not be decoded
package redis
