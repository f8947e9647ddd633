// Package ratelimiter provides token bucket rate limiting with pluggable storage backends.
//
// The authentication services use it as an attempt budget: wrong codes, wrong PINs and wrong
// passwords each consume a token, and once the bucket runs dry further attempts are refused until
// it refills.
//
// # Usage
//
//	store := ratelimiter.NewMemoryStore()
//
//	// 5 attempts, one regained every 3 minutes
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       5,
//		RefillRate:     1,
//		RefillInterval: 3 * time.Minute,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := limiter.Allow(ctx, "pin:"+accountID)
//	if err != nil {
//		return err
//	}
//	if !result.Allowed() {
//		return fmt.Errorf("locked, retry after %s", result.RetryAfter())
//	}
//
// # Storage Backends
//
// MemoryStore keeps buckets in process memory and removes stale buckets in a background loop
// started with Start or Run. The redis integration package provides a Store shared across
// instances.
//
// # Error Handling
//
//   - ErrInvalidConfig: invalid bucket parameters
//   - ErrInvalidTokenCount: non-positive token count
//   - ErrStoreUnavailable: the backing store failed; callers should fail closed
package ratelimiter
