// Package cache provides a thread-safe, generic LRU cache with an optional eviction callback.
//
//	c := cache.NewLRUCache[string, []byte](256)
//	c.SetEvictCallback(func(key string, secret []byte) {
//		clear(secret)
//	})
//
//	c.Put("entry:1", secret)
//	if v, ok := c.Get("entry:1"); ok {
//		use(v)
//	}
//
// The callback runs for capacity evictions, Remove and Clear, always outside the cache lock, so it
// may call back into the cache. Overwriting a key with Put does not trigger it.
package cache
