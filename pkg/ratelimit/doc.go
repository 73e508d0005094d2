// Package ratelimit throttles requests with a token bucket.
//
// A Bucket consumes tokens from a Store keyed by caller. MemoryStore keeps
// buckets in process; RedisStore runs the refill-and-consume step as a Lua
// script so every replica shares the same budget. Middleware applies a
// Bucket to an http.Handler and reports the standard X-RateLimit-* headers.
//
//	limiter, err := ratelimit.NewBucket(ratelimit.NewRedisStore(rdb, "socialauth:"), cfg)
//	if err != nil {
//		return err
//	}
//	r.Use(ratelimit.Middleware(limiter, ratelimit.ByIP, log))
package ratelimit
