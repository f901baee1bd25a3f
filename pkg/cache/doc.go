// Package cache provides a generic [Cache] with in-memory and Redis backends
// and a [ReadThrough] front that deduplicates concurrent loads.
//
// TTL semantics for Set:
//   - Positive duration: item expires after this duration
//   - Zero: use the cache's configured default TTL (1 hour by default)
//   - Negative: item never expires
//
// A single engine instance can run on [NewMemory]; instances sharing a
// database should share a [NewRedis] cache so invalidations reach all of them:
//
//	rt := cache.NewReadThrough[Service](cache.NewRedis[Service](client, nil,
//		cache.WithPrefix("smtp_services"),
//	), time.Minute)
//
//	svc, err := rt.Get(ctx, id, func(ctx context.Context) (Service, error) {
//		return store.GetService(ctx, id)
//	})
//
//	_ = rt.Forget(ctx, id) // after the service changes
package cache
