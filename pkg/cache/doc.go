// Package cache provides a small generic TTL cache with in-memory and Redis
// backends.
//
// kamu uses it as the persistence layer behind sessions and the shared
// compiled-route cache. Both backends satisfy [Cache], so a single process
// can run on [Memory] and a fleet can share a [Redis] instance:
//
//	sessions := cache.NewMemory[[]byte](cache.WithDefaultTTL(2 * time.Hour))
//	defer sessions.Close()
//
//	shared := cache.NewRedis[[]byte](client, cache.Raw(), cache.WithPrefix("kamu:routes"))
//
// TTL semantics for Set: positive expires after the duration, zero uses the
// backend default, negative never expires.
package cache
