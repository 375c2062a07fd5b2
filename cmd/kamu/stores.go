package main

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/kamu"
	"github.com/dmitrymomot/kamu/pkg/cache"
	"github.com/dmitrymomot/kamu/pkg/health"
	"github.com/dmitrymomot/kamu/pkg/redis"
)

const (
	sessionPrefix = "kamu:session"
	routesPrefix  = "kamu"
	routesKey     = "routes"
)

// stores holds the backing caches. Without a Redis URL sessions live in
// process memory and the route table is not shared.
type stores struct {
	client   goredis.UniversalClient
	sessions cache.Cache[[]byte]
	routes   *kamu.RouteCacheStore
	checks   health.Checks
}

func openStores(ctx context.Context, cfg Config) (*stores, error) {
	s := &stores{checks: health.Checks{}}

	if cfg.RedisURL == "" {
		s.sessions = cache.NewMemory[[]byte](cache.WithCleanupInterval(time.Minute))
		return s, nil
	}

	client, err := redis.Open(ctx, cfg.RedisURL, redis.WithRetry(3, time.Second))
	if err != nil {
		return nil, err
	}
	s.client = client
	s.sessions = cache.NewRedis(client, cache.Raw(), cache.WithPrefix(sessionPrefix))
	s.routes = kamu.NewRouteCacheStore(cache.NewRedis(client, cache.Raw(), cache.WithPrefix(routesPrefix)), routesKey, -1)
	s.checks["redis"] = redis.Healthcheck(client)
	return s, nil
}

// Close releases the session cache and the Redis connection.
func (s *stores) Close(context.Context) error {
	var errs []error
	if s.sessions != nil {
		errs = append(errs, s.sessions.Close())
	}
	if s.client != nil {
		errs = append(errs, s.client.Close())
	}
	return errors.Join(errs...)
}
