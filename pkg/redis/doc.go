// Package redis opens go-redis clients used by the session and route-cache
// stores, with connection retry and a healthcheck probe.
package redis
