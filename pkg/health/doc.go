// Package health serves liveness and readiness probes for the kamu server.
//
// Handler mounts both probes on a chi sub-router:
//
//	mux.Mount("/health", health.Handler(health.Checks{
//	    "redis":  redis.Healthcheck(client),
//	    "routes": routesLoaded,
//	}, health.WithTimeout(2*time.Second)))
//
// Probes answer plain "OK" / "Service Unavailable" unless the client asks
// for JSON (Accept: application/json or ?format=json), in which case every
// check is reported with its status, error and duration.
package health
