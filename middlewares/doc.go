// Package middlewares provides HTTP middleware for kamu routers.
//
// Global middleware goes to kamu.WithMiddleware; route and group middleware
// is registered under an alias with kamu.WithMiddlewareAlias and named from
// the route file.
//
// # Recover
//
// Recover catches panics and returns a *PanicError, answered with a 500.
// Register it first so it wraps the whole chain:
//
//	r := kamu.New(
//	    kamu.WithMiddleware(
//	        middlewares.Recover(),
//	        middlewares.RequestID(),
//	        middlewares.AccessLog(),
//	    ),
//	)
//
// # Request ID
//
// RequestID keeps an upstream X-Request-ID or generates a uuid, stores it in
// the context and echoes it in the response. Use RequestIDExtractor with
// kamu.WithLogger to tag every log entry:
//
//	kamu.WithLogger("web", middlewares.RequestIDExtractor())
//
// # Sessions
//
// StartSession binds the request's session, which validation needs to
// flash old input and errors. RememberRoute records the last successful
// page so a failed validation redirects back to it:
//
//	mgr := session.NewManager(session.NewCacheStore(store))
//	kamu.WithMiddleware(middlewares.StartSession(mgr), middlewares.RememberRoute())
//
// # Script calls
//
// RequireAjax limits a route to XHR/JSON clients:
//
//	kamu.WithMiddlewareAlias("ajax", middlewares.RequireAjax())
package middlewares
