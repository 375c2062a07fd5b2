// Package internal provides the core types and implementation for kamu.
//
// This package is internal and should not be used directly. Import "github.com/dmitrymomot/kamu"
// instead, which re-exports the public API.
//
// # Core Types
//
//   - Request: merged read model over query, form, JSON body, uploads and CGI-style server facts
//   - Table: route table builder with verbs, nested groups, a YAML route file loader and a cache codec
//   - Router: matches requests against an installed table and runs the resolved middleware chain
//   - Context: per-request handler surface, also a context.Context
//   - Gate: validate-or-flash protocol returning *ValidationError on failure
//   - HandlerFunc, Middleware, Controller: the units a route resolves to
//
// # Request Flow
//
//	raw request -> Request -> Router.Match -> middleware chain -> handler -> (Gate) -> response
//
// Global middleware wraps group middleware, which wraps route middleware.
// A middleware short-circuits by returning without calling next.
//
// # Building Routes
//
//	t := internal.NewTable()
//	t.GET("/", "Home@index").Name("home")
//	t.Group(internal.Group{Prefix: "/api", Middleware: []string{"auth"}, Controller: "Users"}, func(t *internal.Table) {
//	    t.GET("/users/{id}", "show")
//	    t.POST("/users", "store")
//	})
//
//	r := internal.NewRouter(
//	    internal.WithController("Home", home),
//	    internal.WithController("Users", users),
//	    internal.WithMiddlewareAlias("auth", requireUser),
//	)
//	if err := r.Load(t); err != nil {
//	    return err
//	}
//
// Registration order is match priority: the first route whose method and
// pattern match wins.
//
// # Validation
//
// Validation failure is a value, not a panic. Handlers return it as is:
//
//	func store(c internal.Context) error {
//	    in, err := c.Validate(map[string]string{"email": "required|email"})
//	    if err != nil {
//	        return err // *ValidationError: router redirects back
//	    }
//	    ...
//	}
//
// The router answers a *ValidationError with a 302 to the remembered
// previous route; the old input and errors are already flashed to the
// session and can be read once with Context.Old and Context.Errors.
//
// # Hot Reload
//
// Router.Load compiles a table into an immutable snapshot and swaps it in
// atomically. Reloader re-evaluates the route file on change; a failed
// reload keeps the live table.
package internal
