// Package kamu is a controller router for Go web applications: routes are
// declared as data, resolved against registered controllers and middleware
// aliases, and dispatched with a validate-or-redirect request gate.
//
// Routes refer to actions by name ("Users@show"), so a table can live in a
// YAML file, be compiled into a cache for fast startup, be shared between
// instances through Redis, and be reloaded at runtime without dropping
// in-flight requests.
//
// # Quick Start
//
// Register what routes may refer to, load a table and serve it:
//
//	r := kamu.New(
//	    kamu.WithMiddleware(middlewares.Recover(), middlewares.RequestID()),
//	    kamu.WithController("Users", users),
//	    kamu.WithMiddlewareAlias("auth", requireUser),
//	)
//
//	t := kamu.NewTable()
//	t.GET("/", "Home@index").Name("home")
//	t.Group(kamu.Group{Prefix: "/account", Middleware: []string{"auth"}, Controller: "Users"}, func(t *kamu.Table) {
//	    t.GET("/{id}", "show").Name("users.show")
//	    t.POST("/", "store")
//	})
//	if err := r.Load(t); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := kamu.Run(ctx, r, kamu.Address(":8080")); err != nil {
//	    log.Fatal(err)
//	}
//
// Load resolves every action and middleware name up front and swaps the
// whole table atomically. A failed Load keeps the table being served.
//
// # Route Files
//
// The same table as YAML:
//
//	routes:
//	  - get: /
//	    action: Home@index
//	    name: home
//	  - prefix: /account
//	    middleware: [auth]
//	    controller: Users
//	    routes:
//	      - get: /{id}
//	        action: show
//	        name: users.show
//	      - post: /
//	        action: store
//
// LoadRoutes reads a fresh compiled cache when there is one and falls back
// to the route file otherwise. NewReloader watches the file and reinstalls
// the table on change.
//
// # Middleware
//
// Global middleware wraps group middleware, which wraps route middleware.
// A middleware short-circuits by returning without calling next:
//
//	func requireUser(next kamu.HandlerFunc) kamu.HandlerFunc {
//	    return func(c kamu.Context) error {
//	        if kamu.ContextValue[*User](c, userKey{}) == nil {
//	            return kamu.NewHTTPError(http.StatusUnauthorized, "sign in first")
//	        }
//	        return next(c)
//	    }
//	}
//
// # Validation
//
// Context.Validate checks the merged request input against field rules.
// On failure the input and messages are flashed to the session and the
// router answers with a redirect to the previous page:
//
//	func (u *Users) store(c kamu.Context) error {
//	    vals, err := c.Validate(map[string]string{"email": "required|email"})
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	}
//
// The form page reads the flash back once with Context.Old and
// Context.Errors. Validation needs middlewares.StartSession in the chain;
// middlewares.RememberRoute records the page to return to.
package kamu
