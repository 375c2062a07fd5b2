package internal

// HandlerFunc is the signature for route handlers.
// It receives a Context and returns an error.
// Returning a non-nil error stops the chain and is handled by the router.
type HandlerFunc func(c Context) error

// Middleware wraps a HandlerFunc to add cross-cutting concerns.
// Middleware can inspect the request, short-circuit processing by not
// calling next, or act on the response after next returns.
//
// Example:
//
//	func Auth(next kamu.HandlerFunc) kamu.HandlerFunc {
//	    return func(c kamu.Context) error {
//	        if !c.Session().Has("user_id") {
//	            return c.Redirect(http.StatusFound, "/login")
//	        }
//	        return next(c)
//	    }
//	}
type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandler renders errors returned from the chain that the router does
// not handle itself.
type ErrorHandler func(Context, error) error

// Controller is a named bag of actions.
// Routes refer to its actions as "Name@method".
type Controller interface {
	Actions() map[string]HandlerFunc
}

// ControllerFunc adapts a plain action map to Controller.
type ControllerFunc func() map[string]HandlerFunc

func (f ControllerFunc) Actions() map[string]HandlerFunc { return f() }

// Chain wraps h with mws so that mws[0] is outermost.
func Chain(h HandlerFunc, mws ...Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
