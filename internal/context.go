package internal

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/dmitrymomot/kamu/pkg/htmx"
	"github.com/dmitrymomot/kamu/pkg/session"
	"github.com/dmitrymomot/kamu/pkg/validator"
)

// Context provides request/response access and helper methods.
// It also implements context.Context by delegating to the underlying request context.
type Context interface {
	context.Context

	// Request returns the underlying *http.Request.
	Request() *http.Request

	// SetRequest replaces the request, typically to attach context values.
	SetRequest(r *http.Request)

	// Response returns the underlying http.ResponseWriter.
	Response() http.ResponseWriter

	// ResponseWriter returns the wrapped writer, for before-write hooks.
	ResponseWriter() *ResponseWriter

	// Input returns the merged request values and server facts.
	Input() *Request

	// Router returns the router dispatching this request.
	Router() *Router

	// Route returns the matched route definition. Zero for unmatched requests.
	Route() RouteDef

	// Param returns the URL parameter value by name.
	// Returns empty string if the parameter doesn't exist.
	Param(name string) string

	// Params returns a copy of all URL parameters.
	Params() map[string]string

	// Header returns the request header value by name.
	Header(name string) string

	// SetHeader sets a response header.
	SetHeader(name, value string)

	// Session returns the session bound by the session middleware, or nil.
	Session() *session.Session

	// Validate runs rules over the named input fields. On success the
	// sanitized values are written back to Input and returned. On failure
	// the input and errors are flashed and a *ValidationError is returned;
	// the handler must return it unchanged.
	Validate(rules map[string]string) (*Values, error)

	// Throw fails validation manually. v is a validator.Validator (bound
	// once per request) or validator.Errors (merged into the bound one).
	// A non-nil result must be returned by the handler unchanged.
	Throw(v any) error

	// Old returns the flashed input of the previous failed validation.
	Old(field string) any

	// Errors returns the flashed errors of the previous failed validation.
	Errors() validator.Errors

	// JSON writes a JSON response with the given status code.
	JSON(code int, v any) error

	// String writes a plain text response with the given status code.
	String(code int, s string) error

	// NoContent writes a response with no body.
	NoContent(code int) error

	// Redirect redirects to the given URL with the given status code.
	// HTMX requests get HX-Redirect and a 200 instead.
	Redirect(code int, url string) error

	// Back redirects to the remembered previous route, or "/".
	Back() error

	// Written returns true if a response has already been written.
	Written() bool

	// Logger returns the logger for advanced usage.
	Logger() *slog.Logger

	// Set stores a value in the request context.
	// The value can be retrieved using Get or from the request context.
	Set(key any, value any)

	// Get retrieves a value from the request context.
	// Returns nil if the key is not found.
	Get(key any) any
}

// requestContext implements the Context interface.
type requestContext struct {
	request  *http.Request
	response *ResponseWriter
	input    *Request
	router   *Router
	gate     *Gate

	route  RouteDef
	params map[string]string

	flashLoaded bool
	flashOld    map[string]any
	flashErrors validator.Errors
}

// newContext creates a new context over the wrapped writer.
func newContext(w *ResponseWriter, r *http.Request, input *Request, router *Router) *requestContext {
	return &requestContext{
		request:  r,
		response: w,
		input:    input,
		router:   router,
		gate:     NewGate(router.validators),
	}
}

func (c *requestContext) Request() *http.Request {
	return c.request
}

func (c *requestContext) SetRequest(r *http.Request) {
	c.request = r
}

func (c *requestContext) Response() http.ResponseWriter {
	return c.response
}

func (c *requestContext) ResponseWriter() *ResponseWriter {
	return c.response
}

func (c *requestContext) Input() *Request {
	return c.input
}

func (c *requestContext) Router() *Router {
	return c.router
}

func (c *requestContext) Route() RouteDef {
	return c.route
}

func (c *requestContext) Param(name string) string {
	return c.params[name]
}

func (c *requestContext) Params() map[string]string {
	return maps.Clone(c.params)
}

func (c *requestContext) Deadline() (time.Time, bool) {
	return c.request.Context().Deadline()
}

func (c *requestContext) Done() <-chan struct{} {
	return c.request.Context().Done()
}

func (c *requestContext) Err() error {
	return c.request.Context().Err()
}

func (c *requestContext) Value(key any) any {
	return c.request.Context().Value(key)
}

func (c *requestContext) Header(name string) string {
	return c.request.Header.Get(name)
}

func (c *requestContext) SetHeader(name, value string) {
	c.response.Header().Set(name, value)
}

func (c *requestContext) Session() *session.Session {
	return session.FromContext(c.request.Context())
}

func (c *requestContext) Validate(rules map[string]string) (*Values, error) {
	return c.gate.Validate(c.input, c.Session(), rules)
}

func (c *requestContext) Throw(v any) error {
	return c.gate.Throw(c.input, c.Session(), v)
}

// loadFlash pulls the flashed state once so it is cleared after this request.
func (c *requestContext) loadFlash() {
	if c.flashLoaded {
		return
	}
	c.flashLoaded = true
	sess := c.Session()
	if sess == nil {
		return
	}
	if old, ok := sess.Pull(FlashOldKey, nil).(map[string]any); ok {
		c.flashOld = old
	}
	c.flashErrors = validator.FromAny(sess.Pull(FlashErrorKey, nil))
}

func (c *requestContext) Old(field string) any {
	c.loadFlash()
	return c.flashOld[field]
}

func (c *requestContext) Errors() validator.Errors {
	c.loadFlash()
	if c.flashErrors == nil {
		return validator.Errors{}
	}
	return c.flashErrors.Clone()
}

func (c *requestContext) JSON(code int, v any) error {
	c.response.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.response.WriteHeader(code)
	return json.NewEncoder(c.response).Encode(v)
}

func (c *requestContext) String(code int, s string) error {
	c.response.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.response.WriteHeader(code)
	_, err := c.response.Write([]byte(s))
	return err
}

func (c *requestContext) NoContent(code int) error {
	c.response.WriteHeader(code)
	return nil
}

func (c *requestContext) Redirect(code int, url string) error {
	htmx.RedirectWithStatus(c.response, c.request, url, code)
	return nil
}

func (c *requestContext) Back() error {
	return c.Redirect(http.StatusFound, previousRoute(c.Session()))
}

func (c *requestContext) Written() bool {
	return c.response.Written()
}

func (c *requestContext) Logger() *slog.Logger {
	return c.router.logger
}

func (c *requestContext) Set(key, value any) {
	c.request = c.request.WithContext(context.WithValue(c.request.Context(), key, value))
}

func (c *requestContext) Get(key any) any {
	return c.request.Context().Value(key)
}
