package kamu

import (
	"context"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/kamu/internal"
	"github.com/dmitrymomot/kamu/pkg/cache"
	"github.com/dmitrymomot/kamu/pkg/logger"
	"github.com/dmitrymomot/kamu/pkg/session"
	"github.com/dmitrymomot/kamu/pkg/validator"
)

// Type aliases - public API
type (
	// Router matches requests against the installed route table and runs
	// the resolved middleware chain.
	Router = internal.Router

	// Table builds route definitions: verbs, nested groups, the YAML route
	// file and the compiled cache.
	Table = internal.Table

	// Group is the prefix, middleware and controller shared by nested routes.
	Group = internal.Group

	// Route is the handle returned when a route is added.
	Route = internal.Route

	// RouteDef is one route definition.
	RouteDef = internal.RouteDef

	// Action names what a route dispatches to.
	Action = internal.Action

	// MatchedRoute is the result of a successful match.
	MatchedRoute = internal.MatchedRoute

	// Context provides request/response access and helper methods.
	Context = internal.Context

	// Request is the merged read model of one incoming request.
	Request = internal.Request

	// Values is an insertion-ordered map of input values.
	Values = internal.Values

	// HandlerFunc is the signature for route handlers.
	HandlerFunc = internal.HandlerFunc

	// Middleware wraps a HandlerFunc to add cross-cutting concerns.
	Middleware = internal.Middleware

	// ErrorHandler handles errors returned from handlers.
	ErrorHandler = internal.ErrorHandler

	// Controller exposes named actions.
	Controller = internal.Controller

	// ControllerFunc adapts an action map to Controller.
	ControllerFunc = internal.ControllerFunc

	// Option configures the router.
	Option = internal.Option

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// RequestOption configures NewRequest.
	RequestOption = internal.RequestOption

	// CacheOption configures route cache reads.
	CacheOption = internal.CacheOption

	// RouteCacheStore shares a compiled table through a byte cache.
	RouteCacheStore = internal.RouteCacheStore

	// Reloader rebuilds the table when the route file changes.
	Reloader = internal.Reloader

	// ReloaderOption configures a Reloader.
	ReloaderOption = internal.ReloaderOption

	// Metrics holds the router's Prometheus collectors.
	Metrics = internal.Metrics

	// Gate runs validation for one request.
	Gate = internal.Gate

	// ValidationError is returned by a failed Validate or Throw.
	ValidationError = internal.ValidationError

	// ValidationErrors is the failure messages per field.
	ValidationErrors = validator.Errors

	// HTTPError is an error with an HTTP status code.
	HTTPError = internal.HTTPError

	// IPSource yields a client IP candidate.
	IPSource = internal.IPSource

	// AjaxInfo describes an XHR/JSON client.
	AjaxInfo = internal.AjaxInfo

	// Extractor tries sources in order and returns the first value found.
	Extractor = internal.Extractor

	// ExtractorSource extracts a value from a request.
	ExtractorSource = internal.ExtractorSource

	// ResponseWriter wraps http.ResponseWriter with before-write hooks.
	ResponseWriter = internal.ResponseWriter

	// ContextExtractor extracts a slog attribute from context.
	// Used with WithLogger to add request-scoped values to logs.
	ContextExtractor = logger.ContextExtractor

	// Session represents a user session.
	Session = session.Session

	// SessionStore defines the interface for session persistence.
	SessionStore = session.Store
)

// Session keys used by validation.
const (
	FlashOldKey      = internal.FlashOldKey
	FlashErrorKey    = internal.FlashErrorKey
	PreviousRouteKey = internal.PreviousRouteKey
)

// Reload outcomes as recorded by Metrics.
const (
	ReloadSuccess = internal.ReloadSuccess
	ReloadError   = internal.ReloadError
)

// Errors
var (
	ErrNotJSONObject = internal.ErrNotJSONObject
	ErrBodyTooLarge  = internal.ErrBodyTooLarge
	ErrBodyRead      = internal.ErrBodyRead

	ErrRouteNotFound     = internal.ErrRouteNotFound
	ErrDuplicateRoute    = internal.ErrDuplicateRoute
	ErrNoGroup           = internal.ErrNoGroup
	ErrInvalidPattern    = internal.ErrInvalidPattern
	ErrInvalidMethod     = internal.ErrInvalidMethod
	ErrUnknownAction     = internal.ErrUnknownAction
	ErrUnknownMiddleware = internal.ErrUnknownMiddleware
	ErrUncacheableAction = internal.ErrUncacheableAction
	ErrUnknownRouteName  = internal.ErrUnknownRouteName
	ErrMissingParam      = internal.ErrMissingParam
	ErrInvalidRouteFile  = internal.ErrInvalidRouteFile

	ErrCacheMissing = internal.ErrCacheMissing
	ErrCacheStale   = internal.ErrCacheStale
	ErrCacheCorrupt = internal.ErrCacheCorrupt

	ErrValidatorBound = internal.ErrValidatorBound
	ErrNoSession      = internal.ErrNoSession
	ErrThrowType      = internal.ErrThrowType
)

// Constructors

// New creates a router with no routes. Load a table to start serving.
//
// Example:
//
//	r := kamu.New(
//	    kamu.WithLogger("web", requestIDExtractor),
//	    kamu.WithMiddleware(middlewares.Recover(), middlewares.RequestID()),
//	    kamu.WithController("Users", users),
//	    kamu.WithMiddlewareAlias("auth", requireUser),
//	)
//
//	t := kamu.NewTable()
//	if err := t.LoadFile("routes.yaml"); err != nil {
//	    return err
//	}
//	if err := r.Load(t); err != nil {
//	    return err
//	}
func New(opts ...Option) *Router {
	return internal.NewRouter(opts...)
}

// NewTable creates an empty route table.
func NewTable() *Table {
	return internal.NewTable()
}

// NewRequest builds the merged request model from raw parts. Precedence is
// query < form < JSON body < uploaded files.
func NewRequest(rawQuery string, rawBody []byte, files map[string][]*multipart.FileHeader, server map[string]string, opts ...RequestOption) *Request {
	return internal.NewRequest(rawQuery, rawBody, files, server, opts...)
}

// NewRequestFromHTTP builds the request model from an *http.Request.
func NewRequestFromHTTP(r *http.Request, maxBody, maxMemory int64, opts ...RequestOption) (*Request, error) {
	return internal.NewRequestFromHTTP(r, maxBody, maxMemory, opts...)
}

// ServerMeta renders transport facts with CGI naming.
func ServerMeta(r *http.Request) map[string]string {
	return internal.ServerMeta(r)
}

// NewValues creates an empty ordered value map.
func NewValues() *Values {
	return internal.NewValues()
}

// WithFormValues supplies decoded form fields to NewRequest.
func WithFormValues(form *Values) RequestOption {
	return internal.WithFormValues(form)
}

// WithIPSources overrides the client IP policy of a Request.
func WithIPSources(sources ...IPSource) RequestOption {
	return internal.WithIPSources(sources...)
}

// DefaultIPSources returns the default client IP policy.
func DefaultIPSources() []IPSource {
	return internal.DefaultIPSources()
}

// FromServerKey reads a client IP candidate from a server fact.
func FromServerKey(key string) IPSource {
	return internal.FromServerKey(key)
}

// FromForwardedList reads the first non-empty entry of a comma list.
func FromForwardedList(key string) IPSource {
	return internal.FromForwardedList(key)
}

// NewGate returns a validation gate using factory.
func NewGate(factory validator.Factory) *Gate {
	return internal.NewGate(factory)
}

// NewHTTPError creates an error carrying an HTTP status.
func NewHTTPError(code int, message string) *HTTPError {
	return internal.NewHTTPError(code, message)
}

// AsValidationError extracts a *ValidationError from err.
func AsValidationError(err error) *ValidationError {
	return internal.AsValidationError(err)
}

// AsHTTPError extracts an *HTTPError from err.
func AsHTTPError(err error) *HTTPError {
	return internal.AsHTTPError(err)
}

// StatusFor returns the status the router answers err with.
func StatusFor(err error) int {
	return internal.StatusFor(err)
}

// Chain wraps h with mws so that mws[0] is outermost.
func Chain(h HandlerFunc, mws ...Middleware) HandlerFunc {
	return internal.Chain(h, mws...)
}

// ParseAction parses "Controller@method", "Controller#method" or a handler name.
func ParseAction(s string) Action {
	return internal.ParseAction(s)
}

// FuncAction wraps a handler closure. Closures cannot be cached.
func FuncAction(fn HandlerFunc) Action {
	return internal.FuncAction(fn)
}

// Router options

// WithMiddleware adds global middleware, applied to every route and to the
// not-found handler. Middleware is applied in the order provided.
func WithMiddleware(mw ...Middleware) Option {
	return internal.WithMiddleware(mw...)
}

// WithMiddlewareAlias names a middleware stack for route and group use.
func WithMiddlewareAlias(name string, mw ...Middleware) Option {
	return internal.WithMiddlewareAlias(name, mw...)
}

// WithController registers a controller under name.
func WithController(name string, c Controller) Option {
	return internal.WithController(name, c)
}

// WithHandler registers a named handler.
func WithHandler(name string, h HandlerFunc) Option {
	return internal.WithHandler(name, h)
}

// WithErrorHandler sets a custom error handler for handler errors.
func WithErrorHandler(h ErrorHandler) Option {
	return internal.WithErrorHandler(h)
}

// WithNotFoundHandler sets a custom 404 handler.
func WithNotFoundHandler(h HandlerFunc) Option {
	return internal.WithNotFoundHandler(h)
}

// WithLogger creates a logger with a component name and optional extractors.
//
// Example:
//
//	kamu.New(
//	    kamu.WithLogger("web", requestIDExtractor, userIDExtractor),
//	)
func WithLogger(component string, extractors ...ContextExtractor) Option {
	return internal.WithLogger(component, extractors...)
}

// WithCustomLogger sets a fully custom logger.
func WithCustomLogger(l *slog.Logger) Option {
	return internal.WithCustomLogger(l)
}

// WithStrictRoutes makes Load reject shadowed patterns and duplicate names.
func WithStrictRoutes() Option {
	return internal.WithStrictRoutes()
}

// WithMaxBodySize limits request bodies. Larger bodies answer 413.
func WithMaxBodySize(n int64) Option {
	return internal.WithMaxBodySize(n)
}

// WithMaxFormMemory sets the in-memory share of multipart uploads.
func WithMaxFormMemory(n int64) Option {
	return internal.WithMaxFormMemory(n)
}

// WithClientIPSources overrides the client IP policy.
func WithClientIPSources(sources ...IPSource) Option {
	return internal.WithClientIPSources(sources...)
}

// WithValidatorFactory replaces the validation engine.
func WithValidatorFactory(f validator.Factory) Option {
	return internal.WithValidatorFactory(f)
}

// WithMetrics records request, reload and validation metrics.
func WithMetrics(m *Metrics) Option {
	return internal.WithMetrics(m)
}

// WithTracerProvider enables request spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return internal.WithTracerProvider(tp)
}

// NewMetrics registers the router collectors on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	return internal.NewMetrics(reg, namespace)
}

// Route cache

// LoadRoutes fills t from a fresh cache or else from the route file.
// It reports whether the cache was used.
func LoadRoutes(t *Table, routesPath, cachePath string) (bool, error) {
	return internal.LoadRoutes(t, routesPath, cachePath)
}

// ClearCache removes a compiled route cache.
func ClearCache(path string) error {
	return internal.ClearCache(path)
}

// FileChecksum returns the checksum recorded for a route file.
func FileChecksum(path string) (string, error) {
	return internal.FileChecksum(path)
}

// WithSourceFile rejects a cache that is stale relative to the route file.
func WithSourceFile(path string) CacheOption {
	return internal.WithSourceFile(path)
}

// WithChecksum rejects a cache whose checksum differs from sum.
func WithChecksum(sum string) CacheOption {
	return internal.WithChecksum(sum)
}

// NewRouteCacheStore shares the compiled table through c under key.
func NewRouteCacheStore(c cache.Cache[[]byte], key string, ttl time.Duration) *RouteCacheStore {
	return internal.NewRouteCacheStore(c, key, ttl)
}

// Reloading

// NewReloader watches the route file at path for router.
func NewReloader(router *Router, path string, opts ...ReloaderOption) *Reloader {
	return internal.NewReloader(router, path, opts...)
}

// WithDebounceDelay sets how long file events settle before a reload.
func WithDebounceDelay(d time.Duration) ReloaderOption {
	return internal.WithDebounceDelay(d)
}

// WithReloadLogger sets the reloader's logger.
func WithReloadLogger(l *slog.Logger) ReloaderOption {
	return internal.WithReloadLogger(l)
}

// WithCacheFile recompiles the route cache after each successful reload.
func WithCacheFile(path string) ReloaderOption {
	return internal.WithCacheFile(path)
}

// Run options

// Run serves handler until ctx is cancelled or a termination signal
// arrives, then shuts down gracefully.
//
// Example:
//
//	err := kamu.Run(ctx, router,
//	    kamu.Address(":8080"),
//	    kamu.Logger(log),
//	    kamu.ShutdownHook(func(context.Context) error { return rdb.Close() }),
//	)
func Run(ctx context.Context, handler http.Handler, opts ...RunOption) error {
	return internal.Run(ctx, handler, opts...)
}

// Address sets the HTTP server address. Defaults to ":8080".
func Address(addr string) RunOption {
	return internal.Address(addr)
}

// Logger sets the server logger. If nil, logging is disabled.
func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

// ShutdownTimeout sets the timeout for graceful shutdown.
// Defaults to 30 seconds.
func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}

// ShutdownHook registers a cleanup function to run during shutdown.
func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

// Listener serves on an existing listener instead of Address.
func Listener(ln net.Listener) RunOption {
	return internal.Listener(ln)
}

// Extractors

// NewExtractor creates an Extractor that tries the given sources in order.
func NewExtractor(sources ...ExtractorSource) Extractor {
	return internal.NewExtractor(sources...)
}

// FromHeader reads a request header.
func FromHeader(name string) ExtractorSource {
	return internal.FromHeader(name)
}

// FromInput reads a merged input value.
func FromInput(name string) ExtractorSource {
	return internal.FromInput(name)
}

// FromServer reads a server fact such as REMOTE_ADDR.
func FromServer(name string) ExtractorSource {
	return internal.FromServer(name)
}

// FromCookie reads a plain cookie.
func FromCookie(name string) ExtractorSource {
	return internal.FromCookie(name)
}

// FromParam reads a URL parameter.
func FromParam(name string) ExtractorSource {
	return internal.FromParam(name)
}

// FromSession reads a session value.
func FromSession(key string) ExtractorSource {
	return internal.FromSession(key)
}

// FromBearerToken reads a Bearer token from the Authorization header.
func FromBearerToken() ExtractorSource {
	return internal.FromBearerToken()
}

// Generic helpers

// ContextValue returns the request context value under key as T.
func ContextValue[T any](c Context, key any) T {
	return internal.ContextValue[T](c, key)
}

// Param returns a typed URL parameter.
func Param[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string) T {
	return internal.Param[T](c, name)
}

// Input returns a typed input value.
func Input[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string) T {
	return internal.Input[T](c, name)
}

// InputDefault returns a typed input value, or defaultValue when it is
// empty or unparsable.
func InputDefault[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string, defaultValue T) T {
	return internal.InputDefault(c, name, defaultValue)
}
