package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dmitrymomot/kamu/pkg/logger"
	"github.com/dmitrymomot/kamu/pkg/validator"
)

const tracerName = "github.com/dmitrymomot/kamu"

// Router matches requests against the installed route table and runs the
// resolved middleware chain.
//
// The live table is an immutable snapshot swapped atomically by Load, so
// matching takes no locks and a reload never exposes a half-built table.
type Router struct {
	mu          sync.RWMutex
	controllers map[string]Controller
	handlers    map[string]HandlerFunc
	aliases     map[string][]Middleware
	global      []Middleware

	live atomic.Pointer[routeSet]

	logger       *slog.Logger
	errorHandler ErrorHandler
	notFound     HandlerFunc
	validators   validator.Factory
	metrics      *Metrics
	tracer       trace.Tracer
	ipSources    []IPSource
	maxBody      int64
	maxMemory    int64
	strict       bool
}

// routeSet is one compiled, read-only route table.
type routeSet struct {
	routes   []*compiledRoute
	names    map[string]*compiledRoute
	defs     []RouteDef
	notFound HandlerFunc
	source   string
}

type compiledRoute struct {
	def   RouteDef
	segs  []segment
	chain HandlerFunc
}

// MatchedRoute is the result of a successful match.
type MatchedRoute struct {
	Route  RouteDef
	Params map[string]string
	chain  HandlerFunc
}

// NewRouter creates a router with no routes. Every request answers 404
// until a table is loaded.
func NewRouter(opts ...Option) *Router {
	r := &Router{
		controllers: make(map[string]Controller),
		handlers:    make(map[string]HandlerFunc),
		aliases:     make(map[string][]Middleware),
		logger:      logger.NewNope(),
		tracer:      noop.NewTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.validators == nil {
		r.validators = validator.NewEngine().Factory()
	}
	if r.ipSources == nil {
		r.ipSources = DefaultIPSources()
	}
	r.live.Store(r.compileEmpty())
	return r
}

// RegisterController adds a controller after construction.
// Takes effect on the next Load.
func (r *Router) RegisterController(name string, c Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controllers[name] = c
}

// RegisterHandler adds a named handler. Takes effect on the next Load.
func (r *Router) RegisterHandler(name string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// RegisterMiddleware adds a named middleware stack. Takes effect on the
// next Load.
func (r *Router) RegisterMiddleware(name string, mw ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[name] = append(r.aliases[name], mw...)
}

// Logger returns the router's logger.
func (r *Router) Logger() *slog.Logger {
	return r.logger
}

// Metrics returns the configured metrics, or nil.
func (r *Router) Metrics() *Metrics {
	return r.metrics
}

// Load compiles t and makes it the live table. On error the live table is
// kept. Every action and middleware name must resolve.
func (r *Router) Load(t *Table) error {
	if err := t.Err(); err != nil {
		return err
	}
	if t.Depth() > 0 {
		return fmt.Errorf("kamu: %d route group(s) left open", t.Depth())
	}
	if r.strict {
		if err := t.Validate(); err != nil {
			return err
		}
	}

	set, err := r.compile(t.Routes(), t.Source())
	if err != nil {
		return err
	}
	r.live.Store(set)
	r.metrics.setRoutes(len(set.routes))
	r.logger.Info("route table installed",
		slog.Int("routes", len(set.routes)),
		slog.String("source", set.source),
	)
	return nil
}

func (r *Router) compileEmpty() *routeSet {
	return &routeSet{
		names:    map[string]*compiledRoute{},
		notFound: Chain(r.notFoundHandler(), r.global...),
	}
}

func (r *Router) compile(defs []RouteDef, source string) (*routeSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := &routeSet{
		routes:   make([]*compiledRoute, 0, len(defs)),
		names:    make(map[string]*compiledRoute),
		defs:     defs,
		notFound: Chain(r.notFoundHandler(), r.global...),
		source:   source,
	}

	var errs []error
	for _, def := range defs {
		segs, err := compilePattern(def.Pattern)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		h, err := r.resolveAction(def.Action)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", def.Method, def.Pattern, err))
			continue
		}
		mws := slices.Clone(r.global)
		for _, name := range def.Middleware {
			stack, ok := r.aliases[name]
			if !ok {
				errs = append(errs, fmt.Errorf("%w: %q on %s %s", ErrUnknownMiddleware, name, def.Method, def.Pattern))
				continue
			}
			mws = append(mws, stack...)
		}

		cr := &compiledRoute{def: def, segs: segs, chain: Chain(h, mws...)}
		set.routes = append(set.routes, cr)
		if def.Name != "" {
			if _, taken := set.names[def.Name]; !taken {
				set.names[def.Name] = cr
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return set, nil
}

func (r *Router) resolveAction(a Action) (HandlerFunc, error) {
	switch {
	case a.fn != nil:
		return a.fn, nil
	case a.Controller != "":
		c, ok := r.controllers[a.Controller]
		if !ok {
			return nil, fmt.Errorf("%w: controller %q", ErrUnknownAction, a.Controller)
		}
		h, ok := c.Actions()[a.Method]
		if !ok || h == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAction, a)
		}
		return h, nil
	default:
		h, ok := r.handlers[a.Handler]
		if !ok || h == nil {
			return nil, fmt.Errorf("%w: handler %q", ErrUnknownAction, a.Handler)
		}
		return h, nil
	}
}

func (r *Router) notFoundHandler() HandlerFunc {
	if r.notFound != nil {
		return r.notFound
	}
	return func(Context) error { return ErrRouteNotFound }
}

// Routes returns the live table's definitions in match order.
func (r *Router) Routes() []RouteDef {
	return slices.Clone(r.live.Load().defs)
}

// Match scans the live table in registration order and returns the first
// route whose method equals method and whose pattern matches path. path is
// in escaped form, as returned by url.URL.EscapedPath.
func (r *Router) Match(method, path string) (*MatchedRoute, error) {
	return r.live.Load().match(method, path)
}

func (s *routeSet) match(method, path string) (*MatchedRoute, error) {
	for _, cr := range s.routes {
		if cr.def.Method != method {
			continue
		}
		if params, ok := matchSegments(cr.segs, path); ok {
			return &MatchedRoute{Route: cr.def, Params: params, chain: cr.chain}, nil
		}
	}
	return nil, ErrRouteNotFound
}

// URL builds the path of a named route.
func (r *Router) URL(name string, params map[string]string) (string, error) {
	cr, ok := r.live.Load().names[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRouteName, name)
	}
	return buildPath(cr.segs, params)
}

// ServeHTTP builds the request model, matches it and runs the chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	set := r.live.Load()

	ctx, span := r.tracer.Start(req.Context(), req.Method+" "+req.URL.Path,
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()
	req = req.WithContext(ctx)

	rw := NewResponseWriter(w)
	input, err := NewRequestFromHTTP(req, r.maxBody, r.maxMemory, WithIPSources(r.ipSources...))
	if req.MultipartForm != nil {
		defer func() { _ = req.MultipartForm.RemoveAll() }()
	}
	if err != nil {
		input = NewRequest(req.URL.RawQuery, nil, nil, ServerMeta(req), WithIPSources(r.ipSources...))
	}
	c := newContext(rw, req, input, r)

	var route string
	if err == nil {
		m, matchErr := set.match(input.Method(), req.URL.EscapedPath())
		if matchErr != nil {
			err = set.notFound(c)
		} else {
			c.route = m.Route
			c.params = m.Params
			route = m.Route.Pattern
			span.SetAttributes(attribute.String("http.route", route))
			err = m.chain(c)
		}
	}
	r.handleError(c, err)

	status := rw.Status()
	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.Int("http.status_code", status),
	)
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
	r.metrics.observeRequest(input.Method(), route, status, time.Since(start))
}

// handleError turns the chain's result into a response.
func (r *Router) handleError(c *requestContext, err error) {
	if err == nil {
		return
	}

	if ve := AsValidationError(err); ve != nil {
		r.metrics.observeValidationFailure(c.route.Pattern)
		if c.Written() {
			c.Logger().WarnContext(c, "validation failed after response was written",
				slog.String("target", ve.Target),
			)
			return
		}
		c.Logger().DebugContext(c, "validation failed",
			slog.String("target", ve.Target),
			slog.Any("fields", ve.Errors.Fields()),
		)
		_ = c.Redirect(http.StatusFound, ve.Target)
		return
	}

	if !errors.Is(err, ErrRouteNotFound) && r.errorHandler != nil && !c.Written() {
		herr := r.errorHandler(c, err)
		if herr == nil {
			return
		}
		err = herr
	}

	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		c.Logger().ErrorContext(c, "request failed", slog.Any("error", err))
		trace.SpanFromContext(c.Request().Context()).RecordError(err)
	}
	if c.Written() {
		return
	}

	msg := http.StatusText(status)
	if he := AsHTTPError(err); he != nil && status < http.StatusInternalServerError {
		msg = he.Message
	}
	if c.Input().Ajax().JSON {
		_ = c.JSON(status, map[string]string{"error": msg})
		return
	}
	_ = c.String(status, msg)
}

// Names lists the named routes of the live table.
func (r *Router) Names() []string {
	return slices.Sorted(maps.Keys(r.live.Load().names))
}
