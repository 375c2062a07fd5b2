package internal

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/kamu/pkg/logger"
	"github.com/dmitrymomot/kamu/pkg/validator"
)

// Option configures the router.
type Option func(*Router)

// WithMiddleware adds global middleware. Global middleware wraps every
// route, including the not-found handler, and runs before group and route
// middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(r *Router) {
		r.global = append(r.global, mw...)
	}
}

// WithMiddlewareAlias registers a named middleware stack that route
// definitions refer to by name.
//
// Example:
//
//	kamu.WithMiddlewareAlias("web", middlewares.StartSession(mgr), middlewares.RememberRoute())
func WithMiddlewareAlias(name string, mw ...Middleware) Option {
	return func(r *Router) {
		r.aliases[name] = append(r.aliases[name], mw...)
	}
}

// WithController registers a controller for "Name@method" actions.
func WithController(name string, c Controller) Option {
	return func(r *Router) {
		r.controllers[name] = c
	}
}

// WithHandler registers a named handler for actions that are plain names.
func WithHandler(name string, h HandlerFunc) Option {
	return func(r *Router) {
		r.handlers[name] = h
	}
}

// WithErrorHandler sets a custom error handler for handler errors.
// Called when the chain returns an error that is neither a validation
// failure nor a missing route. If it returns an error itself, the default
// rendering is used.
//
// Example:
//
//	kamu.WithErrorHandler(func(c kamu.Context, err error) error {
//	    return c.JSON(http.StatusInternalServerError, map[string]string{
//	        "error": err.Error(),
//	    })
//	})
func WithErrorHandler(h ErrorHandler) Option {
	return func(r *Router) {
		r.errorHandler = h
	}
}

// WithNotFoundHandler sets a custom 404 handler.
//
// Example:
//
//	kamu.WithNotFoundHandler(func(c kamu.Context) error {
//	    return c.String(http.StatusNotFound, "Page not found")
//	})
func WithNotFoundHandler(h HandlerFunc) Option {
	return func(r *Router) {
		r.notFound = h
	}
}

// WithLogger creates a JSON logger with the given component name and
// context extractors.
func WithLogger(component string, extractors ...logger.ContextExtractor) Option {
	return func(r *Router) {
		r.logger = logger.New(
			logger.WithComponent(component),
			logger.WithExtractors(extractors...),
		)
	}
}

// WithCustomLogger uses l as is.
func WithCustomLogger(l *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger.OrNope(l)
	}
}

// WithStrictRoutes makes Load reject tables with shadowed routes or
// duplicate names instead of letting the first registration win.
func WithStrictRoutes() Option {
	return func(r *Router) {
		r.strict = true
	}
}

// WithMaxBodySize caps the bytes read from a request body. Defaults to 10 MiB.
func WithMaxBodySize(n int64) Option {
	return func(r *Router) {
		r.maxBody = n
	}
}

// WithMaxFormMemory sets how many bytes of multipart uploads are kept in
// memory. Larger uploads go to temporary files that live until the request
// is dispatched. Defaults to 32 MiB.
func WithMaxFormMemory(n int64) Option {
	return func(r *Router) {
		r.maxMemory = n
	}
}

// WithClientIPSources replaces the client IP resolution order.
func WithClientIPSources(sources ...IPSource) Option {
	return func(r *Router) {
		r.ipSources = sources
	}
}

// WithValidatorFactory sets the validator used by Context.Validate.
// Defaults to the go-playground backed engine.
func WithValidatorFactory(f validator.Factory) Option {
	return func(r *Router) {
		r.validators = f
	}
}

// WithMetrics records dispatch metrics.
func WithMetrics(m *Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithTracerProvider opens a server span per dispatched request.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Router) {
		if tp != nil {
			r.tracer = tp.Tracer(tracerName)
		}
	}
}
