package logger

import (
	"io"
	"log/slog"
	"os"
)

// Option configures New.
type Option func(*options)

type options struct {
	writer     io.Writer
	component  string
	extractors []ContextExtractor
	sentry     *SentryConfig
	level      slog.Level
}

// WithLevel sets the minimum level written to the output. Default: info.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithWriter redirects output. Default: os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// WithComponent adds a static "component" attribute to every record.
func WithComponent(name string) Option {
	return func(o *options) {
		o.component = name
	}
}

// WithExtractors appends context extractors.
func WithExtractors(extractors ...ContextExtractor) Option {
	return func(o *options) {
		o.extractors = append(o.extractors, extractors...)
	}
}

// WithSentry forwards records to Sentry in addition to the writer.
func WithSentry(cfg SentryConfig) Option {
	return func(o *options) {
		o.sentry = &cfg
	}
}

// New creates a JSON logger.
func New(opts ...Option) *slog.Logger {
	o := &options{
		writer: os.Stdout,
		level:  slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(o)
	}

	var handler slog.Handler = slog.NewJSONHandler(o.writer, &slog.HandlerOptions{Level: o.level})
	if o.sentry != nil && o.sentry.DSN != "" {
		if sh, err := newSentryHandler(*o.sentry); err != nil {
			slog.New(handler).Error("sentry init failed, logging to output only", slog.String("error", err.Error()))
		} else {
			handler = newFanout(handler, sh)
		}
	}

	log := slog.New(Decorate(handler, o.extractors...))
	if o.component != "" {
		log = log.With(slog.String("component", o.component))
	}
	return log
}

// NewNope returns a logger that discards everything.
func NewNope() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrNope returns l, or a discarding logger when l is nil.
func OrNope(l *slog.Logger) *slog.Logger {
	if l == nil {
		return NewNope()
	}
	return l
}
