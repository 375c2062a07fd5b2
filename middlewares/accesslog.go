package middlewares

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/kamu/internal"
)

// AccessLogOption configures AccessLog.
type AccessLogOption func(*accessLogConfig)

type accessLogConfig struct {
	logger *slog.Logger
	skip   func(internal.Context) bool
}

// WithAccessLogger writes entries to l instead of the router's logger.
func WithAccessLogger(l *slog.Logger) AccessLogOption {
	return func(cfg *accessLogConfig) {
		cfg.logger = l
	}
}

// WithAccessLogSkip omits requests for which skip returns true.
func WithAccessLogSkip(skip func(internal.Context) bool) AccessLogOption {
	return func(cfg *accessLogConfig) {
		cfg.skip = skip
	}
}

// AccessLog logs one entry per request after the chain returns. A returned
// error is logged with the status the router will answer with.
func AccessLog(opts ...AccessLogOption) internal.Middleware {
	cfg := &accessLogConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			start := time.Now()
			err := next(c)

			if cfg.skip != nil && cfg.skip(c) {
				return err
			}
			log := cfg.logger
			if log == nil {
				log = c.Logger()
			}

			status := c.ResponseWriter().Status()
			if err != nil && !c.Written() {
				status = internal.StatusFor(err)
			}

			in := c.Input()
			attrs := []slog.Attr{
				slog.String("method", in.Method()),
				slog.String("path", in.Path()),
				slog.String("route", c.Route().Pattern),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
				slog.String("ip", in.IP()),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}
			log.LogAttrs(c, level, "request", attrs...)
			return err
		}
	}
}
