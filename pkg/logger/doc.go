// Package logger builds the structured loggers used across kamu.
//
// Loggers are plain *slog.Logger values writing JSON. Request-scoped values
// (request id, route name) are injected by ContextExtractor functions that
// run on every log call, so handlers only need to log with a context:
//
//	log := logger.New(
//	    logger.WithLevel(slog.LevelDebug),
//	    logger.WithComponent("http"),
//	    logger.WithExtractors(middlewares.RequestIDExtractor()),
//	)
//	log.InfoContext(ctx, "route dispatched", slog.String("route", "users.show"))
//
// When a Sentry DSN is configured the records are also forwarded to Sentry.
// Errors become issues, warnings are kept as breadcrumbs-style logs. An empty
// DSN or a failed Sentry init silently keeps stdout-only logging.
//
// Libraries in this module default to NewNope so they stay quiet unless the
// application hands them a logger.
package logger
