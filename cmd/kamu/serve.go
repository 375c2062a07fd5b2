package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/kamu"
	"github.com/dmitrymomot/kamu/middlewares"
	"github.com/dmitrymomot/kamu/pkg/health"
	"github.com/dmitrymomot/kamu/pkg/logger"
	"github.com/dmitrymomot/kamu/pkg/session"
)

var errNoRoutes = errors.New("no routes installed")

func serveCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the route table",
		Long: `Serve the route table over HTTP.

The table comes from the shared Redis cache, the compiled cache file or
the route file, in that order. Ops endpoints are mounted beside it:
  /health/live, /health/ready   probes
  /metrics                      Prometheus metrics

Examples:
  kamu serve
  kamu serve --address=:9000 --watch
  KAMU_REDIS_URL=redis://localhost:6379/0 kamu serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromCmd(cmd, *configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringP("address", "a", "", "Listen address")
	cmd.Flags().BoolP("watch", "w", false, "Reload the route file on change")
	cmd.Flags().Bool("strict", false, "Reject shadowed routes and duplicate names")
	cmd.Flags().String("redis-url", "", "Redis URL for sessions and the shared route cache")
	addRouteFlags(cmd)

	return cmd
}

func newLogger(cfg Config) (*slog.Logger, error) {
	level, err := cfg.level()
	if err != nil {
		return nil, err
	}
	return logger.New(
		logger.WithLevel(level),
		logger.WithComponent("kamu"),
		logger.WithExtractors(middlewares.RequestIDExtractor()),
		logger.WithSentry(cfg.Sentry),
	), nil
}

func runServe(ctx context.Context, cfg Config) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	srv, err := newServer(ctx, cfg, log)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return kamu.Run(gctx, srv.handler,
			kamu.Address(cfg.Address),
			kamu.Logger(log),
			kamu.ShutdownTimeout(cfg.ShutdownTimeout),
			kamu.ShutdownHook(srv.stores.Close),
		)
	})
	if cfg.Watch {
		g.Go(func() error { return srv.reloader.Run(gctx) })
	}
	return g.Wait()
}

// server is the assembled application: the controller router behind an
// ops mux.
type server struct {
	handler  http.Handler
	router   *kamu.Router
	reloader *kamu.Reloader
	registry *prometheus.Registry
	stores   *stores
}

func newServer(ctx context.Context, cfg Config, log *slog.Logger) (*server, error) {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sessions := session.NewManager(session.NewCacheStore(st.sessions),
		session.WithCookieName(cfg.Session.Cookie),
		session.WithMaxAge(cfg.Session.MaxAge),
		session.WithSecure(cfg.Session.Secure),
	)

	opts := []kamu.Option{
		kamu.WithCustomLogger(log),
		kamu.WithMetrics(kamu.NewMetrics(reg, cfg.MetricsNamespace)),
		kamu.WithTracerProvider(otel.GetTracerProvider()),
		kamu.WithMiddleware(
			middlewares.Recover(),
			middlewares.RequestID(),
			middlewares.AccessLog(middlewares.WithAccessLogger(log)),
			middlewares.StartSession(sessions),
			middlewares.RememberRoute(),
		),
	}
	if cfg.Strict {
		opts = append(opts, kamu.WithStrictRoutes())
	}
	router := kamu.New(append(opts, appOptions()...)...)

	table, err := loadTable(ctx, cfg, st, log)
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}
	if err := router.Load(table); err != nil {
		_ = st.Close(ctx)
		return nil, err
	}

	reloadOpts := []kamu.ReloaderOption{kamu.WithReloadLogger(log)}
	if cfg.RouteCache != "" {
		reloadOpts = append(reloadOpts, kamu.WithCacheFile(cfg.RouteCache))
	}

	st.checks["routes"] = func(context.Context) error {
		if len(router.Routes()) == 0 {
			return errNoRoutes
		}
		return nil
	}

	mux := chi.NewRouter()
	mux.Mount("/health", chimw.NoCache(health.Handler(st.checks, health.WithLogger(log))))
	mux.Handle("/metrics", chimw.NoCache(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	mux.NotFound(router.ServeHTTP)
	mux.MethodNotAllowed(router.ServeHTTP)

	return &server{
		handler:  mux,
		router:   router,
		reloader: kamu.NewReloader(router, cfg.Routes, reloadOpts...),
		registry: reg,
		stores:   st,
	}, nil
}

// loadTable prefers the shared cache, then the cache file, then the route
// file. A table read from disk is published to the shared cache.
func loadTable(ctx context.Context, cfg Config, st *stores, log *slog.Logger) (*kamu.Table, error) {
	t := kamu.NewTable()

	if st.routes != nil {
		ok, err := st.routes.Load(ctx, t, kamu.WithSourceFile(cfg.Routes))
		if ok {
			log.Info("routes loaded", slog.String("from", "redis"), slog.Int("routes", t.Len()))
			return t, nil
		}
		log.Debug("shared route cache unused", slog.Any("reason", err))
	}

	fromCache, err := kamu.LoadRoutes(t, cfg.Routes, cfg.RouteCache)
	if err != nil {
		return nil, err
	}
	from := "file"
	if fromCache {
		from = "cache"
	}
	log.Info("routes loaded", slog.String("from", from), slog.Int("routes", t.Len()))

	if st.routes != nil && t.Cacheable() == nil {
		if err := st.routes.Save(ctx, t); err != nil {
			log.Warn("shared route cache not updated", slog.String("error", err.Error()))
		}
	}
	return t, nil
}
