package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/kamu/pkg/logger"
)

const defaultConfigFile = "kamu.yaml"

// Config is the kamu.yaml document.
type Config struct {
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`

	Routes     string `yaml:"routes"`
	RouteCache string `yaml:"route_cache"`
	Watch      bool   `yaml:"watch"`
	Strict     bool   `yaml:"strict"`

	RedisURL string `yaml:"redis_url"`

	Session struct {
		Cookie string        `yaml:"cookie"`
		MaxAge time.Duration `yaml:"max_age"`
		Secure bool          `yaml:"secure"`
	} `yaml:"session"`

	MetricsNamespace string              `yaml:"metrics_namespace"`
	Sentry           logger.SentryConfig `yaml:"sentry"`
}

func defaultConfig() Config {
	var cfg Config
	cfg.Address = ":8080"
	cfg.ShutdownTimeout = 30 * time.Second
	cfg.LogLevel = "info"
	cfg.Routes = "routes.yaml"
	cfg.RouteCache = "storage/cache/routes.yaml"
	cfg.Session.Cookie = "kamu_session"
	cfg.Session.MaxAge = 2 * time.Hour
	cfg.MetricsNamespace = "kamu"
	return cfg
}

// loadConfig reads path over the defaults, then applies KAMU_* variables
// from lookup. A missing file is fine unless required is set.
func loadConfig(path string, required bool, lookup func(string) (string, bool)) (Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !required:
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok {
			return
		}
		switch strings.ToLower(v) {
		case "true", "1", "yes", "on":
			*dst = true
		case "false", "0", "no", "off":
			*dst = false
		}
	}

	str("KAMU_ADDRESS", &c.Address)
	str("KAMU_LOG_LEVEL", &c.LogLevel)
	str("KAMU_ROUTES", &c.Routes)
	str("KAMU_ROUTE_CACHE", &c.RouteCache)
	str("KAMU_REDIS_URL", &c.RedisURL)
	str("KAMU_SESSION_COOKIE", &c.Session.Cookie)
	str("KAMU_METRICS_NAMESPACE", &c.MetricsNamespace)
	str("KAMU_SENTRY_DSN", &c.Sentry.DSN)
	str("KAMU_SENTRY_ENVIRONMENT", &c.Sentry.Environment)
	boolean("KAMU_WATCH", &c.Watch)
	boolean("KAMU_STRICT", &c.Strict)
	boolean("KAMU_SESSION_SECURE", &c.Session.Secure)

	if v, ok := lookup("KAMU_SHUTDOWN_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("KAMU_SHUTDOWN_TIMEOUT: %w", err)
		}
		c.ShutdownTimeout = d
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}
