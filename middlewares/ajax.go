package middlewares

import (
	"net/http"

	"github.com/dmitrymomot/kamu/internal"
)

// AjaxOption configures RequireAjax.
type AjaxOption func(*ajaxConfig)

type ajaxConfig struct {
	token bool
}

// WithAjaxToken additionally requires the Token header.
func WithAjaxToken() AjaxOption {
	return func(cfg *ajaxConfig) {
		cfg.token = true
	}
}

// RequireAjax rejects requests that are not script calls with a 400 (401
// when a token is required but missing).
func RequireAjax(opts ...AjaxOption) internal.Middleware {
	cfg := &ajaxConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			info := c.Input().Ajax()
			if !info.IsAjax() {
				return internal.NewHTTPError(http.StatusBadRequest, "").Wrap(ErrAjaxRequired)
			}
			if cfg.token && !info.Authenticated() {
				return internal.NewHTTPError(http.StatusUnauthorized, "")
			}
			return next(c)
		}
	}
}
