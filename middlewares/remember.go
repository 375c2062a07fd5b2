package middlewares

import (
	"net/http"

	"github.com/dmitrymomot/kamu/internal"
	"github.com/dmitrymomot/kamu/pkg/htmx"
)

// RememberRoute records the path of every successful non-script GET under
// PreviousRouteKey, so failed validation and Context.Back return there.
// HTMX fragment requests are skipped; boosted navigations count as pages.
// It must run inside StartSession.
func RememberRoute() internal.Middleware {
	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			err := next(c)
			if err != nil || c.Input().Method() != http.MethodGet || c.Input().Ajax().IsAjax() {
				return err
			}
			if r := c.Request(); htmx.IsHTMX(r) && !htmx.IsBoosted(r) {
				return nil
			}
			if status := c.ResponseWriter().Status(); status < 200 || status >= 300 {
				return nil
			}
			if sess := c.Session(); sess != nil {
				sess.Set(internal.PreviousRouteKey, c.Request().URL.RequestURI())
			}
			return nil
		}
	}
}
