package middlewares

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/kamu/internal"
	"github.com/dmitrymomot/kamu/pkg/session"
)

// StartSession returns middleware that loads the request's session through
// m and binds it to the context, where Context.Session, validation and
// RememberRoute find it. The cookie is written just before the response
// header; dirty values are persisted once the chain returns.
func StartSession(m *session.Manager) internal.Middleware {
	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			sess, err := m.Load(c, c.Request())
			if err != nil {
				return internal.NewHTTPError(http.StatusServiceUnavailable, "").Wrap(err)
			}

			c.SetRequest(c.Request().WithContext(session.WithContext(c.Request().Context(), sess)))
			w := c.ResponseWriter()
			w.OnBeforeWrite(func() {
				m.WriteCookie(w, sess)
			})

			err = next(c)

			if perr := m.Persist(c, sess); perr != nil {
				c.Logger().ErrorContext(c, "session not persisted",
					slog.String("session", sess.ID()),
					slog.Any("error", perr),
				)
				if err == nil {
					return perr
				}
				return errors.Join(err, perr)
			}
			return err
		}
	}
}
