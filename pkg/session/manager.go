package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	defaultCookieName = "kamu_session"
	defaultMaxAge     = 2 * time.Hour
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithCookieName sets the session cookie name. Default: "kamu_session".
func WithCookieName(name string) ManagerOption {
	return func(m *Manager) {
		if name != "" {
			m.cookieName = name
		}
	}
}

// WithMaxAge sets both the cookie lifetime and the store TTL. Default: 2h.
func WithMaxAge(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.maxAge = d
		}
	}
}

// WithSecure sets the cookie Secure flag.
func WithSecure(secure bool) ManagerOption {
	return func(m *Manager) {
		m.secure = secure
	}
}

// WithSameSite sets the cookie SameSite attribute. Default: Lax.
func WithSameSite(mode http.SameSite) ManagerOption {
	return func(m *Manager) {
		m.sameSite = mode
	}
}

// WithIDGenerator replaces the uuid v4 id generator.
func WithIDGenerator(fn func() string) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// Manager binds sessions to requests through a cookie.
type Manager struct {
	store      Store
	newID      func() string
	cookieName string
	maxAge     time.Duration
	sameSite   http.SameSite
	secure     bool
}

// NewManager creates a Manager over store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      store,
		newID:      uuid.NewString,
		cookieName: defaultCookieName,
		maxAge:     defaultMaxAge,
		sameSite:   http.SameSiteLaxMode,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Load returns the session referenced by the request cookie, or a fresh one
// when the cookie is absent or the store no longer knows the id.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return New(m.newID()), nil
	}

	values, err := m.store.Load(ctx, c.Value)
	if errors.Is(err, ErrNotFound) {
		return New(m.newID()), nil
	}
	if err != nil {
		return nil, err
	}
	return Restore(c.Value, values), nil
}

// Persist writes dirty values to the store. Clean sessions are skipped.
func (m *Manager) Persist(ctx context.Context, s *Session) error {
	if !s.IsDirty() {
		return nil
	}
	if err := m.store.Save(ctx, s.ID(), s.Values(), m.maxAge); err != nil {
		return err
	}
	s.markSaved()
	return nil
}

// WriteCookie sets the session cookie on w. It must run before the
// response header is written.
func (m *Manager) WriteCookie(w http.ResponseWriter, s *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    s.ID(),
		Path:     "/",
		MaxAge:   int(m.maxAge / time.Second),
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: m.sameSite,
	})
}

// Destroy removes the session from the store and expires the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return m.store.Delete(ctx, s.ID())
}

type contextKey struct{}

// WithContext stores s in ctx.
func WithContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by WithContext, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
