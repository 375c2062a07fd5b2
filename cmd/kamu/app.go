package main

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/dmitrymomot/kamu"
	"github.com/dmitrymomot/kamu/middlewares"
	"github.com/dmitrymomot/kamu/pkg/sanitizer"
	"github.com/dmitrymomot/kamu/pkg/session"
)

// appOptions registers the controllers, handlers and middleware aliases the
// route file refers to.
func appOptions() []kamu.Option {
	users := newUsers()
	return []kamu.Option{
		kamu.WithController("Home", kamu.ControllerFunc(func() map[string]kamu.HandlerFunc {
			return map[string]kamu.HandlerFunc{"index": homeIndex}
		})),
		kamu.WithController("Users", users),
		kamu.WithHandler("ping", func(c kamu.Context) error {
			return c.String(http.StatusOK, "pong")
		}),
		kamu.WithHandler("back", func(c kamu.Context) error { return c.Back() }),
		kamu.WithMiddlewareAlias("ajax", middlewares.RequireAjax()),
		kamu.WithMiddlewareAlias("ajax.token", middlewares.RequireAjax(middlewares.WithAjaxToken())),
		kamu.WithMiddlewareAlias("member", requireMember),
	}
}

func homeIndex(c kamu.Context) error {
	return c.String(http.StatusOK, "kamu")
}

// requireMember lets through sessions that completed signup.
func requireMember(next kamu.HandlerFunc) kamu.HandlerFunc {
	return func(c kamu.Context) error {
		if session.ValueOr(c.Session(), "user_id", "") == "" {
			return kamu.NewHTTPError(http.StatusUnauthorized, "sign up first")
		}
		return next(c)
	}
}

type user struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// users is an in-memory signup directory.
type users struct {
	mu     sync.RWMutex
	byID   map[int]user
	lastID int
}

func newUsers() *users {
	return &users{byID: make(map[int]user)}
}

func (u *users) Actions() map[string]kamu.HandlerFunc {
	return map[string]kamu.HandlerFunc{
		"create": u.create,
		"store":  u.store,
		"show":   u.show,
		"me":     u.me,
	}
}

// create renders the flashed errors and old input as plain text lines.
func (u *users) create(c kamu.Context) error {
	errs := c.Errors()
	body := ""
	for _, field := range []string{"name", "email"} {
		old, _ := c.Old(field).(string)
		body += fmt.Sprintf("%s=%q %s\n", field, old, errs.First(field))
	}
	return c.String(http.StatusOK, body)
}

func (u *users) store(c kamu.Context) error {
	vals, err := c.Validate(map[string]string{
		"name":  "required|max:64",
		"email": "required|email",
	})
	if err != nil {
		return err
	}

	// Display names are shown back as text; markup in them is dropped.
	name, _ := vals.Get("name")
	name = sanitizer.PlainText(name)
	email, _ := vals.Get("email")

	u.mu.Lock()
	for _, existing := range u.byID {
		if existing.Email == email {
			u.mu.Unlock()
			return c.Throw(map[string][]string{"email": {"The email has already been taken."}})
		}
	}
	u.lastID++
	usr := user{ID: u.lastID, Name: fmt.Sprint(name), Email: fmt.Sprint(email)}
	u.byID[usr.ID] = usr
	u.mu.Unlock()

	if sess := c.Session(); sess != nil {
		sess.Set("user_id", strconv.Itoa(usr.ID))
	}

	target, err := c.Router().URL("users.show", map[string]string{"id": strconv.Itoa(usr.ID)})
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, target)
}

func (u *users) show(c kamu.Context) error {
	id := kamu.Param[int](c, "id")
	u.mu.RLock()
	usr, ok := u.byID[id]
	u.mu.RUnlock()
	if !ok {
		return kamu.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, usr)
}

func (u *users) me(c kamu.Context) error {
	id, _ := strconv.Atoi(session.ValueOr(c.Session(), "user_id", ""))
	u.mu.RLock()
	usr, ok := u.byID[id]
	u.mu.RUnlock()
	if !ok {
		return kamu.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, usr)
}
