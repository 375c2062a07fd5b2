package internal_test

import (
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kamu/internal"
	"github.com/dmitrymomot/kamu/pkg/session"
	"github.com/dmitrymomot/kamu/pkg/validator"
)

func newGate() *internal.Gate {
	return internal.NewGate(validator.NewEngine().Factory())
}

func TestGate_ValidateFailure(t *testing.T) {
	t.Parallel()

	sess := session.New("s1")
	sess.Set(internal.PreviousRouteKey, "/signup")

	in := internal.NewRequest("", []byte(`{"email":"nope","name":"Ann"}`),
		map[string][]*multipart.FileHeader{"avatar": {{Filename: "a.png"}}}, nil)

	g := newGate()
	vals, err := g.Validate(in, sess, map[string]string{"email": "required|email", "name": "required"})
	require.Nil(t, vals)

	ve := internal.AsValidationError(err)
	require.NotNil(t, ve)
	assert.Equal(t, "/signup", ve.Target)
	assert.Equal(t, []string{"email"}, ve.Errors.Fields())
	assert.Equal(t, "The email must be a valid email address.", ve.Errors.First("email"))

	old, ok := sess.Get(internal.FlashOldKey, nil).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"email": "nope", "name": "Ann"}, old)
	assert.Equal(t, ve.Errors, sess.Get(internal.FlashErrorKey, nil))
	assert.NotNil(t, g.Bound())
}

func TestGate_ValidateDefaultsTarget(t *testing.T) {
	t.Parallel()

	in := internal.NewRequest("", nil, nil, nil)
	_, err := newGate().Validate(in, session.New("s"), map[string]string{"title": "required"})
	ve := internal.AsValidationError(err)
	require.NotNil(t, ve)
	assert.Equal(t, "/", ve.Target)
}

func TestGate_ValidateSuccessSanitizes(t *testing.T) {
	t.Parallel()

	sess := session.New("s1")
	in := internal.NewRequest("page=2", []byte(`{"name":"  Tom & \"Jerry\" ","pw":"a<b>c","email":"ann@example.com"}`), nil, nil)

	vals, err := newGate().Validate(in, sess, map[string]string{"name": "required", "pw": "required", "email": "required|email"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": `Tom & "Jerry"`, "pw": "a<b>c", "email": "ann@example.com"}, vals.Map())

	assert.Equal(t, `Tom & "Jerry"`, in.Get("name"))
	assert.Equal(t, "a<b>c", in.Get("pw"))
	assert.Equal(t, "2", in.Get("page"))
	assert.False(t, sess.Has(internal.FlashOldKey))
	assert.False(t, sess.Has(internal.FlashErrorKey))
}

func TestGate_Throw(t *testing.T) {
	t.Parallel()

	t.Run("errors without validator", func(t *testing.T) {
		t.Parallel()
		sess := session.New("s")
		in := internal.NewRequest("", []byte(`{"code":"123"}`), nil, nil)

		err := newGate().Throw(in, sess, validator.Errors{"code": {"The code has expired."}})
		ve := internal.AsValidationError(err)
		require.NotNil(t, ve)
		assert.Equal(t, "The code has expired.", ve.Errors.First("code"))
		assert.Equal(t, map[string]any{"code": "123"}, sess.Get(internal.FlashOldKey, nil))
	})

	t.Run("errors merge into bound validator", func(t *testing.T) {
		t.Parallel()
		sess := session.New("s")
		in := internal.NewRequest("", []byte(`{"email":"a@b.co"}`), nil, nil)

		g := newGate()
		_, err := g.Validate(in, sess, map[string]string{"email": "required|email"})
		require.NoError(t, err)

		err = g.Throw(in, sess, map[string][]string{"email": {"The email is taken."}})
		ve := internal.AsValidationError(err)
		require.NotNil(t, ve)
		assert.Equal(t, validator.Errors{"email": {"The email is taken."}}, ve.Errors)
	})

	t.Run("passing validator", func(t *testing.T) {
		t.Parallel()
		in := internal.NewRequest("", []byte(`{"email":"a@b.co"}`), nil, nil)
		v := validator.NewEngine().Make(in.All().Map(), map[string]string{"email": "email"})

		g := newGate()
		require.NoError(t, g.Throw(in, session.New("s"), v))
		assert.Same(t, v, g.Bound())
	})

	t.Run("validator already bound", func(t *testing.T) {
		t.Parallel()
		in := internal.NewRequest("", nil, nil, nil)
		eng := validator.NewEngine()

		g := newGate()
		require.NoError(t, g.Throw(in, session.New("s"), eng.Make(nil, nil)))
		err := g.Throw(in, session.New("s"), eng.Make(nil, nil))
		require.ErrorIs(t, err, internal.ErrValidatorBound)
	})

	t.Run("unsupported value", func(t *testing.T) {
		t.Parallel()
		err := newGate().Throw(internal.NewRequest("", nil, nil, nil), session.New("s"), "boom")
		require.ErrorIs(t, err, internal.ErrThrowType)
	})
}

func TestGate_NoSession(t *testing.T) {
	t.Parallel()

	in := internal.NewRequest("", nil, nil, nil)
	_, err := newGate().Validate(in, nil, map[string]string{"email": "required"})
	require.ErrorIs(t, err, internal.ErrNoSession)
	assert.Nil(t, internal.AsValidationError(err))
}

// withSession binds sess to every request, standing in for the session middleware.
func withSession(sess *session.Session) internal.Middleware {
	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			c.SetRequest(c.Request().WithContext(session.WithContext(c.Request().Context(), sess)))
			return next(c)
		}
	}
}

func TestRouter_ValidationRoundTrip(t *testing.T) {
	t.Parallel()

	sess := session.New("s1")
	var stored atomic.Int32

	tbl := internal.NewTable()
	tbl.GET("/register", func(c internal.Context) error {
		c.Session().Set(internal.PreviousRouteKey, "/register")
		first := c.Errors().First("email")
		again := c.Errors().First("email")
		old, _ := c.Old("email").(string)
		return c.String(http.StatusOK, strings.Join([]string{first, again, old}, "|"))
	})
	tbl.POST("/register", func(c internal.Context) error {
		vals, err := c.Validate(map[string]string{"email": "required|email"})
		if err != nil {
			return err
		}
		stored.Add(1)
		v, _ := vals.Get("email")
		return c.String(http.StatusCreated, v.(string))
	})

	r := internal.NewRouter(internal.WithMiddleware(withSession(sess)))
	require.NoError(t, r.Load(tbl))

	// First visit remembers the form route.
	rec := serve(r, "GET", "/register", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "||", rec.Body.String())

	rec = serve(r, "POST", "/register", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/register", rec.Header().Get("Location"))
	assert.Zero(t, stored.Load())

	// The flash is readable once.
	rec = serve(r, "GET", "/register", "")
	msg := "The email must be a valid email address."
	assert.Equal(t, msg+"|"+msg+"|not-an-email", rec.Body.String())
	rec = serve(r, "GET", "/register", "")
	assert.Equal(t, "||", rec.Body.String())

	rec = serve(r, "POST", "/register", `{"email":" ann@example.com "}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ann@example.com", rec.Body.String())
	assert.EqualValues(t, 1, stored.Load())
}

func TestRouter_ThrowRoundTrip(t *testing.T) {
	t.Parallel()

	sess := session.New("s1")
	sess.Set(internal.PreviousRouteKey, "/login")

	tbl := internal.NewTable()
	tbl.POST("/login", func(c internal.Context) error {
		if _, err := c.Validate(map[string]string{"email": "required|email"}); err != nil {
			return err
		}
		return c.Throw(validator.Errors{"email": {"These credentials do not match our records."}})
	})

	r := internal.NewRouter(internal.WithMiddleware(withSession(sess)))
	require.NoError(t, r.Load(tbl))

	rec := serve(r, "POST", "/login", `{"email":"ann@example.com","password":"secret"}`)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	errs := validator.FromAny(sess.Get(internal.FlashErrorKey, nil))
	assert.Equal(t, "These credentials do not match our records.", errs.First("email"))
}

func TestRouter_ValidationWithoutSession(t *testing.T) {
	t.Parallel()

	tbl := internal.NewTable()
	tbl.POST("/register", func(c internal.Context) error {
		if _, err := c.Validate(map[string]string{"email": "required"}); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})

	r := internal.NewRouter()
	require.NoError(t, r.Load(tbl))

	rec := serve(r, "POST", "/register", `{"email":""}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouter_ValidationUnknownRule(t *testing.T) {
	t.Parallel()

	sess := session.New("s1")
	var ran atomic.Bool

	tbl := internal.NewTable()
	tbl.POST("/password", func(c internal.Context) error {
		if _, err := c.Validate(map[string]string{"password": "required|confirmed"}); err != nil {
			return err
		}
		ran.Store(true)
		return c.NoContent(http.StatusNoContent)
	})

	r := internal.NewRouter(internal.WithMiddleware(withSession(sess)))
	require.NoError(t, r.Load(tbl))

	rec := serve(r, "POST", "/password", `{"password":"secret"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, ran.Load())
	assert.False(t, sess.Has(internal.FlashErrorKey))

	_, err := newGate().Validate(internal.NewRequest("", []byte(`{"password":"x"}`), nil, nil), sess,
		map[string]string{"password": "confirmed"})
	require.ErrorIs(t, err, validator.ErrUnknownRule)
	assert.Nil(t, internal.AsValidationError(err))
}

func TestContext_Back(t *testing.T) {
	t.Parallel()

	sess := session.New("s1")
	tbl := internal.NewTable()
	tbl.GET("/back", func(c internal.Context) error { return c.Back() })

	r := internal.NewRouter(internal.WithMiddleware(withSession(sess)))
	require.NoError(t, r.Load(tbl))

	rec := serve(r, "GET", "/back", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	sess.Set(internal.PreviousRouteKey, "/dashboard")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/back", nil))
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}
