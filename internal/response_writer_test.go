package internal_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kamu/internal"
)

func TestResponseWriter_WriteHeader(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	rw := internal.NewResponseWriter(w)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusNotFound, rw.Status())
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, rw.Written())
}

func TestResponseWriter_Write(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	rw := internal.NewResponseWriter(w)
	assert.False(t, rw.Written())

	n, err := rw.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), rw.Size())
	assert.Equal(t, "hello", w.Body.String())
}

func TestResponseWriter_Hooks(t *testing.T) {
	t.Parallel()

	t.Run("run once in order before headers", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		rw := internal.NewResponseWriter(w)

		var order []string
		rw.OnBeforeWrite(func() {
			order = append(order, "first")
			rw.Header().Set("X-Hook", "yes")
		})
		rw.OnBeforeWrite(func() { order = append(order, "second") })

		rw.WriteHeader(http.StatusCreated)
		_, _ = rw.Write([]byte("x"))

		assert.Equal(t, []string{"first", "second"}, order)
		assert.Equal(t, "yes", w.Header().Get("X-Hook"))
	})

	t.Run("late registration is ignored", func(t *testing.T) {
		t.Parallel()

		rw := internal.NewResponseWriter(httptest.NewRecorder())
		_, _ = rw.Write([]byte("x"))

		called := false
		rw.OnBeforeWrite(func() { called = true })
		rw.WriteHeader(http.StatusOK)
		assert.False(t, called)
	})
}

func TestNewResponseWriter_NoDoubleWrap(t *testing.T) {
	t.Parallel()

	rw := internal.NewResponseWriter(httptest.NewRecorder())
	assert.Same(t, rw, internal.NewResponseWriter(rw))
	assert.NotNil(t, rw.Unwrap())
}
