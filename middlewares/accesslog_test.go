package middlewares_test

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kamu/internal"
	"github.com/dmitrymomot/kamu/middlewares"
)

func TestAccessLog(t *testing.T) {
	t.Parallel()

	logs := &syncBuffer{}
	log := slog.New(slog.NewJSONHandler(logs, nil))

	r := newRouter(t, func(tbl *internal.Table) {
		tbl.GET("/users/{id}", func(c internal.Context) error {
			return c.String(http.StatusOK, c.Param("id"))
		})
		tbl.GET("/fail", func(internal.Context) error { return errors.New("db down") })
		tbl.GET("/health", func(c internal.Context) error { return c.NoContent(http.StatusNoContent) })
	}, internal.WithMiddleware(middlewares.AccessLog(
		middlewares.WithAccessLogger(log),
		middlewares.WithAccessLogSkip(func(c internal.Context) bool { return c.Input().Path() == "/health" }),
	)))

	req := httptest.NewRequest(http.MethodGet, "/users/7", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	do(r, req)
	do(r, httptest.NewRequest(http.MethodGet, "/fail", nil))
	do(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	do(r, httptest.NewRequest(http.MethodGet, "/missing", nil))

	lines := logs.lines(t)
	require.Len(t, lines, 3)

	assert.Equal(t, "request", lines[0]["msg"])
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "GET", lines[0]["method"])
	assert.Equal(t, "/users/7", lines[0]["path"])
	assert.Equal(t, "/users/{id}", lines[0]["route"])
	assert.EqualValues(t, http.StatusOK, lines[0]["status"])
	assert.Equal(t, "203.0.113.9", lines[0]["ip"])

	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.EqualValues(t, http.StatusInternalServerError, lines[1]["status"])
	assert.Equal(t, "db down", lines[1]["error"])

	assert.Equal(t, "WARN", lines[2]["level"])
	assert.EqualValues(t, http.StatusNotFound, lines[2]["status"])
	assert.Empty(t, lines[2]["route"])
}
