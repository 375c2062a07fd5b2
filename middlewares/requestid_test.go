package middlewares_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kamu/internal"
	"github.com/dmitrymomot/kamu/middlewares"
	"github.com/dmitrymomot/kamu/pkg/logger"
)

func echoRequestID(tbl *internal.Table) {
	tbl.GET("/", func(c internal.Context) error {
		c.Logger().InfoContext(c, "handled")
		return c.String(http.StatusOK, middlewares.GetRequestID(c))
	})
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	t.Run("generates uuid", func(t *testing.T) {
		t.Parallel()

		r := newRouter(t, echoRequestID, internal.WithMiddleware(middlewares.RequestID()))
		rec := do(r, httptest.NewRequest(http.MethodGet, "/", nil))

		id := rec.Body.String()
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, rec.Header().Get("X-Request-ID"))
	})

	t.Run("keeps upstream id in header order", func(t *testing.T) {
		t.Parallel()

		r := newRouter(t, echoRequestID, internal.WithMiddleware(middlewares.RequestID()))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Correlation-ID", "corr")
		req.Header.Set("X-Request-ID", "upstream")

		rec := do(r, req)
		assert.Equal(t, "upstream", rec.Body.String())
		assert.Equal(t, "upstream", rec.Header().Get("X-Request-ID"))
	})

	t.Run("custom headers generator and response header", func(t *testing.T) {
		t.Parallel()

		r := newRouter(t, echoRequestID, internal.WithMiddleware(middlewares.RequestID(
			middlewares.WithRequestIDHeaders("X-Trace"),
			middlewares.WithRequestIDGenerator(func() string { return "fixed" }),
			middlewares.WithRequestIDResponseHeader("X-Trace"),
		)))

		rec := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "fixed", rec.Body.String())
		assert.Equal(t, "fixed", rec.Header().Get("X-Trace"))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "ignored")
		req.Header.Set("X-Trace", "trace-1")
		assert.Equal(t, "trace-1", do(r, req).Body.String())
	})

	t.Run("custom extractor", func(t *testing.T) {
		t.Parallel()

		r := newRouter(t, echoRequestID, internal.WithMiddleware(middlewares.RequestID(
			middlewares.WithRequestIDExtractor(internal.NewExtractor(internal.FromInput("rid"))),
		)))
		rec := do(r, httptest.NewRequest(http.MethodGet, "/?rid=from-query", nil))
		assert.Equal(t, "from-query", rec.Body.String())
	})

	t.Run("extractor tags log entries", func(t *testing.T) {
		t.Parallel()

		logs := &syncBuffer{}
		log := logger.New(
			logger.WithWriter(logs),
			logger.WithLevel(slog.LevelInfo),
			logger.WithExtractors(middlewares.RequestIDExtractor()),
		)
		r := newRouter(t, echoRequestID,
			internal.WithCustomLogger(log),
			internal.WithMiddleware(middlewares.RequestID()),
		)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-42")
		do(r, req)

		var handled map[string]any
		for _, line := range logs.lines(t) {
			if line["msg"] == "handled" {
				handled = line
			}
		}
		require.NotNil(t, handled)
		assert.Equal(t, "req-42", handled["request_id"])
	})
}

func TestGetRequestID_Empty(t *testing.T) {
	t.Parallel()

	r := newRouter(t, echoRequestID)
	assert.Empty(t, do(r, httptest.NewRequest(http.MethodGet, "/", nil)).Body.String())
}
