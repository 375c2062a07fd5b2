package internal_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/kamu/internal"
)

func attrs(kv []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(kv))
	for _, a := range kv {
		out[string(a.Key)] = a.Value
	}
	return out
}

func TestRouter_Spans(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	r := internal.NewRouter(internal.WithTracerProvider(tp))
	tbl := internal.NewTable()
	tbl.GET("/users/{id}", text("user"))
	tbl.GET("/boom", func(internal.Context) error { return errors.New("db down") })
	require.NoError(t, r.Load(tbl))

	serve(r, http.MethodGet, "/users/7", "")
	serve(r, http.MethodGet, "/boom", "")
	serve(r, http.MethodGet, "/nowhere", "")

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)

	ok := spans[0]
	assert.Equal(t, "GET /users/7", ok.Name)
	assert.Equal(t, trace.SpanKindServer, ok.SpanKind)
	a := attrs(ok.Attributes)
	assert.Equal(t, "/users/{id}", a["http.route"].AsString())
	assert.EqualValues(t, http.StatusOK, a["http.status_code"].AsInt64())
	assert.Equal(t, codes.Unset, ok.Status.Code)

	failed := spans[1]
	assert.Equal(t, codes.Error, failed.Status.Code)
	require.NotEmpty(t, failed.Events)
	assert.Equal(t, "exception", failed.Events[0].Name)

	missing := attrs(spans[2].Attributes)
	_, hasRoute := missing["http.route"]
	assert.False(t, hasRoute)
	assert.EqualValues(t, http.StatusNotFound, missing["http.status_code"].AsInt64())
}
