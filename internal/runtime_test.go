package internal_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kamu/internal"
)

func TestRun_ServesAndShutsDown(t *testing.T) {
	t.Parallel()

	tbl := internal.NewTable()
	tbl.GET("/ping", text("pong"))
	r := internal.NewRouter()
	require.NoError(t, r.Load(tbl))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	hookErr := errors.New("close failed")
	var hooks []string

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- internal.Run(ctx, r,
			internal.Listener(ln),
			internal.ShutdownTimeout(time.Second),
			internal.ShutdownHook(func(context.Context) error {
				hooks = append(hooks, "first")
				return nil
			}),
			internal.ShutdownHook(func(context.Context) error {
				hooks = append(hooks, "second")
				return hookErr
			}),
		)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, hookErr)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Equal(t, []string{"first", "second"}, hooks)
}

func TestRun_ListenError(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = internal.Run(t.Context(), http.NotFoundHandler(), internal.Address(ln.Addr().String()))
	require.Error(t, err)
}
