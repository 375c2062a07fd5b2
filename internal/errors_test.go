package internal_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kamu/internal"
	"github.com/dmitrymomot/kamu/pkg/validator"
)

func TestAsHTTPError(t *testing.T) {
	t.Parallel()

	t.Run("direct", func(t *testing.T) {
		t.Parallel()
		err := internal.NewHTTPError(http.StatusNotFound, "not found")
		require.NotNil(t, internal.AsHTTPError(err))
		assert.Equal(t, http.StatusNotFound, internal.AsHTTPError(err).StatusCode())
	})

	t.Run("wrapped", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("handler failed: %w", internal.NewHTTPError(http.StatusBadRequest, ""))
		he := internal.AsHTTPError(err)
		require.NotNil(t, he)
		assert.Equal(t, "Bad Request", he.Message)
	})

	t.Run("plain error", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, internal.AsHTTPError(errors.New("boom")))
		assert.Nil(t, internal.AsHTTPError(nil))
	})

	t.Run("unwrap", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("db down")
		err := internal.NewHTTPError(http.StatusServiceUnavailable, "try later").Wrap(cause)
		require.ErrorIs(t, err, cause)
	})
}

func TestAsValidationError(t *testing.T) {
	t.Parallel()

	ve := &internal.ValidationError{Target: "/form", Errors: validator.Errors{"email": {"required"}}}
	wrapped := errors.Join(errors.New("context"), ve)

	got := internal.AsValidationError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, "/form", got.Target)
	assert.Contains(t, got.Error(), "/form")
	assert.Nil(t, internal.AsValidationError(errors.New("other")))
}
