package internal

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/kamu/pkg/validator"
)

// Input errors.
var (
	ErrNotJSONObject = errors.New("kamu: request body is not a JSON object")
	ErrBodyTooLarge  = errors.New("kamu: request body too large")
	ErrBodyRead      = errors.New("kamu: failed to read request body")
)

// Routing errors.
var (
	ErrRouteNotFound     = errors.New("kamu: route not found")
	ErrDuplicateRoute    = errors.New("kamu: duplicate route")
	ErrNoGroup           = errors.New("kamu: no open route group")
	ErrInvalidPattern    = errors.New("kamu: invalid route pattern")
	ErrInvalidMethod     = errors.New("kamu: invalid route method")
	ErrUnknownAction     = errors.New("kamu: unknown route action")
	ErrUnknownMiddleware = errors.New("kamu: unknown middleware")
	ErrUncacheableAction = errors.New("kamu: route action cannot be cached")
	ErrUnknownRouteName  = errors.New("kamu: unknown route name")
	ErrMissingParam      = errors.New("kamu: missing route parameter")
	ErrInvalidRouteFile  = errors.New("kamu: invalid route file")
)

// Route cache errors.
var (
	ErrCacheMissing = errors.New("kamu: route cache missing")
	ErrCacheStale   = errors.New("kamu: route cache is stale")
	ErrCacheCorrupt = errors.New("kamu: route cache is corrupt")
)

// Validation gate errors.
var (
	ErrValidatorBound = errors.New("kamu: a validator is already bound to this request")
	ErrNoSession      = errors.New("kamu: no session bound to this request")
	ErrThrowType      = errors.New("kamu: throw accepts a validator or an error bag")
)

// ValidationError is returned by the validation gate when input fails.
// The old input and errors are already flashed; the router answers with a
// redirect to Target and stops the chain.
type ValidationError struct {
	Errors validator.Errors
	Target string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s), redirecting to %s", len(e.Errors), e.Target)
}

// AsValidationError extracts a ValidationError from err, or nil.
func AsValidationError(err error) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

// HTTPError is a handler-declared failure with a status code.
type HTTPError struct {
	// Err is the underlying error (for logging, not exposed to users).
	Err error

	// Message is the user-facing error message.
	Message string

	// Code is the HTTP status code (e.g., 404, 500).
	Code int
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func (e *HTTPError) StatusCode() int {
	return e.Code
}

// NewHTTPError creates a new HTTPError with the given status code and message.
// An empty message falls back to the status text.
func NewHTTPError(code int, message string) *HTTPError {
	if message == "" {
		message = http.StatusText(code)
	}
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

// Wrap attaches an underlying error.
func (e *HTTPError) Wrap(err error) *HTTPError {
	e.Err = err
	return e
}

// AsHTTPError extracts the HTTPError from an error if present.
// Returns nil if the error is not an HTTPError.
func AsHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return nil
}

// StatusFor maps a dispatch error to a response status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrRouteNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrBodyRead):
		return http.StatusBadRequest
	case AsValidationError(err) != nil:
		return http.StatusFound
	}
	var sc statusCoder
	if errors.As(err, &sc) && sc.StatusCode() > 0 {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// statusCoder is implemented by errors that choose their response status.
type statusCoder interface {
	StatusCode() int
}
