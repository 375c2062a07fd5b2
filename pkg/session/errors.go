package session

import "errors"

var (
	// ErrNotFound is returned by stores for unknown or expired ids.
	ErrNotFound = errors.New("session: not found")

	// ErrTypeMismatch is returned by Value when the stored type differs.
	ErrTypeMismatch = errors.New("session: type mismatch")

	ErrEncode = errors.New("session: failed to encode values")
	ErrDecode = errors.New("session: failed to decode values")
)
