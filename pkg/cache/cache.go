package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Cache is a key-value store with per-entry TTL.
type Cache[V any] interface {
	// Get returns ErrNotFound for missing or expired keys.
	Get(ctx context.Context, key string) (V, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
	Close() error
}

// Marshaler converts values to and from bytes for byte-oriented backends.
type Marshaler[V any] interface {
	Marshal(v V) ([]byte, error)
	Unmarshal(data []byte) (V, error)
}

type jsonMarshaler[V any] struct{}

func (jsonMarshaler[V]) Marshal(v V) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrMarshal, err)
	}
	return data, nil
}

func (jsonMarshaler[V]) Unmarshal(data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrUnmarshal, err)
	}
	return v, nil
}

type rawMarshaler struct{}

func (rawMarshaler) Marshal(v []byte) ([]byte, error)    { return v, nil }
func (rawMarshaler) Unmarshal(data []byte) ([]byte, error) { return data, nil }

// Raw stores byte slices as-is.
func Raw() Marshaler[[]byte] {
	return rawMarshaler{}
}
