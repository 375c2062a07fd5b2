package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrymomot/kamu/pkg/cache"
)

// Store persists session values by id.
type Store interface {
	// Load returns ErrNotFound for unknown or expired ids.
	Load(ctx context.Context, id string) (map[string]any, error)
	Save(ctx context.Context, id string, values map[string]any, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// CacheStore keeps JSON-encoded sessions in a byte cache, which can be
// cache.Memory for a single process or cache.Redis for a fleet.
type CacheStore struct {
	cache cache.Cache[[]byte]
}

// NewCacheStore creates a store over c.
func NewCacheStore(c cache.Cache[[]byte]) *CacheStore {
	return &CacheStore{cache: c}
}

func (s *CacheStore) Load(ctx context.Context, id string) (map[string]any, error) {
	data, err := s.cache.Get(ctx, id)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errors.Join(ErrDecode, err)
	}
	return values, nil
}

func (s *CacheStore) Save(ctx context.Context, id string, values map[string]any, ttl time.Duration) error {
	data, err := json.Marshal(values)
	if err != nil {
		return errors.Join(ErrEncode, err)
	}
	return s.cache.Set(ctx, id, data, ttl)
}

func (s *CacheStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, id)
}

var _ Store = (*CacheStore)(nil)
