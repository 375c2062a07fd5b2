package internal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/kamu/pkg/cache"
)

// routeCacheVersion is bumped whenever the record layout changes.
const routeCacheVersion = 1

// routeCacheDoc is the compiled route table as plain data.
type routeCacheDoc struct {
	Version  int           `yaml:"version"`
	Checksum string        `yaml:"checksum,omitempty"`
	Routes   []routeRecord `yaml:"routes"`
}

type routeRecord struct {
	Method     string   `yaml:"method"`
	Pattern    string   `yaml:"pattern"`
	Action     string   `yaml:"action"`
	Middleware []string `yaml:"middleware,omitempty"`
	Name       string   `yaml:"name,omitempty"`
}

// CacheOption configures cache reads.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	checksum string
	source   string
}

// WithSourceFile rejects a cache whose recorded checksum does not match the
// current contents of the route file at path.
func WithSourceFile(path string) CacheOption {
	return func(o *cacheOptions) {
		o.source = path
	}
}

// WithChecksum rejects a cache whose recorded checksum differs from sum.
func WithChecksum(sum string) CacheOption {
	return func(o *cacheOptions) {
		o.checksum = sum
	}
}

// MarshalCache encodes the table. Closures cannot be encoded.
func (t *Table) MarshalCache() ([]byte, error) {
	if err := t.Cacheable(); err != nil {
		return nil, err
	}
	doc := routeCacheDoc{
		Version:  routeCacheVersion,
		Checksum: t.checksum,
		Routes:   make([]routeRecord, 0, len(t.routes)),
	}
	for _, r := range t.routes {
		doc.Routes = append(doc.Routes, routeRecord{
			Method:     r.def.Method,
			Pattern:    r.def.Pattern,
			Action:     r.def.Action.String(),
			Middleware: r.def.Middleware,
			Name:       r.def.Name,
		})
	}
	return yaml.Marshal(doc)
}

// UnmarshalCache replaces the table's definitions with the encoded ones.
// The table is left untouched on error.
func (t *Table) UnmarshalCache(data []byte, opts ...CacheOption) error {
	var o cacheOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.source != "" {
		sum, err := FileChecksum(o.source)
		if err != nil {
			return errors.Join(ErrCacheStale, err)
		}
		o.checksum = sum
	}

	var doc routeCacheDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.Join(ErrCacheCorrupt, err)
	}
	if doc.Version != routeCacheVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrCacheCorrupt, doc.Version, routeCacheVersion)
	}
	if o.checksum != "" && doc.Checksum != o.checksum {
		return ErrCacheStale
	}

	defs := make([]RouteDef, 0, len(doc.Routes))
	for _, rec := range doc.Routes {
		act := ParseAction(rec.Action)
		if act.IsZero() {
			return fmt.Errorf("%w: %s %s has no action", ErrCacheCorrupt, rec.Method, rec.Pattern)
		}
		defs = append(defs, RouteDef{
			Method:     rec.Method,
			Pattern:    rec.Pattern,
			Action:     act,
			Middleware: rec.Middleware,
			Name:       rec.Name,
		})
	}
	if err := t.setRoutes(defs); err != nil {
		return errors.Join(ErrCacheCorrupt, err)
	}
	t.checksum = doc.Checksum
	t.source = o.source
	return nil
}

// CompileToCache writes the table to path atomically.
func (t *Table) CompileToCache(path string) error {
	data, err := t.MarshalCache()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".routes-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFromCache replaces the definitions with the compiled cache at path.
// It returns false with a reason when the cache is missing, corrupt or stale;
// callers then fall back to LoadFile.
func (t *Table) LoadFromCache(path string, opts ...CacheOption) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, ErrCacheMissing
	}
	if err != nil {
		return false, errors.Join(ErrCacheCorrupt, err)
	}
	if err := t.UnmarshalCache(data, opts...); err != nil {
		return false, err
	}
	return true, nil
}

// ClearCache removes the cache file. A missing file is not an error.
func ClearCache(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// LoadRoutes fills t from the cache at cachePath when it is fresh, otherwise
// from the route file. It reports whether the cache was used.
func LoadRoutes(t *Table, routesPath, cachePath string) (bool, error) {
	if cachePath != "" {
		var opts []CacheOption
		if routesPath != "" {
			opts = append(opts, WithSourceFile(routesPath))
		}
		if ok, _ := t.LoadFromCache(cachePath, opts...); ok {
			return true, nil
		}
	}
	t.Reset()
	return false, t.LoadFile(routesPath)
}

// RouteCacheStore shares a compiled route table between instances through
// a byte cache such as Redis.
type RouteCacheStore struct {
	cache cache.Cache[[]byte]
	key   string
	ttl   time.Duration
}

// NewRouteCacheStore stores the table under key. A zero ttl uses the
// cache's default; a negative ttl never expires.
func NewRouteCacheStore(c cache.Cache[[]byte], key string, ttl time.Duration) *RouteCacheStore {
	if key == "" {
		key = "routes"
	}
	return &RouteCacheStore{cache: c, key: key, ttl: ttl}
}

// Save publishes the compiled table.
func (s *RouteCacheStore) Save(ctx context.Context, t *Table) error {
	data, err := t.MarshalCache()
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.key, data, s.ttl)
}

// Load fills t from the shared cache. Same contract as Table.LoadFromCache.
func (s *RouteCacheStore) Load(ctx context.Context, t *Table, opts ...CacheOption) (bool, error) {
	data, err := s.cache.Get(ctx, s.key)
	if errors.Is(err, cache.ErrNotFound) {
		return false, ErrCacheMissing
	}
	if err != nil {
		return false, errors.Join(ErrCacheCorrupt, err)
	}
	if err := t.UnmarshalCache(data, opts...); err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes the shared table.
func (s *RouteCacheStore) Clear(ctx context.Context) error {
	return s.cache.Delete(ctx, s.key)
}
