// Package session implements the key/value session used for flash input,
// validation errors and the remembered previous route.
package session

import (
	"errors"
	"maps"
	"sync"
)

// Session holds one client's values for the duration of a request.
// It is safe for concurrent use by middleware and handlers of that request.
type Session struct {
	values map[string]any
	id     string
	mu     sync.RWMutex
	dirty  bool
	isNew  bool
}

// New creates an empty, unsaved session.
func New(id string) *Session {
	return &Session{id: id, values: make(map[string]any), isNew: true, dirty: true}
}

// Restore wraps values loaded from a store.
func Restore(id string, values map[string]any) *Session {
	if values == nil {
		values = make(map[string]any)
	}
	return &Session{id: id, values: values}
}

func (s *Session) ID() string { return s.id }

// Get returns the stored value or def when the key is absent.
func (s *Session) Get(key string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

func (s *Session) Set(key string, val any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = val
	s.dirty = true
}

func (s *Session) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[key]
	return ok
}

func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// Pull returns the value and removes it, so it is observed exactly once.
func (s *Session) Pull(key string, def any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return def
	}
	delete(s.values, key)
	s.dirty = true
	return v
}

// Flash stores val for the next request only: the reader takes it with
// Pull, which removes it. A second Flash before that overwrites it.
func (s *Session) Flash(key string, val any) {
	s.Set(key, val)
}

// Values returns a shallow copy of all values.
func (s *Session) Values() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

func (s *Session) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

func (s *Session) IsNew() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isNew
}

// markSaved is called by the Manager once values are persisted.
func (s *Session) markSaved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
	s.isNew = false
}

// Value is a typed getter.
func Value[T any](s *Session, key string) (T, error) {
	var zero T
	if s == nil {
		return zero, ErrNotFound
	}
	v := s.Get(key, nil)
	if v == nil {
		return zero, ErrNotFound
	}
	typed, ok := v.(T)
	if !ok {
		return zero, errors.Join(ErrTypeMismatch, errors.New(key))
	}
	return typed, nil
}

// ValueOr is Value with a fallback for missing or mistyped keys.
func ValueOr[T any](s *Session, key string, def T) T {
	v, err := Value[T](s, key)
	if err != nil {
		return def
	}
	return v
}
