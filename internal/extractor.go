package internal

import (
	"fmt"
	"strings"
)

// ExtractorSource extracts a value from the request context.
// Returns the value and true if found, or ("", false) if not present.
type ExtractorSource = func(Context) (string, bool)

// Extractor tries multiple sources in order and returns the first match.
type Extractor struct {
	sources []ExtractorSource
}

// NewExtractor creates an Extractor that tries the given sources in order.
func NewExtractor(sources ...ExtractorSource) Extractor {
	return Extractor{sources: sources}
}

// Extract iterates sources in order and returns the first non-empty value.
// Returns ("", false) if all sources miss.
func (e Extractor) Extract(c Context) (string, bool) {
	for _, src := range e.sources {
		if v, ok := src(c); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func nonEmpty(v string) (string, bool) {
	return v, v != ""
}

// FromHeader returns a source that reads from a request header.
func FromHeader(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		return nonEmpty(c.Header(name))
	}
}

// FromInput returns a source that reads a merged input value
// (query, form or JSON body).
func FromInput(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		return nonEmpty(c.Input().String(name))
	}
}

// FromServer returns a source that reads a server fact such as REMOTE_ADDR.
func FromServer(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		return nonEmpty(c.Input().Server(name))
	}
}

// FromCookie returns a source that reads from a plain cookie.
func FromCookie(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		ck, err := c.Request().Cookie(name)
		if err != nil {
			return "", false
		}
		return nonEmpty(ck.Value)
	}
}

// FromParam returns a source that reads from a URL parameter.
func FromParam(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		return nonEmpty(c.Param(name))
	}
}

// FromSession returns a source that reads from a session value.
// Tries string type assertion first, falls back to fmt.Sprint for non-string values.
func FromSession(key string) ExtractorSource {
	return func(c Context) (string, bool) {
		sess := c.Session()
		if sess == nil {
			return "", false
		}
		switch val := sess.Get(key, nil).(type) {
		case nil:
			return "", false
		case string:
			return nonEmpty(val)
		default:
			return nonEmpty(fmt.Sprint(val))
		}
	}
}

// FromBearerToken returns a source that reads a Bearer token from the Authorization header.
// Uses case-insensitive comparison on the "Bearer " prefix.
func FromBearerToken() ExtractorSource {
	return func(c Context) (string, bool) {
		auth := c.Header("Authorization")
		if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
			return "", false
		}
		return nonEmpty(auth[7:])
	}
}
