package internal

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// Methods a route may be registered for.
var routeMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// Action references the code a route runs. It is either a controller
// method ("Users@show" or "Users#show"), a registered handler name, or a
// Go closure. Closures cannot be written to a route cache.
type Action struct {
	Controller string
	Method     string
	Handler    string
	fn         HandlerFunc
}

// ParseAction reads the string form of an action.
func ParseAction(s string) Action {
	s = strings.TrimSpace(s)
	if ctrl, method, ok := strings.Cut(s, "@"); ok {
		return Action{Controller: ctrl, Method: method}
	}
	if ctrl, method, ok := strings.Cut(s, "#"); ok {
		return Action{Controller: ctrl, Method: method}
	}
	return Action{Handler: s}
}

// FuncAction wraps a closure.
func FuncAction(fn HandlerFunc) Action {
	return Action{fn: fn}
}

// Cacheable reports whether the action can be represented as data.
func (a Action) Cacheable() bool {
	return a.fn == nil
}

// IsZero reports whether the action references nothing.
func (a Action) IsZero() bool {
	return a.fn == nil && a.Handler == "" && a.Controller == "" && a.Method == ""
}

func (a Action) String() string {
	switch {
	case a.fn != nil:
		return "closure"
	case a.Controller != "":
		return a.Controller + "@" + a.Method
	default:
		return a.Handler
	}
}

// RouteDef is the plain-data form of a registered route.
// Pattern already carries the group prefixes and Middleware the group
// middleware followed by the route's own.
type RouteDef struct {
	Method     string
	Pattern    string
	Action     Action
	Middleware []string
	Name       string
}

// Route is the handle returned by registration calls.
// It can still be named or extended until the table is installed.
type Route struct {
	def  RouteDef
	segs []segment
}

// Name sets the route name used for URL generation.
func (r *Route) Name(name string) *Route {
	r.def.Name = name
	return r
}

// Middleware appends route-level middleware.
func (r *Route) Middleware(names ...string) *Route {
	r.def.Middleware = append(r.def.Middleware, names...)
	return r
}

// Def returns a copy of the route's data.
func (r *Route) Def() RouteDef {
	d := r.def
	d.Middleware = slices.Clone(r.def.Middleware)
	return d
}

type segment struct {
	value string
	param bool
}

// cleanPath normalizes a path: one leading slash, no empty segments,
// no trailing slash except for the root.
func cleanPath(p string) string {
	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return "/" + strings.Join(kept, "/")
}

// joinPath concatenates path pieces without doubling separators.
func joinPath(parts ...string) string {
	return cleanPath(strings.Join(parts, "/"))
}

// compilePattern splits a pattern into literal and {param} segments.
func compilePattern(pattern string) ([]segment, error) {
	p := cleanPath(pattern)
	if p == "/" {
		return nil, nil
	}
	raw := strings.Split(p[1:], "/")
	segs := make([]segment, 0, len(raw))
	seen := make(map[string]bool)
	for _, s := range raw {
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			name := s[1 : len(s)-1]
			if name == "" || strings.ContainsAny(name, "{}") {
				return nil, fmt.Errorf("%w: %q has an empty or nested parameter", ErrInvalidPattern, pattern)
			}
			if seen[name] {
				return nil, fmt.Errorf("%w: %q repeats parameter %q", ErrInvalidPattern, pattern, name)
			}
			seen[name] = true
			segs = append(segs, segment{value: name, param: true})
			continue
		}
		if strings.ContainsAny(s, "{}") {
			return nil, fmt.Errorf("%w: %q mixes text and parameter in one segment", ErrInvalidPattern, pattern)
		}
		segs = append(segs, segment{value: s})
	}
	return segs, nil
}

// signature is the pattern with parameter names erased. Two patterns with
// the same signature match exactly the same paths.
func signature(segs []segment) string {
	if len(segs) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		if s.param {
			b.WriteString("{}")
		} else {
			b.WriteString(s.value)
		}
	}
	return b.String()
}

// matchSegments binds parameters positionally against an escaped path. It
// returns false when the literal segments or the segment count differ.
// Segments are split before unescaping, so an encoded slash stays inside
// its parameter. Empty segments are kept; one trailing slash is ignored.
func matchSegments(segs []segment, path string) (map[string]string, bool) {
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")
	var parts []string
	if path != "" {
		parts = strings.Split(path, "/")
	}
	if len(parts) != len(segs) {
		return nil, false
	}
	var params map[string]string
	for i, s := range segs {
		part := unescapeSegment(parts[i])
		if part == "" {
			return nil, false
		}
		if !s.param {
			if part != s.value {
				return nil, false
			}
			continue
		}
		if params == nil {
			params = make(map[string]string, len(segs))
		}
		params[s.value] = part
	}
	return params, true
}

// unescapeSegment decodes one path segment, keeping it raw when it is not
// valid percent-encoding.
func unescapeSegment(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}

// buildPath fills a pattern with parameter values.
func buildPath(segs []segment, params map[string]string) (string, error) {
	if len(segs) == 0 {
		return "/", nil
	}
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		if !s.param {
			b.WriteString(s.value)
			continue
		}
		v, ok := params[s.value]
		if !ok || v == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingParam, s.value)
		}
		b.WriteString(url.PathEscape(v))
	}
	return b.String(), nil
}
