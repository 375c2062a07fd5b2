package internal

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Group is one level of the registration scope.
type Group struct {
	Prefix     string
	Middleware []string
	Controller string
}

// Table is the route table builder. Routes are kept in registration order,
// which is also their match priority.
//
// A Table is not safe for concurrent use. Build it on one goroutine, then
// hand it to Router.Load, which compiles an immutable snapshot.
type Table struct {
	routes []*Route
	groups []Group
	errs   []error

	// source and checksum describe the route file the table was loaded from.
	source   string
	checksum string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// AddRoute registers a route under the active group scope. The action may be
// a string ("Users@show", "Users#show", a handler name, or a bare method name
// inside a controller group), an Action, a HandlerFunc or a func(Context) error.
//
// Registration errors do not interrupt the builder; they are collected and
// reported by Err.
func (t *Table) AddRoute(method, pattern string, action any, middleware ...string) *Route {
	method = strings.ToUpper(method)
	scope := t.scope()

	r := &Route{def: RouteDef{
		Method:     method,
		Pattern:    joinPath(scope.Prefix, pattern),
		Middleware: append(slices.Clone(scope.Middleware), middleware...),
	}}

	if !slices.Contains(routeMethods, method) {
		t.errs = append(t.errs, fmt.Errorf("%w: %s %s", ErrInvalidMethod, method, r.def.Pattern))
	}
	segs, err := compilePattern(r.def.Pattern)
	if err != nil {
		t.errs = append(t.errs, err)
	}
	r.segs = segs

	act, err := toAction(action, scope.Controller)
	if err != nil {
		t.errs = append(t.errs, fmt.Errorf("%s %s: %w", method, r.def.Pattern, err))
	}
	r.def.Action = act

	t.routes = append(t.routes, r)
	return r
}

func toAction(action any, controller string) (Action, error) {
	switch a := action.(type) {
	case Action:
		return a, nil
	case HandlerFunc:
		return FuncAction(a), nil
	case func(Context) error:
		return FuncAction(a), nil
	case string:
		act := ParseAction(a)
		if controller != "" && act.Handler != "" {
			act = Action{Controller: controller, Method: act.Handler}
		}
		if act.IsZero() || (act.Controller != "" && act.Method == "") {
			return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, a)
		}
		return act, nil
	default:
		return Action{}, fmt.Errorf("%w: unsupported type %T", ErrUnknownAction, action)
	}
}

func (t *Table) GET(pattern string, action any, middleware ...string) *Route {
	return t.AddRoute("GET", pattern, action, middleware...)
}

func (t *Table) POST(pattern string, action any, middleware ...string) *Route {
	return t.AddRoute("POST", pattern, action, middleware...)
}

func (t *Table) PUT(pattern string, action any, middleware ...string) *Route {
	return t.AddRoute("PUT", pattern, action, middleware...)
}

func (t *Table) PATCH(pattern string, action any, middleware ...string) *Route {
	return t.AddRoute("PATCH", pattern, action, middleware...)
}

func (t *Table) DELETE(pattern string, action any, middleware ...string) *Route {
	return t.AddRoute("DELETE", pattern, action, middleware...)
}

func (t *Table) OPTIONS(pattern string, action any, middleware ...string) *Route {
	return t.AddRoute("OPTIONS", pattern, action, middleware...)
}

// PushGroup opens a nested registration scope.
func (t *Table) PushGroup(g Group) {
	g.Middleware = slices.Clone(g.Middleware)
	t.groups = append(t.groups, g)
}

// PopGroup closes the innermost scope.
func (t *Table) PopGroup() error {
	if len(t.groups) == 0 {
		return ErrNoGroup
	}
	t.groups = t.groups[:len(t.groups)-1]
	return nil
}

// Depth returns the number of open scopes.
func (t *Table) Depth() int {
	return len(t.groups)
}

// Group runs fn inside the given scope.
func (t *Table) Group(g Group, fn func(t *Table)) *Table {
	t.PushGroup(g)
	defer func() { _ = t.PopGroup() }()
	fn(t)
	return t
}

// Prefix runs fn with pattern prefixed to every route it registers.
func (t *Table) Prefix(prefix string, fn func(t *Table)) *Table {
	return t.Group(Group{Prefix: prefix}, fn)
}

// Controller runs fn with bare method names resolved against name.
func (t *Table) Controller(name string, fn func(t *Table)) *Table {
	return t.Group(Group{Controller: name}, fn)
}

// Middleware runs fn with names prepended to every route's middleware.
func (t *Table) Middleware(names []string, fn func(t *Table)) *Table {
	return t.Group(Group{Middleware: names}, fn)
}

// scope flattens the group stack. Prefixes and middleware compose from the
// outermost group inwards; the innermost controller wins.
func (t *Table) scope() Group {
	var g Group
	prefixes := make([]string, 0, len(t.groups))
	for _, lvl := range t.groups {
		prefixes = append(prefixes, lvl.Prefix)
		g.Middleware = append(g.Middleware, lvl.Middleware...)
		if lvl.Controller != "" {
			g.Controller = lvl.Controller
		}
	}
	g.Prefix = joinPath(prefixes...)
	return g
}

// Routes returns the route definitions in registration order.
func (t *Table) Routes() []RouteDef {
	out := make([]RouteDef, len(t.routes))
	for i, r := range t.routes {
		out[i] = r.Def()
	}
	return out
}

// Len returns the number of registered routes.
func (t *Table) Len() int {
	return len(t.routes)
}

// Source returns the route file the table was loaded from, if any.
func (t *Table) Source() string {
	return t.source
}

// Err returns the registration errors collected so far, joined.
func (t *Table) Err() error {
	return errors.Join(t.errs...)
}

// Cacheable reports an error for every route whose action is a closure.
func (t *Table) Cacheable() error {
	var errs []error
	for _, r := range t.routes {
		if !r.def.Action.Cacheable() {
			errs = append(errs, fmt.Errorf("%w: %s %s", ErrUncacheableAction, r.def.Method, r.def.Pattern))
		}
	}
	return errors.Join(errs...)
}

// Validate reports routes that can never match because an earlier route of
// the same method has a structurally identical pattern, and route names
// used more than once.
func (t *Table) Validate() error {
	errs := slices.Clone(t.errs)
	if len(t.groups) > 0 {
		errs = append(errs, fmt.Errorf("kamu: %d route group(s) left open", len(t.groups)))
	}

	seen := make(map[string]string, len(t.routes))
	names := make(map[string]string)
	for _, r := range t.routes {
		key := r.def.Method + " " + signature(r.segs)
		if first, ok := seen[key]; ok {
			errs = append(errs, fmt.Errorf("%w: %s %s shadowed by %s", ErrDuplicateRoute, r.def.Method, r.def.Pattern, first))
		} else {
			seen[key] = r.def.Pattern
		}
		if r.def.Name == "" {
			continue
		}
		if first, ok := names[r.def.Name]; ok {
			errs = append(errs, fmt.Errorf("%w: name %q used by %s and %s", ErrDuplicateRoute, r.def.Name, first, r.def.Pattern))
		} else {
			names[r.def.Name] = r.def.Pattern
		}
	}
	return errors.Join(errs...)
}

// Reset drops all routes and scopes.
func (t *Table) Reset() {
	t.routes = nil
	t.groups = nil
	t.errs = nil
	t.source = ""
	t.checksum = ""
}

// setRoutes replaces the definitions with already-flattened data.
func (t *Table) setRoutes(defs []RouteDef) error {
	routes := make([]*Route, 0, len(defs))
	for _, d := range defs {
		if !slices.Contains(routeMethods, d.Method) {
			return fmt.Errorf("%w: %s %s", ErrInvalidMethod, d.Method, d.Pattern)
		}
		segs, err := compilePattern(d.Pattern)
		if err != nil {
			return err
		}
		d.Pattern = cleanPath(d.Pattern)
		d.Middleware = slices.Clone(d.Middleware)
		routes = append(routes, &Route{def: d, segs: segs})
	}
	t.routes = routes
	t.groups = nil
	t.errs = nil
	return nil
}
