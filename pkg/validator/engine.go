package validator

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	playground "github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/kamu/pkg/sanitizer"
)

// EngineOption configures NewEngine.
type EngineOption func(*Engine)

// WithSanitizer replaces the value sanitizer. Default: sanitizer.Value,
// which only trims whitespace; use sanitizer.PlainText to strip markup.
func WithSanitizer(fn func(any) any) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.sanitize = fn
		}
	}
}

// WithMessages overrides failure messages per tag. "%s" is the field name,
// an optional second "%s" receives the tag parameter.
func WithMessages(messages map[string]string) EngineOption {
	return func(e *Engine) {
		maps.Copy(e.messages, messages)
	}
}

// WithRule registers a custom tag.
func WithRule(tag string, fn playground.Func) EngineOption {
	return func(e *Engine) {
		e.custom[tag] = fn
	}
}

var defaultMessages = map[string]string{
	"required": "The %s field is required.",
	"email":    "The %s must be a valid email address.",
	"url":      "The %s must be a valid URL.",
	"min":      "The %s must be at least %s.",
	"max":      "The %s may not be greater than %s.",
	"len":      "The %s must be exactly %s.",
	"oneof":    "The selected %s is invalid.",
	"numeric":  "The %s must be a number.",
	"alpha":    "The %s may only contain letters.",
	"alphanum": "The %s may only contain letters and numbers.",
	"eqfield":  "The %s confirmation does not match.",
}

const fallbackMessage = "The %s is invalid."

// Engine runs rule strings through go-playground/validator.
// It is safe for concurrent use; build it once and pass Engine.Factory to the router.
type Engine struct {
	validate *playground.Validate
	sanitize func(any) any
	messages map[string]string
	custom   map[string]playground.Func
	once     sync.Once
}

// NewEngine creates an Engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		sanitize: sanitizer.Value,
		messages: maps.Clone(defaultMessages),
		custom:   make(map[string]playground.Func),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) init() {
	e.once.Do(func() {
		e.validate = playground.New()
		for tag, fn := range e.custom {
			// Registration only fails for empty tags or nil funcs.
			_ = e.validate.RegisterValidation(tag, fn)
		}
	})
}

// Factory returns the Factory bound to this engine.
func (e *Engine) Factory() Factory {
	return e.Make
}

// Make validates the sanitized data against rules. Fields are checked in
// sorted order so messages are deterministic.
func (e *Engine) Make(data map[string]any, rules map[string]string) Validator {
	e.init()

	r := &result{
		data:     data,
		errors:   make(Errors),
		sanitize: e.sanitize,
	}
	for _, field := range slices.Sorted(maps.Keys(rules)) {
		tag := Normalize(rules[field])
		if tag == "" {
			continue
		}
		value := e.sanitize(data[field])
		if value == nil {
			value = ""
		}
		err := e.check(field, value, tag)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrUnknownRule) {
			r.err = errors.Join(r.err, err)
			continue
		}
		var fieldErrs playground.ValidationErrors
		if !asValidationErrors(err, &fieldErrs) {
			r.errors.Add(field, fmt.Sprintf(fallbackMessage, field))
			continue
		}
		for _, fe := range fieldErrs {
			r.errors.Add(field, e.message(field, fe.Tag(), fe.Param()))
		}
	}
	return r
}

// check runs one tag. go-playground panics on undefined tags; that panic
// becomes ErrUnknownRule.
func (e *Engine) check(field string, value any, tag string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: field %q: %v", ErrUnknownRule, field, rec)
		}
	}()
	return e.validate.Var(value, tag)
}

func (e *Engine) message(field, tag, param string) string {
	tmpl, ok := e.messages[tag]
	if !ok {
		tmpl = fallbackMessage
	}
	if strings.Count(tmpl, "%s") > 1 {
		return fmt.Sprintf(tmpl, field, param)
	}
	return fmt.Sprintf(tmpl, field)
}

func asValidationErrors(err error, target *playground.ValidationErrors) bool {
	ve, ok := err.(playground.ValidationErrors)
	if ok {
		*target = ve
	}
	return ok
}

// Normalize converts the pipe rule style to go-playground tags:
// "required|max:255|in:a,b" becomes "required,max=255,oneof=a b".
// Rules without a pipe or colon are returned unchanged.
func Normalize(rules string) string {
	rules = strings.TrimSpace(rules)
	if !strings.ContainsAny(rules, "|:") {
		return rules
	}

	parts := strings.Split(rules, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		name, arg, hasArg := strings.Cut(p, ":")
		if name == "in" {
			name = "oneof"
		}
		if !hasArg {
			out = append(out, name)
			continue
		}
		out = append(out, name+"="+strings.ReplaceAll(arg, ",", " "))
	}
	return strings.Join(out, ",")
}

type result struct {
	data     map[string]any
	errors   Errors
	sanitize func(any) any
	err      error
}

func (r *result) Err() error { return r.err }

func (r *result) Fails() bool    { return len(r.errors) > 0 }
func (r *result) Failed() Errors { return r.errors.Clone() }

func (r *result) Get(field string) any {
	return r.sanitize(r.data[field])
}

func (r *result) Throw(errs Errors) {
	r.errors.Merge(errs)
}
