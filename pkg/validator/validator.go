// Package validator defines the contract the validation gate relies on and
// ships a default engine built on go-playground/validator.
//
// The gate only cares whether validation failed, which fields failed with
// which messages, and what the sanitized value of each field is. Any rule
// language can sit behind that contract; the bundled Engine understands
// go-playground tags ("required,email,max=255") and the pipe style
// ("required|email|max:255").
package validator

import (
	"errors"
	"maps"
	"slices"
)

// ErrUnknownRule is reported when a rule string names a rule the engine
// does not know. It is a programming error, not a validation failure.
var ErrUnknownRule = errors.New("validator: unknown rule")

// Errors maps a field name to its failure messages.
type Errors map[string][]string

// Add appends a message for field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Has reports whether field has at least one message.
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// First returns the first message for field, or "".
func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Merge appends every message of other.
func (e Errors) Merge(other Errors) {
	for field, msgs := range other {
		e[field] = append(e[field], msgs...)
	}
}

// Fields returns the failing field names in sorted order.
func (e Errors) Fields() []string {
	return slices.Sorted(maps.Keys(e))
}

// Clone returns a deep copy.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = slices.Clone(v)
	}
	return out
}

// FromAny converts an errors structure that went through a serializer
// (map[string]any with []any messages) back to Errors.
func FromAny(v any) Errors {
	switch t := v.(type) {
	case Errors:
		return t
	case map[string][]string:
		return Errors(t)
	case map[string]any:
		out := make(Errors, len(t))
		for field, raw := range t {
			switch msgs := raw.(type) {
			case []string:
				out[field] = msgs
			case []any:
				for _, m := range msgs {
					if s, ok := m.(string); ok {
						out[field] = append(out[field], s)
					}
				}
			case string:
				out[field] = []string{msgs}
			}
		}
		return out
	default:
		return Errors{}
	}
}

// Validator is the outcome of running rules over one data set.
type Validator interface {
	// Fails reports whether any rule or thrown error failed.
	Fails() bool
	// Failed returns the failure messages per field.
	Failed() Errors
	// Get returns the sanitized value of field.
	Get(field string) any
	// Throw merges externally produced errors.
	Throw(errs Errors)
}

// RuleError is implemented by validators that can reject the rules
// themselves. The gate checks it before looking at Fails.
type RuleError interface {
	Err() error
}

// Factory builds a Validator from input data and field rules.
type Factory func(data map[string]any, rules map[string]string) Validator
