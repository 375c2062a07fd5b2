package internal

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dmitrymomot/kamu/pkg/session"
	"github.com/dmitrymomot/kamu/pkg/validator"
)

// Session keys shared between the gate, the context and the middleware.
const (
	FlashOldKey      = "old"
	FlashErrorKey    = "error"
	PreviousRouteKey = "__oldroute"
)

// Gate runs validation for one request and turns failures into a flash
// plus a *ValidationError. At most one validator is bound per gate through
// Throw; Validate rebinds on every call.
type Gate struct {
	factory validator.Factory
	bound   validator.Validator
}

// NewGate returns a gate using factory to build validators.
func NewGate(factory validator.Factory) *Gate {
	if factory == nil {
		factory = validator.NewEngine().Factory()
	}
	return &Gate{factory: factory}
}

// Bound returns the validator bound to the gate, or nil.
func (g *Gate) Bound() validator.Validator {
	return g.bound
}

// Validate checks in.Only(keys of rules). On failure it flashes the input
// and errors to sess and returns a *ValidationError. On success every ruled
// field is overwritten in in with its sanitized value, and the projection
// is returned.
func (g *Gate) Validate(in *Request, sess *session.Session, rules map[string]string) (*Values, error) {
	keys := slices.Sorted(maps.Keys(rules))

	g.bound = g.factory(in.Only(keys...).Map(), rules)
	if err := g.fail(in, sess); err != nil {
		return nil, err
	}

	for _, k := range keys {
		in.Set(k, g.bound.Get(k))
	}
	return in.Only(keys...), nil
}

// Throw fails validation on demand. It accepts a validator.Validator, which
// binds it (ErrValidatorBound if one is bound already), or validator.Errors
// which are merged into the bound validator, creating an empty one first
// when needed. Like Validate, it returns nil only if the bound validator
// passes.
func (g *Gate) Throw(in *Request, sess *session.Session, v any) error {
	switch t := v.(type) {
	case validator.Validator:
		if g.bound != nil {
			return ErrValidatorBound
		}
		g.bound = t
	case validator.Errors:
		g.merge(t)
	case map[string][]string:
		g.merge(validator.Errors(t))
	default:
		return ErrThrowType
	}

	return g.fail(in, sess)
}

func (g *Gate) merge(errs validator.Errors) {
	if g.bound == nil {
		g.bound = g.factory(map[string]any{}, map[string]string{})
	}
	g.bound.Throw(errs)
}

// fail flashes and returns a *ValidationError when the bound validator
// fails. Rules the validator could not run are returned as they are.
func (g *Gate) fail(in *Request, sess *session.Session) error {
	if re, ok := g.bound.(validator.RuleError); ok {
		if err := re.Err(); err != nil {
			return err
		}
	}
	if !g.bound.Fails() {
		return nil
	}
	return g.flash(in, sess, g.bound.Failed())
}

func (g *Gate) flash(in *Request, sess *session.Session, errs validator.Errors) error {
	if sess == nil {
		return fmt.Errorf("%w: cannot flash %d failed field(s)", ErrNoSession, len(errs))
	}

	old := in.Except(in.FileKeys()...)
	sess.Flash(FlashOldKey, old.Map())
	sess.Flash(FlashErrorKey, errs)

	return &ValidationError{Errors: errs, Target: previousRoute(sess)}
}

// previousRoute reads the remembered route, defaulting to "/".
func previousRoute(sess *session.Session) string {
	if sess == nil {
		return "/"
	}
	if target, ok := sess.Get(PreviousRouteKey, "/").(string); ok && target != "" {
		return target
	}
	return "/"
}
