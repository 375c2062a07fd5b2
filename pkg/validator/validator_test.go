package validator_test

import (
	"testing"

	playground "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kamu/pkg/sanitizer"
	"github.com/dmitrymomot/kamu/pkg/validator"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"required,email", "required,email"},
		{"required|email", "required,email"},
		{"required|max:255", "required,max=255"},
		{"in:a,b,c", "oneof=a b c"},
		{" required | | min:3 ", "required,min=3"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, validator.Normalize(tt.in), tt.in)
	}
}

func TestEngine(t *testing.T) {
	t.Parallel()

	engine := validator.NewEngine()

	t.Run("missing required field fails", func(t *testing.T) {
		t.Parallel()

		v := engine.Make(map[string]any{"name": "x"}, map[string]string{"email": "required"})
		require.True(t, v.Fails())

		errs := v.Failed()
		assert.True(t, errs.Has("email"))
		assert.Equal(t, "The email field is required.", errs.First("email"))
	})

	t.Run("passing data returns sanitized values", func(t *testing.T) {
		t.Parallel()

		data := map[string]any{"email": " a@b.co ", "bio": "<b>hi</b>", "pw": "a<b>c&d\""}
		v := engine.Make(data, map[string]string{"email": "required|email", "bio": "omitempty|max:10", "pw": "required"})

		require.False(t, v.Fails(), v.Failed())
		assert.Equal(t, "a@b.co", v.Get("email"))
		assert.Equal(t, "<b>hi</b>", v.Get("bio"))
		assert.Equal(t, "a<b>c&d\"", v.Get("pw"))
	})

	t.Run("plain text sanitizer strips markup only", func(t *testing.T) {
		t.Parallel()

		e := validator.NewEngine(validator.WithSanitizer(sanitizer.PlainText))
		v := e.Make(map[string]any{"name": " <b>Tom</b> & Jerry "}, map[string]string{"name": "required"})

		require.False(t, v.Fails())
		assert.Equal(t, "Tom & Jerry", v.Get("name"))
	})

	t.Run("unknown rule is reported, not panicked", func(t *testing.T) {
		t.Parallel()

		var v validator.Validator
		require.NotPanics(t, func() {
			v = engine.Make(map[string]any{"password": "secret"}, map[string]string{
				"password": "required|confirmed",
				"email":    "required",
			})
		})

		re, ok := v.(validator.RuleError)
		require.True(t, ok)
		require.ErrorIs(t, re.Err(), validator.ErrUnknownRule)
		assert.Contains(t, re.Err().Error(), `"password"`)

		// Other fields are still checked.
		assert.True(t, v.Failed().Has("email"))
		assert.False(t, v.Failed().Has("password"))
	})

	t.Run("parameterised message", func(t *testing.T) {
		t.Parallel()

		v := engine.Make(map[string]any{"name": "ab"}, map[string]string{"name": "min=3"})
		require.True(t, v.Fails())
		assert.Equal(t, "The name must be at least 3.", v.Failed().First("name"))
	})

	t.Run("throw merges errors", func(t *testing.T) {
		t.Parallel()

		v := engine.Make(map[string]any{}, map[string]string{})
		require.False(t, v.Fails())

		v.Throw(validator.Errors{"login": {"Invalid credentials."}})
		require.True(t, v.Fails())
		assert.Equal(t, []string{"login"}, v.Failed().Fields())
	})

	t.Run("custom rule and message", func(t *testing.T) {
		t.Parallel()

		e := validator.NewEngine(
			validator.WithRule("kamu", func(fl playground.FieldLevel) bool {
				return fl.Field().String() == "kamu"
			}),
			validator.WithMessages(map[string]string{"kamu": "%s must be kamu"}),
			validator.WithSanitizer(func(v any) any { return v }),
		)

		v := e.Make(map[string]any{"fw": "laravel"}, map[string]string{"fw": "kamu"})
		require.True(t, v.Fails())
		assert.Equal(t, "fw must be kamu", v.Failed().First("fw"))

		v = e.Make(map[string]any{"fw": " <b>kamu</b>"}, map[string]string{})
		assert.Equal(t, " <b>kamu</b>", v.Get("fw"))
	})
}

func TestErrors(t *testing.T) {
	t.Parallel()

	errs := validator.Errors{}
	errs.Add("b", "one")
	errs.Add("a", "two")
	errs.Merge(validator.Errors{"b": {"three"}})

	assert.Equal(t, []string{"a", "b"}, errs.Fields())
	assert.Equal(t, []string{"one", "three"}, errs["b"])
	assert.Empty(t, errs.First("missing"))

	clone := errs.Clone()
	clone.Add("a", "x")
	assert.Len(t, errs["a"], 1)
}

func TestFromAny(t *testing.T) {
	t.Parallel()

	decoded := map[string]any{"email": []any{"required", 3}, "name": "short"}
	got := validator.FromAny(decoded)
	assert.Equal(t, validator.Errors{"email": {"required"}, "name": {"short"}}, got)

	assert.Equal(t, validator.Errors{"x": {"y"}}, validator.FromAny(map[string][]string{"x": {"y"}}))
	assert.Empty(t, validator.FromAny(nil))
}
