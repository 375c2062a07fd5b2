package sanitizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/kamu/pkg/sanitizer"
)

func TestStripTags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello", sanitizer.StripTags("<b>hello</b>"))
	assert.Empty(t, sanitizer.StripTags("<script>alert(1)</script>"))
}

func TestSafeHTML(t *testing.T) {
	t.Parallel()

	out := sanitizer.SafeHTML(`<p onclick="x()">hi <script>x()</script></p>`)
	assert.Equal(t, "<p>hi </p>", out)
}

func TestValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"string", "  kamu ", "kamu"},
		{"markup kept", " <i>Tom</i> & \"Jerry\" ", `<i>Tom</i> & "Jerry"`},
		{"string slice", []string{" a ", "a<b>c"}, []string{"a", "a<b>c"}},
		{"nested", map[string]any{"n": []any{" x ", 3}}, map[string]any{"n": []any{"x", 3}}},
		{"number", 12.5, 12.5},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sanitizer.Value(tt.in))
		})
	}
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"tags stripped", "  <i>kamu</i> ", "kamu"},
		{"entities decoded", `Tom & "Jerry" <3`, `Tom & "Jerry" <3`},
		{"comparison kept", "1 < 2 > 0", "1 < 2 > 0"},
		{"string slice", []string{" a ", "<b>b</b>"}, []string{"a", "b"}},
		{"nested", map[string]any{"n": []any{" <u>x</u>", 3}}, map[string]any{"n": []any{"x", 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sanitizer.PlainText(tt.in))
		})
	}
}
