// Package sanitizer cleans user input before it is handed back to handlers.
package sanitizer

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict   *bluemonday.Policy
	safe     *bluemonday.Policy
	initOnce sync.Once
)

func policies() {
	initOnce.Do(func() {
		strict = bluemonday.StrictPolicy()

		safe = bluemonday.NewPolicy()
		safe.AllowStandardURLs()
		safe.AllowElements("p", "br", "strong", "b", "em", "i", "ul", "ol", "li", "code", "pre", "blockquote")
		safe.AllowAttrs("href").OnElements("a")
		safe.RequireNoFollowOnLinks(true)
	})
}

// StripTags removes all markup and returns plain text.
func StripTags(s string) string {
	policies()
	return strict.Sanitize(s)
}

// SafeHTML keeps basic formatting tags and drops everything executable.
func SafeHTML(s string) string {
	policies()
	return safe.Sanitize(s)
}

// Value trims surrounding whitespace from strings, recursing into slices
// and maps. Everything else, markup included, is kept as submitted.
func Value(v any) any {
	return Map(v, strings.TrimSpace)
}

// PlainText is Value that also strips markup. Entities the policy escapes
// are decoded again, so "Tom & Jerry" survives while "<b>x</b>" becomes "x".
func PlainText(v any) any {
	return Map(v, func(s string) string {
		return strings.TrimSpace(html.UnescapeString(StripTags(s)))
	})
}

// Map applies fn to every string in v, recursing into slices and maps.
// Other values are returned unchanged.
func Map(v any, fn func(string) string) any {
	switch t := v.(type) {
	case string:
		return fn(t)
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = fn(s)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Map(e, fn)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Map(e, fn)
		}
		return out
	default:
		return v
	}
}
