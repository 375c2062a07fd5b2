// Package htmx lets redirects reach HTMX clients. HTMX swaps the body of a
// followed 3xx into the page instead of navigating, so redirects for HTMX
// requests are answered with HX-Redirect and a 200.
package htmx

import "net/http"

// Request headers.
const (
	HeaderHXRequest = "HX-Request"
	HeaderHXBoosted = "HX-Boosted"
)

// Response headers.
const (
	HeaderHXRedirect = "HX-Redirect"
	HeaderHXLocation = "HX-Location"
)

// IsHTMX reports whether the request was sent by HTMX.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get(HeaderHXRequest) == "true"
}

// IsBoosted reports whether the request came from an hx-boost link or form.
func IsBoosted(r *http.Request) bool {
	return r.Header.Get(HeaderHXBoosted) == "true"
}
