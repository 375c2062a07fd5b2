package htmx

import "net/http"

// Redirect sends a 302 redirect to url.
func Redirect(w http.ResponseWriter, r *http.Request, url string) {
	RedirectWithStatus(w, r, url, http.StatusFound)
}

// RedirectWithStatus redirects regular requests with status. HTMX requests
// get HX-Redirect with a 200 and the client navigates itself.
func RedirectWithStatus(w http.ResponseWriter, r *http.Request, url string, status int) {
	if IsHTMX(r) {
		w.Header().Set(HeaderHXRedirect, url)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, url, status)
}
