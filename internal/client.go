package internal

import "strings"

// IPSource proposes a client IP from the request's server facts.
// Returns ("", false) when it has nothing to offer.
type IPSource func(r *Request) (string, bool)

// FromServerKey reads a single server fact.
func FromServerKey(key string) IPSource {
	return func(r *Request) (string, bool) {
		v := strings.TrimSpace(r.Server(key))
		return v, v != ""
	}
}

// FromForwardedList reads the first non-empty entry of a comma-separated list.
func FromForwardedList(key string) IPSource {
	return func(r *Request) (string, bool) {
		for entry := range strings.SplitSeq(r.Server(key), ",") {
			if ip := strings.TrimSpace(entry); ip != "" {
				return ip, true
			}
		}
		return "", false
	}
}

// DefaultIPSources is the stock resolution order: client-declared header,
// X-Forwarded-For (first entry), X-Forwarded, X-Cluster-Client-IP,
// Forwarded-For, Forwarded, then the socket peer address.
//
// Every header in this list is client-controlled and can be spoofed. The
// order is a convenience for reverse-proxy deployments, not a security
// boundary; use WithIPSources to trust only what your proxy sets.
func DefaultIPSources() []IPSource {
	return []IPSource{
		FromServerKey("HTTP_CLIENT_IP"),
		FromForwardedList("HTTP_X_FORWARDED_FOR"),
		FromServerKey("HTTP_X_FORWARDED"),
		FromServerKey("HTTP_X_CLUSTER_CLIENT_IP"),
		FromServerKey("HTTP_FORWARDED_FOR"),
		FromServerKey("HTTP_FORWARDED"),
		FromServerKey("REMOTE_ADDR"),
	}
}

// IP returns the first address proposed by the configured sources, or ""
// when none is available.
func (r *Request) IP() string {
	for _, src := range r.ipSources {
		if ip, ok := src(r); ok {
			return ip
		}
	}
	return ""
}

// AjaxInfo describes how a request announced itself as a script call.
type AjaxInfo struct {
	// Token is the value of the Token header when it qualifies the call.
	Token string
	// JSON is true when the Accept header asks for JSON.
	JSON bool
}

// IsAjax reports whether the request is a script call at all.
func (a AjaxInfo) IsAjax() bool {
	return a.JSON || a.Token != ""
}

// Authenticated reports whether the call carried a token.
func (a AjaxInfo) Authenticated() bool {
	return a.Token != ""
}

// Ajax classifies the request:
//   - Accept mentions json: JSON is set, Token carries the Token header if any.
//   - otherwise Content-Type, Cookie and Token all present: Token is set.
//   - otherwise the zero value.
func (r *Request) Ajax() AjaxInfo {
	token := r.Server("HTTP_TOKEN")
	if strings.Contains(strings.ToLower(r.Server("HTTP_ACCEPT")), "json") {
		return AjaxInfo{JSON: true, Token: token}
	}
	if r.Server("CONTENT_TYPE") != "" && r.Server("HTTP_COOKIE") != "" && token != "" {
		return AjaxInfo{Token: token}
	}
	return AjaxInfo{}
}
