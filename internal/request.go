package internal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/dmitrymomot/kamu/pkg/file"
)

const (
	defaultMaxBodyBytes  = 10 << 20
	defaultMaxFormMemory = 32 << 20
)

// RequestOption configures a Request.
type RequestOption func(*Request)

// WithFormValues merges decoded form fields after the query string and
// before the JSON body.
func WithFormValues(form *Values) RequestOption {
	return func(r *Request) {
		r.form = form
	}
}

// WithIPSources replaces the client IP resolution policy.
func WithIPSources(sources ...IPSource) RequestOption {
	return func(r *Request) {
		r.ipSources = sources
	}
}

// Request is the uniform read model over one inbound request: query
// parameters, form fields, the JSON body and uploads merged into one ordered
// set of values, plus CGI-style server facts.
//
// Values and server facts are fixed at construction; Set is the only
// mutation and is used to hand validated values back to the handler.
// A Request belongs to a single request and is not safe for concurrent writes.
type Request struct {
	values    *Values
	form      *Values
	server    map[string]string
	ipSources []IPSource
}

// NewRequest merges the sources in precedence order: query, form, decoded
// JSON body, files. Later sources overwrite earlier keys. A body that is not
// a JSON object contributes nothing.
func NewRequest(rawQuery string, rawBody []byte, files map[string][]*multipart.FileHeader, server map[string]string, opts ...RequestOption) *Request {
	r := &Request{
		values:    parseQuery(rawQuery),
		server:    maps.Clone(server),
		ipSources: DefaultIPSources(),
	}
	if r.server == nil {
		r.server = make(map[string]string)
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.form != nil {
		r.values.Merge(r.form)
		r.form = nil
	}
	if len(bytes.TrimSpace(rawBody)) > 0 {
		if body, err := decodeOrderedJSON(rawBody); err == nil {
			r.values.Merge(body)
		}
	}
	for _, field := range slices.Sorted(maps.Keys(files)) {
		switch fhs := files[field]; len(fhs) {
		case 0:
		case 1:
			r.values.Set(field, fhs[0])
		default:
			r.values.Set(field, fhs)
		}
	}
	return r
}

// NewRequestFromHTTP builds a Request from an *http.Request. The body is
// read up to maxBody bytes (zero means 10 MiB) and restored on r so handlers
// can read it again. Uploads larger than maxMemory (zero means 32 MiB) are
// spooled to temporary files; the caller removes them with
// r.MultipartForm.RemoveAll.
func NewRequestFromHTTP(r *http.Request, maxBody, maxMemory int64, opts ...RequestOption) (*Request, error) {
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	if maxMemory <= 0 {
		maxMemory = defaultMaxFormMemory
	}

	var (
		body  []byte
		files map[string][]*multipart.FileHeader
		form  *Values
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if r.Body != nil && r.Body != http.NoBody {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBody)
		switch mediaType {
		case "multipart/form-data":
			if err := r.ParseMultipartForm(maxMemory); err != nil {
				return nil, bodyError(err)
			}
			form = NewValues()
			for _, k := range slices.Sorted(maps.Keys(r.MultipartForm.Value)) {
				form.Set(k, collapse(r.MultipartForm.Value[k]))
			}
			files = r.MultipartForm.File
		default:
			data, err := io.ReadAll(r.Body)
			if err != nil {
				return nil, bodyError(err)
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(data))
			if mediaType == "application/x-www-form-urlencoded" {
				form = parseQuery(string(data))
			} else {
				body = data
			}
		}
	}

	if form != nil {
		opts = append([]RequestOption{WithFormValues(form)}, opts...)
	}
	return NewRequest(r.URL.RawQuery, body, files, ServerMeta(r), opts...), nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errors.Join(ErrBodyTooLarge, err)
	}
	return errors.Join(ErrBodyRead, err)
}

// ServerMeta renders transport facts with CGI naming: REQUEST_METHOD,
// REQUEST_URI, PATH_INFO, QUERY_STRING, SERVER_PROTOCOL, REMOTE_ADDR (host
// only), REMOTE_PORT, CONTENT_TYPE, CONTENT_LENGTH and HTTP_* for every
// header (upper-cased, dashes to underscores, repeated values joined by ", ").
func ServerMeta(r *http.Request) map[string]string {
	meta := map[string]string{
		"REQUEST_METHOD":  r.Method,
		"REQUEST_URI":     r.URL.RequestURI(),
		"PATH_INFO":       r.URL.Path,
		"QUERY_STRING":    r.URL.RawQuery,
		"SERVER_PROTOCOL": r.Proto,
	}
	if r.Host != "" {
		meta["HTTP_HOST"] = r.Host
	}
	if host, port, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		meta["REMOTE_ADDR"] = host
		meta["REMOTE_PORT"] = port
	} else if r.RemoteAddr != "" {
		meta["REMOTE_ADDR"] = r.RemoteAddr
	}
	for name, vals := range r.Header {
		key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		switch key {
		case "CONTENT_TYPE", "CONTENT_LENGTH":
		default:
			key = "HTTP_" + key
		}
		meta[key] = strings.Join(vals, ", ")
	}
	return meta
}

// parseQuery decodes a query string keeping first-seen key order.
// Repeated keys and keys ending in "[]" become []string.
func parseQuery(raw string) *Values {
	out := NewValues()
	multi := make(map[string][]string)
	for pair := range strings.SplitSeq(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			continue
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			continue
		}
		list := strings.HasSuffix(key, "[]")
		key = strings.TrimSuffix(key, "[]")
		if key == "" {
			continue
		}
		multi[key] = append(multi[key], val)
		if list {
			out.Set(key, slices.Clone(multi[key]))
		} else {
			out.Set(key, collapse(multi[key]))
		}
	}
	return out
}

func collapse(vals []string) any {
	if len(vals) == 1 {
		return vals[0]
	}
	return slices.Clone(vals)
}

// Get returns the named value, or nil.
func (r *Request) Get(name string) any {
	v, _ := r.values.Get(name)
	return v
}

// GetOr returns the named value, or def when it is absent.
func (r *Request) GetOr(name string, def any) any {
	if v, ok := r.values.Get(name); ok {
		return v
	}
	return def
}

// String returns a scalar value formatted as a string, or "".
func (r *Request) String(name string) string {
	switch v := r.Get(name).(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
		return ""
	case fmt.Stringer:
		return v.String()
	case bool, float64, int, int64:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// All returns a copy of every value.
func (r *Request) All() *Values {
	return r.values.Clone()
}

// Set stores a value, overwriting any existing one.
func (r *Request) Set(name string, value any) {
	r.values.Set(name, value)
}

// Has reports whether name is present with a non-nil value.
func (r *Request) Has(name string) bool {
	return r.values.Has(name)
}

// Only returns the requested keys in the given order; missing keys map to nil.
func (r *Request) Only(keys ...string) *Values {
	out := NewValues()
	for _, k := range keys {
		out.Set(k, r.Get(k))
	}
	return out
}

// Except returns every value whose key is not listed.
func (r *Request) Except(keys ...string) *Values {
	out := NewValues()
	for _, k := range r.values.Keys() {
		if !slices.Contains(keys, k) {
			out.Set(k, r.Get(k))
		}
	}
	return out
}

// Server returns a transport fact by CGI name, or "".
func (r *Request) Server(name string) string {
	return r.server[name]
}

// ServerAll returns a copy of all transport facts.
func (r *Request) ServerAll() map[string]string {
	return maps.Clone(r.server)
}

// Method returns the upper-cased request method.
func (r *Request) Method() string {
	return strings.ToUpper(r.server["REQUEST_METHOD"])
}

// Path returns the request path without the query string.
func (r *Request) Path() string {
	if p := r.server["PATH_INFO"]; p != "" {
		return p
	}
	uri := r.server["REQUEST_URI"]
	if u, err := url.ParseRequestURI(uri); err == nil {
		return u.Path
	}
	path, _, _ := strings.Cut(uri, "?")
	if path == "" {
		return "/"
	}
	return path
}

// File returns the upload stored under name.
func (r *Request) File(name string) (*file.File, error) {
	return file.FromRequest(r, name)
}

// FileKeys lists the keys that hold uploads.
func (r *Request) FileKeys() []string {
	var keys []string
	for _, k := range r.values.Keys() {
		switch r.Get(k).(type) {
		case *multipart.FileHeader, []*multipart.FileHeader:
			keys = append(keys, k)
		}
	}
	return keys
}
