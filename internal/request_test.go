package internal_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kamu/internal"
)

func TestNewRequest_Merge(t *testing.T) {
	t.Parallel()

	t.Run("body overrides query and keys are the union", func(t *testing.T) {
		t.Parallel()

		r := internal.NewRequest("a=1&b=2", []byte(`{"b":"body","c":true}`), nil, nil)

		assert.Equal(t, []string{"a", "b", "c"}, r.All().Keys())
		assert.Equal(t, "1", r.Get("a"))
		assert.Equal(t, "body", r.Get("b"))
		assert.Equal(t, true, r.Get("c"))
	})

	t.Run("malformed body keeps query values", func(t *testing.T) {
		t.Parallel()

		for _, body := range []string{`{"broken":`, `[1,2]`, `"str"`, `{} trailing`, `a=1&b=2`} {
			r := internal.NewRequest("q=kamu", []byte(body), nil, nil)
			assert.Equal(t, []string{"q"}, r.All().Keys(), body)
		}
	})

	t.Run("json key order is preserved", func(t *testing.T) {
		t.Parallel()

		r := internal.NewRequest("", []byte(`{"z":1,"a":2,"m":{"x":1}}`), nil, nil)
		assert.Equal(t, []string{"z", "a", "m"}, r.All().Keys())
		assert.Equal(t, json.Number("1"), r.Get("z"))
	})

	t.Run("repeated and bracketed query keys", func(t *testing.T) {
		t.Parallel()

		r := internal.NewRequest("tag=a&tag=b&id[]=7&q=hello+world", nil, nil, nil)
		assert.Equal(t, []string{"a", "b"}, r.Get("tag"))
		assert.Equal(t, []string{"7"}, r.Get("id"))
		assert.Equal(t, "hello world", r.Get("q"))
	})

	t.Run("files override body keys", func(t *testing.T) {
		t.Parallel()

		fh := &multipart.FileHeader{Filename: "a.txt"}
		r := internal.NewRequest("", []byte(`{"avatar":"x"}`), map[string][]*multipart.FileHeader{"avatar": {fh}}, nil)
		assert.Same(t, fh, r.Get("avatar"))
		assert.Equal(t, []string{"avatar"}, r.FileKeys())
	})

	t.Run("form sits between query and body", func(t *testing.T) {
		t.Parallel()

		form := internal.NewValues()
		form.Set("a", "form")
		form.Set("b", "form")
		r := internal.NewRequest("a=query", []byte(`{"b":"json"}`), nil, nil, internal.WithFormValues(form))
		assert.Equal(t, "form", r.Get("a"))
		assert.Equal(t, "json", r.Get("b"))
	})
}

func TestRequest_Accessors(t *testing.T) {
	t.Parallel()

	r := internal.NewRequest("name=kamu&age=3", nil, nil, map[string]string{
		"REQUEST_METHOD": "post",
		"REQUEST_URI":    "/users/1?x=y",
	})

	assert.Equal(t, "kamu", r.Get("name"))
	assert.Nil(t, r.Get("missing"))
	assert.Equal(t, "fallback", r.GetOr("missing", "fallback"))
	assert.Equal(t, "kamu", r.String("name"))

	assert.Equal(t, "POST", r.Method())
	assert.Equal(t, "/users/1", r.Path())
	assert.Equal(t, "post", r.Server("REQUEST_METHOD"))
	assert.Len(t, r.ServerAll(), 2)

	only := r.Only("age", "missing")
	assert.Equal(t, []string{"age", "missing"}, only.Keys())
	assert.Nil(t, only.Map()["missing"])

	assert.Equal(t, []string{"age"}, r.Except("name").Keys())

	assert.False(t, r.Has("email"))
	r.Set("email", "a@b.co")
	assert.True(t, r.Has("email"))
	r.Set("email", nil)
	assert.False(t, r.Has("email"))
}

func TestRequest_IP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		server map[string]string
		want   string
	}{
		{"none", map[string]string{}, ""},
		{"remote only", map[string]string{"REMOTE_ADDR": "10.0.0.1"}, "10.0.0.1"},
		{"client ip wins", map[string]string{"HTTP_CLIENT_IP": "1.2.3.4", "REMOTE_ADDR": "10.0.0.1"}, "1.2.3.4"},
		{"forwarded list first non-empty", map[string]string{"HTTP_X_FORWARDED_FOR": " , 5.6.7.8, 9.9.9.9", "REMOTE_ADDR": "10.0.0.1"}, "5.6.7.8"},
		{"x-forwarded before cluster", map[string]string{"HTTP_X_FORWARDED": "2.2.2.2", "HTTP_X_CLUSTER_CLIENT_IP": "3.3.3.3"}, "2.2.2.2"},
		{"cluster before forwarded-for", map[string]string{"HTTP_X_CLUSTER_CLIENT_IP": "3.3.3.3", "HTTP_FORWARDED_FOR": "4.4.4.4"}, "3.3.3.3"},
		{"forwarded-for before forwarded", map[string]string{"HTTP_FORWARDED_FOR": "4.4.4.4", "HTTP_FORWARDED": "6.6.6.6"}, "4.4.4.4"},
		{"forwarded before remote", map[string]string{"HTTP_FORWARDED": "6.6.6.6", "REMOTE_ADDR": "10.0.0.1"}, "6.6.6.6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := internal.NewRequest("", nil, nil, tt.server)
			assert.Equal(t, tt.want, r.IP())
		})
	}

	t.Run("custom policy", func(t *testing.T) {
		t.Parallel()
		r := internal.NewRequest("", nil, nil,
			map[string]string{"HTTP_CLIENT_IP": "1.2.3.4", "REMOTE_ADDR": "10.0.0.1"},
			internal.WithIPSources(internal.FromServerKey("REMOTE_ADDR")),
		)
		assert.Equal(t, "10.0.0.1", r.IP())
	})
}

func TestRequest_Ajax(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		server map[string]string
		want   internal.AjaxInfo
	}{
		{"json without token", map[string]string{"HTTP_ACCEPT": "application/JSON"}, internal.AjaxInfo{JSON: true}},
		{"json with token", map[string]string{"HTTP_ACCEPT": "application/json", "HTTP_TOKEN": "t0k"}, internal.AjaxInfo{JSON: true, Token: "t0k"}},
		{"content type cookie token", map[string]string{"CONTENT_TYPE": "text/plain", "HTTP_COOKIE": "a=b", "HTTP_TOKEN": "t0k"}, internal.AjaxInfo{Token: "t0k"}},
		{"token without cookie", map[string]string{"CONTENT_TYPE": "text/plain", "HTTP_TOKEN": "t0k"}, internal.AjaxInfo{}},
		{"plain browser", map[string]string{"HTTP_ACCEPT": "text/html"}, internal.AjaxInfo{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := internal.NewRequest("", nil, nil, tt.server).Ajax()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.JSON || tt.want.Token != "", got.IsAjax())
		})
	}
}

func TestNewRequestFromHTTP(t *testing.T) {
	t.Parallel()

	t.Run("json body and server meta", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/api/users?page=2", strings.NewReader(`{"name":"kamu"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", "7.7.7.7")
		req.RemoteAddr = "10.0.0.9:5555"

		r, err := internal.NewRequestFromHTTP(req, 0, 0)
		require.NoError(t, err)

		assert.Equal(t, "2", r.Get("page"))
		assert.Equal(t, "kamu", r.Get("name"))
		assert.Equal(t, "POST", r.Method())
		assert.Equal(t, "/api/users", r.Path())
		assert.Equal(t, "application/json", r.Server("CONTENT_TYPE"))
		assert.Equal(t, "10.0.0.9", r.Server("REMOTE_ADDR"))
		assert.Equal(t, "5555", r.Server("REMOTE_PORT"))
		assert.Equal(t, "7.7.7.7", r.IP())

		var again bytes.Buffer
		_, err = again.ReadFrom(req.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"kamu"}`, again.String())
	})

	t.Run("urlencoded form", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/login?next=/home", strings.NewReader("email=a%40b.co&next=/dash"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		r, err := internal.NewRequestFromHTTP(req, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, "a@b.co", r.Get("email"))
		assert.Equal(t, "/dash", r.Get("next"))
	})

	t.Run("multipart form with file", func(t *testing.T) {
		t.Parallel()

		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		require.NoError(t, w.WriteField("title", "doc"))
		part, err := w.CreateFormFile("upload", "a.txt")
		require.NoError(t, err)
		_, _ = part.Write([]byte("hi"))
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/upload", &body)
		req.Header.Set("Content-Type", w.FormDataContentType())

		r, err := internal.NewRequestFromHTTP(req, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, "doc", r.Get("title"))

		f, err := r.File("upload")
		require.NoError(t, err)
		assert.Equal(t, "a.txt", f.Name())
	})

	t.Run("body too large", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
		_, err := internal.NewRequestFromHTTP(req, 16, 0)
		require.ErrorIs(t, err, internal.ErrBodyTooLarge)
	})
}

func TestValues(t *testing.T) {
	t.Parallel()

	v := internal.NewValues()
	v.Set("b", 1)
	v.Set("a", 2)
	v.Set("b", 3)

	assert.Equal(t, []string{"b", "a"}, v.Keys())
	got, ok := v.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 3, got)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"b":3,"a":2}`, string(data))

	clone := v.Clone()
	clone.Delete("b")
	assert.Equal(t, 2, v.Len())
	assert.Equal(t, []string{"a"}, clone.Keys())
}
