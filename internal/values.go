package internal

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Values is an insertion-ordered map of request input.
// Re-setting an existing key keeps its original position.
type Values struct {
	m    map[string]any
	keys []string
}

// NewValues returns an empty Values.
func NewValues() *Values {
	return &Values{m: make(map[string]any)}
}

// Set stores value under key (last writer wins).
func (v *Values) Set(key string, value any) {
	if v.m == nil {
		v.m = make(map[string]any)
	}
	if _, ok := v.m[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.m[key] = value
}

// Get returns the value and whether the key exists.
func (v *Values) Get(key string) (any, bool) {
	if v == nil {
		return nil, false
	}
	val, ok := v.m[key]
	return val, ok
}

// Has reports whether key exists with a non-nil value.
func (v *Values) Has(key string) bool {
	val, ok := v.Get(key)
	return ok && val != nil
}

func (v *Values) Delete(key string) {
	if _, ok := v.m[key]; !ok {
		return
	}
	delete(v.m, key)
	v.keys = slices.DeleteFunc(v.keys, func(k string) bool { return k == key })
}

// Keys returns the keys in insertion order.
func (v *Values) Keys() []string {
	if v == nil {
		return nil
	}
	return slices.Clone(v.keys)
}

func (v *Values) Len() int {
	if v == nil {
		return 0
	}
	return len(v.keys)
}

// Clone returns a shallow copy.
func (v *Values) Clone() *Values {
	out := &Values{m: make(map[string]any, v.Len()), keys: v.Keys()}
	for _, k := range out.keys {
		out.m[k] = v.m[k]
	}
	return out
}

// Map returns the values as a plain map.
func (v *Values) Map() map[string]any {
	out := make(map[string]any, v.Len())
	if v == nil {
		return out
	}
	for _, k := range v.keys {
		out[k] = v.m[k]
	}
	return out
}

// Merge copies src into v in src order.
func (v *Values) Merge(src *Values) {
	for _, k := range src.Keys() {
		v.Set(k, src.m[k])
	}
}

// MarshalJSON encodes the values as an object in key order.
func (v *Values) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range v.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v.m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeOrderedJSON decodes a top-level JSON object keeping key order.
// Anything other than an object yields an error.
func decodeOrderedJSON(data []byte) (*Values, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrNotJSONObject
	}

	out := NewValues()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, ErrNotJSONObject
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return nil, err
		}
		out.Set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, ErrNotJSONObject
	}
	return out, nil
}
