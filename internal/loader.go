package internal

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// routeFile is the YAML route definition document:
//
//	routes:
//	  - get: /
//	    action: Home@index
//	    name: home
//	  - prefix: /api
//	    middleware: [auth]
//	    controller: Users
//	    routes:
//	      - get: /users/{id}
//	        action: show
type routeFile struct {
	Routes []routeNode `yaml:"routes"`
}

// routeNode is either a route (exactly one verb key) or a group.
type routeNode struct {
	Get     string `yaml:"get"`
	Post    string `yaml:"post"`
	Put     string `yaml:"put"`
	Patch   string `yaml:"patch"`
	Delete  string `yaml:"delete"`
	Options string `yaml:"options"`

	Action     string   `yaml:"action"`
	Name       string   `yaml:"name"`
	Middleware []string `yaml:"middleware"`

	Prefix     string      `yaml:"prefix"`
	Controller string      `yaml:"controller"`
	Routes     []routeNode `yaml:"routes"`
}

func (n routeNode) verbs() (method, pattern string, count int) {
	for _, v := range []struct{ method, pattern string }{
		{"GET", n.Get}, {"POST", n.Post}, {"PUT", n.Put},
		{"PATCH", n.Patch}, {"DELETE", n.Delete}, {"OPTIONS", n.Options},
	} {
		if v.pattern != "" {
			method, pattern = v.method, v.pattern
			count++
		}
	}
	return method, pattern, count
}

// LoadFile evaluates a YAML route file against the table. The file's
// checksum is remembered so a compiled cache can be checked for freshness.
func (t *Table) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Join(ErrInvalidRouteFile, err)
	}
	if err := t.LoadBytes(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	t.source = path
	t.checksum = checksum(data)
	return nil
}

// Load evaluates a YAML route document read from r.
func (t *Table) Load(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Join(ErrInvalidRouteFile, err)
	}
	return t.LoadBytes(data)
}

// LoadBytes evaluates a YAML route document. Unknown keys are rejected.
func (t *Table) LoadBytes(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc routeFile
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(ErrInvalidRouteFile, err)
	}

	before := len(t.errs)
	if err := t.evalNodes(doc.Routes); err != nil {
		return err
	}
	if len(t.errs) > before {
		return errors.Join(append([]error{ErrInvalidRouteFile}, t.errs[before:]...)...)
	}
	return nil
}

func (t *Table) evalNodes(nodes []routeNode) error {
	for i, n := range nodes {
		method, pattern, count := n.verbs()
		switch {
		case count > 1:
			return fmt.Errorf("%w: entry %d declares %d methods", ErrInvalidRouteFile, i, count)
		case count == 1:
			if len(n.Routes) > 0 || n.Prefix != "" || n.Controller != "" {
				return fmt.Errorf("%w: %s %s mixes route and group keys", ErrInvalidRouteFile, method, pattern)
			}
			r := t.AddRoute(method, pattern, n.Action, n.Middleware...)
			if n.Name != "" {
				r.Name(n.Name)
			}
		default:
			if n.Action != "" || n.Name != "" {
				return fmt.Errorf("%w: entry %d has an action but no method", ErrInvalidRouteFile, i)
			}
			var err error
			t.Group(Group{Prefix: n.Prefix, Middleware: n.Middleware, Controller: n.Controller}, func(t *Table) {
				err = t.evalNodes(n.Routes)
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FileChecksum returns the hex SHA-256 of the file at path.
func FileChecksum(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return checksum(data), nil
}
