// Package file wraps an uploaded file taken from the request input.
package file

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNoFile      = errors.New("file: no upload for field")
	ErrInvalidName = errors.New("file: invalid file name")
)

// Source is anything that exposes request input by field name.
type Source interface {
	Get(name string) any
}

// File is one uploaded file.
type File struct {
	header *multipart.FileHeader
	field  string
}

// FromRequest extracts the upload stored under field.
func FromRequest(src Source, field string) (*File, error) {
	switch v := src.Get(field).(type) {
	case *multipart.FileHeader:
		return &File{header: v, field: field}, nil
	case []*multipart.FileHeader:
		if len(v) > 0 {
			return &File{header: v[0], field: field}, nil
		}
	}
	return nil, ErrNoFile
}

func (f *File) Field() string { return f.field }

// Name is the client-supplied base name.
func (f *File) Name() string { return filepath.Base(f.header.Filename) }

func (f *File) Size() int64 { return f.header.Size }

// Ext returns the lower-cased extension without the dot.
func (f *File) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(f.header.Filename)), ".")
}

// Open returns a reader over the upload.
func (f *File) Open() (multipart.File, error) {
	return f.header.Open()
}

// ContentType sniffs the first 512 bytes.
func (f *File) ContentType() (string, error) {
	r, err := f.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}

// Store copies the upload into dir under name and returns the full path.
// An empty name keeps the client file name.
func (f *File) Store(dir, name string) (string, error) {
	if name == "" {
		name = f.Name()
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidName
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	src, err := f.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst := filepath.Join(dir, name)
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return "", err
	}
	return dst, out.Close()
}
