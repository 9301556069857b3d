// Package source reads the SQL dump that a plan is evaluated against.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// ErrUnknownEncoding is returned for encoding names the WHATWG index does not know.
var ErrUnknownEncoding = errors.New("unknown encoding")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Document is a loaded dump. Text is always UTF-8.
type Document struct {
	Path     string
	Encoding string
	Text     string
}

// Lines returns the number of "\n"-separated lines.
func (d *Document) Lines() int { return strings.Count(d.Text, "\n") + 1 }

// Read loads path and decodes it from enc. An empty enc, "utf-8" and "utf8"
// read the bytes as they are. A leading UTF-8 byte order mark is dropped.
func Read(path, enc string) (*Document, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path is the user-selected dump
	if err != nil {
		return nil, fmt.Errorf("failed to read source %s: %w", path, err)
	}
	text, err := Decode(raw, enc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode source %s: %w", path, err)
	}
	return &Document{Path: path, Encoding: normalizeName(enc), Text: text}, nil
}

// Decode converts raw bytes in enc to a UTF-8 string.
func Decode(raw []byte, enc string) (string, error) {
	e, err := lookup(enc)
	if err != nil {
		return "", err
	}
	if e != nil {
		raw, err = e.NewDecoder().Bytes(raw)
		if err != nil {
			return "", err
		}
	}
	return string(bytes.TrimPrefix(raw, utf8BOM)), nil
}

// Encode converts UTF-8 text back to enc.
func Encode(text, enc string) ([]byte, error) {
	e, err := lookup(enc)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return []byte(text), nil
	}
	return e.NewEncoder().Bytes([]byte(text))
}

// WriteBack replaces the file at path with text encoded as enc, keeping the
// file mode.
func WriteBack(path, text, enc string) error {
	data, err := Encode(text, enc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// lookup returns nil for UTF-8, which needs no transformation.
func lookup(name string) (encoding.Encoding, error) {
	n := normalizeName(name)
	if n == "utf-8" {
		return nil, nil
	}
	e, err := htmlindex.Get(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	if e == unicode.UTF8 {
		return nil, nil
	}
	return e, nil
}

func normalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" || n == "utf8" {
		return "utf-8"
	}
	return n
}
