// Package render expands configuration templates against resolved settings.
//
// Rendering is strict: a template that references a key absent from the
// context fails instead of printing an empty value. The index function is
// strict too: a missing map key or an out of range position is an error.
// Render never writes to
// disk; WriteFile is provided for callers that want an atomic replace.
package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"text/template"
)

// ErrUndefinedReference marks a template that used a missing context key.
var ErrUndefinedReference = errors.New("undefined reference")

// RenderError describes a failed render of one template.
type RenderError struct {
	Template string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Template, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer loads templates relative to a fixed root directory.
type Renderer struct {
	root string
}

// New returns a renderer rooted at root.
func New(root string) *Renderer { return &Renderer{root: root} }

// Root returns the template root directory.
func (r *Renderer) Root() string { return r.root }

var funcs = template.FuncMap{
	"index": index,
	"join":  join,
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"quote": func(s string) string { return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"` },
}

func join(items any, sep string) (string, error) {
	switch v := items.(type) {
	case []string:
		return strings.Join(v, sep), nil
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, sep), nil
	case string:
		return v, nil
	}
	return "", fmt.Errorf("join: unsupported type %T", items)
}

// index replaces the builtin, which yields the zero value for absent keys.
func index(item any, keys ...any) (any, error) {
	v := reflect.ValueOf(item)
	for _, key := range keys {
		for v.IsValid() && v.Kind() == reflect.Interface {
			v = v.Elem()
		}
		if !v.IsValid() {
			return nil, fmt.Errorf("%w: index of nil value", ErrUndefinedReference)
		}
		switch v.Kind() {
		case reflect.Map:
			k := reflect.ValueOf(key)
			if !k.IsValid() || !k.Type().ConvertibleTo(v.Type().Key()) {
				return nil, fmt.Errorf("index: key %v is not a %s", key, v.Type().Key())
			}
			e := v.MapIndex(k.Convert(v.Type().Key()))
			if !e.IsValid() {
				return nil, fmt.Errorf("%w: map has no entry for key %q", ErrUndefinedReference, fmt.Sprint(key))
			}
			v = e
		case reflect.Slice, reflect.Array, reflect.String:
			i, ok := toInt(key)
			if !ok {
				return nil, fmt.Errorf("index: position %v is not an integer", key)
			}
			if i < 0 || i >= v.Len() {
				return nil, fmt.Errorf("%w: index %d out of range (length %d)", ErrUndefinedReference, i, v.Len())
			}
			v = v.Index(i)
		default:
			return nil, fmt.Errorf("index: can't index item of type %s", v.Type())
		}
	}
	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}

func toInt(v any) (int, bool) {
	r := reflect.ValueOf(v)
	switch r.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(r.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(r.Uint()), true
	}
	return 0, false
}

// Render expands the template at name (relative to the root) with ctx.
func (r *Renderer) Render(name string, ctx map[string]any) (string, error) {
	path, err := r.resolve(name)
	if err != nil {
		return "", &RenderError{Template: name, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &RenderError{Template: name, Err: err}
	}
	tmpl, err := template.New(filepath.Base(name)).
		Option("missingkey=error").
		Funcs(funcs).
		Parse(string(data))
	if err != nil {
		return "", &RenderError{Template: name, Err: fmt.Errorf("parse: %w", err)}
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, ctx); err != nil {
		switch {
		case errors.Is(err, ErrUndefinedReference):
			return "", &RenderError{Template: name, Err: err}
		case isUndefined(err):
			return "", &RenderError{Template: name, Err: fmt.Errorf("%w: %v", ErrUndefinedReference, err)}
		}
		return "", &RenderError{Template: name, Err: err}
	}
	return buf.String(), nil
}

func (r *Renderer) resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("template path must be relative: %s", name)
	}
	clean := filepath.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("template path escapes root: %s", name)
	}
	return filepath.Join(r.root, clean), nil
}

// text/template has no typed error for missing keys; these are the
// messages it produces for a missing map entry or a field on a non-map.
func isUndefined(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "map has no entry for key") ||
		strings.Contains(msg, "can't evaluate field") ||
		strings.Contains(msg, "nil pointer evaluating")
}

// WriteFile replaces dst with content through a temp file in the same
// directory, so readers see either the old or the new file.
func WriteFile(dst, content string, perm os.FileMode) error {
	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		cleanup()
		return err
	}
	return nil
}
