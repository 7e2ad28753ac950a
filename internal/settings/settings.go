package settings

import (
	"encoding/json"
	"fmt"
)

// Reserved keys injected after the merge. Descriptors cannot override them.
const (
	KeyService    = "SERVICE"
	KeyConfig     = "CONFIG"
	KeyHome       = "HOME"
	KeyRuntimeCmd = "RUNTIME_CMD"
)

// ReservedKeys lists the injected keys in a stable order.
var ReservedKeys = []string{KeyService, KeyConfig, KeyHome, KeyRuntimeCmd}

// Settings is the flattened result of resolving a (service, config) pair.
type Settings struct {
	values map[string]Value
}

// NewSettings wraps an already-resolved mapping. Mostly useful in tests.
func NewSettings(values map[string]Value) Settings {
	if values == nil {
		values = map[string]Value{}
	}
	return Settings{values: values}
}

func (s Settings) Get(key string) (Value, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s Settings) Service() string { return s.values[KeyService].String() }
func (s Settings) Config() string { return s.values[KeyConfig].String() }

// String returns a required scalar setting rendered as text.
func (s Settings) String(key string) (string, error) {
	v, ok := s.values[key]
	if !ok || v.IsNull() {
		return "", fmt.Errorf("%w: %s", ErrMissingSetting, key)
	}
	switch v.Kind() {
	case KindMap, KindList:
		return "", fmt.Errorf("setting %s: expected scalar, got %s", key, v.Kind())
	}
	return v.String(), nil
}

// Strings returns an optional list of scalars. Absent or null yields nil.
func (s Settings) Strings(key string) ([]string, error) {
	v, ok := s.values[key]
	if !ok || v.IsNull() {
		return nil, nil
	}
	items, isList := v.Items()
	if !isList {
		return nil, fmt.Errorf("setting %s: expected list, got %s", key, v.Kind())
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		switch it.Kind() {
		case KindMap, KindList, KindNull:
			return nil, fmt.Errorf("setting %s[%d]: expected scalar, got %s", key, i, it.Kind())
		}
		out = append(out, it.String())
	}
	return out, nil
}

// Keys returns all keys in lexical order.
func (s Settings) Keys() []string { return sortedKeys(s.values) }

// Context converts the settings into a template context.
func (s Settings) Context() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v.Interface()
	}
	return out
}

func (s Settings) MarshalJSON() ([]byte, error) { return json.Marshal(s.Context()) }

func (s Settings) MarshalYAML() (interface{}, error) { return s.Context(), nil }
