package settings

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind tags the dynamic type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindMap
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	}
	return "unknown"
}

// Value is a descriptor value: a scalar, a string-keyed mapping or a sequence.
// The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	m    map[string]Value
	l    []Value
}

func Null() Value { return Value{} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Int(i int64) Value { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func List(items ...Value) Value { return Value{kind: KindList, l: items} }

// Map wraps m without copying it.
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Entries returns the mapping payload.
func (v Value) Entries() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// Items returns the sequence payload.
func (v Value) Items() ([]Value, bool) { return v.l, v.kind == KindList }

// MapStrings returns a copy of v with fn applied to every string it contains,
// descending into mappings and sequences. Other scalars are returned unchanged.
func (v Value) MapStrings(fn func(string) (string, error)) (Value, error) {
	switch v.kind {
	case KindString:
		s, err := fn(v.s)
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	case KindMap:
		out := make(map[string]Value, len(v.m))
		for k, child := range v.m {
			nv, err := child.MapStrings(fn)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = nv
		}
		return Map(out), nil
	case KindList:
		out := make([]Value, len(v.l))
		for i, child := range v.l {
			nv, err := child.MapStrings(fn)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = nv
		}
		return List(out...), nil
	default:
		return v, nil
	}
}

// Interface converts v into plain Go values (string, int64, float64, bool,
// map[string]any, []any, nil) suitable for templates and encoders.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, child := range v.m {
			out[k] = child.Interface()
		}
		return out
	case KindList:
		out := make([]any, len(v.l))
		for i, child := range v.l {
			out[i] = child.Interface()
		}
		return out
	}
	return nil
}

// String renders scalars the way a template would print them.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNull:
		return ""
	}
	return fmt.Sprint(v.Interface())
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FromNode converts a decoded YAML node into a Value.
func FromNode(n *yaml.Node) (Value, error) {
	if n == nil {
		return Null(), nil
	}
	switch n.Kind {
	case 0:
		return Null(), nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return FromNode(n.Content[0])
	case yaml.AliasNode:
		return FromNode(n.Alias)
	case yaml.MappingNode:
		m := make(map[string]Value, len(n.Content)/2)
		var merges []*yaml.Node
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if key.Kind != yaml.ScalarNode {
				return Value{}, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			if key.ShortTag() == "!!merge" {
				merges = append(merges, val)
				continue
			}
			child, err := FromNode(val)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", key.Value, err)
			}
			m[key.Value] = child
		}
		// Explicit keys win over merged ones.
		for _, src := range merges {
			if err := mergeInto(m, src); err != nil {
				return Value{}, fmt.Errorf("<<: %w", err)
			}
		}
		return Map(m), nil
	case yaml.SequenceNode:
		items := make([]Value, len(n.Content))
		for i, c := range n.Content {
			child, err := FromNode(c)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = child
		}
		return List(items...), nil
	case yaml.ScalarNode:
		return scalar(n)
	}
	return Value{}, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
}

// mergeInto applies a YAML merge key value: a mapping or a list of
// mappings, where earlier mappings take precedence over later ones.
func mergeInto(m map[string]Value, src *yaml.Node) error {
	for src != nil && src.Kind == yaml.AliasNode {
		src = src.Alias
	}
	if src == nil {
		return errors.New("merge of an undefined alias")
	}
	switch src.Kind {
	case yaml.MappingNode:
		v, err := FromNode(src)
		if err != nil {
			return err
		}
		entries, _ := v.Entries()
		for k, e := range entries {
			if _, ok := m[k]; !ok {
				m[k] = e
			}
		}
		return nil
	case yaml.SequenceNode:
		for _, item := range src.Content {
			for item != nil && item.Kind == yaml.AliasNode {
				item = item.Alias
			}
			if item == nil || item.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: merge list items must be mappings", src.Line)
			}
			if err := mergeInto(m, item); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("line %d: merge value must be a mapping or a list of mappings", src.Line)
}

func scalar(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return Value{}, err
		}
		return Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, err
		}
		return Float(f), nil
	default:
		return String(n.Value), nil
	}
}
