package core

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind identifies which member of a Value is set.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSequence
	KindMapping
)

var kindNames = [...]string{"null", "bool", "int", "float", "string", "sequence", "mapping"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a dynamically typed header value. Only the member matching Kind is meaningful.
// A nil Seq or Map is equivalent to an empty one.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Seq   []Value
	Map   map[string]Value
}

func Null() Value { return Value{Kind: KindNull} }
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Mapping(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{Kind: KindMapping, Map: m}
}

func Sequence(vs ...Value) Value {
	if vs == nil {
		vs = []Value{}
	}
	return Value{Kind: KindSequence, Seq: vs}
}

// ValueOf converts a plain Go value into a Value.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case int32:
		return Int(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Float(float64(x)), nil
		}
		return Int(int64(x)), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return String(x), nil
	case time.Time:
		return String(x.UTC().Format(time.RFC3339Nano)), nil
	case []string:
		seq := make([]Value, 0, len(x))
		for _, s := range x {
			seq = append(seq, String(s))
		}
		return Sequence(seq...), nil
	case []any:
		seq := make([]Value, 0, len(x))
		for _, item := range x {
			iv, err := ValueOf(item)
			if err != nil {
				return Value{}, err
			}
			seq = append(seq, iv)
		}
		return Sequence(seq...), nil
	case map[string]any:
		m := make(map[string]Value, len(x))
		for k, item := range x {
			iv, err := ValueOf(item)
			if err != nil {
				return Value{}, err
			}
			m[k] = iv
		}
		return Mapping(m), nil
	}
	return Value{}, fmt.Errorf("%w: unsupported value type %T", ErrValidation, v)
}

// Interface returns the value as plain Go data (nil, bool, int64, float64,
// string, []any, map[string]any).
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindString:
		return v.Str
	case KindSequence:
		out := make([]any, 0, len(v.Seq))
		for _, item := range v.Seq {
			out = append(out, item.Interface())
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.Map))
		for k, item := range v.Map {
			out[k] = item.Interface()
		}
		return out
	}
	return nil
}

// String renders scalars as text and collections in flow form.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return formatFloat(v.Float)
	case KindString:
		return v.Str
	case KindSequence:
		parts := make([]string, 0, len(v.Seq))
		for _, item := range v.Seq {
			parts = append(parts, item.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMapping:
		keys := v.Keys()
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+v.Map[k].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return ""
}

// Keys returns the mapping keys in sorted order.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.Map))
	for k := range v.Map {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsZero reports whether the value is null.
func (v Value) IsZero() bool { return v.Kind == KindNull }

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind == KindFloat && (math.IsInf(v.Float, 0) || math.IsNaN(v.Float)) {
		return json.Marshal(formatFloat(v.Float))
	}
	return json.Marshal(v.Interface())
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (any, error) {
	return v.Node()
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	decoded, err := ValueFromNode(node)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// Node encodes the value as a YAML node. Mapping keys are emitted in sorted order.
func (v Value) Node() (*yaml.Node, error) {
	switch v.Kind {
	case KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.Bool)}, nil
	case KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v.Int, 10)}, nil
	case KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFloat(v.Float)}, nil
	case KindString:
		n := &yaml.Node{}
		if err := n.Encode(v.Str); err != nil {
			return nil, err
		}
		return n, nil
	case KindSequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.Seq {
			child, err := item.Node()
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case KindMapping:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range v.Keys() {
			child, err := v.Map[k].Node()
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, child)
		}
		return n, nil
	}
	return nil, fmt.Errorf("unknown value kind %d", v.Kind)
}

// ValueFromNode decodes a YAML node into a Value. Scalars whose tag is not
// null, bool, int or float (timestamps, binary, custom tags) are kept as strings.
func ValueFromNode(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return ValueFromNode(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return Null(), nil
		}
		return ValueFromNode(n.Alias)
	case yaml.ScalarNode:
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
			if err := n.Decode(&i); err == nil {
				return Int(i), nil
			}
			var f float64
			if err := n.Decode(&f); err != nil {
				return String(n.Value), nil
			}
			return Float(f), nil
		case "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return Value{}, err
			}
			return Float(f), nil
		}
		return String(n.Value), nil
	case yaml.SequenceNode:
		seq := make([]Value, 0, len(n.Content))
		for _, child := range n.Content {
			item, err := ValueFromNode(child)
			if err != nil {
				return Value{}, err
			}
			seq = append(seq, item)
		}
		return Sequence(seq...), nil
	case yaml.MappingNode:
		m := make(map[string]Value, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			item, err := ValueFromNode(n.Content[i+1])
			if err != nil {
				return Value{}, err
			}
			m[n.Content[i].Value] = item
		}
		return Mapping(m), nil
	}
	return Null(), nil
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
