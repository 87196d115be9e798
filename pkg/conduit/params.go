package conduit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Kind identifies which of the three parameter shapes a Param holds.
type Kind uint8

const (
	// KindNone is the zero Param: no parameters at all.
	KindNone Kind = iota
	// KindString is a leaf value.
	KindString
	// KindList is an ordered sequence of parameters.
	KindList
	// KindMap is a string-keyed mapping that keeps insertion order.
	KindMap
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "none"
	}
}

// Param is a parameter tree: a string leaf, a list or an ordered map.
// The zero value means "no parameters" and encodes to nothing.
type Param struct {
	kind   Kind
	str    string
	list   []Param
	fields []Field
}

// Field is one key of a map parameter.
type Field struct {
	Key   string
	Value Param
}

// F builds a map field.
func F(key string, value Param) Field {
	return Field{Key: key, Value: value}
}

// String returns a leaf parameter.
func String(s string) Param {
	return Param{kind: KindString, str: s}
}

// Int returns a leaf holding the decimal form of n.
func Int(n int) Param {
	return String(strconv.Itoa(n))
}

// Bool returns a leaf holding "1" or "0". The server reads form values with
// PHP truthiness, where "false" would count as true.
func Bool(b bool) Param {
	if b {
		return String("1")
	}
	return String("0")
}

// List returns a sequence parameter.
func List(items ...Param) Param {
	return Param{kind: KindList, list: append([]Param(nil), items...)}
}

// Strings returns a sequence of string leaves.
func Strings(values ...string) Param {
	items := make([]Param, len(values))
	for i, v := range values {
		items[i] = String(v)
	}
	return Param{kind: KindList, list: items}
}

// Map returns a mapping parameter. Later fields with a key already present
// replace the earlier value in place.
func Map(fields ...Field) Param {
	return buildMap(nil, fields)
}

// buildMap appends fields to a copy of base, replacing values of keys already
// present in place.
func buildMap(base, fields []Field) Param {
	p := Param{kind: KindMap, fields: make([]Field, 0, len(base)+len(fields))}
	index := make(map[string]int, len(base)+len(fields))
	for _, list := range [][]Field{base, fields} {
		for _, f := range list {
			if i, ok := index[f.Key]; ok {
				p.fields[i].Value = f.Value
				continue
			}
			index[f.Key] = len(p.fields)
			p.fields = append(p.fields, f)
		}
	}
	return p
}

// Kind returns the parameter shape.
func (p Param) Kind() Kind {
	return p.kind
}

// IsZero reports whether p carries no parameters.
func (p Param) IsZero() bool {
	return p.kind == KindNone
}

// Str returns the leaf value; it is empty for lists and maps.
func (p Param) Str() string {
	return p.str
}

// Items returns a copy of the list elements.
func (p Param) Items() []Param {
	return append([]Param(nil), p.list...)
}

// Fields returns a copy of the map fields in order.
func (p Param) Fields() []Field {
	return append([]Field(nil), p.fields...)
}

// Len returns the number of list elements or map fields.
func (p Param) Len() int {
	switch p.kind {
	case KindList:
		return len(p.list)
	case KindMap:
		return len(p.fields)
	default:
		return 0
	}
}

// Get returns the value stored under key in a map parameter.
func (p Param) Get(key string) (Param, bool) {
	for _, f := range p.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Param{}, false
}

// Set returns a copy of the map with key set to value. An existing key keeps
// its position; a new key is appended. Setting on the zero Param starts a new
// map.
func (p Param) Set(key string, value Param) Param {
	out := Param{kind: KindMap, fields: make([]Field, 0, len(p.fields)+1)}
	replaced := false
	for _, f := range p.fields {
		if f.Key == key {
			f.Value = value
			replaced = true
		}
		out.fields = append(out.fields, f)
	}
	if !replaced {
		out.fields = append(out.fields, Field{Key: key, Value: value})
	}
	return out
}

// Merge returns a copy of p with every field of other set on it.
func (p Param) Merge(other Param) Param {
	var base []Field
	if p.kind == KindMap {
		base = p.fields
	}
	return buildMap(base, other.fields)
}

// FromValue converts plain Go values into a Param. Go maps have no order, so
// their keys are sorted. Floats, nil and other types are rejected.
func FromValue(v any) (Param, error) {
	switch val := v.(type) {
	case Param:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return String(strconv.FormatInt(val, 10)), nil
	case bool:
		return Bool(val), nil
	case []string:
		return Strings(val...), nil
	case []any:
		items := make([]Param, 0, len(val))
		for i, item := range val {
			p, err := FromValue(item)
			if err != nil {
				return Param{}, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, p)
		}
		return Param{kind: KindList, list: items}, nil
	case map[string]string:
		fields := make([]Field, 0, len(val))
		for _, k := range sortedKeys(val) {
			fields = append(fields, Field{Key: k, Value: String(val[k])})
		}
		return Map(fields...), nil
	case map[string]any:
		fields := make([]Field, 0, len(val))
		for _, k := range sortedKeys(val) {
			p, err := FromValue(val[k])
			if err != nil {
				return Param{}, fmt.Errorf("key %q: %w", k, err)
			}
			fields = append(fields, Field{Key: k, Value: p})
		}
		return Map(fields...), nil
	default:
		return Param{}, NewInvalidParamsError(fmt.Sprintf("unsupported parameter value of type %T", v))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseJSON reads a JSON document into a Param, keeping object key order.
// Numbers keep their literal text and booleans become "1"/"0".
func ParseJSON(data []byte) (Param, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	p, err := parseJSONValue(dec)
	if err != nil {
		return Param{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Param{}, NewInvalidParamsError("trailing data after JSON parameters")
	}
	return p, nil
}

func parseJSONValue(dec *json.Decoder) (Param, error) {
	tok, err := dec.Token()
	if err != nil {
		return Param{}, NewInvalidParamsError(fmt.Sprintf("invalid JSON parameters: %v", err))
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			var fields []Field
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Param{}, NewInvalidParamsError(fmt.Sprintf("invalid JSON parameters: %v", err))
				}
				key, _ := keyTok.(string)
				value, err := parseJSONValue(dec)
				if err != nil {
					return Param{}, err
				}
				fields = append(fields, Field{Key: key, Value: value})
			}
			_, err = dec.Token()
			return buildMap(nil, fields), err
		case '[':
			out := List()
			for dec.More() {
				value, err := parseJSONValue(dec)
				if err != nil {
					return Param{}, err
				}
				out.list = append(out.list, value)
			}
			_, err = dec.Token()
			return out, err
		}
	case string:
		return String(t), nil
	case json.Number:
		return String(t.String()), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Param{}, NewInvalidParamsError("null is not a valid parameter value")
	}
	return Param{}, NewInvalidParamsError(fmt.Sprintf("unexpected JSON token %v", tok))
}
