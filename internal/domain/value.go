package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	// KindInvalid is the zero Kind. A handler returning the zero Value is
	// treated as "no result" by the execution bridge, not as a null payload.
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Value is a tagged variant used uniformly for tool/prompt arguments and
// results. It replaces the dynamic values of the protocol with an explicit
// representation that can round-trip through JSON.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

// NullValue returns the JSON null value.
func NullValue() Value { return Value{kind: KindNull} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// IntValue wraps an integer.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue wraps a floating-point number.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// ArrayValue wraps an ordered sequence of values.
func ArrayValue(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

// ObjectValue wraps a key-value mapping.
func ObjectValue(m map[string]Value) Value { return Value{kind: KindObject, obj: m} }

// Kind reports which variant the value holds.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether the value holds any variant at all.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsBool returns the bool variant.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer variant.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the numeric value, coercing an integer variant.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// AsString returns the string variant.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsArray returns the array variant.
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }

// AsObject returns the object variant.
func (v Value) AsObject() (map[string]Value, bool) { return v.obj, v.kind == KindObject }

// Field returns the named member of an object variant.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[name]
	return f, ok
}

// Text renders the value the way tool results are embedded in protocol
// content: arrays and objects as JSON, scalars as their plain form.
func (v Value) Text() string {
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
		return "null"
	case KindArray, KindObject:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("<unencodable: %v>", err)
		}
		return string(data)
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler. An invalid Value marshals as null;
// it should never reach serialization in normal operation.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		if v.arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.arr)
	case KindObject:
		if v.obj == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.obj)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. Numbers without a fractional
// or exponent part decode as integers, everything else as floats.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	decoded, err := fromDecoded(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func fromDecoded(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case string:
		return StringValue(t), nil
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			i, err := t.Int64()
			if err == nil {
				return IntValue(i), nil
			}
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", s, err)
		}
		return FloatValue(f), nil
	case []interface{}:
		arr := make([]Value, len(t))
		for i, e := range t {
			ev, err := fromDecoded(e)
			if err != nil {
				return Value{}, err
			}
			arr[i] = ev
		}
		return ArrayValue(arr...), nil
	case map[string]interface{}:
		obj := make(map[string]Value, len(t))
		for k, e := range t {
			ev, err := fromDecoded(e)
			if err != nil {
				return Value{}, err
			}
			obj[k] = ev
		}
		return ObjectValue(obj), nil
	default:
		return Value{}, fmt.Errorf("unsupported JSON value of type %T", raw)
	}
}
