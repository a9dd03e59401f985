package setting

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Kind tells how a setting value is encoded in storage.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindObject Kind = "object"
	KindArray  Kind = "array"
)

var ErrInvalidValue = errors.New("invalid setting value")

// Value is a setting value: one of a string, a number, a boolean, a JSON object or a JSON array.
type Value struct {
	kind Kind
	raw  json.RawMessage // compact JSON
}

// ValueOf wraps any JSON encodable Go value.
func ValueOf(v interface{}) (Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Value{}, errors.Wrap(err, "encoding setting value")
	}
	return parseJSON(raw)
}

// MustValueOf is like ValueOf but panics on failure.
func MustValueOf(v interface{}) Value {
	val, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return val
}

func StringValue(s string) Value {
	raw, _ := json.Marshal(s)
	return Value{kind: KindString, raw: raw}
}

func parseJSON(data []byte) (Value, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return Value{}, errors.Wrap(ErrInvalidValue, err.Error())
	}
	raw := buf.Bytes()
	if len(raw) == 0 {
		return Value{}, ErrInvalidValue
	}

	var kind Kind
	switch raw[0] {
	case '"':
		kind = KindString
	case '{':
		kind = KindObject
	case '[':
		kind = KindArray
	case 't', 'f':
		kind = KindBool
	case 'n': // null
		return Value{}, errors.Wrap(ErrInvalidValue, "null is not a setting value")
	default:
		kind = KindNumber
	}
	return Value{kind: kind, raw: raw}, nil
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsZero() bool { return v.kind == "" }

// Interface decodes the value into its natural Go representation.
func (v Value) Interface() interface{} {
	if v.IsZero() {
		return nil
	}
	var out interface{}
	_ = json.Unmarshal(v.raw, &out)
	return out
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsZero() {
		return []byte("null"), nil
	}
	return v.raw, nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	val, err := parseJSON(data)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// Encode returns the storage text of the value: strings are stored as is, anything else as JSON.
func (v Value) Encode() (string, Kind) {
	if v.kind == KindString {
		var s string
		_ = json.Unmarshal(v.raw, &s)
		return s, KindString
	}
	return string(v.raw), v.kind
}

// Decode rebuilds a value out of its storage text & kind.
func Decode(text string, kind Kind) (Value, error) {
	if kind == KindString {
		return StringValue(text), nil
	}
	switch kind {
	case KindNumber, KindBool, KindObject, KindArray:
	default:
		return Value{}, errors.Wrapf(ErrInvalidValue, "unknown kind %q", kind)
	}
	val, err := parseJSON([]byte(text))
	if err != nil {
		return Value{}, err
	}
	if val.kind != kind {
		return Value{}, errors.Wrapf(ErrInvalidValue, "stored as %s but holds a %s", kind, val.kind)
	}
	return val, nil
}

// DecodeUntyped rebuilds a value stored without its kind: JSON text is decoded, anything else is a string.
func DecodeUntyped(text string) Value {
	if val, err := parseJSON([]byte(text)); err == nil {
		return val
	}
	return StringValue(text)
}

func (v Value) String() string {
	s, _ := v.Encode()
	return fmt.Sprintf("%s(%s)", v.kind, s)
}
