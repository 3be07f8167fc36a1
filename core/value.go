package core

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Value is the dynamic representation of state snapshots and action payloads:
// one JSON document kept as raw bytes. Keeping the bytes (instead of decoding
// into map[string]any) preserves object key order and lets the key-path
// resolver walk the document with gjson without an intermediate tree.
//
// A nil Value means "absent". The JSON literal null is the Null value and is a
// present value. Values are treated as immutable; use Clone before mutating the
// underlying bytes.
type Value []byte

// Null is the JSON null value.
var Null = Value("null")

// NewValue serializes v into a Value. Values that encoding/json cannot
// represent (channels, funcs, NaN, cyclic pointers, ...) yield a Serialization error.
func NewValue(v any) (Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, NewSerializationError(err.Error())
	}
	return Value(data), nil
}

// MustValue is NewValue for values known to serialize; it panics otherwise.
// Intended for tests and static fixtures.
func MustValue(v any) Value {
	val, err := NewValue(v)
	if err != nil {
		panic(err)
	}
	return val
}

// ParseValue validates raw JSON and wraps it as a Value (the input is copied).
func ParseValue(data []byte) (Value, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || !gjson.ValidBytes(trimmed) {
		return nil, NewSerializationError("invalid JSON document")
	}
	return Value(trimmed).Clone(), nil
}

// Clone returns an independent copy of the bytes.
func (v Value) Clone() Value {
	if v == nil {
		return nil
	}
	cp := make(Value, len(v))
	copy(cp, v)
	return cp
}

// IsNull reports whether v is the JSON null literal. Absent (nil) values are not null.
func (v Value) IsNull() bool {
	return v != nil && gjson.ParseBytes(v).Type == gjson.Null
}

// Get resolves a dot separated key path against v. See GetState.
func (v Value) Get(key string) (Value, bool) {
	return GetState(v, key)
}

// Equal reports structural equality with other. See StatesEqual.
func (v Value) Equal(other Value) bool {
	return StatesEqual(v, other)
}

// Decode unmarshals v into out.
func (v Value) Decode(out any) error {
	if v == nil {
		return NewSerializationError("cannot decode absent value")
	}
	if err := json.Unmarshal(v, out); err != nil {
		return NewSerializationError(err.Error())
	}
	return nil
}

// Pretty returns an indented rendering suitable for logs and terminals.
func (v Value) Pretty() string {
	if v == nil {
		return ""
	}
	return string(pretty.Pretty(v))
}

// String returns the compact JSON text.
func (v Value) String() string {
	if v == nil {
		return ""
	}
	return string(pretty.Ugly(v))
}

// MarshalJSON embeds the raw document. Absent values encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return v, nil
}

// UnmarshalJSON stores a copy of the raw document in fresh memory; the bytes
// the receiver held before may be shared with other values, Null included.
func (v *Value) UnmarshalJSON(data []byte) error {
	if v == nil {
		return NewSerializationError("UnmarshalJSON on nil pointer")
	}
	*v = Value(bytes.Clone(data))
	return nil
}
