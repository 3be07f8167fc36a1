package core

import (
	"encoding/json"
)

// Action is an immutable request to change state: a kind plus an optional
// payload. An absent payload is distinct from a present JSON null payload.
//
// Actions are built right before dispatch and consumed by exactly one handler
// invocation; stores do not retain them.
type Action struct {
	kind    string
	payload Value
}

// NewAction creates an action without payload.
func NewAction(kind string) *Action {
	return &Action{kind: kind}
}

// NewActionWithPayload serializes payload and attaches it to a new action.
// It fails with a Serialization error when payload cannot be represented as JSON.
func NewActionWithPayload(kind string, payload any) (*Action, error) {
	v, err := NewValue(payload)
	if err != nil {
		return nil, err
	}
	return &Action{kind: kind, payload: v}, nil
}

// NewActionWithValue attaches an already serialized payload. A nil value is
// stored as a present null payload.
func NewActionWithValue(kind string, payload Value) *Action {
	if payload == nil {
		payload = Null
	}
	return &Action{kind: kind, payload: payload.Clone()}
}

// Kind returns the action kind.
func (a *Action) Kind() string { return a.kind }

// Payload returns the raw payload and whether one is present.
func (a *Action) Payload() (Value, bool) {
	if a.payload == nil {
		return nil, false
	}
	return a.payload.Clone(), true
}

// HasPayload reports whether a payload is attached.
func (a *Action) HasPayload() bool { return a.payload != nil }

// Is reports whether the action has the given kind.
func (a *Action) Is(kind string) bool { return a.kind == kind }

// DecodePayload unmarshals the payload into out. It is the non-generic form of
// RequirePayload.
func (a *Action) DecodePayload(out any) error {
	if a.payload == nil {
		return NewMissingPayloadError(a.kind)
	}
	if err := json.Unmarshal(a.payload, out); err != nil {
		return NewInvalidPayloadError(err.Error())
	}
	return nil
}

// RequirePayload decodes the payload of a into T. It fails with MissingPayload
// when no payload is attached and with InvalidPayload when decoding fails.
func RequirePayload[T any](a *Action) (T, error) {
	var out T
	if err := a.DecodePayload(&out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// PayloadAs decodes the payload of a into T when present. An absent payload is
// reported through the boolean, not as an error; a malformed payload still fails.
func PayloadAs[T any](a *Action) (T, bool, error) {
	var zero T
	if a.payload == nil {
		return zero, false, nil
	}
	out, err := RequirePayload[T](a)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

type actionJSON struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MarshalJSON encodes the action as {"kind": ..., "payload": ...}.
func (a *Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(actionJSON{Kind: a.kind, Payload: json.RawMessage(a.payload)})
}

// UnmarshalJSON decodes the wire form. A missing or null payload decodes as absent.
func (a *Action) UnmarshalJSON(data []byte) error {
	var aux actionJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return NewSerializationError(err.Error())
	}
	a.kind = aux.Kind
	a.payload = nil
	if len(aux.Payload) > 0 && !Value(aux.Payload).IsNull() {
		a.payload = Value(aux.Payload).Clone()
	}
	return nil
}

// String returns a compact description for logs.
func (a *Action) String() string {
	if a.payload == nil {
		return a.kind
	}
	return a.kind + " " + a.payload.String()
}
