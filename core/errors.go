package core

import (
	"encoding/json"
	"fmt"
)

// ErrorCode discriminates the failure kinds surfaced by stores and reducers.
type ErrorCode string

const (
	// CodeNotRegistered means no state manager is installed for the application.
	CodeNotRegistered ErrorCode = "NOT_REGISTERED"
	// CodeLockPoisoned means a handler panicked while holding the state lock.
	CodeLockPoisoned ErrorCode = "LOCK_POISONED"
	// CodeSerialization means a value could not be converted to or from JSON.
	CodeSerialization ErrorCode = "SERIALIZATION"
	// CodeInvalidPayload means an action payload is present but has the wrong shape.
	CodeInvalidPayload ErrorCode = "INVALID_PAYLOAD"
	// CodeMissingPayload means a handler required a payload the action does not carry.
	CodeMissingPayload ErrorCode = "MISSING_PAYLOAD"
	// CodeActionNotFound is raised by default handlers that reject unknown kinds.
	CodeActionNotFound ErrorCode = "ACTION_NOT_FOUND"
	// CodeEmit means the state update notification could not be delivered.
	CodeEmit ErrorCode = "EMIT"
	// CodeState is the generic escape hatch for handler level failures.
	CodeState ErrorCode = "STATE"
)

// Error is the typed failure returned across the store boundary. It keeps the
// discriminant (Code) next to a human readable detail so it can be shipped to a
// UI layer as a plain string without losing its kind.
type Error struct {
	Code   ErrorCode `json:"code"`
	Detail string    `json:"detail,omitempty"`
}

// Error renders the human readable message.
func (e *Error) Error() string {
	switch e.Code {
	case CodeNotRegistered:
		return "State manager not registered"
	case CodeLockPoisoned:
		return fmt.Sprintf("Lock poisoned: %s", e.Detail)
	case CodeSerialization:
		return fmt.Sprintf("Serialization error: %s", e.Detail)
	case CodeInvalidPayload:
		return fmt.Sprintf("Invalid payload: %s", e.Detail)
	case CodeMissingPayload:
		return fmt.Sprintf("Missing payload for action: %s", e.Detail)
	case CodeActionNotFound:
		return fmt.Sprintf("Action not found: %s", e.Detail)
	case CodeEmit:
		return fmt.Sprintf("Event emission error: %s", e.Detail)
	default:
		return fmt.Sprintf("State error: %s", e.Detail)
	}
}

// Is matches any *Error carrying the same code, so errors.Is(err, ErrNotRegistered)
// works regardless of the detail text.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// MarshalJSON encodes the error as its message string.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Error())
}

// Sentinels for errors.Is comparisons. Only the code is compared.
var (
	ErrNotRegistered  = &Error{Code: CodeNotRegistered}
	ErrLockPoisoned   = &Error{Code: CodeLockPoisoned}
	ErrSerialization  = &Error{Code: CodeSerialization}
	ErrInvalidPayload = &Error{Code: CodeInvalidPayload}
	ErrMissingPayload = &Error{Code: CodeMissingPayload}
	ErrActionNotFound = &Error{Code: CodeActionNotFound}
	ErrEmit           = &Error{Code: CodeEmit}
	ErrState          = &Error{Code: CodeState}
)

// NewStateError creates a generic handler level error.
func NewStateError(msg string) *Error { return &Error{Code: CodeState, Detail: msg} }

// NewInvalidPayloadError reports a payload that failed to decode.
func NewInvalidPayloadError(msg string) *Error { return &Error{Code: CodeInvalidPayload, Detail: msg} }

// NewMissingPayloadError reports a required payload that is absent for the given kind.
func NewMissingPayloadError(kind string) *Error {
	return &Error{Code: CodeMissingPayload, Detail: kind}
}

// NewActionNotFoundError is meant for default handlers that refuse unknown kinds.
func NewActionNotFoundError(kind string) *Error {
	return &Error{Code: CodeActionNotFound, Detail: kind}
}

// NewSerializationError reports a JSON conversion failure.
func NewSerializationError(msg string) *Error { return &Error{Code: CodeSerialization, Detail: msg} }

// NewLockPoisonedError reports access to a lock poisoned by an earlier panic.
func NewLockPoisonedError(msg string) *Error { return &Error{Code: CodeLockPoisoned, Detail: msg} }

// NewEmitError reports a failed state update notification.
func NewEmitError(msg string) *Error { return &Error{Code: CodeEmit, Detail: msg} }
