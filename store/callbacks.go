package store

import (
	"context"
	"slices"
	"sync"

	"github.com/hupe1980/statemesh/core"
	"github.com/hupe1980/statemesh/logging"
)

// CallbackType defines the lifecycle points of a dispatch where callbacks run.
//
// Callbacks always run outside the slot lock, so they may read from the store.
// A before_dispatch callback that returns an error aborts the dispatch before
// the lock is taken. Errors from the remaining types are returned to the
// caller alongside the post-dispatch state.
type CallbackType string

const (
	// CallbackBeforeDispatch runs before the state lock is acquired.
	// Use for validation, filtering or auditing of incoming actions.
	CallbackBeforeDispatch CallbackType = "before_dispatch"

	// CallbackAfterDispatch runs after every successful dispatch, whether or
	// not the state changed.
	CallbackAfterDispatch CallbackType = "after_dispatch"

	// CallbackOnStateChange runs after a dispatch that changed state, once the
	// update notification has been emitted.
	CallbackOnStateChange CallbackType = "on_state_change"

	// CallbackOnError runs when a dispatch fails. Its own errors are ignored.
	CallbackOnError CallbackType = "on_error"
)

// CallbackContext describes the dispatch a callback is invoked for.
type CallbackContext struct {
	// AppID identifies the store.
	AppID string

	// Action is the action being dispatched.
	Action *core.Action

	// Before and After are the serialized states around the dispatch. Both are
	// nil for before_dispatch callbacks.
	Before core.Value
	After  core.Value

	// Changed reports whether Before and After differ structurally.
	Changed bool

	// Err is the dispatch failure (on_error only).
	Err error

	// CallbackType indicates which lifecycle point triggered this execution.
	CallbackType CallbackType

	// Metadata carries custom data between callbacks of one dispatch.
	Metadata map[string]interface{}
}

// Callback is a dispatch lifecycle hook.
//
// Callbacks run synchronously on the dispatching goroutine and should be fast.
type Callback interface {
	// Type returns the lifecycle point this callback handles.
	Type() CallbackType

	// Execute performs the callback logic.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	audit := store.NewFunctionCallback(
//	    store.CallbackAfterDispatch,
//	    func(ctx context.Context, cc *store.CallbackContext) error {
//	        log.Printf("%s dispatched (changed=%v)", cc.Action.Kind(), cc.Changed)
//	        return nil
//	    },
//	)
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager holds callbacks per lifecycle point and runs them in
// registration order. The first callback returning an error stops the chain.
// It is safe for concurrent registration and execution.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback for its type.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// Len returns the number of callbacks registered for callbackType.
func (cm *CallbackManager) Len(callbackType CallbackType) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.callbacks[callbackType])
}

// ExecuteCallbacks runs all callbacks registered for callbackType and returns
// the first error.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	cm.mu.RLock()
	callbacks := slices.Clone(cm.callbacks[callbackType])
	cm.mu.RUnlock()

	if len(callbacks) == 0 {
		return nil
	}

	callbackCtx.CallbackType = callbackType

	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return err
		}
	}

	return nil
}

// LoggingCallback logs dispatch lifecycle events to a logging.Logger.
//
// Example:
//
//	cb := store.NewLoggingCallback(store.CallbackAfterDispatch, logger)
type LoggingCallback struct {
	callbackType CallbackType
	logger       logging.Logger
}

// NewLoggingCallback creates a new logging callback. A nil logger makes the
// callback a no-op.
func NewLoggingCallback(callbackType CallbackType, logger logging.Logger) *LoggingCallback {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logger,
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the lifecycle event.
func (c *LoggingCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	args := []any{"callback", string(c.callbackType), "app_id", callbackCtx.AppID}
	if callbackCtx.Action != nil {
		args = append(args, "action_kind", callbackCtx.Action.Kind())
	}

	if callbackCtx.Err != nil {
		c.logger.Error("dispatch failed", append(args, "error", callbackCtx.Err)...)
		return nil
	}

	if c.callbackType != CallbackBeforeDispatch {
		args = append(args, "changed", callbackCtx.Changed)
	}
	c.logger.Info("dispatch lifecycle", args...)

	return nil
}

// KeyWatchCallback invokes a function when the value at a key path changes.
//
// Example:
//
//	watch := store.NewKeyWatchCallback("user.name", func(ctx context.Context, oldV, newV core.Value) error {
//	    fmt.Println("name changed to", newV)
//	    return nil
//	})
type KeyWatchCallback struct {
	key string
	fn  func(ctx context.Context, oldValue, newValue core.Value) error
}

// NewKeyWatchCallback creates a watch on key. Absent values are passed as nil.
func NewKeyWatchCallback(key string, fn func(ctx context.Context, oldValue, newValue core.Value) error) *KeyWatchCallback {
	return &KeyWatchCallback{key: key, fn: fn}
}

// Type returns CallbackOnStateChange.
func (c *KeyWatchCallback) Type() CallbackType {
	return CallbackOnStateChange
}

// Execute calls the watch function if the watched key changed.
func (c *KeyWatchCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	if c.fn == nil || !core.StateChanged(callbackCtx.Before, callbackCtx.After, c.key) {
		return nil
	}

	oldValue, _ := core.GetState(callbackCtx.Before, c.key)
	newValue, _ := core.GetState(callbackCtx.After, c.key)

	return c.fn(ctx, oldValue, newValue)
}

// ActionFilterCallback rejects actions whose kind is not in an allow-list.
type ActionFilterCallback struct {
	allowed map[string]struct{}
}

// NewActionFilterCallback allows only the given kinds. Rejected dispatches
// fail with an ActionNotFound error before the state lock is taken.
func NewActionFilterCallback(kinds ...string) *ActionFilterCallback {
	allowed := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		allowed[k] = struct{}{}
	}
	return &ActionFilterCallback{allowed: allowed}
}

// Type returns CallbackBeforeDispatch.
func (c *ActionFilterCallback) Type() CallbackType {
	return CallbackBeforeDispatch
}

// Execute rejects kinds outside the allow-list.
func (c *ActionFilterCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	kind := callbackCtx.Action.Kind()
	if _, ok := c.allowed[kind]; !ok {
		return core.NewActionNotFoundError(kind)
	}
	return nil
}

var (
	_ Callback = (*FunctionCallback)(nil)
	_ Callback = (*LoggingCallback)(nil)
	_ Callback = (*KeyWatchCallback)(nil)
	_ Callback = (*ActionFilterCallback)(nil)
)
