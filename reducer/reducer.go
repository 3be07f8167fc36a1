package reducer

import (
	"encoding/json"
	"slices"

	"github.com/hupe1980/statemesh/core"
	"github.com/hupe1980/statemesh/internal/guard"
	"github.com/hupe1980/statemesh/logging"
)

// Reducer owns one state value of type T behind a poisonable mutex and applies
// actions to it through the handler table it was built with. It implements
// core.Manager and is safe for concurrent use: at most one dispatch mutates the
// state at a time.
//
// T must be serializable with encoding/json; implement json.Marshaler on T to
// control the snapshot shape.
type Reducer[T any] struct {
	name     string
	mu       guard.Mutex
	state    T
	handlers map[string]Handler[T]
	fallback Handler[T]
	logger   logging.Logger
}

var _ core.Manager = (*Reducer[struct{}])(nil)

// New is shorthand for NewBuilder[T]().Build(initial) with no handlers.
func New[T any](initial T, optFns ...func(o *Options)) *Reducer[T] {
	return NewBuilder[T]().Build(initial, optFns...)
}

// SerializedState returns the current state as a Value. It returns core.Null
// when the state cannot be serialized or the lock is poisoned; serialization of
// the host's own state type is expected to always succeed.
func (r *Reducer[T]) SerializedState() core.Value {
	var out core.Value
	err := r.mu.Do(func() error {
		v, err := core.NewValue(r.state)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		r.logger.Warn("state snapshot unavailable, returning null", "reducer", r.name, "error", err)
		return core.Null.Clone()
	}
	return out
}

// Dispatch applies action under the lock and returns the serialized state.
//
// The handler registered for action.Kind() runs if there is one, otherwise the
// default handler, otherwise nothing happens. Handler errors are returned
// untouched and skip serialization. A handler panic poisons the reducer: this
// and every later dispatch fail with a LockPoisoned error.
func (r *Reducer[T]) Dispatch(action *core.Action) (core.Value, error) {
	if action == nil {
		return nil, core.NewStateError("nil action")
	}

	var out core.Value
	err := r.mu.Do(func() error {
		if h := r.lookup(action.Kind()); h != nil {
			if err := h.Apply(&r.state, action); err != nil {
				return err
			}
		}

		v, err := core.NewValue(r.state)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		r.logger.Debug("dispatch failed", "reducer", r.name, "kind", action.Kind(), "error", err)
		return nil, err
	}

	return out, nil
}

func (r *Reducer[T]) lookup(kind string) Handler[T] {
	if h, ok := r.handlers[kind]; ok {
		return h
	}
	return r.fallback
}

// Read runs fn with read access to the state while holding the lock.
func (r *Reducer[T]) Read(fn func(state *T)) error {
	return r.mu.Do(func() error {
		fn(&r.state)
		return nil
	})
}

// Update runs fn with write access to the state while holding the lock. It
// bypasses the handler table, so stores do not observe or announce the change.
func (r *Reducer[T]) Update(fn func(state *T)) error {
	return r.mu.Do(func() error {
		fn(&r.state)
		return nil
	})
}

// Snapshot returns a deep copy of the state made by a JSON round trip, so the
// copy shares no slices or maps with the live state.
func (r *Reducer[T]) Snapshot() (T, error) {
	var out T
	err := r.mu.Do(func() error {
		data, err := json.Marshal(r.state)
		if err != nil {
			return core.NewSerializationError(err.Error())
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return core.NewSerializationError(err.Error())
		}
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Kinds returns the registered action kinds in sorted order.
func (r *Reducer[T]) Kinds() []string {
	kinds := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// HasDefault reports whether a default handler is installed.
func (r *Reducer[T]) HasDefault() bool { return r.fallback != nil }

// Poisoned reports whether a handler panic poisoned the reducer.
func (r *Reducer[T]) Poisoned() bool {
	_, poisoned := r.mu.Poisoned()
	return poisoned
}

// Name returns the label given at build time.
func (r *Reducer[T]) Name() string { return r.name }
