package reducer

import "github.com/hupe1980/statemesh/core"

// Handler mutates state in place in response to an action.
//
// Handlers run while the reducer holds its lock, so they see no interleaved
// mutation from other dispatches. They must not block on I/O and must not call
// back into the store that owns them. A returned error aborts the dispatch; any
// mutation already applied stays in place, so handlers should validate before
// they mutate.
type Handler[T any] interface {
	Apply(state *T, action *core.Action) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc[T any] func(state *T, action *core.Action) error

// Apply calls f(state, action).
func (f HandlerFunc[T]) Apply(state *T, action *core.Action) error {
	return f(state, action)
}
