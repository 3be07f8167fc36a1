package reducer

import (
	"maps"

	"github.com/hupe1980/statemesh/logging"
)

// Options configures a Reducer at build time.
type Options struct {
	// Name labels the reducer in log output. Defaults to "reducer".
	Name string

	// Logger receives dispatch diagnostics. Defaults to NoOp logger if nil.
	Logger logging.Logger
}

// Builder accumulates action handlers and an optional default handler, then
// produces a Reducer bound to an initial state.
//
// Example:
//
//	r := reducer.NewBuilder[AppState]().
//	    On("INCREMENT", func(s *AppState, _ *core.Action) error {
//	        s.Counter++
//	        return nil
//	    }).
//	    On("ADD_TODO", func(s *AppState, a *core.Action) error {
//	        text, err := core.RequirePayload[string](a)
//	        if err != nil {
//	            return err
//	        }
//	        s.Todos = append(s.Todos, text)
//	        return nil
//	    }).
//	    OnDefault(func(_ *AppState, a *core.Action) error {
//	        return core.NewActionNotFoundError(a.Kind())
//	    }).
//	    Build(AppState{})
//
// A Builder is not safe for concurrent use; the reducers it builds are.
type Builder[T any] struct {
	handlers map[string]Handler[T]
	fallback Handler[T]
}

// NewBuilder creates an empty builder.
func NewBuilder[T any]() *Builder[T] {
	return &Builder[T]{handlers: make(map[string]Handler[T])}
}

// On registers fn for kind. A later registration for the same kind replaces
// the earlier one.
func (b *Builder[T]) On(kind string, fn HandlerFunc[T]) *Builder[T] {
	return b.Handle(kind, fn)
}

// Handle registers h for kind, replacing any previous handler for kind.
func (b *Builder[T]) Handle(kind string, h Handler[T]) *Builder[T] {
	b.handlers[kind] = h
	return b
}

// OnDefault sets the fallback invoked for kinds without a handler.
func (b *Builder[T]) OnDefault(fn HandlerFunc[T]) *Builder[T] {
	return b.HandleDefault(fn)
}

// HandleDefault sets (or replaces) the fallback handler. Without one, actions
// of unknown kinds leave state untouched and succeed.
func (b *Builder[T]) HandleDefault(h Handler[T]) *Builder[T] {
	b.fallback = h
	return b
}

// Build creates a Reducer owning initial. The handler table is copied, so
// further registrations on the builder do not affect built reducers.
func (b *Builder[T]) Build(initial T, optFns ...func(o *Options)) *Reducer[T] {
	opts := Options{
		Name:   "reducer",
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Reducer[T]{
		name:     opts.Name,
		state:    initial,
		handlers: maps.Clone(b.handlers),
		fallback: b.fallback,
		logger:   opts.Logger,
	}
}
