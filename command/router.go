package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/statemesh/core"
	"github.com/hupe1980/statemesh/logging"
	"github.com/hupe1980/statemesh/store"
)

// Built-in command names.
const (
	GetInitialState = "get_initial_state"
	GetState        = "get_state"
	Dispatch        = "dispatch"
)

// Names returns the built-in command names.
func Names() []string {
	return []string{GetInitialState, GetState, Dispatch}
}

// Handler serves one command. args is the raw JSON argument object (possibly
// empty); the result must be valid JSON.
type Handler func(ctx context.Context, st *store.Store, args []byte) ([]byte, error)

// Options configures a Router.
type Options struct {
	// Logger receives command diagnostics. Defaults to NoOp logger if nil.
	Logger logging.Logger
}

// Router dispatches named commands to a store.
type Router struct {
	store    *store.Store
	handlers map[string]Handler
	logger   logging.Logger
}

// NewRouter creates a router serving the built-in commands for st.
func NewRouter(st *store.Store, optFns ...func(o *Options)) *Router {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Router{
		store: st,
		handlers: map[string]Handler{
			GetInitialState: getInitialState,
			GetState:        getState,
			Dispatch:        dispatch,
		},
		logger: opts.Logger,
	}
}

// Handle registers (or replaces) a command (chainable).
func (r *Router) Handle(name string, h Handler) *Router {
	r.handlers[name] = h
	return r
}

// Names returns the commands the router serves, sorted.
func (r *Router) Names() []string {
	return slices.Sorted(maps.Keys(r.handlers))
}

// Invoke runs the named command. Unknown commands fail with a State error;
// malformed arguments fail with an InvalidPayload error. A dispatch whose
// notification failed returns both the new state and the Emit error.
func (r *Router) Invoke(ctx context.Context, name string, args []byte) ([]byte, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, core.NewStateError(fmt.Sprintf("unknown command: %s", name))
	}

	if len(args) > 0 && !gjson.ValidBytes(args) {
		return nil, core.NewInvalidPayloadError(fmt.Sprintf("arguments of %s are not valid JSON", name))
	}

	out, err := h(ctx, r.store, args)
	if err != nil {
		r.logger.Debug("command failed", "command", name, "error", err)
	}

	return out, err
}

func getInitialState(_ context.Context, st *store.Store, _ []byte) ([]byte, error) {
	v, err := st.InitialState()
	if err != nil {
		return nil, err
	}
	return v.MarshalJSON()
}

func getState(_ context.Context, st *store.Store, args []byte) ([]byte, error) {
	key := gjson.GetBytes(args, "key")
	if key.Type != gjson.String {
		return nil, core.NewInvalidPayloadError("get_state requires a string argument: key")
	}

	v, ok, err := st.State(key.Str)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []byte("null"), nil
	}
	return v.MarshalJSON()
}

func dispatch(ctx context.Context, st *store.Store, args []byte) ([]byte, error) {
	raw := gjson.GetBytes(args, "action")
	if !raw.IsObject() {
		return nil, core.NewInvalidPayloadError("dispatch requires an object argument: action")
	}

	var action core.Action
	if err := json.Unmarshal([]byte(raw.Raw), &action); err != nil {
		return nil, core.NewInvalidPayloadError(err.Error())
	}

	v, err := st.Dispatch(ctx, &action)
	if v == nil {
		return nil, err
	}

	out, merr := v.MarshalJSON()
	if merr != nil {
		return nil, merr
	}
	return out, err
}

// EncodeError renders err as the JSON string a UI layer receives. Typed
// errors keep their human readable message; other errors are wrapped as State
// errors first.
func EncodeError(err error) []byte {
	if err == nil {
		return []byte("null")
	}

	var ce *core.Error
	if !errors.As(err, &ce) {
		ce = core.NewStateError(err.Error())
	}

	out, merr := ce.MarshalJSON()
	if merr != nil {
		return []byte(`"State error"`)
	}
	return out
}
