package store

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/statemesh/core"
	"github.com/hupe1980/statemesh/logging"
	"github.com/hupe1980/statemesh/notify"
)

// Options configures a Store.
type Options struct {
	// Registry holds the manager slots. Defaults to DefaultRegistry().
	Registry *Registry

	// EventName is the topic of state update events. Defaults to
	// core.StateUpdateEvent.
	EventName string

	// Emitter receives state update events. Defaults to notify.NoOp.
	Emitter core.Emitter

	// Callbacks holds dispatch lifecycle hooks. Defaults to an empty manager.
	Callbacks *CallbackManager

	// Logger receives diagnostics. Defaults to NoOp logger if nil.
	Logger logging.Logger
}

// dispatchLogger is implemented by logging.StructuredLogger.
type dispatchLogger interface {
	LogDispatch(kind string, dur time.Duration, changed bool, err error)
	LogEmit(topic string, stateBytes int, err error)
}

// timerLogger is implemented by logging.StructuredLogger.
type timerLogger interface {
	StartTimer(op string) func() time.Duration
}

// poisonable is implemented by managers that track their own poisoning, such
// as reducer.Reducer.
type poisonable interface {
	Poisoned() bool
}

// Store is the facade an application uses to read and mutate the state
// registered under one application id. It looks its slot up on every call, so
// a manager registered after the store was created is picked up, as is a
// replacement.
type Store struct {
	appID     string
	registry  *Registry
	eventName string
	emitter   core.Emitter
	callbacks *CallbackManager
	logger    logging.Logger
}

// New creates a store bound to appID.
func New(appID string, optFns ...func(o *Options)) *Store {
	opts := Options{
		Registry:  DefaultRegistry(),
		EventName: core.StateUpdateEvent,
		Emitter:   notify.NoOp{},
		Callbacks: NewCallbackManager(),
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}
	if opts.EventName == "" {
		opts.EventName = core.StateUpdateEvent
	}
	if opts.Emitter == nil {
		opts.Emitter = notify.NoOp{}
	}
	if opts.Callbacks == nil {
		opts.Callbacks = NewCallbackManager()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Store{
		appID:     appID,
		registry:  opts.Registry,
		eventName: opts.EventName,
		emitter:   opts.Emitter,
		callbacks: opts.Callbacks,
		logger:    opts.Logger,
	}
}

// AppID returns the application id the store is bound to.
func (s *Store) AppID() string { return s.appID }

// EventName returns the topic of state update events.
func (s *Store) EventName() string { return s.eventName }

// Callbacks returns the store's callback manager for registration.
func (s *Store) Callbacks() *CallbackManager { return s.callbacks }

// Use registers callbacks (chainable).
func (s *Store) Use(callbacks ...Callback) *Store {
	for _, cb := range callbacks {
		s.callbacks.RegisterCallback(cb)
	}
	return s
}

// IsRegistered reports whether a manager is installed for the store's app id.
func (s *Store) IsRegistered() bool {
	return s.registry.IsRegistered(s.appID)
}

// RegisterManager installs manager for the store's app id, replacing any
// previous manager without error.
func (s *Store) RegisterManager(manager core.Manager) error {
	if err := s.registry.Register(s.appID, manager); err != nil {
		return err
	}
	s.logger.Debug("state manager registered", "app_id", s.appID)
	return nil
}

// InitialState returns the current serialized state. The name mirrors the
// host command that seeds a UI with state on startup.
func (s *Store) InitialState() (core.Value, error) {
	sl, ok := s.registry.lookup(s.appID)
	if !ok {
		return nil, core.ErrNotRegistered
	}

	var out core.Value
	err := sl.guard.Do(func() error {
		if p, ok := sl.manager.(poisonable); ok && p.Poisoned() {
			return core.NewLockPoisonedError("state manager poisoned by an earlier panic")
		}
		out = sl.manager.SerializedState()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// State resolves key against the current state. An empty key returns the
// whole state; an unresolvable key returns false with a nil error.
func (s *Store) State(key string) (core.Value, bool, error) {
	root, err := s.InitialState()
	if err != nil {
		return nil, false, err
	}

	v, ok := core.GetState(root, key)
	return v, ok, nil
}

// Dispatch applies action to the registered manager and returns the
// post-dispatch state.
//
// The slot lock is held only while the manager serializes the pre-dispatch
// state and dispatches. After it is released the two snapshots are compared
// and, if they differ structurally, exactly one StateEvent carrying the new
// state is emitted. An emission failure is returned as an Emit error together
// with the post-dispatch state.
func (s *Store) Dispatch(ctx context.Context, action *core.Action) (core.Value, error) {
	if action == nil {
		return nil, core.NewStateError("nil action")
	}

	sl, ok := s.registry.lookup(s.appID)
	if !ok {
		return nil, core.ErrNotRegistered
	}

	cc := &CallbackContext{
		AppID:    s.appID,
		Action:   action,
		Metadata: map[string]interface{}{},
	}

	if err := s.callbacks.ExecuteCallbacks(ctx, CallbackBeforeDispatch, cc); err != nil {
		return nil, s.fail(ctx, cc, err, 0)
	}

	stop := s.startTimer("dispatch " + action.Kind())

	var (
		before, after core.Value
		entered       bool
	)

	err := sl.guard.Do(func() error {
		entered = true
		before = sl.manager.SerializedState()

		v, err := sl.manager.Dispatch(action)
		if err != nil {
			return err
		}

		after = v
		return nil
	})
	if err != nil {
		if entered && errors.Is(err, core.ErrLockPoisoned) {
			s.logPoison(sl, err)
		}
		return nil, s.fail(ctx, cc, err, stop())
	}

	changed := !core.StatesEqual(before, after)
	s.logDispatch(action.Kind(), stop(), changed, nil)

	cc.Before = before
	cc.After = after
	cc.Changed = changed

	var result error

	if changed {
		if err := s.emit(ctx, after); err != nil {
			result = err
		}
		if err := s.callbacks.ExecuteCallbacks(ctx, CallbackOnStateChange, cc); err != nil && result == nil {
			result = err
		}
	}

	if err := s.callbacks.ExecuteCallbacks(ctx, CallbackAfterDispatch, cc); err != nil && result == nil {
		result = err
	}

	return after, result
}

// DispatchKind dispatches an action without payload.
func (s *Store) DispatchKind(ctx context.Context, kind string) (core.Value, error) {
	return s.Dispatch(ctx, core.NewAction(kind))
}

// DispatchWith dispatches an action carrying payload encoded as JSON.
func (s *Store) DispatchWith(ctx context.Context, kind string, payload any) (core.Value, error) {
	action, err := core.NewActionWithPayload(kind, payload)
	if err != nil {
		return nil, err
	}
	return s.Dispatch(ctx, action)
}

func (s *Store) emit(ctx context.Context, state core.Value) error {
	ev := core.NewStateEvent(s.appID, s.eventName, state.Clone())

	err := s.emitter.Emit(ctx, ev)
	if err != nil {
		var ce *core.Error
		if !errors.As(err, &ce) || ce.Code != core.CodeEmit {
			err = core.NewEmitError(err.Error())
		}
	}

	if dl, ok := s.logger.(dispatchLogger); ok {
		dl.LogEmit(s.eventName, len(state), err)
	} else if err != nil {
		s.logger.Error("state update emission failed", "app_id", s.appID, "topic", s.eventName, "error", err)
	}

	return err
}

func (s *Store) startTimer(op string) func() time.Duration {
	if tl, ok := s.logger.(timerLogger); ok {
		return tl.StartTimer(op)
	}
	start := time.Now()
	return func() time.Duration { return time.Since(start) }
}

func (s *Store) fail(ctx context.Context, cc *CallbackContext, err error, dur time.Duration) error {
	s.logDispatch(cc.Action.Kind(), dur, false, err)

	cc.Err = err
	_ = s.callbacks.ExecuteCallbacks(ctx, CallbackOnError, cc)

	return err
}

func (s *Store) logDispatch(kind string, dur time.Duration, changed bool, err error) {
	if dl, ok := s.logger.(dispatchLogger); ok {
		dl.LogDispatch(kind, dur, changed, err)
		return
	}

	if err != nil {
		s.logger.Debug("dispatch failed", "app_id", s.appID, "action_kind", kind, "error", err)
		return
	}
	s.logger.Debug("dispatch completed", "app_id", s.appID, "action_kind", kind, "changed", changed, "duration", dur)
}

// logPoison reports the panic that poisoned a lock during this dispatch. The
// stack is only available when the panic escaped the manager itself.
func (s *Store) logPoison(sl *slot, err error) {
	stack := sl.guard.Stack()
	if stack == "" {
		s.logger.Error("state manager poisoned", "app_id", s.appID, "error", err)
		return
	}
	s.logger.Error("state manager panicked", "app_id", s.appID, "error", err, "stack", stack)
}
