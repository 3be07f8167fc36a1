// Package statemesh wires a state manager, a store, a notification bus and the
// command router into one handle a host application owns for its lifetime.
// Most applications interact with this package by:
//  1. Building a reducer with reducer.NewBuilder
//  2. Creating a Statemesh via Init (or InitEmpty for late registration)
//  3. Calling Setup once at startup, then dispatching through Store() or
//     serving UI requests through Invoke
//
// State updates are published on an in-process bus (Subscribe) and on any
// additional emitter supplied in Options.
package statemesh

import (
	"context"
	"slices"
	"sync"

	"github.com/hupe1980/statemesh/command"
	"github.com/hupe1980/statemesh/core"
	"github.com/hupe1980/statemesh/logging"
	"github.com/hupe1980/statemesh/notify"
	"github.com/hupe1980/statemesh/store"
)

// Options configures a Statemesh instance.
type Options struct {
	// Config holds file-backed settings (app id, event name, logging, buffers).
	Config Config

	// Manager is registered by Setup. Nil defers registration to
	// Store().RegisterManager.
	Manager core.Manager

	// Registry holds manager slots. Defaults to store.DefaultRegistry().
	Registry *store.Registry

	// Emitter additionally receives every state update, next to the built-in bus.
	Emitter core.Emitter

	// Callbacks are registered on the store before first use.
	Callbacks []store.Callback

	// Logger (defaults to NoOp logger if nil, or to a structured logger when
	// Config.LogLevel is set)
	Logger logging.Logger
}

// WithConfig applies cfg. An empty AppID in cfg keeps the current one.
func WithConfig(cfg Config) func(o *Options) {
	return func(o *Options) {
		appID := o.Config.AppID
		o.Config = cfg
		if o.Config.AppID == "" {
			o.Config.AppID = appID
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// WithEmitter adds an emitter that receives every state update.
func WithEmitter(emitter core.Emitter) func(o *Options) {
	return func(o *Options) { o.Emitter = emitter }
}

// WithCallbacks appends dispatch callbacks.
func WithCallbacks(callbacks ...store.Callback) func(o *Options) {
	return func(o *Options) { o.Callbacks = append(o.Callbacks, callbacks...) }
}

// WithRegistry uses reg instead of the process-wide registry.
func WithRegistry(reg *store.Registry) func(o *Options) {
	return func(o *Options) { o.Registry = reg }
}

// Statemesh is the handle a host keeps for one application's state.
type Statemesh struct {
	opts   Options
	bus    *notify.Bus
	store  *store.Store
	router *command.Router

	setupOnce sync.Once
	setupErr  error
}

// New creates a Statemesh from options only.
func New(optFns ...func(o *Options)) *Statemesh {
	opts := Options{
		Config:   DefaultConfig,
		Registry: store.DefaultRegistry(),
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if l := opts.Config.logger(); l != nil && isNoOp(opts.Logger) {
		opts.Logger = l
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Registry == nil {
		opts.Registry = store.DefaultRegistry()
	}
	if opts.Config.EventName == "" {
		opts.Config.EventName = core.StateUpdateEvent
	}

	bus := notify.NewBus(func(o *notify.BusOptions) {
		o.DefaultBuffer = opts.Config.EventBufferSize
		o.Logger = opts.Logger
	})

	var emitter core.Emitter = bus
	if opts.Emitter != nil {
		emitter = notify.Multi(bus, opts.Emitter)
	}

	st := store.New(opts.Config.AppID, func(o *store.Options) {
		o.Registry = opts.Registry
		o.EventName = opts.Config.EventName
		o.Emitter = emitter
		o.Logger = opts.Logger
	})
	st.Use(opts.Callbacks...)

	return &Statemesh{
		opts:   opts,
		bus:    bus,
		store:  st,
		router: command.NewRouter(st, func(o *command.Options) { o.Logger = opts.Logger }),
	}
}

// Init creates a Statemesh that registers manager under appID on Setup. The
// explicit arguments win over the same fields set through options.
func Init(appID string, manager core.Manager, optFns ...func(o *Options)) *Statemesh {
	fns := append(slices.Clone(optFns), func(o *Options) {
		o.Config.AppID = appID
		o.Manager = manager
	})
	return New(fns...)
}

// InitEmpty creates a Statemesh for appID without a manager; register one
// later through Store().RegisterManager.
func InitEmpty(appID string, optFns ...func(o *Options)) *Statemesh {
	fns := append(slices.Clone(optFns), func(o *Options) {
		o.Config.AppID = appID
		o.Manager = nil
	})
	return New(fns...)
}

// Setup registers the initial manager, if any. It runs once; later calls
// return the first result.
func (m *Statemesh) Setup() (*store.Store, error) {
	m.setupOnce.Do(func() {
		if m.opts.Manager == nil {
			m.opts.Logger.Debug("setup without initial manager", "app_id", m.opts.Config.AppID)
			return
		}
		m.setupErr = m.store.RegisterManager(m.opts.Manager)
	})
	return m.store, m.setupErr
}

// AppID returns the application id.
func (m *Statemesh) AppID() string { return m.opts.Config.AppID }

// EventName returns the topic of state update events.
func (m *Statemesh) EventName() string { return m.store.EventName() }

// Store returns the store facade.
func (m *Statemesh) Store() *store.Store { return m.store }

// Commands returns the command router.
func (m *Statemesh) Commands() *command.Router { return m.router }

// Invoke runs a named command with JSON arguments.
func (m *Statemesh) Invoke(ctx context.Context, name string, args []byte) ([]byte, error) {
	return m.router.Invoke(ctx, name, args)
}

// Subscribe returns a channel receiving state updates and a cancel func. The
// channel holds up to Config.EventBufferSize events; once it is full the oldest
// pending update is dropped, so dispatchers never wait on a slow reader.
func (m *Statemesh) Subscribe() (<-chan core.StateEvent, func()) {
	return m.bus.Subscribe(m.opts.Config.EventBufferSize)
}

// Close closes all subscriber channels. Dispatches that change state after
// Close fail with an Emit error.
func (m *Statemesh) Close() error {
	return m.bus.Close()
}

func isNoOp(l logging.Logger) bool {
	if l == nil {
		return true
	}
	_, ok := l.(logging.NoOpLogger)
	return ok
}
