package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/hupe1980/statemesh/core"
)

// RecordingEmitter captures every emitted event. An optional hook runs after
// the event is recorded, outside the recorder's lock.
type RecordingEmitter struct {
	mu     sync.Mutex
	events []core.StateEvent
	hook   func(ctx context.Context, ev core.StateEvent) error
}

// NewRecordingEmitter creates an empty recorder.
func NewRecordingEmitter() *RecordingEmitter { return &RecordingEmitter{} }

// OnEmit installs a hook invoked for each event (chainable).
func (r *RecordingEmitter) OnEmit(fn func(ctx context.Context, ev core.StateEvent) error) *RecordingEmitter {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hook = fn
	return r
}

// Emit records the event and runs the hook.
func (r *RecordingEmitter) Emit(ctx context.Context, ev core.StateEvent) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	hook := r.hook
	r.mu.Unlock()

	if hook != nil {
		return hook(ctx, ev)
	}
	return nil
}

// Events returns a copy of the recorded events.
func (r *RecordingEmitter) Events() []core.StateEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.StateEvent(nil), r.events...)
}

// Len returns the number of recorded events.
func (r *RecordingEmitter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Last returns the most recent event, if any.
func (r *RecordingEmitter) Last() (core.StateEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return core.StateEvent{}, false
	}
	return r.events[len(r.events)-1], true
}

// MockEmitter is a testify mock for core.Emitter.
type MockEmitter struct {
	mock.Mock
}

// Emit records the call and returns the configured error.
func (m *MockEmitter) Emit(ctx context.Context, ev core.StateEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

var (
	_ core.Emitter = (*RecordingEmitter)(nil)
	_ core.Emitter = (*MockEmitter)(nil)
)
