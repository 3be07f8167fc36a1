package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/statemesh/core"
	"github.com/hupe1980/statemesh/internal/testutil"
)

type recordingLogger struct {
	infos  []string
	errors []string
}

func (l *recordingLogger) Debug(string, ...any) {}

func (l *recordingLogger) Info(msg string, _ ...any) { l.infos = append(l.infos, msg) }

func (l *recordingLogger) Warn(string, ...any) {}

func (l *recordingLogger) Error(msg string, _ ...any) { l.errors = append(l.errors, msg) }

func TestCallbackManager_OrderAndShortCircuit(t *testing.T) {
	cm := NewCallbackManager()
	var calls []string
	boom := errors.New("boom")

	cm.RegisterCallback(NewFunctionCallback(CallbackAfterDispatch, func(context.Context, *CallbackContext) error {
		calls = append(calls, "first")
		return nil
	}))
	cm.RegisterCallback(NewFunctionCallback(CallbackAfterDispatch, func(context.Context, *CallbackContext) error {
		calls = append(calls, "second")
		return boom
	}))
	cm.RegisterCallback(NewFunctionCallback(CallbackAfterDispatch, func(context.Context, *CallbackContext) error {
		calls = append(calls, "third")
		return nil
	}))

	cc := &CallbackContext{}
	err := cm.ExecuteCallbacks(context.Background(), CallbackAfterDispatch, cc)
	assert.Same(t, boom, err)
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, CallbackAfterDispatch, cc.CallbackType)
	assert.Equal(t, 3, cm.Len(CallbackAfterDispatch))

	assert.NoError(t, cm.ExecuteCallbacks(context.Background(), CallbackOnError, &CallbackContext{}))
}

func TestStore_CallbackLifecycle(t *testing.T) {
	st, _ := newTestStore(t, testutil.CounterState{})
	ctx := context.Background()

	var events []string
	record := func(ct CallbackType) Callback {
		return NewFunctionCallback(ct, func(_ context.Context, cc *CallbackContext) error {
			events = append(events, string(cc.CallbackType)+":"+cc.Action.Kind())
			return nil
		})
	}
	st.Use(
		record(CallbackBeforeDispatch),
		record(CallbackAfterDispatch),
		record(CallbackOnStateChange),
		record(CallbackOnError),
	)

	_, err := st.DispatchKind(ctx, "INCREMENT")
	require.NoError(t, err)
	_, err = st.DispatchKind(ctx, "UNKNOWN")
	require.NoError(t, err)
	_, err = st.DispatchKind(ctx, "ADD_TODO")
	require.Error(t, err)

	assert.Equal(t, []string{
		"before_dispatch:INCREMENT",
		"on_state_change:INCREMENT",
		"after_dispatch:INCREMENT",
		"before_dispatch:UNKNOWN",
		"after_dispatch:UNKNOWN",
		"before_dispatch:ADD_TODO",
		"on_error:ADD_TODO",
	}, events)
}

func TestStore_CallbacksSeeBeforeAndAfter(t *testing.T) {
	st, _ := newTestStore(t, testutil.CounterState{Counter: 1})

	var got *CallbackContext
	st.Use(NewFunctionCallback(CallbackAfterDispatch, func(_ context.Context, cc *CallbackContext) error {
		got = cc
		return nil
	}))

	_, err := st.DispatchKind(context.Background(), "INCREMENT")
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.True(t, got.Changed)
	assert.Equal(t, "1", counterOf(t, got.Before))
	assert.Equal(t, "2", counterOf(t, got.After))
}

func TestStore_BeforeDispatchErrorAborts(t *testing.T) {
	st, rec := newTestStore(t, testutil.CounterState{})
	ctx := context.Background()

	var onError error
	st.Use(
		NewActionFilterCallback("INCREMENT"),
		NewFunctionCallback(CallbackOnError, func(_ context.Context, cc *CallbackContext) error {
			onError = cc.Err
			return nil
		}),
	)

	_, err := st.DispatchKind(ctx, "DECREMENT")
	assert.ErrorIs(t, err, core.ErrActionNotFound)
	assert.Equal(t, "Action not found: DECREMENT", err.Error())
	assert.Same(t, err, onError)
	assert.Equal(t, 0, rec.Len())

	initial, err := st.InitialState()
	require.NoError(t, err)
	assert.Equal(t, "0", counterOf(t, initial))

	_, err = st.DispatchKind(ctx, "INCREMENT")
	assert.NoError(t, err)
}

func TestStore_BeforeDispatchRunsOutsideLock(t *testing.T) {
	st, _ := newTestStore(t, testutil.CounterState{Counter: 4})

	var seen core.Value
	st.Use(NewFunctionCallback(CallbackBeforeDispatch, func(context.Context, *CallbackContext) error {
		v, err := st.InitialState()
		seen = v
		return err
	}))

	_, err := st.DispatchKind(context.Background(), "INCREMENT")
	require.NoError(t, err)
	assert.Equal(t, "4", counterOf(t, seen))
}

func TestStore_AfterDispatchErrorKeepsState(t *testing.T) {
	st, rec := newTestStore(t, testutil.CounterState{})
	boom := errors.New("audit failed")

	st.Use(NewFunctionCallback(CallbackAfterDispatch, func(context.Context, *CallbackContext) error {
		return boom
	}))

	out, err := st.DispatchKind(context.Background(), "INCREMENT")
	assert.Same(t, boom, err)
	assert.Equal(t, "1", counterOf(t, out))
	assert.Equal(t, 1, rec.Len())
}

func TestKeyWatchCallback(t *testing.T) {
	st, _ := newTestStore(t, testutil.CounterState{Message: "old"})
	ctx := context.Background()

	type change struct{ from, to string }
	var changes []change
	st.Use(NewKeyWatchCallback("message", func(_ context.Context, oldValue, newValue core.Value) error {
		changes = append(changes, change{oldValue.String(), newValue.String()})
		return nil
	}))

	_, err := st.DispatchKind(ctx, "INCREMENT")
	require.NoError(t, err)
	_, err = st.DispatchWith(ctx, "SET_MESSAGE", "new")
	require.NoError(t, err)
	_, err = st.DispatchWith(ctx, "SET_MESSAGE", "new")
	require.NoError(t, err)

	assert.Equal(t, []change{{`"old"`, `"new"`}}, changes)
}

func TestKeyWatchCallback_AppearingKey(t *testing.T) {
	var gotOld, gotNew core.Value
	cb := NewKeyWatchCallback("todos.0", func(_ context.Context, oldValue, newValue core.Value) error {
		gotOld, gotNew = oldValue, newValue
		return nil
	})

	err := cb.Execute(context.Background(), &CallbackContext{
		Before: core.Value(`{"todos":[]}`),
		After:  core.Value(`{"todos":["a"]}`),
	})
	require.NoError(t, err)
	assert.Nil(t, gotOld)
	assert.Equal(t, `"a"`, gotNew.String())
}

func TestLoggingCallback(t *testing.T) {
	logger := &recordingLogger{}
	st, _ := newTestStore(t, testutil.CounterState{})
	st.Use(
		NewLoggingCallback(CallbackAfterDispatch, logger),
		NewLoggingCallback(CallbackOnError, logger),
	)

	_, err := st.DispatchKind(context.Background(), "INCREMENT")
	require.NoError(t, err)
	_, err = st.DispatchKind(context.Background(), "ADD_TODO")
	require.Error(t, err)

	assert.Equal(t, []string{"dispatch lifecycle"}, logger.infos)
	assert.Equal(t, []string{"dispatch failed"}, logger.errors)

	assert.NoError(t, NewLoggingCallback(CallbackAfterDispatch, nil).Execute(context.Background(), &CallbackContext{}))
}
