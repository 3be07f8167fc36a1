package testutil

import (
	"github.com/hupe1980/statemesh/core"
	"github.com/hupe1980/statemesh/reducer"
)

// CounterState is the fixture state used across store tests.
type CounterState struct {
	Counter int      `json:"counter"`
	Message string   `json:"message"`
	Todos   []string `json:"todos"`
}

// NewCounterReducer builds a reducer over CounterState handling INCREMENT,
// DECREMENT, SET_MESSAGE (string payload), ADD_TODO (string payload) and
// PANIC (always panics).
func NewCounterReducer(initial CounterState) *reducer.Reducer[CounterState] {
	return reducer.NewBuilder[CounterState]().
		On("INCREMENT", func(s *CounterState, _ *core.Action) error {
			s.Counter++
			return nil
		}).
		On("DECREMENT", func(s *CounterState, _ *core.Action) error {
			s.Counter--
			return nil
		}).
		On("SET_MESSAGE", func(s *CounterState, a *core.Action) error {
			msg, err := core.RequirePayload[string](a)
			if err != nil {
				return err
			}
			s.Message = msg
			return nil
		}).
		On("ADD_TODO", func(s *CounterState, a *core.Action) error {
			text, err := core.RequirePayload[string](a)
			if err != nil {
				return err
			}
			s.Todos = append(s.Todos, text)
			return nil
		}).
		On("PANIC", func(*CounterState, *core.Action) error {
			panic("handler exploded")
		}).
		Build(initial, func(o *reducer.Options) { o.Name = "counter" })
}
