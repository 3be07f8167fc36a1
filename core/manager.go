package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StateUpdateEvent is the default topic of state update notifications.
const StateUpdateEvent = "rstate://state-update"

// Manager is the narrow capability a store needs from a state owner: produce a
// serialized snapshot and apply an action. reducer.Reducer is the standard
// implementation; hosts may supply their own.
//
// Contract:
//   - SerializedState never fails; implementations return Null when the state
//     cannot be serialized.
//   - Dispatch applies the action and returns the serialized post-dispatch state.
//   - Both must be safe for concurrent use.
type Manager interface {
	SerializedState() Value
	Dispatch(action *Action) (Value, error)
}

// StateEvent is the notification emitted after a dispatch that changed state.
type StateEvent struct {
	ID        string    `json:"id"`
	AppID     string    `json:"app_id"`
	Topic     string    `json:"topic"`
	State     Value     `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStateEvent builds an event with a fresh id and a UTC timestamp.
func NewStateEvent(appID, topic string, state Value) StateEvent {
	return StateEvent{
		ID:        NewID(),
		AppID:     appID,
		Topic:     topic,
		State:     state,
		Timestamp: time.Now().UTC(),
	}
}

// Emitter delivers state update notifications to the host's event channel.
// Implementations must not call back into the store while holding their own
// locks that Dispatch may need.
type Emitter interface {
	Emit(ctx context.Context, event StateEvent) error
}

// NewID generates a new unique identifier for events.
func NewID() string { return uuid.NewString() }
