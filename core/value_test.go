package core

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValue(t *testing.T) {
	v, err := NewValue(map[string]any{"counter": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"counter":3}`, v.String())

	_, err = NewValue(math.NaN())
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue([]byte("  {\"a\": [1, 2]}\n"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,2]}`, v.String())

	_, err = ParseValue([]byte(`{"a":`))
	assert.ErrorIs(t, err, ErrSerialization)

	_, err = ParseValue(nil)
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestValue_NullAndAbsent(t *testing.T) {
	assert.True(t, Null.IsNull())
	assert.False(t, Value(nil).IsNull())
	assert.False(t, Value(`0`).IsNull())

	data, err := json.Marshal(struct {
		State Value `json:"state"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":null}`, string(data))
}

func TestValue_Decode(t *testing.T) {
	var out struct {
		Counter int `json:"counter"`
	}
	require.NoError(t, Value(`{"counter":5}`).Decode(&out))
	assert.Equal(t, 5, out.Counter)

	assert.ErrorIs(t, Value(nil).Decode(&out), ErrSerialization)
	assert.ErrorIs(t, Value(`"x"`).Decode(&out), ErrSerialization)
}

func TestValue_EmbedsRawJSON(t *testing.T) {
	ev := NewStateEvent("app", StateUpdateEvent, Value(`{"counter":1}`))
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded StateEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, StateUpdateEvent, decoded.Topic)
	assert.True(t, decoded.State.Equal(ev.State))
}

func TestValue_Pretty(t *testing.T) {
	assert.Contains(t, Value(`{"a":1}`).Pretty(), "\n")
	assert.Empty(t, Value(nil).Pretty())
}

func TestValue_UnmarshalDoesNotWriteThroughAlias(t *testing.T) {
	v := Null
	require.NoError(t, json.Unmarshal([]byte("true"), &v))
	assert.Equal(t, "true", v.String())
	assert.Equal(t, "null", Null.String())
	assert.True(t, Null.IsNull())

	shared := Value(`{"a":1}`)
	alias := shared
	require.NoError(t, json.Unmarshal([]byte(`{"b":2}`), &alias))
	assert.Equal(t, `{"a":1}`, shared.String())
}
