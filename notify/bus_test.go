package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/statemesh/core"
)

func testEvent(state string) core.StateEvent {
	return core.NewStateEvent("app", core.StateUpdateEvent, core.Value(state))
}

func TestBus_DeliversToEverySubscriber(t *testing.T) {
	bus := NewBus()
	a, cancelA := bus.Subscribe(1)
	defer cancelA()
	b, cancelB := bus.Subscribe(1)
	defer cancelB()

	require.NoError(t, bus.Emit(context.Background(), testEvent(`{"counter":1}`)))

	for _, ch := range []<-chan core.StateEvent{a, b} {
		ev := <-ch
		assert.Equal(t, core.StateUpdateEvent, ev.Topic)
		assert.JSONEq(t, `{"counter":1}`, ev.State.String())
	}
}

func TestBus_PreservesOrder(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(10)
	defer cancel()

	for _, s := range []string{"1", "2", "3"} {
		require.NoError(t, bus.Emit(context.Background(), testEvent(s)))
	}

	for _, want := range []string{"1", "2", "3"} {
		assert.Equal(t, want, (<-ch).State.String())
	}
}

func TestBus_CancelClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(0)
	assert.Equal(t, 1, bus.Len())

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, bus.Len())
	assert.NoError(t, bus.Emit(context.Background(), testEvent("1")))
}

func TestBus_EmitHonorsContext(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	stop()

	err := bus.Emit(ctx, testEvent("1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmit)
	assert.Len(t, ch, 0)
}

func TestBus_UnreadSubscriberDoesNotBlockEmit(t *testing.T) {
	bus := NewBus()
	_, cancel := bus.Subscribe(2)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			assert.NoError(t, bus.Emit(context.Background(), testEvent("1")))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit blocked on a subscriber that never reads")
	}

	assert.Equal(t, uint64(48), bus.Dropped())
}

func TestBus_FullBufferKeepsNewest(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(2)
	defer cancel()

	for _, s := range []string{"1", "2", "3", "4"} {
		require.NoError(t, bus.Emit(context.Background(), testEvent(s)))
	}

	assert.Equal(t, "3", (<-ch).State.String())
	assert.Equal(t, "4", (<-ch).State.String())
	assert.Equal(t, uint64(2), bus.Dropped())
}

func TestBus_ZeroBufferStillDelivers(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(0)
	defer cancel()

	require.NoError(t, bus.Emit(context.Background(), testEvent("1")))
	require.NoError(t, bus.Emit(context.Background(), testEvent("2")))

	assert.Equal(t, "2", (<-ch).State.String())
}

func TestBus_SubscribeWhileLagging(t *testing.T) {
	bus := NewBus()
	_, cancel := bus.Subscribe(1)
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Emit(context.Background(), testEvent("1")))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, cancelLate := bus.Subscribe(1)
		cancelLate()
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscribe blocked behind a lagging subscriber")
	}
}

func TestBus_Close(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(-1)
	defer cancel()

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	_, ok := <-ch
	assert.False(t, ok)
	assert.ErrorIs(t, bus.Emit(context.Background(), testEvent("1")), core.ErrEmit)

	late, _ := bus.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok)
}

func TestBus_ConcurrentEmitters(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(200)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NoError(t, bus.Emit(context.Background(), testEvent("1")))
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ch, 200)
}
