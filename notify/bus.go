package notify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/statemesh/core"
	"github.com/hupe1980/statemesh/logging"
)

// BusOptions configures a Bus.
type BusOptions struct {
	// DefaultBuffer is the channel capacity used when Subscribe is called with
	// a negative buffer. Defaults to 16.
	DefaultBuffer int

	// Logger receives subscription diagnostics. Defaults to NoOp logger if nil.
	Logger logging.Logger
}

// Bus is an in-process publish/subscribe emitter. Every subscriber receives
// events in emission order. Emit never waits for a subscriber: when a
// subscriber's buffer is full its oldest pending event is dropped to make room,
// so a slow reader always ends up holding the latest state.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string]*subscription
	closed  bool
	dropped atomic.Uint64
	opts    BusOptions
}

type subscription struct {
	id   string
	mu   sync.Mutex
	ch   chan core.StateEvent
	once sync.Once
}

// deliver enqueues ev without blocking and reports whether an older event had
// to be discarded. Only deliver sends on ch, and always under mu, so after one
// event is drained the second send cannot fail.
func (s *subscription) deliver(ev core.StateEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case s.ch <- ev:
		return false
	default:
	}

	select {
	case <-s.ch:
	default:
	}

	select {
	case s.ch <- ev:
	default:
	}

	return true
}

var _ core.Emitter = (*Bus)(nil)

// NewBus creates an empty bus.
func NewBus(optFns ...func(o *BusOptions)) *Bus {
	opts := BusOptions{
		DefaultBuffer: 16,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.DefaultBuffer < 1 {
		opts.DefaultBuffer = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Bus{subs: make(map[string]*subscription), opts: opts}
}

// Subscribe registers a new subscriber and returns its receive channel plus a
// cancel func. Cancel is idempotent and closes the channel. A negative buffer
// selects BusOptions.DefaultBuffer; the capacity is at least one. Subscribing
// to a closed bus yields an already closed channel.
func (b *Bus) Subscribe(buffer int) (<-chan core.StateEvent, func()) {
	if buffer < 0 {
		buffer = b.opts.DefaultBuffer
	}
	if buffer < 1 {
		buffer = 1
	}

	sub := &subscription{
		id: core.NewID(),
		ch: make(chan core.StateEvent, buffer),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	b.subs[sub.id] = sub
	b.mu.Unlock()

	b.opts.Logger.Debug("subscriber added", "subscription_id", sub.id, "buffer", buffer)

	return sub.ch, func() { b.unsubscribe(sub) }
}

func (b *Bus) unsubscribe(sub *subscription) {
	sub.once.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if _, ok := b.subs[sub.id]; ok {
			delete(b.subs, sub.id)
			close(sub.ch)
		}

		b.opts.Logger.Debug("subscriber removed", "subscription_id", sub.id)
	})
}

// Emit hands event to every subscriber without blocking. A full subscriber
// loses its oldest pending event, which is counted in Dropped. Emit fails only
// when the bus is closed or ctx is already done.
func (b *Bus) Emit(ctx context.Context, event core.StateEvent) error {
	if err := ctx.Err(); err != nil {
		return core.NewEmitError(fmt.Sprintf("emit %s: %v", event.Topic, err))
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return core.NewEmitError("bus closed")
	}

	for _, sub := range b.subs {
		if sub.deliver(event) {
			n := b.dropped.Add(1)
			b.opts.Logger.Warn("subscriber lagging, dropped oldest event",
				"subscription_id", sub.id, "topic", event.Topic, "dropped_total", n)
		}
	}

	return nil
}

// Dropped returns how many events were discarded because a subscriber's
// buffer was full.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Len returns the number of active subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later Emit calls fail with an Emit
// error; Close is idempotent.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for id, sub := range b.subs {
		sub.once.Do(func() {})
		delete(b.subs, id)
		close(sub.ch)
	}

	return nil
}
