package notify

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/statemesh/core"
	"github.com/hupe1980/statemesh/logging"
)

// Func adapts a plain function to core.Emitter.
type Func func(ctx context.Context, event core.StateEvent) error

// Emit calls f(ctx, event).
func (f Func) Emit(ctx context.Context, event core.StateEvent) error {
	return f(ctx, event)
}

// NoOp discards every event.
type NoOp struct{}

// Emit does nothing.
func (NoOp) Emit(context.Context, core.StateEvent) error { return nil }

// Log writes every event to a logger at info level.
type Log struct {
	logger logging.Logger
}

// NewLog creates a logging emitter. A nil logger discards events.
func NewLog(logger logging.Logger) *Log {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Log{logger: logger}
}

// Emit logs the event.
func (l *Log) Emit(_ context.Context, event core.StateEvent) error {
	l.logger.Info("state update",
		"event_id", event.ID,
		"app_id", event.AppID,
		"topic", event.Topic,
		"state", event.State.String(),
	)
	return nil
}

type multi struct {
	emitters []core.Emitter
}

// Multi fans an event out to every emitter concurrently and waits for all of
// them. The first error wins and cancels the context passed to the others.
func Multi(emitters ...core.Emitter) core.Emitter {
	out := make([]core.Emitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return &multi{emitters: out}
}

func (m *multi) Emit(ctx context.Context, event core.StateEvent) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, e := range m.emitters {
		g.Go(func() error {
			return e.Emit(gctx, event)
		})
	}
	return g.Wait()
}

var (
	_ core.Emitter = Func(nil)
	_ core.Emitter = NoOp{}
	_ core.Emitter = (*Log)(nil)
	_ core.Emitter = (*multi)(nil)
)
