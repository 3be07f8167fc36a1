// Package store provides the facade applications use to reach the state
// manager registered for their application id.
//
// A Registry maps application ids to managers. Every slot has its own
// exclusive lock that is held only while the manager serializes and applies
// an action; change detection, event emission and dispatch callbacks all run
// after the lock is released.
//
// Usage:
//
//	st := store.New("counter", func(o *store.Options) {
//	    o.Emitter = bus
//	})
//	if err := st.RegisterManager(counterReducer); err != nil {
//	    return err
//	}
//	state, err := st.DispatchKind(ctx, "INCREMENT")
//
// A panic escaping a manager poisons its slot; every later access to that slot
// fails with a LockPoisoned error until a new manager is registered.
package store
