// Package notify provides core.Emitter implementations used by stores to
// announce state updates: an in-process Bus with channel subscriptions, a
// function adapter, a logging emitter, a no-op emitter and a concurrent
// fan-out (Multi).
//
// Stores call Emit after releasing their state lock, so an emitter may safely
// read from the store that triggered it.
package notify
