// Package guard provides a mutual exclusion lock that records panics raised
// while it is held. Once poisoned, every later acquisition fails with a
// LockPoisoned error instead of handing out possibly inconsistent state.
package guard

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/hupe1980/statemesh/core"
)

// Mutex is a non-reentrant lock with explicit poisoning. The zero value is an
// unlocked, healthy mutex.
type Mutex struct {
	mu       sync.Mutex
	poisoned bool
	reason   string
	stack    string
}

// Do runs fn while holding the lock. A panic inside fn poisons the mutex and is
// returned as a LockPoisoned error carrying the panic value; the panic does not
// propagate. Calls on a poisoned mutex return LockPoisoned without running fn.
func (m *Mutex) Do(fn func() error) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.poisoned {
		return core.NewLockPoisonedError(m.reason)
	}

	defer func() {
		if r := recover(); r != nil {
			m.poisoned = true
			m.reason = fmt.Sprintf("panic while holding lock: %v", r)
			m.stack = string(debug.Stack())
			err = core.NewLockPoisonedError(m.reason)
		}
	}()

	return fn()
}

// Poisoned reports whether a panic poisoned the mutex, with its reason.
func (m *Mutex) Poisoned() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason, m.poisoned
}

// Stack returns the goroutine stack captured when the mutex was poisoned.
func (m *Mutex) Stack() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stack
}
