package store

import (
	"slices"
	"sync"

	"github.com/hupe1980/statemesh/core"
	"github.com/hupe1980/statemesh/internal/guard"
)

// Registry maps application ids to installed state managers. It is safe for
// concurrent access. Slots can be replaced but never removed.
type Registry struct {
	mu    sync.RWMutex
	slots map[string]*slot
}

// slot pairs a manager with the exclusive lock every store operation takes.
type slot struct {
	guard   guard.Mutex
	manager core.Manager
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used by stores that are
// not given one explicitly.
func DefaultRegistry() *Registry { return defaultRegistry }

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[string]*slot)}
}

// Register installs manager under appID, replacing any previous one. The new
// slot starts with a fresh, unpoisoned lock.
func (r *Registry) Register(appID string, manager core.Manager) error {
	if manager == nil {
		return core.NewStateError("cannot register nil manager")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[appID] = &slot{manager: manager}
	return nil
}

// IsRegistered reports whether a manager is installed under appID.
func (r *Registry) IsRegistered(appID string) bool {
	_, ok := r.lookup(appID)
	return ok
}

// AppIDs returns the registered application ids in sorted order.
func (r *Registry) AppIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.slots))
	for id := range r.slots {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Registry) lookup(appID string) (*slot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slots[appID]
	return s, ok
}
