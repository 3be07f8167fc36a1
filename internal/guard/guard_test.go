package guard

import (
	"errors"
	"sync"
	"testing"

	"github.com/hupe1980/statemesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutex_DoReturnsFnError(t *testing.T) {
	var m Mutex
	boom := errors.New("boom")

	err := m.Do(func() error { return boom })
	assert.Same(t, boom, err)

	_, poisoned := m.Poisoned()
	assert.False(t, poisoned, "plain errors must not poison the lock")
	assert.NoError(t, m.Do(func() error { return nil }))
}

func TestMutex_PanicPoisons(t *testing.T) {
	var m Mutex

	err := m.Do(func() error { panic("handler exploded") })
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrLockPoisoned)
	assert.Contains(t, err.Error(), "handler exploded")

	reason, poisoned := m.Poisoned()
	assert.True(t, poisoned)
	assert.Contains(t, reason, "handler exploded")
	assert.NotEmpty(t, m.Stack())

	ran := false
	err = m.Do(func() error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, core.ErrLockPoisoned)
	assert.False(t, ran, "poisoned lock must not run fn")
}

func TestMutex_MutualExclusion(t *testing.T) {
	var (
		m       Mutex
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.Do(func() error {
					counter++
					return nil
				})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5000, counter)
}
