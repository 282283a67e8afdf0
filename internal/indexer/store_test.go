package indexer

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_ConcurrentWriters(t *testing.T) {
	s := newStore[string, int]()

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				s.Set(fmt.Sprintf("%d-%d", w, i), i)
				_, _ = s.Get(fmt.Sprintf("%d-%d", w, i))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, s.Len())
	assert.Len(t, s.Values(), 800)

	removed := s.DeleteFunc(func(_ string, v int) bool { return v%2 == 0 })
	assert.Equal(t, 400, removed)
	assert.Equal(t, 400, s.Len())

	seen := 0
	s.Range(func(string, int) bool {
		seen++
		return seen < 10
	})
	assert.Equal(t, 10, seen)
}

func TestIndexLock(t *testing.T) {
	var l IndexLock
	assert.True(t, l.TryAcquire())
	assert.True(t, l.Held())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.False(t, l.Held())
	assert.True(t, l.TryAcquire())
}

func TestProjectLocks(t *testing.T) {
	locks := newProjectLocks()
	assert.True(t, locks.acquire("a"))
	assert.False(t, locks.acquire("a"))
	assert.True(t, locks.acquire("b"), "locks are per project")
	assert.Equal(t, 2, locks.len())

	locks.release("a")
	locks.release("b")
	assert.Zero(t, locks.len(), "released locks are forgotten")
	assert.True(t, locks.acquire("a"))

	locks.release("missing")
	assert.Equal(t, 1, locks.len())
}
