package indexer

import (
	"sync"
	"sync/atomic"
)

// IndexLock provides non-blocking lock semantics using atomic operations
type IndexLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *IndexLock) Release() {
	l.state.Store(0)
}

// Held reports whether the lock is currently taken
func (l *IndexLock) Held() bool {
	return l.state.Load() == 1
}

// projectLocks holds an IndexLock for each project with a run in flight.
// An entry exists only while its lock is held, so removed or unknown project
// ids leave nothing behind.
type projectLocks struct {
	mu    sync.Mutex
	locks map[string]*IndexLock
}

func newProjectLocks() *projectLocks {
	return &projectLocks{locks: make(map[string]*IndexLock)}
}

// acquire takes the lock of a project without blocking. It returns false if
// another run holds it.
func (p *projectLocks) acquire(projectID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.locks[projectID]; ok && l.Held() {
		return false
	}
	l := &IndexLock{}
	l.TryAcquire()
	p.locks[projectID] = l
	return true
}

// release frees the lock of a project and forgets it
func (p *projectLocks) release(projectID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.locks[projectID]; ok {
		l.Release()
		delete(p.locks, projectID)
	}
}

func (p *projectLocks) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
