package doccache

import "sync/atomic"

// evictionLock provides non-blocking lock semantics using atomic
// operations. A Set arriving while an eviction pass is in flight skips
// triggering a redundant pass instead of queueing behind it.
type evictionLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *evictionLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *evictionLock) Release() {
	l.state.Store(0)
}
