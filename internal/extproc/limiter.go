package extproc

import (
	"runtime"
	"sync"
)

// Limiter is a counting semaphore bounding concurrent external processes.
// Waiters are woken in no particular order.
type Limiter struct {
	mu    sync.Mutex
	cond  *sync.Cond
	max   int
	inUse int
}

// NewLimiter creates a limiter admitting up to max concurrent holders.
// A max below 1 selects the machine's available CPU parallelism, minimum 1.
func NewLimiter(max int) *Limiter {
	if max < 1 {
		max = runtime.NumCPU()
	}
	if max < 1 {
		max = 1
	}
	l := &Limiter{max: max}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Acquire blocks until a slot is free, reserves it, and returns the release
// function. Callers defer the release so the slot frees on every exit path;
// releasing twice is a no-op.
func (l *Limiter) Acquire() (release func()) {
	l.mu.Lock()
	for l.inUse >= l.max {
		l.cond.Wait()
	}
	l.inUse++
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.inUse--
			l.mu.Unlock()
			l.cond.Signal()
		})
	}
}

// InUse reports the number of currently held slots.
func (l *Limiter) InUse() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inUse
}

// Max reports the configured bound.
func (l *Limiter) Max() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.max
}
