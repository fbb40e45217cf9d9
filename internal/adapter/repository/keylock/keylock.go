// Package keylock provides exclusive locks keyed by an arbitrary
// comparable value, with bounded waiting.
package keylock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned when a lock could not be obtained within the
// wait limit
var ErrTimeout = errors.New("keylock: timed out waiting for lock")

// Locker hands out one exclusive lock per key.
// Slots are created on demand and dropped once nobody holds or waits on them.
type Locker[K comparable] struct {
	mu    sync.Mutex
	slots map[K]*slot
}

type slot struct {
	sem  chan struct{}
	refs int // holders + waiters
}

// New creates an empty Locker
func New[K comparable]() *Locker[K] {
	return &Locker[K]{slots: make(map[K]*slot)}
}

// Lock blocks until the lock for key is held, ctx is done, or timeout
// elapses. A timeout <= 0 waits on ctx only.
// The returned release func must be called exactly once.
func (l *Locker[K]) Lock(ctx context.Context, key K, timeout time.Duration) (release func(), err error) {
	s := l.acquireSlot(key)

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case s.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.sem
				l.releaseSlot(key, s)
			})
		}, nil
	case <-ctx.Done():
		l.releaseSlot(key, s)
		return nil, ctx.Err()
	case <-expired:
		l.releaseSlot(key, s)
		return nil, ErrTimeout
	}
}

// Held reports how many keys currently have a holder or waiter
func (l *Locker[K]) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

func (l *Locker[K]) acquireSlot(key K) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Locker[K]) releaseSlot(key K, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
