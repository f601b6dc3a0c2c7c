// Package keylock provides mutual exclusion keyed by string, such as per-account serialization.
package keylock

import (
	"context"
	"fmt"
	"sync"
)

// KeyLock hands out one exclusive lock per key. Locks for different keys never block each other.
// Entries are reference counted and dropped once no goroutine holds or waits for them.
type KeyLock struct {
	m     sync.Mutex
	locks map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

// New creates an empty KeyLock.
func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*entry)}
}

// Lock acquires the lock for key, waiting until it is free or ctx is done.
// The returned function releases the lock and must be called exactly once.
func (kl *KeyLock) Lock(ctx context.Context, key string) (unlock func(), err error) {
	e := kl.acquire(key)

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		kl.release(key, e)

		return nil, fmt.Errorf("lock %q: %w", key, ctx.Err())
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			<-e.sem
			kl.release(key, e)
		})
	}, nil
}

// Len returns the number of keys currently held or waited on.
func (kl *KeyLock) Len() int {
	kl.m.Lock()
	defer kl.m.Unlock()

	return len(kl.locks)
}

func (kl *KeyLock) acquire(key string) *entry {
	kl.m.Lock()
	defer kl.m.Unlock()

	e, ok := kl.locks[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		kl.locks[key] = e
	}

	e.refs++

	return e
}

func (kl *KeyLock) release(key string, e *entry) {
	kl.m.Lock()
	defer kl.m.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(kl.locks, key)
	}
}
