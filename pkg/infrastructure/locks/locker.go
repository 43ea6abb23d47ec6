package locks

import (
	"context"
	"sync"
)

// Unlock releases a lock obtained from a Locker
type Unlock func()

// Locker grants exclusive access to a key, typically a top-level order reference
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// KeyedMutex is an in-process Locker with one mutex per key.
// Entries are dropped once no caller holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

// Verify interface compliance
var _ Locker = (*KeyedMutex)(nil)

// Lock blocks until key is free or ctx is done
func (m *KeyedMutex) Lock(ctx context.Context, key string) (Unlock, error) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			m.release(key, e)
		})
	}, nil
}

// Len returns the number of keys currently held or awaited
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

func (m *KeyedMutex) release(key string, e *keyedEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}
