package service

import (
	"context"
	"fmt"
	"sync"
)

// KeyedMutex serializes work per key inside a single process. It implements
// ports.UserLocker for deployments that run one API instance; multi-instance
// deployments use the Redis locker instead.
type KeyedMutex struct {
	// mutexes maps a key to its lock and the number of goroutines
	// holding or waiting for it. Entries are removed when the count
	// drops to zero.
	mutexes map[string]*cntMutex
	mapMtx  sync.Mutex
}

// cntMutex is a one-slot semaphore so that waiting can be abandoned when the
// caller's context ends.
type cntMutex struct {
	sem chan struct{}
	cnt int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		mutexes: make(map[string]*cntMutex),
	}
}

// Acquire blocks until the lock for key is held or ctx is done. The returned
// release func is safe to call more than once.
func (m *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	m.mapMtx.Lock()
	mtx, ok := m.mutexes[key]
	if ok {
		mtx.cnt++
	} else {
		mtx = &cntMutex{sem: make(chan struct{}, 1), cnt: 1}
		m.mutexes[key] = mtx
	}
	m.mapMtx.Unlock()

	select {
	case mtx.sem <- struct{}{}:
	case <-ctx.Done():
		m.forget(key, mtx)
		return nil, fmt.Errorf("waiting for lock %q: %w", key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.forget(key, mtx)
			<-mtx.sem
		})
	}, nil
}

func (m *KeyedMutex) forget(key string, mtx *cntMutex) {
	m.mapMtx.Lock()
	defer m.mapMtx.Unlock()

	mtx.cnt--
	if mtx.cnt == 0 {
		delete(m.mutexes, key)
	}
}

// active reports the number of keys currently tracked.
func (m *KeyedMutex) active() int {
	m.mapMtx.Lock()
	defer m.mapMtx.Unlock()
	return len(m.mutexes)
}
