package utils

import "sync"

// KeyedLocks serializes operations per key while letting distinct keys
// proceed in parallel. The zero value is ready to use.
type KeyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Acquire blocks until the key's lock is held and returns the unlock func.
func (k *KeyedLocks) Acquire(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*sync.Mutex{}
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
