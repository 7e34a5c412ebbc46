package store

import "sync"

// keyedLocks hands out one mutex per story id so mutations of the same
// story serialize while different stories proceed in parallel.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedLocks) get(id string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	if l, ok := k.locks[id]; ok {
		return l
	}
	l := &sync.Mutex{}
	k.locks[id] = l
	return l
}

// withLock runs fn while holding the story's mutex.
func (k *keyedLocks) withLock(id string, fn func() error) error {
	l := k.get(id)
	l.Lock()
	defer l.Unlock()
	return fn()
}
