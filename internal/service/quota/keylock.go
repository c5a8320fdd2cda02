package quota

import (
	"sync"

	"uk.co.dudmesh.pinboard/internal/model"
)

type refMutex struct {
	sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per user, dropping it once nobody holds or
// waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[model.UserID]*refMutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[model.UserID]*refMutex)}
}

func (k *keyedMutex) lock(userID model.UserID) func() {
	k.mu.Lock()
	m, ok := k.locks[userID]
	if !ok {
		m = &refMutex{}
		k.locks[userID] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.Unlock()
			k.mu.Lock()
			m.refs--
			if m.refs == 0 {
				delete(k.locks, userID)
			}
			k.mu.Unlock()
		})
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
