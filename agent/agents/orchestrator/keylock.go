package orchestrator

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// keyLocks serializes work per conversation key. Entries are reference counted
// and dropped once no caller holds or waits on them.
type keyLocks struct {
	locks *xsync.MapOf[string, *refLock]
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: xsync.NewMapOf[string, *refLock]()}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyLocks) Lock(key string) (unlock func()) {
	l, _ := k.locks.Compute(key, func(old *refLock, loaded bool) (*refLock, bool) {
		if !loaded || old == nil {
			old = &refLock{}
		}
		old.refs++
		return old, false
	})
	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			k.locks.Compute(key, func(old *refLock, loaded bool) (*refLock, bool) {
				if !loaded || old == nil {
					return nil, true
				}
				old.refs--
				return old, old.refs <= 0
			})
		})
	}
}

// Len returns the number of keys currently held or awaited.
func (k *keyLocks) Len() int {
	return k.locks.Size()
}
