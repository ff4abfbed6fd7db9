package reward

import "sync"

// Locks serializes read-modify-write cycles per user ID. Two reward triggers
// firing together for the same user must not both work from the same stale
// snapshot; everything touching one user's balance runs under that user's
// lock.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocks creates an empty lock table.
func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*sync.Mutex)}
}

// Do runs fn while holding the lock for userID.
func (l *Locks) Do(userID string, fn func() error) error {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn()
}
