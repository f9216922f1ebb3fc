package ledger

import "sync"

// userLocks hands out one mutex per user ID so the read-balance → validate →
// commit sequence is serialized per user while trades for different users
// run concurrently. Locks are never released from the map; the population is
// bounded by the user count.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *userLocks) forUser(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	return m
}
