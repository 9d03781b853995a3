package app

import "sync"

// roomLocks hands out one mutex per competition id. Entries are reference
// counted and dropped when nobody holds or waits on them, so the map does not
// grow with the number of competitions ever seen.
type roomLocks struct {
	mu    sync.Mutex
	locks map[int64]*roomLock
}

type roomLock struct {
	sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[int64]*roomLock)}
}

// lock blocks until the competition's lock is held and returns its release func.
func (l *roomLocks) lock(competitionID int64) func() {
	l.mu.Lock()
	rl, ok := l.locks[competitionID]
	if !ok {
		rl = &roomLock{}
		l.locks[competitionID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, competitionID)
		}
		l.mu.Unlock()
	}
}

func (l *roomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
