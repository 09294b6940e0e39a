package lesson

import "sync"

// sessions holds at most one live session per user and the per-user locks
// that serialize every session operation of that user.
type sessions struct {
	mu     sync.Mutex
	active map[int64]*Session
	locks  map[int64]*sync.Mutex
}

func newSessions() *sessions {
	return &sessions{
		active: make(map[int64]*Session),
		locks:  make(map[int64]*sync.Mutex),
	}
}

// lock acquires the lock of userID and returns its release func.
func (r *sessions) lock(userID int64) func() {
	r.mu.Lock()
	l, ok := r.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[userID] = l
	}
	r.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (r *sessions) get(userID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.active[userID]
	return s, ok
}

func (r *sessions) put(s *Session) {
	r.mu.Lock()
	r.active[s.UserID] = s
	r.mu.Unlock()
}

// remove drops s if it is still the active session of its user.
func (r *sessions) remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.active[s.UserID]; ok && cur == s {
		delete(r.active, s.UserID)
		return true
	}
	return false
}

func (r *sessions) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
