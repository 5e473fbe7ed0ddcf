package session

import (
	"sync"
	"time"
)

// MemoryStore is an in-process Store with TTL eviction. A janitor
// goroutine sweeps expired entries so the map cannot grow without bound.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	done     chan struct{}
	once     sync.Once
}

// NewMemoryStore builds a store expiring sessions after ttl of
// inactivity. A ttl of zero disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	if ttl > 0 {
		go s.janitor()
	}
	return s
}

func (s *MemoryStore) janitor() {
	interval := s.ttl / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	cutoff := time.Now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}

func (s *MemoryStore) expired(sess *Session) bool {
	return s.ttl > 0 && time.Since(sess.LastActivity) > s.ttl
}

func (s *MemoryStore) Create(login int64, server string) (*Session, error) {
	now := time.Now()
	sess := &Session{
		ID:           NewID(login),
		Login:        login,
		Server:       server,
		CreatedAt:    now,
		LastActivity: now,
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	out := *sess
	return &out, nil
}

func (s *MemoryStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok || s.expired(sess) {
		return nil, ErrNotFound
	}
	out := *sess
	return &out, nil
}

func (s *MemoryStore) Touch(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || s.expired(sess) {
		return false
	}
	sess.LastActivity = time.Now()
	return true
}

func (s *MemoryStore) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return ok && !s.expired(sess)
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) List() ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if s.expired(sess) {
			continue
		}
		out = append(out, *sess)
	}
	return out, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sess := range s.sessions {
		if !s.expired(sess) {
			n++
		}
	}
	return n
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
