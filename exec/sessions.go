package exec

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSessionID names the session used when callers give none.
const DefaultSessionID = "default"

// Sessions is a bounded set of named sessions. The least recently used
// idle session is dropped when the set is full. A session with a round in
// flight stays reachable until the round ends, even if the cache evicted it.
type Sessions struct {
	exec  *Exec
	mu    sync.Mutex
	cache *lru.Cache[string, *Session]
	busy  map[string]*pinned
}

type pinned struct {
	session *Session
	refs    int
}

// NewSessions creates a session set holding at most size idle sessions.
func NewSessions(e *Exec, size int) (*Sessions, error) {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	cache, err := lru.New[string, *Session](size)
	if err != nil {
		return nil, err
	}
	return &Sessions{exec: e, cache: cache, busy: make(map[string]*pinned)}, nil
}

// Get returns the session named id, creating it if needed.
// An empty id selects DefaultSessionID.
func (s *Sessions) Get(id string) *Session {
	id = sessionID(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(id)
}

// RunInstruction runs one round on the session named id and returns the
// session with the outcome. The session cannot be replaced while the round
// runs, so rounds for the same id always share one gate and one history.
func (s *Sessions) RunInstruction(ctx context.Context, id, text string) (*Session, Outcome, error) {
	sess := s.acquire(sessionID(id))
	defer s.release(sess)
	out, err := sess.RunInstruction(ctx, text)
	return sess, out, err
}

// Peek returns the session named id without creating it.
func (s *Sessions) Peek(id string) (*Session, bool) {
	id = sessionID(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.busy[id]; ok {
		return p.session, true
	}
	return s.cache.Peek(id)
}

// Exec returns the engine the sessions share.
func (s *Sessions) Exec() *Exec {
	return s.exec
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.cache.Len()
	for id := range s.busy {
		if !s.cache.Contains(id) {
			n++
		}
	}
	return n
}

// lookup must be called with mu held.
func (s *Sessions) lookup(id string) *Session {
	if p, ok := s.busy[id]; ok {
		return p.session
	}
	if sess, ok := s.cache.Get(id); ok {
		return sess
	}
	sess := s.exec.NewSession(id)
	s.cache.Add(id, sess)
	return sess
}

func (s *Sessions) acquire(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.lookup(id)
	p, ok := s.busy[id]
	if !ok {
		p = &pinned{session: sess}
		s.busy[id] = p
	}
	p.refs++
	return sess
}

func (s *Sessions) release(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.busy[sess.id]
	if !ok {
		return
	}
	p.refs--
	if p.refs > 0 {
		return
	}
	delete(s.busy, sess.id)
	if !s.cache.Contains(sess.id) {
		s.cache.Add(sess.id, sess)
	}
}

func sessionID(id string) string {
	if id == "" {
		return DefaultSessionID
	}
	return id
}
