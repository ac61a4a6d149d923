package memory

import (
	"context"
	"sync"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore. Sessions and
// players draw ids from one counter, so the two id spaces never collide or recycle
// within a process.
type SessionStore struct {
	mu       sync.RWMutex
	nextID   int64
	sessions map[int64]*app.Session
	players  map[int64]int64 // playerID -> sessionID
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]*app.Session),
		players:  make(map[int64]int64),
	}
}

func (s *SessionStore) NextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

func (s *SessionStore) Add(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
}

func (s *SessionStore) Get(sessionID int64) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) BindPlayer(playerID, sessionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[playerID] = sessionID
}

func (s *SessionStore) ByPlayer(playerID int64) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessionID, ok := s.players[playerID]
	if !ok {
		return nil, false
	}
	session, ok := s.sessions[sessionID]
	return session, ok
}

// Persist is a no-op: ended sessions stay resident for result retrieval.
func (s *SessionStore) Persist(context.Context, domain.SessionArchive) error {
	return nil
}
