package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// SessionStore is a Redis-aware implementation of app.SessionStore.
// Notes:
//   - Live sessions stay in a local in-process map; the state machine and its timers
//     are not serializable, so Redis never owns the hot path.
//   - Ids come from a Redis counter, which keeps them unique across restarts and
//     instances, not just within one process.
//   - Ended sessions are archived as JSON for audit/result retrieval, alongside a
//     liveness marker per running session.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[int64]*app.Session
	players  map[int64]int64

	localID int64 // fallback when the counter is unreachable
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[int64]*app.Session),
		players:  make(map[int64]int64),
	}
}

func (s *SessionStore) NextID() int64 {
	id, err := s.client.Incr(context.Background(), "game:id").Result()
	if err != nil {
		// Redis down: fall back to a high local range so ids stay disjoint.
		s.mu.Lock()
		defer s.mu.Unlock()
		s.localID++
		return int64(1)<<40 + s.localID
	}
	return id
}

func (s *SessionStore) Add(session *app.Session) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.liveKey(session.ID()), "1", s.ttl).Err()
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

// Persist archives an ended session's summary and drops its liveness marker. The
// archive has no TTL; results stay retrievable indefinitely.
func (s *SessionStore) Persist(ctx context.Context, archive domain.SessionArchive) error {
	payload, err := json.Marshal(archive)
	if err != nil {
		return fmt.Errorf("marshal session archive: %w", err)
	}
	if err := s.client.Set(ctx, s.archiveKey(archive.SessionID), payload, 0).Err(); err != nil {
		return fmt.Errorf("archive session %d: %w", archive.SessionID, err)
	}
	_ = s.client.Del(ctx, s.liveKey(archive.SessionID)).Err()
	return nil
}

// Archive loads a previously persisted session summary.
func (s *SessionStore) Archive(ctx context.Context, sessionID int64) (domain.SessionArchive, error) {
	raw, err := s.client.Get(ctx, s.archiveKey(sessionID)).Bytes()
	if err == redis.Nil {
		return domain.SessionArchive{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionArchive{}, fmt.Errorf("load session archive: %w", err)
	}
	var archive domain.SessionArchive
	if err := json.Unmarshal(raw, &archive); err != nil {
		return domain.SessionArchive{}, fmt.Errorf("unmarshal session archive: %w", err)
	}
	return archive, nil
}

func (s *SessionStore) liveKey(sessionID int64) string {
	return "game:session:" + strconv.FormatInt(sessionID, 10)
}

func (s *SessionStore) archiveKey(sessionID int64) string {
	return "game:archive:" + strconv.FormatInt(sessionID, 10)
}
