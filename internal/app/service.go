package app

import (
	"context"
	"log"
	"time"

	"quiz-session-service/internal/domain"
)

// MaxAutoStart caps the player-count threshold that auto-starts a session.
const MaxAutoStart = 50

// SessionStore abstracts how live sessions are held and how fresh ids are minted
// (in-memory, Redis-backed, etc). Sessions and players share one id space, so ids are
// disjoint and never reused.
type SessionStore interface {
	NextID() int64
	Add(session *Session)
	Get(sessionID int64) (*Session, bool)
	BindPlayer(playerID, sessionID int64)
	ByPlayer(playerID int64) (*Session, bool)
	// Persist commits an ended session's summary durably; best effort.
	Persist(ctx context.Context, archive domain.SessionArchive) error
}

// QuizRepository loads quiz definitions (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// GameService contains the session engine use cases.
type GameService struct {
	store   SessionStore
	quizzes QuizRepository
	timing  Timing
	now     func() time.Time
}

func NewGameService(store SessionStore, quizzes QuizRepository) *GameService {
	return NewGameServiceWithTiming(store, quizzes, DefaultTiming())
}

// NewGameServiceWithTiming lets tests run the state machine at reduced timer lengths.
func NewGameServiceWithTiming(store SessionStore, quizzes QuizRepository, timing Timing) *GameService {
	return &GameService{store: store, quizzes: quizzes, timing: timing.normalized(), now: time.Now}
}

// StartSession snapshots the given quiz definition and opens a lobby.
func (g *GameService) StartSession(quiz domain.Quiz, autoStartNum int) (int64, error) {
	if autoStartNum > MaxAutoStart {
		return 0, domain.ErrAutoStartTooLarge
	}
	if len(quiz.Questions) == 0 {
		return 0, domain.ErrNoQuestions
	}
	id := g.store.NextID()
	session := newSession(id, quiz.Clone(), autoStartNum, g.timing, g.now)
	g.store.Add(session)
	return id, nil
}

// StartSessionByQuizID resolves the quiz through the repository first; this is the
// path the transport uses when the caller only knows the quiz id.
func (g *GameService) StartSessionByQuizID(ctx context.Context, quizID int64, autoStartNum int) (int64, error) {
	quiz, err := g.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return 0, err
	}
	return g.StartSession(quiz, autoStartNum)
}

// PerformAction applies a host action. Reaching END commits the session summary
// through the store.
func (g *GameService) PerformAction(ctx context.Context, sessionID int64, action domain.Action) error {
	session, ok := g.store.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if err := session.PerformAction(action); err != nil {
		return err
	}
	if action == domain.ActionEnd {
		if err := g.store.Persist(ctx, session.Archive()); err != nil {
			log.Printf("persist session %d: %v", sessionID, err)
		}
	}
	return nil
}

// SessionStatus returns the host-facing view.
func (g *GameService) SessionStatus(sessionID int64) (domain.SessionStatus, error) {
	session, ok := g.store.Get(sessionID)
	if !ok {
		return domain.SessionStatus{}, domain.ErrSessionNotFound
	}
	return session.Status(), nil
}

// Join registers a player in a lobby and returns the minted player id and the
// display name actually assigned (generated when the request was empty).
func (g *GameService) Join(sessionID int64, requestedName string) (int64, string, error) {
	session, ok := g.store.Get(sessionID)
	if !ok {
		return 0, "", domain.ErrSessionNotFound
	}
	playerID := g.store.NextID()
	name, err := session.Join(playerID, requestedName)
	if err != nil {
		return 0, "", err
	}
	g.store.BindPlayer(playerID, sessionID)
	return playerID, name, nil
}

// PlayerStatus returns the view players poll for phase changes.
func (g *GameService) PlayerStatus(playerID int64) (domain.PlayerStatus, error) {
	session, ok := g.store.ByPlayer(playerID)
	if !ok {
		return domain.PlayerStatus{}, domain.ErrPlayerNotFound
	}
	return session.PlayerStatus(playerID)
}

// QuestionInfo returns the active question for a player, with answers sanitized.
func (g *GameService) QuestionInfo(playerID int64, position int) (domain.Question, error) {
	session, ok := g.store.ByPlayer(playerID)
	if !ok {
		return domain.Question{}, domain.ErrPlayerNotFound
	}
	return session.QuestionInfo(playerID, position)
}

// SubmitAnswer records a selection while the question is open; last write wins.
func (g *GameService) SubmitAnswer(playerID int64, position int, answerIDs []int64) error {
	session, ok := g.store.ByPlayer(playerID)
	if !ok {
		return domain.ErrPlayerNotFound
	}
	return session.SubmitAnswer(playerID, position, answerIDs)
}

// QuestionResult returns the frozen per-question aggregate once revealed.
func (g *GameService) QuestionResult(playerID int64, position int) (domain.QuestionResult, error) {
	session, ok := g.store.ByPlayer(playerID)
	if !ok {
		return domain.QuestionResult{}, domain.ErrPlayerNotFound
	}
	return session.QuestionResult(playerID, position)
}

// FinalResultsForPlayer reads the scoreboard through a player id.
func (g *GameService) FinalResultsForPlayer(playerID int64) (domain.FinalResults, error) {
	session, ok := g.store.ByPlayer(playerID)
	if !ok {
		return domain.FinalResults{}, domain.ErrPlayerNotFound
	}
	return session.FinalResults()
}

// FinalResultsForSession reads the scoreboard through a session id (host view).
func (g *GameService) FinalResultsForSession(sessionID int64) (domain.FinalResults, error) {
	session, ok := g.store.Get(sessionID)
	if !ok {
		return domain.FinalResults{}, domain.ErrSessionNotFound
	}
	return session.FinalResults()
}

// SendMessage appends to a session's chat log.
func (g *GameService) SendMessage(playerID int64, body string) error {
	session, ok := g.store.ByPlayer(playerID)
	if !ok {
		return domain.ErrPlayerNotFound
	}
	return session.SendMessage(playerID, body)
}

// Messages returns a session's chat log in append order.
func (g *GameService) Messages(playerID int64) ([]domain.ChatMessage, error) {
	session, ok := g.store.ByPlayer(playerID)
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return session.Messages(playerID)
}
