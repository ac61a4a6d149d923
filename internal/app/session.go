package app

import (
	"math/rand"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
)

// Timing holds the wall-clock knobs of the state machine. Countdown is the fixed
// QUESTION_COUNTDOWN length; SecondUnit is what one durationSeconds of a question maps
// to, and exists so tests can run the machine at millisecond speed.
type Timing struct {
	Countdown  time.Duration
	SecondUnit time.Duration
}

// DefaultTiming matches the live game: 3s countdown, real seconds.
func DefaultTiming() Timing {
	return Timing{Countdown: 3 * time.Second, SecondUnit: time.Second}
}

func (t Timing) normalized() Timing {
	if t.Countdown <= 0 {
		t.Countdown = 3 * time.Second
	}
	if t.SecondUnit <= 0 {
		t.SecondUnit = time.Second
	}
	return t
}

// player is the registry entry plus the per-question answer ledger.
type player struct {
	id   int64
	name string
	// position -> last submitted answer ids / elapsed millis since the question opened.
	answers        map[int][]int64
	answeredMillis map[int]int64
}

// Session is one live run-through of a quiz. All mutation happens under mu: host
// actions, player traffic and timer callbacks are serialized into a single-writer
// critical section, so a manual action racing an auto-fire sees either the pre- or
// post-transition state, never a half-applied one.
type Session struct {
	id           int64
	autoStartNum int
	quiz         domain.Quiz
	timing       Timing
	now          func() time.Time

	mu       sync.Mutex
	state    domain.SessionState
	position int
	players  []*player
	byID     map[int64]*player
	results  map[int]domain.QuestionResult
	chat     []domain.ChatMessage
	openedAt time.Time
	timer    *time.Timer
	timerSeq uint64
	rnd      *rand.Rand
}

func newSession(id int64, quiz domain.Quiz, autoStartNum int, timing Timing, now func() time.Time) *Session {
	return &Session{
		id:           id,
		autoStartNum: autoStartNum,
		quiz:         quiz,
		timing:       timing.normalized(),
		now:          now,
		state:        domain.StateLobby,
		position:     domain.NoQuestion,
		byID:         make(map[int64]*player),
		results:      make(map[int]domain.QuestionResult),
		rnd:          rand.New(rand.NewSource(now().UnixNano() ^ id)),
	}
}

// ID returns the session's globally unique id.
func (s *Session) ID() int64 {
	return s.id
}

// PerformAction applies a host action to the state machine.
func (s *Session) PerformAction(action domain.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch action {
	case domain.ActionNextQuestion:
		return s.nextQuestionLocked()
	case domain.ActionSkipCountdown:
		return s.skipCountdownLocked()
	case domain.ActionGoToAnswer:
		return s.goToAnswerLocked()
	case domain.ActionGoToFinalResults:
		return s.goToFinalResultsLocked()
	case domain.ActionEnd:
		return s.endLocked()
	default:
		return domain.ErrActionNotApplicable
	}
}

func (s *Session) nextQuestionLocked() error {
	if s.state != domain.StateLobby && s.state != domain.StateAnswerShow {
		return domain.ErrActionNotApplicable
	}
	if s.position+1 >= len(s.quiz.Questions) {
		return domain.ErrActionNotApplicable
	}
	s.position++
	s.state = domain.StateQuestionCountdown
	s.scheduleLocked(s.timing.Countdown, func(sess *Session) {
		_ = sess.skipCountdownLocked()
	})
	return nil
}

func (s *Session) skipCountdownLocked() error {
	if s.state != domain.StateQuestionCountdown {
		return domain.ErrActionNotApplicable
	}
	s.cancelTimerLocked()
	s.state = domain.StateQuestionOpen
	s.openedAt = s.now()
	open := time.Duration(s.quiz.Questions[s.position].DurationSeconds) * s.timing.SecondUnit
	s.scheduleLocked(open, func(sess *Session) {
		sess.closeQuestionLocked()
	})
	return nil
}

// closeQuestionLocked is only reachable from the duration timer; a manual
// GO_TO_ANSWER cancels the timer first, so a stale fire is dropped by the
// sequence check before we get here.
func (s *Session) closeQuestionLocked() {
	if s.state != domain.StateQuestionOpen {
		return
	}
	s.timer = nil
	s.state = domain.StateQuestionClose
}

func (s *Session) goToAnswerLocked() error {
	if s.state != domain.StateQuestionOpen && s.state != domain.StateQuestionClose {
		return domain.ErrActionNotApplicable
	}
	s.cancelTimerLocked()
	// The ledger is frozen from here on: submissions are rejected outside
	// QUESTION_OPEN, so the result below never goes stale.
	if _, ok := s.results[s.position]; !ok {
		s.results[s.position] = buildQuestionResult(s.quiz.Questions[s.position], s.position, s.players)
	}
	s.state = domain.StateAnswerShow
	return nil
}

func (s *Session) goToFinalResultsLocked() error {
	if s.state != domain.StateAnswerShow {
		return domain.ErrActionNotApplicable
	}
	s.state = domain.StateFinalResults
	return nil
}

func (s *Session) endLocked() error {
	if s.state == domain.StateEnd {
		return domain.ErrActionNotApplicable
	}
	s.cancelTimerLocked()
	s.state = domain.StateEnd
	return nil
}

// scheduleLocked arms the session's single timer slot. The sequence number ties the
// callback to this arming: any later transition bumps the sequence, so a fire that
// lost the race to a manual action is dropped instead of double-applying.
func (s *Session) scheduleLocked(d time.Duration, apply func(*Session)) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerSeq++
	seq := s.timerSeq
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.timerSeq != seq {
			return
		}
		s.timer = nil
		apply(s)
	})
}

// cancelTimerLocked is idempotent; cancelling an already-fired or absent timer is a no-op.
func (s *Session) cancelTimerLocked() {
	s.timerSeq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Join adds a player while the session is in LOBBY. An empty requested name gets a
// generated one, retried until unique. Reaching the auto-start threshold has the same
// effect as a host-issued NEXT_QUESTION.
func (s *Session) Join(playerID int64, requestedName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateLobby {
		return "", domain.ErrActionNotApplicable
	}
	name := requestedName
	if name == "" {
		for {
			name = randomPlayerName(s.rnd)
			if s.playerByNameLocked(name) == nil {
				break
			}
		}
	} else if s.playerByNameLocked(name) != nil {
		return "", domain.ErrNameTaken
	}

	p := &player{
		id:             playerID,
		name:           name,
		answers:        make(map[int][]int64),
		answeredMillis: make(map[int]int64),
	}
	s.players = append(s.players, p)
	s.byID[playerID] = p

	if s.autoStartNum > 0 && len(s.players) == s.autoStartNum {
		_ = s.nextQuestionLocked()
	}
	return name, nil
}

func (s *Session) playerByNameLocked(name string) *player {
	for _, p := range s.players {
		if p.name == name {
			return p
		}
	}
	return nil
}

// SubmitAnswer records a player's selection for the currently open question.
// Resubmission before the phase closes overwrites the prior one.
func (s *Session) SubmitAnswer(playerID int64, position int, answerIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[playerID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if position != s.position {
		return domain.ErrWrongQuestion
	}
	if s.state != domain.StateQuestionOpen {
		return domain.ErrActionNotApplicable
	}
	if err := validateSelection(s.quiz.Questions[position], answerIDs); err != nil {
		return err
	}

	p.answers[position] = append([]int64(nil), answerIDs...)
	p.answeredMillis[position] = s.now().Sub(s.openedAt).Milliseconds()
	return nil
}

func validateSelection(q domain.Question, answerIDs []int64) error {
	if len(answerIDs) == 0 {
		return domain.ErrInvalidAnswer
	}
	seen := make(map[int64]struct{}, len(answerIDs))
	for _, id := range answerIDs {
		if _, dup := seen[id]; dup {
			return domain.ErrInvalidAnswer
		}
		seen[id] = struct{}{}
		valid := false
		for _, a := range q.Answers {
			if a.ID == id {
				valid = true
				break
			}
		}
		if !valid {
			return domain.ErrInvalidAnswer
		}
	}
	return nil
}

// Status is the host-facing snapshot.
func (s *Session) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionStatus{
		State:      s.state,
		AtQuestion: s.position,
		Players:    s.playerNamesLocked(),
		Quiz:       s.quiz.Clone(),
	}
}

// PlayerStatus is the lightweight view players poll for phase changes.
func (s *Session) PlayerStatus(playerID int64) (domain.PlayerStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[playerID]; !ok {
		return domain.PlayerStatus{}, domain.ErrPlayerNotFound
	}
	return domain.PlayerStatus{
		State:        s.state,
		NumQuestions: len(s.quiz.Questions),
		AtQuestion:   s.position,
	}, nil
}

// QuestionInfo returns the current question for a player, with correct flags stripped.
func (s *Session) QuestionInfo(playerID int64, position int) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[playerID]; !ok {
		return domain.Question{}, domain.ErrPlayerNotFound
	}
	if position < 0 || position >= len(s.quiz.Questions) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if position != s.position {
		return domain.Question{}, domain.ErrWrongQuestion
	}
	switch s.state {
	case domain.StateQuestionCountdown, domain.StateQuestionOpen,
		domain.StateQuestionClose, domain.StateAnswerShow:
	default:
		return domain.Question{}, domain.ErrActionNotApplicable
	}

	q := s.quiz.Questions[position]
	q.Answers = append([]domain.Answer(nil), q.Answers...)
	for i := range q.Answers {
		q.Answers[i].Correct = false
	}
	return q, nil
}

// QuestionResult returns the frozen result for a position that has reached ANSWER_SHOW.
func (s *Session) QuestionResult(playerID int64, position int) (domain.QuestionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[playerID]; !ok {
		return domain.QuestionResult{}, domain.ErrPlayerNotFound
	}
	if position < 0 || position >= len(s.quiz.Questions) {
		return domain.QuestionResult{}, domain.ErrQuestionNotFound
	}
	res, ok := s.results[position]
	if !ok {
		return domain.QuestionResult{}, domain.ErrResultsNotReady
	}
	return res, nil
}

// FinalResults is readable only once the session has reached FINAL_RESULTS.
func (s *Session) FinalResults() (domain.FinalResults, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateFinalResults {
		return domain.FinalResults{}, domain.ErrActionNotApplicable
	}
	return s.finalResultsLocked(), nil
}

func (s *Session) finalResultsLocked() domain.FinalResults {
	ordered := make([]domain.QuestionResult, 0, len(s.results))
	for pos := 0; pos < len(s.quiz.Questions); pos++ {
		if res, ok := s.results[pos]; ok {
			ordered = append(ordered, res)
		}
	}
	return domain.FinalResults{
		UsersRankedByScore: rankPlayers(s.quiz, s.players, s.results),
		QuestionResults:    ordered,
	}
}

// SendMessage appends to the session chat log.
func (s *Session) SendMessage(playerID int64, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[playerID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if n := len([]rune(body)); n < 1 || n > 100 {
		return domain.ErrInvalidMessage
	}
	s.chat = append(s.chat, domain.ChatMessage{
		Body:       body,
		PlayerID:   p.id,
		PlayerName: p.name,
		TimeSent:   s.now().Unix(),
	})
	return nil
}

// Messages returns the chat log in append order.
func (s *Session) Messages(playerID int64) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[playerID]; !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return append([]domain.ChatMessage(nil), s.chat...), nil
}

// Archive produces the durable summary a store commits when the session ends.
func (s *Session) Archive() domain.SessionArchive {
	s.mu.Lock()
	defer s.mu.Unlock()
	final := s.finalResultsLocked()
	return domain.SessionArchive{
		SessionID:       s.id,
		QuizID:          s.quiz.ID,
		QuizName:        s.quiz.Name,
		State:           s.state,
		Players:         s.playerNamesLocked(),
		QuestionResults: final.QuestionResults,
		Ranking:         final.UsersRankedByScore,
	}
}

func (s *Session) playerNamesLocked() []string {
	names := make([]string, len(s.players))
	for i, p := range s.players {
		names[i] = p.name
	}
	return names
}
