package app

import (
	"testing"
	"time"

	"quiz-session-service/internal/domain"
)

// fastTiming keeps timer-driven transitions in the tens of milliseconds.
func fastTiming() Timing {
	return Timing{Countdown: 20 * time.Millisecond, SecondUnit: 10 * time.Millisecond}
}

func testQuiz() domain.Quiz {
	return domain.Quiz{
		ID:   7,
		Name: "General Knowledge",
		Questions: []domain.Question{
			{
				ID: 70, Text: "Pick the even number", DurationSeconds: 4, Points: 5,
				Answers: []domain.Answer{
					{ID: 1, Text: "7", Correct: false, Colour: "red"},
					{ID: 2, Text: "8", Correct: true, Colour: "blue"},
				},
			},
			{
				ID: 71, Text: "Pick the primes", DurationSeconds: 4, Points: 3,
				Answers: []domain.Answer{
					{ID: 3, Text: "2", Correct: true, Colour: "red"},
					{ID: 4, Text: "3", Correct: true, Colour: "blue"},
					{ID: 5, Text: "4", Correct: false, Colour: "green"},
				},
			},
		},
	}
}

func newTestSession(t *testing.T, autoStart int) *Session {
	t.Helper()
	return newSession(1, testQuiz(), autoStart, fastTiming(), time.Now)
}

func (s *Session) stateForTest() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func waitForState(t *testing.T, s *Session, want domain.SessionState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.stateForTest() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, still %s", want, s.stateForTest())
}

func TestLobbyOnlyAllowsNextQuestionAndEnd(t *testing.T) {
	for _, action := range []domain.Action{
		domain.ActionSkipCountdown, domain.ActionGoToAnswer, domain.ActionGoToFinalResults,
	} {
		s := newTestSession(t, 0)
		if err := s.PerformAction(action); err != domain.ErrActionNotApplicable {
			t.Fatalf("%s in lobby: expected not applicable, got %v", action, err)
		}
		if got := s.stateForTest(); got != domain.StateLobby {
			t.Fatalf("%s in lobby: state changed to %s", action, got)
		}
	}
}

func TestNextQuestionEntersCountdownThenOpens(t *testing.T) {
	s := newTestSession(t, 0)
	if err := s.PerformAction(domain.ActionNextQuestion); err != nil {
		t.Fatalf("next question: %v", err)
	}
	if got := s.stateForTest(); got != domain.StateQuestionCountdown {
		t.Fatalf("expected countdown, got %s", got)
	}
	// The countdown timer auto-fires SKIP_COUNTDOWN.
	waitForState(t, s, domain.StateQuestionOpen)
}

func TestOpenQuestionAutoCloses(t *testing.T) {
	s := newTestSession(t, 0)
	mustAdvanceToOpen(t, s)
	waitForState(t, s, domain.StateQuestionClose)
}

func TestManualSkipBeatsCountdownTimer(t *testing.T) {
	s := newTestSession(t, 0)
	if err := s.PerformAction(domain.ActionNextQuestion); err != nil {
		t.Fatalf("next question: %v", err)
	}
	if err := s.PerformAction(domain.ActionSkipCountdown); err != nil {
		t.Fatalf("manual skip: %v", err)
	}
	if got := s.stateForTest(); got != domain.StateQuestionOpen {
		t.Fatalf("expected open, got %s", got)
	}
	// Another skip must fail: whichever of manual action and timer lost the race
	// observes the post-transition state.
	if err := s.PerformAction(domain.ActionSkipCountdown); err != domain.ErrActionNotApplicable {
		t.Fatalf("second skip: expected not applicable, got %v", err)
	}
}

func TestGoToAnswerCancelsDurationTimer(t *testing.T) {
	s := newTestSession(t, 0)
	mustAdvanceToOpen(t, s)
	if err := s.PerformAction(domain.ActionGoToAnswer); err != nil {
		t.Fatalf("go to answer: %v", err)
	}
	// Past the duration; the cancelled close must not have fired on top.
	time.Sleep(100 * time.Millisecond)
	if got := s.stateForTest(); got != domain.StateAnswerShow {
		t.Fatalf("expected answer show to stick, got %s", got)
	}
}

func TestGoToAnswerLegalFromQuestionClose(t *testing.T) {
	s := newTestSession(t, 0)
	mustAdvanceToOpen(t, s)
	waitForState(t, s, domain.StateQuestionClose)
	if err := s.PerformAction(domain.ActionGoToAnswer); err != nil {
		t.Fatalf("go to answer from close: %v", err)
	}
}

func TestNextQuestionPastLastFails(t *testing.T) {
	s := newTestSession(t, 0)
	for i := 0; i < 2; i++ {
		mustAdvanceToOpen(t, s)
		if err := s.PerformAction(domain.ActionGoToAnswer); err != nil {
			t.Fatalf("go to answer q%d: %v", i, err)
		}
	}
	if err := s.PerformAction(domain.ActionNextQuestion); err != domain.ErrActionNotApplicable {
		t.Fatalf("expected no next question after last, got %v", err)
	}
	if err := s.PerformAction(domain.ActionGoToFinalResults); err != nil {
		t.Fatalf("go to final results: %v", err)
	}
	if got := s.stateForTest(); got != domain.StateFinalResults {
		t.Fatalf("expected final results, got %s", got)
	}
}

func TestEndIsTerminal(t *testing.T) {
	s := newTestSession(t, 0)
	mustAdvanceToOpen(t, s)
	if err := s.PerformAction(domain.ActionEnd); err != nil {
		t.Fatalf("end: %v", err)
	}
	for _, action := range []domain.Action{
		domain.ActionNextQuestion, domain.ActionSkipCountdown, domain.ActionGoToAnswer,
		domain.ActionGoToFinalResults, domain.ActionEnd,
	} {
		if err := s.PerformAction(action); err != domain.ErrActionNotApplicable {
			t.Fatalf("%s after end: expected not applicable, got %v", action, err)
		}
		if got := s.stateForTest(); got != domain.StateEnd {
			t.Fatalf("%s after end: state left END: %s", action, got)
		}
	}
	// The open-question timer must have been cancelled; END holds past the duration.
	time.Sleep(100 * time.Millisecond)
	if got := s.stateForTest(); got != domain.StateEnd {
		t.Fatalf("timer fired after end, state %s", got)
	}
}

func TestJoinOnlyInLobby(t *testing.T) {
	s := newTestSession(t, 0)
	if _, err := s.Join(10, "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := s.Join(11, "alice"); err != domain.ErrNameTaken {
		t.Fatalf("duplicate name: expected taken, got %v", err)
	}
	if err := s.PerformAction(domain.ActionNextQuestion); err != nil {
		t.Fatalf("next question: %v", err)
	}
	if _, err := s.Join(12, "bob"); err != domain.ErrActionNotApplicable {
		t.Fatalf("join after start: expected not applicable, got %v", err)
	}
}

func TestJoinGeneratesUniqueNames(t *testing.T) {
	s := newTestSession(t, 0)
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		name, err := s.Join(int64(100+i), "")
		if err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
		if len(name) != 8 {
			t.Fatalf("generated name %q: expected 5 letters + 3 digits", name)
		}
		for idx, r := range name {
			if idx < 5 && (r < 'a' || r > 'z') {
				t.Fatalf("generated name %q: expected letter at %d", name, idx)
			}
			if idx >= 5 && (r < '0' || r > '9') {
				t.Fatalf("generated name %q: expected digit at %d", name, idx)
			}
		}
		if seen[name] {
			t.Fatalf("generated name %q repeated", name)
		}
		seen[name] = true
	}
}

func TestAutoStartThreshold(t *testing.T) {
	s := newTestSession(t, 2)
	if _, err := s.Join(10, "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if got := s.stateForTest(); got != domain.StateLobby {
		t.Fatalf("one of two players should not start, got %s", got)
	}
	if _, err := s.Join(11, "bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if got := s.stateForTest(); got != domain.StateQuestionCountdown {
		t.Fatalf("threshold reached should auto-advance, got %s", got)
	}
}

func TestSubmitAnswerOverwrites(t *testing.T) {
	s := newTestSession(t, 0)
	if _, err := s.Join(10, "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	mustAdvanceToOpen(t, s)

	if err := s.SubmitAnswer(10, 0, []int64{1}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := s.SubmitAnswer(10, 0, []int64{2}); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if err := s.PerformAction(domain.ActionGoToAnswer); err != nil {
		t.Fatalf("go to answer: %v", err)
	}
	res, err := s.QuestionResult(10, 0)
	if err != nil {
		t.Fatalf("question result: %v", err)
	}
	// Only the latest submission counts; alice switched to the correct answer.
	if len(res.PlayersCorrect) != 1 || res.PlayersCorrect[0] != "alice" {
		t.Fatalf("expected alice correct after overwrite, got %+v", res.PlayersCorrect)
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	s := newTestSession(t, 0)
	if _, err := s.Join(10, "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	mustAdvanceToOpen(t, s)

	if err := s.SubmitAnswer(99, 0, []int64{2}); err != domain.ErrPlayerNotFound {
		t.Fatalf("unknown player: expected not found, got %v", err)
	}
	if err := s.SubmitAnswer(10, 1, []int64{2}); err != domain.ErrWrongQuestion {
		t.Fatalf("wrong position: expected wrong question, got %v", err)
	}
	if err := s.SubmitAnswer(10, 0, nil); err != domain.ErrInvalidAnswer {
		t.Fatalf("empty selection: expected invalid answer, got %v", err)
	}
	if err := s.SubmitAnswer(10, 0, []int64{2, 2}); err != domain.ErrInvalidAnswer {
		t.Fatalf("duplicate ids: expected invalid answer, got %v", err)
	}
	if err := s.SubmitAnswer(10, 0, []int64{9}); err != domain.ErrInvalidAnswer {
		t.Fatalf("unknown id: expected invalid answer, got %v", err)
	}

	if err := s.PerformAction(domain.ActionGoToAnswer); err != nil {
		t.Fatalf("go to answer: %v", err)
	}
	if err := s.SubmitAnswer(10, 0, []int64{2}); err != domain.ErrActionNotApplicable {
		t.Fatalf("submit after close: expected not applicable, got %v", err)
	}
}

func TestSubmitForEarlierPositionFails(t *testing.T) {
	s := newTestSession(t, 0)
	if _, err := s.Join(10, "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	mustAdvanceToOpen(t, s)
	if err := s.PerformAction(domain.ActionGoToAnswer); err != nil {
		t.Fatalf("go to answer: %v", err)
	}
	mustAdvanceToOpen(t, s)
	// Position 0 was valid earlier; it is not the current question anymore.
	if err := s.SubmitAnswer(10, 0, []int64{2}); err != domain.ErrWrongQuestion {
		t.Fatalf("expected wrong question for stale position, got %v", err)
	}
}

func TestQuestionInfoStripsCorrectFlags(t *testing.T) {
	s := newTestSession(t, 0)
	if _, err := s.Join(10, "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := s.QuestionInfo(10, 0); err != domain.ErrWrongQuestion {
		t.Fatalf("info in lobby: expected wrong question, got %v", err)
	}
	mustAdvanceToOpen(t, s)

	q, err := s.QuestionInfo(10, 0)
	if err != nil {
		t.Fatalf("question info: %v", err)
	}
	if q.ID != 70 || len(q.Answers) != 2 {
		t.Fatalf("unexpected question payload: %+v", q)
	}
	for _, a := range q.Answers {
		if a.Correct {
			t.Fatalf("correct flag leaked to player: %+v", a)
		}
	}
}

func TestQuestionResultFrozenOnceComputed(t *testing.T) {
	s := newTestSession(t, 0)
	if _, err := s.Join(10, "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	mustAdvanceToOpen(t, s)
	if err := s.SubmitAnswer(10, 0, []int64{2}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := s.QuestionResult(10, 0); err != domain.ErrResultsNotReady {
		t.Fatalf("result before answer show: expected not ready, got %v", err)
	}
	if err := s.PerformAction(domain.ActionGoToAnswer); err != nil {
		t.Fatalf("go to answer: %v", err)
	}
	first, err := s.QuestionResult(10, 0)
	if err != nil {
		t.Fatalf("question result: %v", err)
	}

	// Advance to the next question and back; position 0's result must be unchanged.
	mustAdvanceToOpen(t, s)
	if err := s.PerformAction(domain.ActionGoToAnswer); err != nil {
		t.Fatalf("go to answer q1: %v", err)
	}
	again, err := s.QuestionResult(10, 0)
	if err != nil {
		t.Fatalf("question result again: %v", err)
	}
	if again.PercentCorrect != first.PercentCorrect || len(again.PlayersCorrect) != len(first.PlayersCorrect) {
		t.Fatalf("stored result changed: %+v vs %+v", again, first)
	}
}

func TestChatLog(t *testing.T) {
	s := newTestSession(t, 0)
	if _, err := s.Join(10, "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := s.SendMessage(99, "hi"); err != domain.ErrPlayerNotFound {
		t.Fatalf("unknown sender: expected not found, got %v", err)
	}
	if err := s.SendMessage(10, ""); err != domain.ErrInvalidMessage {
		t.Fatalf("empty body: expected invalid message, got %v", err)
	}
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	if err := s.SendMessage(10, string(long)); err != domain.ErrInvalidMessage {
		t.Fatalf("long body: expected invalid message, got %v", err)
	}

	if err := s.SendMessage(10, "first"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := s.SendMessage(10, "second"); err != nil {
		t.Fatalf("send: %v", err)
	}
	msgs, err := s.Messages(10)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Body != "first" || msgs[1].Body != "second" {
		t.Fatalf("expected append order, got %+v", msgs)
	}
	if msgs[0].PlayerName != "alice" || msgs[0].PlayerID != 10 {
		t.Fatalf("expected sender attribution, got %+v", msgs[0])
	}
}

func TestConcurrentSubmissionsAgainstClose(t *testing.T) {
	s := newTestSession(t, 0)
	const numPlayers = 20
	ids := make([]int64, numPlayers)
	for i := range ids {
		ids[i] = int64(100 + i)
		if _, err := s.Join(ids[i], ""); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}
	mustAdvanceToOpen(t, s)

	// Every player lands one submission before the racing starts, so the final
	// ledger must contain all of them no matter when the phase closes.
	for _, id := range ids {
		if err := s.SubmitAnswer(id, 0, []int64{2}); err != nil {
			t.Fatalf("seed submit %d: %v", id, err)
		}
	}

	done := make(chan struct{})
	for _, id := range ids {
		go func(id int64) {
			defer func() { done <- struct{}{} }()
			for {
				err := s.SubmitAnswer(id, 0, []int64{2})
				if err == domain.ErrActionNotApplicable {
					return // phase closed under us
				}
				if err != nil {
					t.Errorf("submit %d: %v", id, err)
					return
				}
			}
		}(id)
	}

	time.Sleep(5 * time.Millisecond)
	if err := s.PerformAction(domain.ActionGoToAnswer); err != nil {
		t.Fatalf("go to answer: %v", err)
	}
	for range ids {
		<-done
	}

	// Scoring saw a frozen ledger: every player either fully counted or rejected,
	// and all who got a submission in are correct.
	res, err := s.QuestionResult(ids[0], 0)
	if err != nil {
		t.Fatalf("question result: %v", err)
	}
	if len(res.PlayersCorrect) != numPlayers {
		t.Fatalf("expected all %d players correct, got %d", numPlayers, len(res.PlayersCorrect))
	}
}

// mustAdvanceToOpen drives the session into QUESTION_OPEN for the next question.
func mustAdvanceToOpen(t *testing.T, s *Session) {
	t.Helper()
	if err := s.PerformAction(domain.ActionNextQuestion); err != nil {
		t.Fatalf("next question: %v", err)
	}
	if err := s.PerformAction(domain.ActionSkipCountdown); err != nil {
		t.Fatalf("skip countdown: %v", err)
	}
}
