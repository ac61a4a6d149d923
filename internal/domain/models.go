package domain

// SessionState is the phase a session is currently in.
type SessionState string

const (
	StateLobby             SessionState = "LOBBY"
	StateQuestionCountdown SessionState = "QUESTION_COUNTDOWN"
	StateQuestionOpen      SessionState = "QUESTION_OPEN"
	StateQuestionClose     SessionState = "QUESTION_CLOSE"
	StateAnswerShow        SessionState = "ANSWER_SHOW"
	StateFinalResults      SessionState = "FINAL_RESULTS"
	StateEnd               SessionState = "END"
)

// Action is a host-issued (or timer-issued) state machine command.
type Action string

const (
	ActionNextQuestion     Action = "NEXT_QUESTION"
	ActionSkipCountdown    Action = "SKIP_COUNTDOWN"
	ActionGoToAnswer       Action = "GO_TO_ANSWER"
	ActionGoToFinalResults Action = "GO_TO_FINAL_RESULTS"
	ActionEnd              Action = "END"
)

// NoQuestion is the currentQuestionPosition sentinel before the first question opens.
const NoQuestion = -1

// Answer is a selectable option on a question.
type Answer struct {
	ID      int64  `json:"answerId"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
	Colour  string `json:"colour"`
}

// Question models an MCQ question with one or more correct answers.
type Question struct {
	ID              int64    `json:"questionId"`
	Text            string   `json:"text"`
	DurationSeconds int      `json:"durationSeconds"`
	Points          int      `json:"points"`
	Answers         []Answer `json:"answers"`
}

// Quiz is an authored, already-validated quiz definition.
type Quiz struct {
	ID        int64      `json:"quizId"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Clone returns a deep copy so a running session is insulated from later quiz edits.
func (q Quiz) Clone() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		out.Questions[i] = question
		out.Questions[i].Answers = append([]Answer(nil), question.Answers...)
	}
	return out
}

// QuestionResult is the frozen per-question aggregate computed when answers are revealed.
type QuestionResult struct {
	QuestionID        int64    `json:"questionId"`
	PlayersCorrect    []string `json:"playersCorrectList"`
	AverageAnswerTime int      `json:"averageAnswerTime"`
	PercentCorrect    int      `json:"percentCorrect"`
}

// RankedPlayer is one row of the final scoreboard.
type RankedPlayer struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// FinalResults is the session outcome, readable once the session reaches FINAL_RESULTS.
type FinalResults struct {
	UsersRankedByScore []RankedPlayer   `json:"usersRankedByScore"`
	QuestionResults    []QuestionResult `json:"questionResults"`
}

// SessionStatus is the host-facing view of a session.
type SessionStatus struct {
	State      SessionState `json:"state"`
	AtQuestion int          `json:"atQuestion"`
	Players    []string     `json:"players"`
	Quiz       Quiz         `json:"metadata"`
}

// PlayerStatus is the player-facing view, sized for frequent polling.
type PlayerStatus struct {
	State        SessionState `json:"state"`
	NumQuestions int          `json:"numQuestions"`
	AtQuestion   int          `json:"atQuestion"`
}

// SessionArchive is the durable summary committed when a session reaches END.
type SessionArchive struct {
	SessionID       int64            `json:"sessionId"`
	QuizID          int64            `json:"quizId"`
	QuizName        string           `json:"quizName"`
	State           SessionState     `json:"state"`
	Players         []string         `json:"players"`
	QuestionResults []QuestionResult `json:"questionResults"`
	Ranking         []RankedPlayer   `json:"usersRankedByScore"`
}

// ChatMessage is one entry of a session's append-only chat log.
type ChatMessage struct {
	Body       string `json:"messageBody"`
	PlayerID   int64  `json:"playerId"`
	PlayerName string `json:"playerName"`
	TimeSent   int64  `json:"timeSent"`
}
