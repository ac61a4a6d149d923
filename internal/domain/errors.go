package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for the given id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrPlayerNotFound is returned when no player exists for the given id.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrQuizNotFound indicates the quiz definition could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a question position outside the snapshot.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrActionNotApplicable is returned when an action is not legal in the current state.
	ErrActionNotApplicable = errors.New("action not applicable in current state")
	// ErrWrongQuestion is returned when an operation targets a position other than the
	// session's current one.
	ErrWrongQuestion = errors.New("not the session's current question")
	// ErrResultsNotReady is returned when results are read before they exist.
	ErrResultsNotReady = errors.New("results not available yet")

	// ErrNameTaken is returned when a requested display name is already in use.
	ErrNameTaken = errors.New("name already taken in session")
	// ErrInvalidAnswer covers empty, duplicate, or unknown answer id submissions.
	ErrInvalidAnswer = errors.New("invalid answer selection")
	// ErrInvalidMessage is returned when a chat message body is empty or too long.
	ErrInvalidMessage = errors.New("message body must be 1 to 100 characters")
	// ErrAutoStartTooLarge is returned when the auto-start threshold exceeds the cap.
	ErrAutoStartTooLarge = errors.New("auto-start threshold exceeds maximum")
	// ErrNoQuestions rejects starting a session from a quiz with no questions.
	ErrNoQuestions = errors.New("quiz has no questions")

	// ErrPermissionDenied is surfaced by the authentication collaborator; the engine
	// only defines it so callers can map the kind consistently.
	ErrPermissionDenied = errors.New("permission denied")
)

// IsNotFound reports whether err is an unknown-id failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrQuestionNotFound)
}

// IsInvalidState reports whether err means the operation is not legal right now.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrActionNotApplicable) ||
		errors.Is(err, ErrWrongQuestion) ||
		errors.Is(err, ErrResultsNotReady)
}

// IsInvalidInput reports whether err is a malformed-request failure.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrNameTaken) ||
		errors.Is(err, ErrInvalidAnswer) ||
		errors.Is(err, ErrInvalidMessage) ||
		errors.Is(err, ErrAutoStartTooLarge) ||
		errors.Is(err, ErrNoQuestions)
}
