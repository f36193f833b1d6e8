package exam

import "errors"

var (
	// ErrInsufficientQuestions: the eligible pool is smaller than the
	// requested count. Never downgraded to a shorter exam.
	ErrInsufficientQuestions = errors.New("not enough questions for the requested selection")

	// ErrContaminationDetected: a selection produced a question outside the
	// requested category. Programming-error class; must fail loudly.
	ErrContaminationDetected = errors.New("selection contains questions from another category")

	// Caller-recoverable state machine errors.
	ErrOutOfSequenceAnswer = errors.New("submitted answer is not for the current question")
	ErrInvalidAnswerOption = errors.New("answer must be one of A, B, C, D")
	ErrSessionNotStarted   = errors.New("exam session has not been started")
	ErrSessionCompleted    = errors.New("exam session is already completed")

	ErrSessionNotFound = errors.New("session not found")

	// ErrBadSnapshot: a persisted session failed validation on deserialize.
	ErrBadSnapshot = errors.New("invalid session snapshot")
)
