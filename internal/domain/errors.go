package domain

import "errors"

var (
	// ErrAttemptNotFound is returned when a quiz attempt id is unknown.
	ErrAttemptNotFound = errors.New("quiz attempt not found")
	// ErrForbidden is returned when a user acts on an attempt they do not own.
	ErrForbidden = errors.New("attempt belongs to another user")
	// ErrAlreadySubmitted is returned when an attempt is graded twice.
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoQuestions indicates nothing could be loaded for a quiz.
	ErrNoQuestions = errors.New("no questions available")
	// ErrInvalidQuestion indicates an imported question is malformed.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrBatchRejected indicates too few questions survived an import.
	ErrBatchRejected = errors.New("question batch rejected")
)
