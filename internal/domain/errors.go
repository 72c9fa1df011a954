package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session id is not registered.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoQuestions indicates the question bank returned nothing usable.
	ErrNoQuestions = errors.New("no quiz questions available")
	// ErrInvalidQuestion is returned when a bank entry fails validation.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrNotPlaying is returned for input outside the playing phase.
	ErrNotPlaying = errors.New("session is not accepting answers")
	// ErrInputLocked is returned while answer feedback is on screen.
	ErrInputLocked = errors.New("input locked while showing feedback")
	// ErrSessionClosed is returned for events sent to a finished or aborted session.
	ErrSessionClosed = errors.New("session already closed")
	// ErrInvalidTransition is returned when an operation does not apply to the current phase.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrInvalidInput is returned for out-of-range keystrokes.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownEvent is returned for input events a session does not understand.
	ErrUnknownEvent = errors.New("unknown input event")
	// ErrUnknownPeriod is returned for unsupported leaderboard periods.
	ErrUnknownPeriod = errors.New("unknown leaderboard period")
)
