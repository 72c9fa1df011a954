// Package game holds the timed training session machines. Machines are not
// safe for concurrent use and take the current time as an argument, so the
// owner decides the clock and serializes events.
package game

import "time"

// Mode names a game type.
type Mode string

const (
	ModeQuiz     Mode = "quiz"
	ModeRapid    Mode = "rapid"
	ModeSubtract Mode = "subtract"
)

// ParseMode maps a request parameter to a Mode.
func ParseMode(raw string) (Mode, bool) {
	switch Mode(raw) {
	case ModeQuiz, ModeRapid, ModeSubtract:
		return Mode(raw), true
	case "":
		return ModeQuiz, true
	}
	return "", false
}

// Phase is the lifecycle stage of a session.
type Phase string

const (
	PhaseMenu      Phase = "menu"
	PhaseLoading   Phase = "loading"
	PhaseCountdown Phase = "countdown"
	PhasePlaying   Phase = "playing"
	PhaseFinished  Phase = "finished"
	PhaseAborted   Phase = "aborted"
)

// EventKind identifies an input event.
type EventKind string

const (
	EventDigit      EventKind = "digit"
	EventBackspace  EventKind = "backspace"
	EventClear      EventKind = "clear"
	EventMultiplier EventKind = "multiplier"
	EventDart       EventKind = "dart"
	EventEnter      EventKind = "enter"
	EventNoOutshot  EventKind = "noOutshot"
	EventStart      EventKind = "start"
	EventSubmit     EventKind = "submit"
)

// Event is one player action. Value carries the digit, multiplier, segment or
// submitted number depending on Kind.
type Event struct {
	Kind  EventKind `json:"kind"`
	Value int       `json:"value,omitempty"`
}

// View is the snapshot sent to clients after every change.
type View struct {
	Mode     Mode          `json:"mode"`
	Phase    Phase         `json:"phase"`
	Error    string        `json:"error,omitempty"`
	Quiz     *QuizView     `json:"quiz,omitempty"`
	Rapid    *RapidView    `json:"rapid,omitempty"`
	Subtract *SubtractView `json:"subtract,omitempty"`
}

// InputView mirrors the answer boxes.
type InputView struct {
	Slots      []string `json:"slots"`
	Cursor     int      `json:"cursor"`
	Multiplier string   `json:"multiplier"`
	NoOutshot  bool     `json:"noOutshot"`
}

// Feedback is shown after an answer is judged.
type Feedback struct {
	Correct       bool     `json:"correct"`
	CorrectAnswer []string `json:"correctAnswer"`
}

func remaining(deadline, now time.Time) time.Duration {
	if d := deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// ceilSeconds rounds a countdown up so "3, 2, 1" reads naturally.
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
