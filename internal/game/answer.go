package game

import (
	"fmt"
	"strconv"

	"checkout-trainer/internal/darts"
	"checkout-trainer/internal/domain"
)

// AnswerLimits bound what a single answer box accepts. MaxValue 0 means no
// limit beyond the digit count.
type AnswerLimits struct {
	MaxDigits int
	MaxValue  int
}

var (
	QuizLimits  = AnswerLimits{MaxDigits: 3}
	RapidLimits = AnswerLimits{MaxDigits: 2, MaxValue: 60}
)

// Submission is a finalized candidate answer.
type Submission struct {
	Values    []int
	Raw       []string
	NoOutshot bool
}

// Answer builds a candidate answer from keystrokes.
type Answer struct {
	slots      []string
	cursor     int
	multiplier darts.Multiplier
	noOutshot  bool
	limits     AnswerLimits
}

// NewAnswer returns an empty answer with the given number of boxes.
func NewAnswer(slots int, limits AnswerLimits) *Answer {
	if slots < 1 {
		slots = 1
	}
	return &Answer{
		slots:      make([]string, slots),
		multiplier: darts.Single,
		limits:     limits,
	}
}

// Apply feeds one event into the answer. It reports true when the event
// finalizes the answer.
func (a *Answer) Apply(ev Event) (bool, error) {
	switch ev.Kind {
	case EventDigit:
		return false, a.digit(ev.Value)
	case EventBackspace:
		a.backspace()
	case EventClear:
		a.clear()
	case EventMultiplier:
		m := darts.Multiplier(ev.Value)
		if !m.Valid() {
			return false, fmt.Errorf("%w: multiplier %d", domain.ErrInvalidInput, ev.Value)
		}
		a.multiplier = m
	case EventDart:
		return false, a.dart(ev.Value)
	case EventEnter:
		if a.cursor < len(a.slots)-1 {
			a.cursor++
			return false, nil
		}
		return true, nil
	case EventNoOutshot:
		a.noOutshot = true
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q", domain.ErrUnknownEvent, ev.Kind)
	}
	return false, nil
}

// Keystrokes past the digit or value limit are dropped.
func (a *Answer) digit(d int) error {
	if d < 0 || d > 9 {
		return fmt.Errorf("%w: digit %d", domain.ErrInvalidInput, d)
	}
	next := a.slots[a.cursor] + strconv.Itoa(d)
	if a.limits.MaxDigits > 0 && len(next) > a.limits.MaxDigits {
		return nil
	}
	if a.limits.MaxValue > 0 {
		if n, _ := strconv.Atoi(next); n > a.limits.MaxValue {
			return nil
		}
	}
	a.slots[a.cursor] = next
	return nil
}

func (a *Answer) backspace() {
	slot := a.slots[a.cursor]
	if slot != "" {
		a.slots[a.cursor] = slot[:len(slot)-1]
		return
	}
	if a.cursor > 0 {
		a.cursor--
	}
}

func (a *Answer) clear() {
	for i := range a.slots {
		a.slots[i] = ""
	}
	a.cursor = 0
	a.multiplier = darts.Single
}

// dart fills the current box with the value of segment under the selected
// multiplier and moves to the next box.
func (a *Answer) dart(segment int) error {
	value, err := darts.Value(segment, a.multiplier)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	a.slots[a.cursor] = strconv.Itoa(value)
	a.multiplier = darts.Single
	if a.cursor < len(a.slots)-1 {
		a.cursor++
	}
	return nil
}

// Submission returns the current contents. Empty boxes count as zero.
func (a *Answer) Submission() Submission {
	raw := make([]string, len(a.slots))
	copy(raw, a.slots)
	values := make([]int, len(a.slots))
	for i, s := range a.slots {
		values[i], _ = strconv.Atoi(s)
	}
	return Submission{Values: values, Raw: raw, NoOutshot: a.noOutshot}
}

// View snapshots the boxes for clients.
func (a *Answer) View() InputView {
	slots := make([]string, len(a.slots))
	copy(slots, a.slots)
	return InputView{
		Slots:      slots,
		Cursor:     a.cursor,
		Multiplier: a.multiplier.Letter(),
		NoOutshot:  a.noOutshot,
	}
}

// Judge decides a submission. No-outshot questions are correct only when the
// player declared no outshot. Everything else compares value multisets and
// the total against the target.
func Judge(q domain.Question, s Submission) bool {
	if q.IsNoOutshot() {
		return s.NoOutshot
	}
	if s.NoOutshot {
		return false
	}
	return darts.MatchValues(s.Values, q.Values, q.TargetScore)
}

// CorrectAnswer labels the canonical solution for the answer log.
func CorrectAnswer(q domain.Question) []string {
	if q.IsNoOutshot() {
		return []string{domain.NoOutshotLabel}
	}
	labels := make([]string, len(q.Values))
	for i, v := range q.Values {
		labels[i] = darts.FormatValue(v)
	}
	return labels
}

// UserInput labels what the player entered for the answer log.
func UserInput(s Submission) []string {
	if s.NoOutshot {
		return []string{domain.NoOutshotLabel}
	}
	out := make([]string, 0, len(s.Raw))
	for _, r := range s.Raw {
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}
