package game

import (
	"time"

	"checkout-trainer/internal/domain"
	"checkout-trainer/internal/scoring"
)

// QuizConfig holds the standard quiz timings.
type QuizConfig struct {
	QuestionCount int
	Countdown     time.Duration
	AnswerDelay   time.Duration
}

// DefaultQuizConfig is ten questions, a three second countdown and three
// seconds of feedback per answer.
var DefaultQuizConfig = QuizConfig{QuestionCount: 10, Countdown: 3 * time.Second, AnswerDelay: 3 * time.Second}

// QuizView is the quiz part of a View.
type QuizView struct {
	CountdownSeconds int        `json:"countdownSeconds,omitempty"`
	QuestionNumber   int        `json:"questionNumber"`
	TotalQuestions   int        `json:"totalQuestions"`
	TargetScore      int        `json:"targetScore,omitempty"`
	Input            *InputView `json:"input,omitempty"`
	Feedback         *Feedback  `json:"feedback,omitempty"`
	Score            int        `json:"score"`
	ElapsedMs        int64      `json:"elapsedMs"`
}

// QuizSession runs a fixed-length quiz:
// loading -> countdown -> playing -> finished, or aborted from any
// non-terminal phase.
type QuizSession struct {
	id     string
	userID string
	cfg    QuizConfig

	phase     Phase
	err       error
	questions []domain.Question
	index     int
	answer    *Answer
	score     int
	answers   []domain.AnswerRecord
	feedback  *Feedback

	now             time.Time
	countdownEnds   time.Time
	startedAt       time.Time
	questionShownAt time.Time
	judgedAt        time.Time
	lastJudgedAt    time.Time
	finishedAt      time.Time
}

// NewQuizSession returns a session waiting for its questions.
func NewQuizSession(id, userID string, cfg QuizConfig) *QuizSession {
	return &QuizSession{id: id, userID: userID, cfg: cfg, phase: PhaseLoading}
}

// Load hands the fetched questions to the session and starts the countdown.
// An empty set ends the session with ErrNoQuestions.
func (s *QuizSession) Load(questions []domain.Question, now time.Time) error {
	if s.phase != PhaseLoading {
		return domain.ErrInvalidTransition
	}
	s.now = now
	if len(questions) == 0 {
		s.fail(domain.ErrNoQuestions, now)
		return domain.ErrNoQuestions
	}
	s.questions = append([]domain.Question(nil), questions...)
	s.phase = PhaseCountdown
	s.countdownEnds = now.Add(s.cfg.Countdown)
	return nil
}

// Fail ends a loading session because the question fetch failed.
func (s *QuizSession) Fail(err error, now time.Time) error {
	if s.phase != PhaseLoading {
		return domain.ErrInvalidTransition
	}
	s.fail(err, now)
	return nil
}

func (s *QuizSession) fail(err error, now time.Time) {
	s.err = err
	s.phase = PhaseFinished
	s.finishedAt = now
}

// Tick advances timers: countdown into playing, and past the feedback delay
// into the next question or the end of the quiz.
func (s *QuizSession) Tick(now time.Time) {
	s.now = now
	if s.phase == PhaseCountdown && !now.Before(s.countdownEnds) {
		s.phase = PhasePlaying
		s.startedAt = s.countdownEnds
		s.showQuestion(0, s.countdownEnds)
	}
	if s.phase == PhasePlaying && s.feedback != nil && !now.Before(s.judgedAt.Add(s.cfg.AnswerDelay)) {
		advanceAt := s.judgedAt.Add(s.cfg.AnswerDelay)
		if s.index+1 >= len(s.questions) {
			s.phase = PhaseFinished
			s.finishedAt = advanceAt
			return
		}
		s.showQuestion(s.index+1, advanceAt)
	}
}

func (s *QuizSession) showQuestion(index int, at time.Time) {
	s.index = index
	s.feedback = nil
	s.questionShownAt = at
	s.answer = NewAnswer(s.questions[index].InputSlots(), QuizLimits)
}

// Handle applies a player event.
func (s *QuizSession) Handle(ev Event, now time.Time) error {
	s.Tick(now)
	switch {
	case s.Terminal():
		return domain.ErrSessionClosed
	case s.phase != PhasePlaying:
		return domain.ErrNotPlaying
	case s.feedback != nil:
		return domain.ErrInputLocked
	}

	submitted, err := s.answer.Apply(ev)
	if err != nil || !submitted {
		return err
	}
	s.judge(now)
	return nil
}

func (s *QuizSession) judge(now time.Time) {
	q := s.questions[s.index]
	sub := s.answer.Submission()
	correct := Judge(q, sub)
	if correct {
		s.score++
	}
	record := domain.AnswerRecord{
		QuestionNumber: s.index + 1,
		QuestionID:     q.ID,
		Checkout:       q.TargetScore,
		UserInput:      UserInput(sub),
		CorrectAnswer:  CorrectAnswer(q),
		Correct:        correct,
		DartsRequired:  q.DartCount,
		TimeSpent:      now.Sub(s.questionShownAt),
	}
	s.answers = append(s.answers, record)
	s.feedback = &Feedback{Correct: correct, CorrectAnswer: record.CorrectAnswer}
	s.judgedAt = now
	s.lastJudgedAt = now
}

// Abort discards the session. Aborted sessions produce no result.
func (s *QuizSession) Abort(now time.Time) error {
	if s.Terminal() {
		return domain.ErrSessionClosed
	}
	s.now = now
	s.phase = PhaseAborted
	return nil
}

// Phase reports the current phase.
func (s *QuizSession) Phase() Phase { return s.phase }

// Err is the reason a session finished without playing.
func (s *QuizSession) Err() error { return s.err }

// Terminal reports whether the session is finished or aborted.
func (s *QuizSession) Terminal() bool {
	return s.phase == PhaseFinished || s.phase == PhaseAborted
}

// Running reports whether the session still needs timer ticks.
func (s *QuizSession) Running() bool {
	return s.phase == PhaseCountdown || s.phase == PhasePlaying
}

// Duration is the playing time up to the last judged answer; feedback shown
// after the last answer does not count.
func (s *QuizSession) Duration() time.Duration {
	switch {
	case s.startedAt.IsZero():
		return 0
	case s.phase == PhasePlaying:
		return s.now.Sub(s.startedAt)
	case s.lastJudgedAt.IsZero():
		return 0
	}
	return s.lastJudgedAt.Sub(s.startedAt)
}

// Result returns the record of a completed quiz. Aborted or failed sessions
// have none.
func (s *QuizSession) Result() (domain.SessionRecord, bool) {
	if s.phase != PhaseFinished || s.err != nil {
		return domain.SessionRecord{}, false
	}
	answers := make([]domain.AnswerRecord, len(s.answers))
	copy(answers, s.answers)
	return domain.SessionRecord{
		ID:             s.id,
		UserID:         s.userID,
		StartTime:      s.startedAt,
		EndTime:        s.finishedAt,
		TotalQuestions: len(s.questions),
		CorrectAnswers: s.score,
		Score:          scoring.FormatScore(s.score, len(s.questions)),
		Duration:       s.Duration(),
		Answers:        answers,
	}, true
}

// View snapshots the session.
func (s *QuizSession) View() View {
	v := View{Mode: ModeQuiz, Phase: s.phase}
	if s.err != nil {
		v.Error = s.err.Error()
	}
	qv := &QuizView{
		TotalQuestions: len(s.questions),
		Score:          s.score,
		ElapsedMs:      s.Duration().Milliseconds(),
	}
	switch s.phase {
	case PhaseCountdown:
		qv.CountdownSeconds = ceilSeconds(remaining(s.countdownEnds, s.now))
	case PhasePlaying:
		q := s.questions[s.index]
		qv.QuestionNumber = s.index + 1
		qv.TargetScore = q.TargetScore
		input := s.answer.View()
		qv.Input = &input
		qv.Feedback = s.feedback
	case PhaseFinished:
		qv.QuestionNumber = len(s.answers)
	}
	v.Quiz = qv
	return v
}

// Completed counts finished rounds; a quiz has at most one.
func (s *QuizSession) Completed() int {
	if s.phase == PhaseFinished && s.err == nil {
		return 1
	}
	return 0
}
