package game

import (
	"time"

	"checkout-trainer/internal/domain"
	"checkout-trainer/internal/scoring"
)

// RapidConfig holds the rapid-fire round settings.
type RapidConfig struct {
	Duration time.Duration
	Rules    scoring.RapidRules
}

// DefaultRapidConfig is a thirty second round.
var DefaultRapidConfig = RapidConfig{Duration: 30 * time.Second, Rules: scoring.DefaultRapidRules}

// RapidView is the rapid-fire part of a View.
type RapidView struct {
	PersonalBest      int        `json:"personalBest"`
	TimeRemainingMs   int64      `json:"timeRemainingMs"`
	TargetScore       int        `json:"targetScore,omitempty"`
	Input             *InputView `json:"input,omitempty"`
	LastCorrect       *bool      `json:"lastCorrect,omitempty"`
	QuestionsAnswered int        `json:"questionsAnswered"`
	CorrectAnswers    int        `json:"correctAnswers"`
	WrongAnswers      int        `json:"wrongAnswers"`
	CurrentStreak     int        `json:"currentStreak"`
	BestStreak        int        `json:"bestStreak"`
	FinalScore        int        `json:"finalScore"`
	NewHighScore      bool       `json:"newHighScore"`
}

// RapidSession runs a timed round over a reshuffled question pool:
// menu -> playing -> finished, with finished able to start again.
type RapidSession struct {
	id     string
	userID string
	cfg    RapidConfig
	rng    Rand

	phase        Phase
	personalBest int
	pool         []domain.Question
	deck         []domain.Question
	pos          int
	answer       *Answer
	lastCorrect  *bool

	now       time.Time
	startedAt time.Time
	endsAt    time.Time

	answered   int
	correct    int
	wrong      int
	streak     int
	bestStreak int
	finalScore int
	newHigh    bool
	rounds     int
}

// NewRapidSession returns a session in the menu showing personalBest.
func NewRapidSession(id, userID string, cfg RapidConfig, personalBest int, pool []domain.Question, rng Rand) *RapidSession {
	return &RapidSession{
		id:           id,
		userID:       userID,
		cfg:          cfg,
		rng:          rng,
		phase:        PhaseMenu,
		personalBest: personalBest,
		pool:         append([]domain.Question(nil), pool...),
	}
}

// Start begins a round from the menu or after a finished round.
func (s *RapidSession) Start(now time.Time) error {
	if s.phase != PhaseMenu && s.phase != PhaseFinished {
		return domain.ErrInvalidTransition
	}
	if len(s.pool) == 0 {
		return domain.ErrNoQuestions
	}
	if s.phase == PhaseFinished && s.finalScore > s.personalBest {
		s.personalBest = s.finalScore
	}

	s.answered, s.correct, s.wrong = 0, 0, 0
	s.streak, s.bestStreak = 0, 0
	s.finalScore, s.newHigh = 0, false
	s.lastCorrect = nil

	s.now = now
	s.startedAt = now
	s.endsAt = now.Add(s.cfg.Duration)
	s.phase = PhasePlaying
	s.reshuffle()
	s.showQuestion()
	return nil
}

func (s *RapidSession) reshuffle() {
	s.deck = append(s.deck[:0], s.pool...)
	shuffle(s.deck, s.rng)
	s.pos = 0
}

func (s *RapidSession) showQuestion() {
	if s.pos >= len(s.deck) {
		s.reshuffle()
	}
	s.answer = NewAnswer(s.deck[s.pos].InputSlots(), RapidLimits)
}

// Tick ends the round once the timer runs out.
func (s *RapidSession) Tick(now time.Time) {
	s.now = now
	if s.phase == PhasePlaying && !now.Before(s.endsAt) {
		s.finish()
	}
}

func (s *RapidSession) finish() {
	s.phase = PhaseFinished
	s.answer = nil
	s.finalScore = scoring.RapidFinalScore(s.correct, s.wrong, s.answered, s.cfg.Rules)
	s.newHigh = s.finalScore > s.personalBest
	s.rounds++
}

// Handle applies a player event. Answers are judged and replaced by the next
// question at once.
func (s *RapidSession) Handle(ev Event, now time.Time) error {
	s.Tick(now)
	if ev.Kind == EventStart {
		return s.Start(now)
	}
	switch s.phase {
	case PhaseAborted:
		return domain.ErrSessionClosed
	case PhasePlaying:
	default:
		return domain.ErrNotPlaying
	}

	submitted, err := s.answer.Apply(ev)
	if err != nil || !submitted {
		return err
	}

	correct := Judge(s.deck[s.pos], s.answer.Submission())
	s.answered++
	if correct {
		s.correct++
		s.streak++
		s.bestStreak = max(s.bestStreak, s.streak)
	} else {
		s.wrong++
		s.streak = 0
	}
	s.lastCorrect = &correct
	s.pos++
	s.showQuestion()
	return nil
}

// Abort discards the session.
func (s *RapidSession) Abort(now time.Time) error {
	if s.phase == PhaseAborted {
		return domain.ErrSessionClosed
	}
	s.now = now
	s.phase = PhaseAborted
	s.answer = nil
	return nil
}

// Phase reports the current phase.
func (s *RapidSession) Phase() Phase { return s.phase }

// Terminal reports whether the session was aborted. A finished round can
// still be restarted.
func (s *RapidSession) Terminal() bool { return s.phase == PhaseAborted }

// Running reports whether the round timer is live.
func (s *RapidSession) Running() bool { return s.phase == PhasePlaying }

// Completed counts finished rounds.
func (s *RapidSession) Completed() int { return s.rounds }

// NewHighScore reports whether the last finished round beat the personal best.
func (s *RapidSession) NewHighScore() bool { return s.phase == PhaseFinished && s.newHigh }

// Result returns the last finished round.
func (s *RapidSession) Result() (domain.RapidScore, bool) {
	if s.phase != PhaseFinished {
		return domain.RapidScore{}, false
	}
	return domain.RapidScore{
		ID:                s.id,
		UserID:            s.userID,
		Score:             s.finalScore,
		QuestionsAnswered: s.answered,
		CorrectAnswers:    s.correct,
		WrongAnswers:      s.wrong,
		BestStreak:        s.bestStreak,
		Timestamp:         s.endsAt,
	}, true
}

// View snapshots the session.
func (s *RapidSession) View() View {
	rv := &RapidView{
		PersonalBest:      s.personalBest,
		LastCorrect:       s.lastCorrect,
		QuestionsAnswered: s.answered,
		CorrectAnswers:    s.correct,
		WrongAnswers:      s.wrong,
		CurrentStreak:     s.streak,
		BestStreak:        s.bestStreak,
		FinalScore:        s.finalScore,
		NewHighScore:      s.NewHighScore(),
	}
	if s.phase == PhasePlaying {
		rv.TimeRemainingMs = remaining(s.endsAt, s.now).Milliseconds()
		rv.TargetScore = s.deck[s.pos].TargetScore
		input := s.answer.View()
		rv.Input = &input
	}
	return View{Mode: ModeRapid, Phase: s.phase, Rapid: rv}
}
