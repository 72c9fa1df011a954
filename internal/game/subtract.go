package game

import (
	"time"

	"checkout-trainer/internal/domain"
)

// SubtractConfig holds the speed-subtracting settings.
type SubtractConfig struct {
	StartScore int
}

// DefaultSubtractConfig counts down from 501.
var DefaultSubtractConfig = SubtractConfig{StartScore: 501}

// endgameScore is where targets switch to the bounded generator.
const endgameScore = 180

// SubtractThrow is one accepted step of a game.
type SubtractThrow struct {
	Target    int `json:"target"`
	Remaining int `json:"remaining"`
}

// SubtractView is the speed-subtracting part of a View.
type SubtractView struct {
	CurrentScore  int             `json:"currentScore"`
	CurrentTarget int             `json:"currentTarget"`
	ThrowCount    int             `json:"throwCount"`
	Mistakes      int             `json:"mistakes"`
	ElapsedMs     int64           `json:"elapsedMs"`
	BestTimeMs    int64           `json:"bestTimeMs,omitempty"`
	NewBest       bool            `json:"newBest"`
	History       []SubtractThrow `json:"history"`
}

// SubtractGame is a countdown-to-zero arithmetic drill. Each instance owns
// its state and randomness.
type SubtractGame struct {
	cfg SubtractConfig
	rng Rand

	phase         Phase
	currentScore  int
	currentTarget int
	throwCount    int
	mistakes      int
	startedAt     time.Time
	elapsed       time.Duration
	bestTime      time.Duration
	newBest       bool
	history       []SubtractThrow
	completed     int
}

// NewSubtractGame returns an idle game. bestTime 0 means no record yet.
func NewSubtractGame(cfg SubtractConfig, bestTime time.Duration, rng Rand) *SubtractGame {
	g := &SubtractGame{cfg: cfg, rng: rng, bestTime: bestTime}
	g.Reset()
	return g
}

// Reset returns the game to the idle menu state, keeping the best time.
func (g *SubtractGame) Reset() {
	g.phase = PhaseMenu
	g.currentScore = g.cfg.StartScore
	g.currentTarget = 0
	g.throwCount = 0
	g.mistakes = 0
	g.elapsed = 0
	g.newBest = false
	g.history = nil
}

// Start resets the score and draws the first target.
func (g *SubtractGame) Start(now time.Time) error {
	if g.phase == PhaseAborted {
		return domain.ErrSessionClosed
	}
	g.Reset()
	g.phase = PhasePlaying
	g.startedAt = now
	g.currentTarget = g.nextTarget()
	return nil
}

// Submit checks answer against currentScore - currentTarget. A wrong answer
// only counts a mistake; the player retries the same subtraction.
func (g *SubtractGame) Submit(answer int, now time.Time) (bool, error) {
	if g.phase != PhasePlaying {
		return false, domain.ErrNotPlaying
	}
	g.Tick(now)
	if answer != g.currentScore-g.currentTarget {
		g.mistakes++
		return false, nil
	}

	g.currentScore = answer
	g.throwCount++
	g.history = append(g.history, SubtractThrow{Target: g.currentTarget, Remaining: answer})
	if g.currentScore == 0 {
		g.complete(now)
		return true, nil
	}
	g.currentTarget = g.nextTarget()
	return true, nil
}

func (g *SubtractGame) complete(now time.Time) {
	g.phase = PhaseFinished
	g.currentTarget = 0
	g.elapsed = now.Sub(g.startedAt)
	if g.bestTime == 0 || g.elapsed < g.bestTime {
		g.bestTime = g.elapsed
		g.newBest = true
	}
	g.completed++
}

// nextTarget never returns more than the current score.
func (g *SubtractGame) nextTarget() int {
	var target int
	if g.currentScore <= endgameScore {
		target = SafeScore(g.currentScore, g.rng)
	} else {
		target = DartScore(g.rng)
	}
	if target > g.currentScore {
		target = SafeScore(g.currentScore, g.rng)
	}
	return target
}

// Tick updates the elapsed time while the game is running.
func (g *SubtractGame) Tick(now time.Time) {
	if g.phase == PhasePlaying {
		g.elapsed = now.Sub(g.startedAt)
	}
}

// Handle maps player events onto Start and Submit.
func (g *SubtractGame) Handle(ev Event, now time.Time) error {
	switch ev.Kind {
	case EventStart:
		return g.Start(now)
	case EventSubmit:
		_, err := g.Submit(ev.Value, now)
		return err
	}
	return domain.ErrUnknownEvent
}

// Abort discards the game.
func (g *SubtractGame) Abort(time.Time) error {
	if g.phase == PhaseAborted {
		return domain.ErrSessionClosed
	}
	g.phase = PhaseAborted
	return nil
}

// Phase reports the current phase.
func (g *SubtractGame) Phase() Phase { return g.phase }

// Terminal reports whether the game was aborted.
func (g *SubtractGame) Terminal() bool { return g.phase == PhaseAborted }

// Running reports whether the elapsed clock is live.
func (g *SubtractGame) Running() bool { return g.phase == PhasePlaying }

// Completed counts finished games.
func (g *SubtractGame) Completed() int { return g.completed }

// CurrentScore is the score left to subtract from.
func (g *SubtractGame) CurrentScore() int { return g.currentScore }

// CurrentTarget is the throw to subtract next.
func (g *SubtractGame) CurrentTarget() int { return g.currentTarget }

// Mistakes counts rejected answers in the current game.
func (g *SubtractGame) Mistakes() int { return g.mistakes }

// BestTime returns the personal best and whether the last game set it.
func (g *SubtractGame) BestTime() (time.Duration, bool) {
	return g.bestTime, g.phase == PhaseFinished && g.newBest
}

// View snapshots the game.
func (g *SubtractGame) View() View {
	history := make([]SubtractThrow, len(g.history))
	copy(history, g.history)
	return View{Mode: ModeSubtract, Phase: g.phase, Subtract: &SubtractView{
		CurrentScore:  g.currentScore,
		CurrentTarget: g.currentTarget,
		ThrowCount:    g.throwCount,
		Mistakes:      g.mistakes,
		ElapsedMs:     g.elapsed.Milliseconds(),
		BestTimeMs:    g.bestTime.Milliseconds(),
		NewBest:       g.phase == PhaseFinished && g.newBest,
		History:       history,
	}}
}

// DartScore draws a three-dart total weighted like real scoring:
// 5% 100-180, 15% 81-99, 50% 41-80, 25% 26-40, 5% 1-25.
func DartScore(rng Rand) int {
	p := rng.Float64()
	switch {
	case p < 0.05:
		return 100 + rng.Intn(81)
	case p < 0.20:
		return 81 + rng.Intn(19)
	case p < 0.70:
		return 41 + rng.Intn(40)
	case p < 0.95:
		return 26 + rng.Intn(15)
	}
	return 1 + rng.Intn(25)
}

// SafeScore draws a target that cannot overshoot current. At 60 or less it
// offers the exact finish 30% of the time.
func SafeScore(current int, rng Rand) int {
	if current <= 0 {
		return 0
	}
	if current <= 60 && rng.Float64() < 0.3 {
		return current
	}
	switch {
	case current <= 25:
		return 1 + rng.Intn(current)
	case current <= 60:
		return 1 + rng.Intn(min(40, current))
	}
	return 1 + rng.Intn(min(60, current))
}
