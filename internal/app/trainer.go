package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"checkout-trainer/internal/darts"
	"checkout-trainer/internal/domain"
	"checkout-trainer/internal/game"
	"checkout-trainer/internal/logging"
	"checkout-trainer/internal/metrics"
	"checkout-trainer/internal/scoring"
)

// Options are the game rules and timings the trainer hands to new sessions.
type Options struct {
	Quiz           game.QuizConfig
	Rapid          game.RapidConfig
	Subtract       game.SubtractConfig
	TickInterval   time.Duration
	Location       *time.Location
	PersistTimeout time.Duration
}

// DefaultOptions returns the standard rules.
func DefaultOptions() Options {
	return Options{
		Quiz:           game.DefaultQuizConfig,
		Rapid:          game.DefaultRapidConfig,
		Subtract:       game.DefaultSubtractConfig,
		TickInterval:   game.DefaultTickInterval,
		Location:       time.UTC,
		PersistTimeout: 5 * time.Second,
	}
}

// Stores bundles the collaborators. All of them are required.
type Stores struct {
	Sessions    SessionRepository
	Questions   QuestionBank
	Results     SessionWriter
	Stats       StatsRepository
	Leaderboard LeaderboardRepository
	Rapid       RapidScoreRepository
	BestTimes   BestTimeStore
}

// Trainer contains the training use cases: starting sessions, routing player
// input and persisting finished rounds.
type Trainer struct {
	stores    Stores
	opts      Options
	log       *logrus.Entry
	metrics   *metrics.Metrics
	checkouts *darts.Cache
	now       func() time.Time
	newRand   func() game.Rand
	newID     func() string
	wg        sync.WaitGroup
}

// Option customizes a Trainer.
type Option func(*Trainer)

// WithClock is for deterministic timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(t *Trainer) { t.now = now }
}

// WithRand replaces the per-session random source.
func WithRand(newRand func() game.Rand) Option {
	return func(t *Trainer) { t.newRand = newRand }
}

// WithIDs replaces the session id generator.
func WithIDs(newID func() string) Option {
	return func(t *Trainer) { t.newID = newID }
}

func WithLogger(log *logrus.Entry) Option {
	return func(t *Trainer) { t.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Trainer) { t.metrics = m }
}

func NewTrainer(stores Stores, opts Options, options ...Option) *Trainer {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 5 * time.Second
	}
	t := &Trainer{
		stores:    stores,
		opts:      opts,
		log:       logging.Discard(),
		checkouts: darts.NewCache(),
		now:       time.Now,
		newRand: func() game.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		newID: uuid.NewString,
	}
	for _, o := range options {
		o(t)
	}
	return t
}

// StartQuiz fetches and samples questions and starts the countdown. A failed
// or empty fetch still returns a session, already finished with the error.
func (t *Trainer) StartQuiz(ctx context.Context, player domain.Player) (*ActiveSession, game.View, error) {
	id := t.newID()
	machine := game.NewQuizSession(id, player.ID, t.opts.Quiz)

	questions, err := t.fetchQuestions(ctx, id)
	now := t.now()
	if err != nil {
		_ = machine.Fail(err, now)
	} else if err := machine.Load(game.SelectQuestions(questions, t.opts.Quiz.QuestionCount, t.newRand()), now); err != nil {
		t.log.WithField("session_id", id).Warn("question bank returned no usable questions")
	}
	if machine.Err() != nil {
		t.metrics.SessionFinished(string(game.ModeQuiz), "failed")
	}

	session := t.register(id, player, game.ModeQuiz, machine)
	return session, session.Start(), nil
}

// StartRapid opens a rapid-fire session in its menu with the player's best.
func (t *Trainer) StartRapid(ctx context.Context, player domain.Player) (*ActiveSession, game.View, error) {
	id := t.newID()
	best := 0
	if !player.Anonymous() {
		var err error
		if best, err = t.stores.Rapid.HighScore(ctx, player.ID); err != nil {
			t.log.WithError(err).WithField("user_id", player.ID).Warn("load rapid high score")
			best = 0
		}
	}
	pool, err := t.fetchQuestions(ctx, id)
	if err != nil {
		pool = nil
	}
	rng := t.newRand()
	machine := game.NewRapidSession(id, player.ID, t.opts.Rapid, best, game.SelectQuestions(pool, 0, rng), rng)

	session := t.register(id, player, game.ModeRapid, machine)
	return session, session.Start(), nil
}

// StartSubtract opens a speed-subtracting game with the player's best time.
func (t *Trainer) StartSubtract(ctx context.Context, player domain.Player) (*ActiveSession, game.View, error) {
	id := t.newID()
	var best time.Duration
	if !player.Anonymous() {
		var err error
		if best, err = t.stores.BestTimes.BestTime(ctx, player.ID); err != nil {
			t.log.WithError(err).WithField("user_id", player.ID).Warn("load best time")
			best = 0
		}
	}
	machine := game.NewSubtractGame(t.opts.Subtract, best, t.newRand())

	session := t.register(id, player, game.ModeSubtract, machine)
	return session, session.Start(), nil
}

// Start dispatches on mode.
func (t *Trainer) Start(ctx context.Context, mode game.Mode, player domain.Player) (*ActiveSession, game.View, error) {
	switch mode {
	case game.ModeRapid:
		return t.StartRapid(ctx, player)
	case game.ModeSubtract:
		return t.StartSubtract(ctx, player)
	}
	return t.StartQuiz(ctx, player)
}

func (t *Trainer) fetchQuestions(ctx context.Context, sessionID string) ([]domain.Question, error) {
	questions, err := t.stores.Questions.FetchQuestions(ctx)
	if err != nil {
		t.log.WithError(err).WithField("session_id", sessionID).Error("fetch questions")
		return nil, err
	}
	valid, invalid := domain.ValidQuestions(questions)
	for _, err := range invalid {
		t.log.WithError(err).Warn("skipping question")
	}
	return valid, nil
}

func (t *Trainer) register(id string, player domain.Player, mode game.Mode, machine Machine) *ActiveSession {
	session := NewActiveSession(id, player, mode, machine, t.now, t.opts.TickInterval, t.complete)
	t.stores.Sessions.Put(session)
	t.metrics.SessionStarted(string(mode))
	t.log.WithFields(logrus.Fields{"session_id": id, "user_id": player.ID, "mode": mode}).Info("session started")
	return session
}

// Handle routes a player event to its session.
func (t *Trainer) Handle(_ context.Context, sessionID string, ev game.Event) (game.View, error) {
	session, ok := t.stores.Sessions.Get(sessionID)
	if !ok {
		return game.View{}, domain.ErrSessionNotFound
	}
	view, err := session.Handle(ev)
	t.metrics.EventHandled(string(session.Mode()), err)
	return view, err
}

// Subscribe returns a channel that receives snapshots for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (t *Trainer) Subscribe(_ context.Context, sessionID string) (<-chan game.View, func(), error) {
	session, ok := t.stores.Sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Abort discards a session mid-flight and unregisters it. Nothing is saved.
func (t *Trainer) Abort(_ context.Context, sessionID string) (game.View, error) {
	session, ok := t.stores.Sessions.Get(sessionID)
	if !ok {
		return game.View{}, domain.ErrSessionNotFound
	}
	view, err := session.Abort()
	if err == nil {
		t.metrics.SessionFinished(string(session.Mode()), "aborted")
	}
	t.remove(session)
	return view, err
}

// Close unregisters a session when its client goes away, aborting it first
// if it is still in progress.
func (t *Trainer) Close(_ context.Context, sessionID string) {
	session, ok := t.stores.Sessions.Get(sessionID)
	if !ok {
		return
	}
	if _, err := session.Abort(); err == nil {
		t.metrics.SessionFinished(string(session.Mode()), "aborted")
	}
	t.remove(session)
}

func (t *Trainer) remove(session *ActiveSession) {
	session.Close()
	t.stores.Sessions.Delete(session.ID())
	t.metrics.SessionClosed(string(session.Mode()))
}

// complete runs under the session lock whenever a machine finishes a round.
func (t *Trainer) complete(session *ActiveSession, m Machine) {
	player := session.Player()
	t.metrics.SessionFinished(string(session.Mode()), "completed")
	fields := logrus.Fields{"session_id": session.ID(), "user_id": player.ID, "mode": session.Mode()}
	t.log.WithFields(fields).Info("session completed")
	if player.Anonymous() {
		return
	}

	switch machine := m.(type) {
	case *game.QuizSession:
		if record, ok := machine.Result(); ok {
			t.persistQuiz(player, record, fields)
		}
	case *game.RapidSession:
		result, ok := machine.Result()
		if !ok || !machine.NewHighScore() {
			return
		}
		result.ID = t.newID()
		t.persist("save_rapid_score", fields, func(ctx context.Context) error {
			return t.stores.Rapid.SaveRapidScore(ctx, result)
		})
	case *game.SubtractGame:
		best, isNew := machine.BestTime()
		if !isNew {
			return
		}
		t.persist("save_best_time", fields, func(ctx context.Context) error {
			return t.stores.BestTimes.SetBestTime(ctx, player.ID, best)
		})
	}
}

func (t *Trainer) persistQuiz(player domain.Player, record domain.SessionRecord, fields logrus.Fields) {
	t.persist("save_session", fields, func(ctx context.Context) error {
		return t.stores.Results.SaveSession(ctx, record)
	})
	t.persist("update_stats", fields, func(ctx context.Context) error {
		stats, found, err := t.stores.Stats.GetStats(ctx, player.ID)
		if err != nil {
			return err
		}
		if !found {
			stats = domain.DefaultStats(player.ID)
		}
		stats = scoring.ApplySession(stats, record.CorrectAnswers, record.TotalQuestions, record.Duration, record.EndTime, t.opts.Location)
		if err := t.stores.Stats.SaveStats(ctx, stats); err != nil {
			return err
		}

		entry := scoring.Entry(player.ID, player.Name(), record.CorrectAnswers, record.TotalQuestions, record.Duration, record.EndTime)
		entry.TotalGames = stats.TotalGames
		entry.Accuracy = float64(stats.Accuracy)
		_, err = t.stores.Leaderboard.Submit(ctx, entry)
		return err
	})
}

// persist runs fn in the background. Failures are logged and counted, never
// returned to the player.
func (t *Trainer) persist(operation string, fields logrus.Fields, fn func(ctx context.Context) error) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.opts.PersistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			t.log.WithFields(fields).WithError(err).WithField("operation", operation).Error("persist failed")
			t.metrics.PersistFailed(operation)
		}
	}()
}

// Wait blocks until background writes have finished.
func (t *Trainer) Wait() {
	t.wg.Wait()
}

// Leaderboard ranks the best entries updated within period.
func (t *Trainer) Leaderboard(ctx context.Context, period, currentUserID string) (domain.Leaderboard, error) {
	if period == "" {
		period = scoring.PeriodAllTime
	}
	now := t.now()
	since, err := scoring.PeriodStart(period, now, t.opts.Location)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	entries, err := t.stores.Leaderboard.List(ctx, since)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	players, rank := scoring.Rank(entries, currentUserID)
	return domain.Leaderboard{Period: period, Players: players, CurrentUserRank: rank, UpdatedAt: now}, nil
}

// RapidLeaderboard lists the best rapid-fire score per player.
func (t *Trainer) RapidLeaderboard(ctx context.Context, limit int) ([]domain.RapidScore, error) {
	if limit <= 0 {
		limit = 10
	}
	return t.stores.Rapid.TopRapidScores(ctx, limit)
}

// Stats returns a player's aggregate stats with daily streak expiry applied.
func (t *Trainer) Stats(ctx context.Context, userID string) (domain.UserStats, error) {
	stats, found, err := t.stores.Stats.GetStats(ctx, userID)
	if err != nil {
		return domain.UserStats{}, err
	}
	if !found {
		return domain.DefaultStats(userID), nil
	}
	return scoring.CheckDailyStreak(stats, t.now(), t.opts.Location), nil
}

// CheckoutAdvice lists the ways to finish a score.
type CheckoutAdvice struct {
	Target      int        `json:"target"`
	MaxDarts    int        `json:"maxDarts"`
	Recommended []string   `json:"recommended,omitempty"`
	Checkouts   [][]string `json:"checkouts"`
	NoOutshot   bool       `json:"noOutshot"`
}

// Checkouts returns the recommended finish and every legal sequence for
// target within maxDarts darts (0 means three).
func (t *Trainer) Checkouts(target, maxDarts int) CheckoutAdvice {
	if maxDarts <= 0 || maxDarts > darts.MaxDarts {
		maxDarts = darts.MaxDarts
	}
	sequences := t.checkouts.Checkouts(target, maxDarts)
	advice := CheckoutAdvice{
		Target:    target,
		MaxDarts:  maxDarts,
		Checkouts: make([][]string, len(sequences)),
		NoOutshot: len(sequences) == 0,
	}
	for i, seq := range sequences {
		advice.Checkouts[i] = darts.Notations(seq)
	}
	if rec, ok := darts.Recommended(target); ok && len(rec) <= maxDarts {
		advice.Recommended = darts.Notations(rec)
	} else if len(sequences) > 0 {
		advice.Recommended = advice.Checkouts[0]
	}
	return advice
}
