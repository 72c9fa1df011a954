package app_test

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-trainer/internal/app"
	"checkout-trainer/internal/domain"
	"checkout-trainer/internal/game"
	"checkout-trainer/internal/infra/memory"
	"checkout-trainer/internal/metrics"
)

var t0 = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// finishRand always offers the exact finish in speed subtracting.
type finishRand struct{}

func (finishRand) Float64() float64 { return 0.1 }
func (finishRand) Intn(int) int { return 0 }
func (finishRand) Shuffle(int, func(i, j int)) {}

type fixture struct {
	trainer  *app.Trainer
	results  *memory.ResultStore
	sessions *memory.SessionStore
	clock    *fakeClock
	metrics  *metrics.Metrics
}

var d20 = domain.Question{ID: 1, TargetScore: 40, DartCount: 1, Values: []int{40}}

func newFixture(t *testing.T, questions []domain.Question, wrap func(*app.Stores), extra ...app.Option) *fixture {
	t.Helper()
	clock := &fakeClock{now: t0}
	results := memory.NewResultStore()
	sessions := memory.NewSessionStore()
	stores := app.Stores{
		Sessions:    sessions,
		Questions:   memory.NewCachedQuestionBank(memory.NewStaticQuestionLoader(questions), time.Minute),
		Results:     results,
		Stats:       results,
		Leaderboard: results,
		Rapid:       results,
		BestTimes:   results,
	}
	if wrap != nil {
		wrap(&stores)
	}

	opts := app.DefaultOptions()
	opts.Quiz = game.QuizConfig{QuestionCount: 1}
	opts.Rapid.Duration = 30 * time.Second
	opts.Subtract = game.SubtractConfig{StartScore: 40}
	opts.TickInterval = 5 * time.Millisecond

	var ids atomic.Int64
	m := metrics.New(prometheus.NewRegistry())
	options := append([]app.Option{
		app.WithClock(clock.Now),
		app.WithRand(func() game.Rand { return rand.New(rand.NewSource(1)) }),
		app.WithIDs(func() string { return "s" + strconv.FormatInt(ids.Add(1), 10) }),
		app.WithMetrics(m),
	}, extra...)
	trainer := app.NewTrainer(stores, opts, options...)
	return &fixture{trainer: trainer, results: results, sessions: sessions, clock: clock, metrics: m}
}

func (f *fixture) send(t *testing.T, id string, events ...game.Event) game.View {
	t.Helper()
	var view game.View
	for _, ev := range events {
		var err error
		view, err = f.trainer.Handle(context.Background(), id, ev)
		require.NoError(t, err)
	}
	return view
}

func waitForPhase(t *testing.T, s *app.ActiveSession, phase game.Phase) {
	t.Helper()
	require.Eventually(t, func() bool { return s.View().Phase == phase }, 2*time.Second, 5*time.Millisecond)
}

func digits(values ...int) []game.Event {
	out := make([]game.Event, len(values))
	for i, v := range values {
		out[i] = game.Event{Kind: game.EventDigit, Value: v}
	}
	return out
}

func TestQuizCompletionPersistsResults(t *testing.T) {
	f := newFixture(t, []domain.Question{d20}, nil)
	ctx := context.Background()
	player := domain.Player{ID: "u1", DisplayName: "Ann"}

	session, view, err := f.trainer.StartQuiz(ctx, player)
	require.NoError(t, err)
	defer f.trainer.Close(ctx, session.ID())
	assert.Equal(t, game.PhaseCountdown, view.Phase)
	assert.Equal(t, 1, view.Quiz.TotalQuestions)

	f.clock.Advance(4 * time.Second)
	f.send(t, session.ID(), digits(4, 0)...)
	view = f.send(t, session.ID(), game.Event{Kind: game.EventEnter})
	require.NotNil(t, view.Quiz.Feedback)
	assert.True(t, view.Quiz.Feedback.Correct)

	waitForPhase(t, session, game.PhaseFinished)
	f.trainer.Wait()

	records := f.results.Sessions("u1")
	require.Len(t, records, 1)
	assert.Equal(t, "1/1", records[0].Score)
	assert.Equal(t, 4*time.Second, records[0].Duration)
	require.Len(t, records[0].Answers, 1)
	assert.Equal(t, []string{"40"}, records[0].Answers[0].UserInput)
	assert.Equal(t, []string{"D20"}, records[0].Answers[0].CorrectAnswer)

	stats, err := f.trainer.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalGames)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 1, stats.DailyStreak)

	board, err := f.trainer.Leaderboard(ctx, "", "u1")
	require.NoError(t, err)
	require.Len(t, board.Players, 1)
	assert.Equal(t, "all-time", board.Period)
	assert.Equal(t, 1, board.CurrentUserRank)
	assert.Equal(t, "Ann", board.Players[0].DisplayName)
	assert.InDelta(t, 1100.0, board.Players[0].CombinedScore, 0.001)
	assert.Equal(t, 1, board.Players[0].TotalGames)
}

func TestWorseGameKeepsPlayerOnTodayBoard(t *testing.T) {
	f := newFixture(t, []domain.Question{d20}, nil)
	ctx := context.Background()
	player := domain.Player{ID: "u1", DisplayName: "Ann"}

	play := func(answer ...int) {
		session, _, err := f.trainer.StartQuiz(ctx, player)
		require.NoError(t, err)
		defer f.trainer.Close(ctx, session.ID())
		f.clock.Advance(4 * time.Second)
		f.send(t, session.ID(), digits(answer...)...)
		f.send(t, session.ID(), game.Event{Kind: game.EventEnter})
		waitForPhase(t, session, game.PhaseFinished)
		f.trainer.Wait()
	}

	play(4, 0)
	f.clock.Advance(26 * time.Hour)
	play(1, 0)

	board, err := f.trainer.Leaderboard(ctx, "today", "u1")
	require.NoError(t, err)
	require.Len(t, board.Players, 1)
	assert.Equal(t, 1, board.CurrentUserRank)
	entry := board.Players[0]
	assert.InDelta(t, 1100.0, entry.CombinedScore, 0.001)
	assert.Equal(t, "1/1", entry.BestScore)
	assert.Equal(t, 2, entry.TotalGames)
	assert.InDelta(t, 50.0, entry.Accuracy, 0.001)
	assert.False(t, entry.UpdatedAt.Before(t0.Add(26*time.Hour)))
}

func TestAnonymousQuizIsNotPersisted(t *testing.T) {
	f := newFixture(t, []domain.Question{d20}, nil)
	ctx := context.Background()

	session, _, err := f.trainer.StartQuiz(ctx, domain.Player{})
	require.NoError(t, err)
	defer f.trainer.Close(ctx, session.ID())

	f.send(t, session.ID(), digits(4, 0)...)
	f.send(t, session.ID(), game.Event{Kind: game.EventEnter})
	waitForPhase(t, session, game.PhaseFinished)
	f.trainer.Wait()

	board, err := f.trainer.Leaderboard(ctx, "all-time", "")
	require.NoError(t, err)
	assert.Empty(t, board.Players)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SessionsFinished.WithLabelValues("quiz", "completed")))
}

func TestAbortedQuizIsDiscarded(t *testing.T) {
	f := newFixture(t, []domain.Question{d20}, nil)
	ctx := context.Background()

	session, _, err := f.trainer.StartQuiz(ctx, domain.Player{ID: "u1"})
	require.NoError(t, err)
	f.send(t, session.ID(), digits(4)...)

	view, err := f.trainer.Abort(ctx, session.ID())
	require.NoError(t, err)
	assert.Equal(t, game.PhaseAborted, view.Phase)
	assert.False(t, session.TickerRunning())
	f.trainer.Wait()

	assert.Empty(t, f.results.Sessions("u1"))
	_, err = f.trainer.Handle(ctx, session.ID(), game.Event{Kind: game.EventEnter})
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
	assert.Equal(t, 0, f.sessions.Len())
}

func TestQuizWithoutQuestionsFails(t *testing.T) {
	f := newFixture(t, nil, nil)

	session, view, err := f.trainer.StartQuiz(context.Background(), domain.Player{ID: "u1"})
	require.NoError(t, err)
	defer f.trainer.Close(context.Background(), session.ID())
	assert.Equal(t, game.PhaseFinished, view.Phase)
	assert.Equal(t, domain.ErrNoQuestions.Error(), view.Error)
	assert.False(t, session.TickerRunning())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SessionsFinished.WithLabelValues("quiz", "failed")))
}

type failingWriter struct{}

func (failingWriter) SaveSession(context.Context, domain.SessionRecord) error {
	return errors.New("disk full")
}

func TestPersistFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, []domain.Question{d20}, func(s *app.Stores) { s.Results = failingWriter{} })
	ctx := context.Background()

	session, _, err := f.trainer.StartQuiz(ctx, domain.Player{ID: "u1"})
	require.NoError(t, err)
	defer f.trainer.Close(ctx, session.ID())

	f.send(t, session.ID(), digits(4, 0)...)
	f.send(t, session.ID(), game.Event{Kind: game.EventEnter})
	waitForPhase(t, session, game.PhaseFinished)
	f.trainer.Wait()

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PersistFailures.WithLabelValues("save_session")))
	stats, err := f.trainer.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalGames, "stats are written independently")
}

type countingRapid struct {
	*memory.ResultStore
	saves atomic.Int32
}

func (c *countingRapid) SaveRapidScore(ctx context.Context, score domain.RapidScore) error {
	c.saves.Add(1)
	return c.ResultStore.SaveRapidScore(ctx, score)
}

func TestRapidSavesOnlyNewHighScores(t *testing.T) {
	var rapid *countingRapid
	f := newFixture(t, []domain.Question{d20}, func(s *app.Stores) {
		rapid = &countingRapid{ResultStore: memory.NewResultStore()}
		s.Rapid = rapid
	})
	ctx := context.Background()
	player := domain.Player{ID: "u1"}

	playRound := func() *app.ActiveSession {
		session, view, err := f.trainer.StartRapid(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, game.PhaseMenu, view.Phase)
		f.send(t, session.ID(), game.Event{Kind: game.EventStart})
		f.send(t, session.ID(), digits(4, 0)...)
		f.send(t, session.ID(), game.Event{Kind: game.EventEnter})
		f.clock.Advance(31 * time.Second)
		waitForPhase(t, session, game.PhaseFinished)
		f.trainer.Wait()
		return session
	}

	first := playRound()
	view := first.View()
	assert.Equal(t, 60, view.Rapid.FinalScore)
	assert.True(t, view.Rapid.NewHighScore)
	f.trainer.Close(ctx, first.ID())
	assert.Equal(t, int32(1), rapid.saves.Load())

	second := playRound()
	defer f.trainer.Close(ctx, second.ID())
	view = second.View()
	assert.Equal(t, 60, view.Rapid.PersonalBest)
	assert.False(t, view.Rapid.NewHighScore)
	assert.Equal(t, int32(1), rapid.saves.Load(), "a tie is not a new high score")

	top, err := f.trainer.RapidLeaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 60, top[0].Score)
	assert.NotEqual(t, first.ID(), top[0].ID)
}

func TestSubtractSavesBestTime(t *testing.T) {
	f := newFixture(t, nil, nil, app.WithRand(func() game.Rand { return finishRand{} }))
	ctx := context.Background()
	player := domain.Player{ID: "u1"}

	session, _, err := f.trainer.StartSubtract(ctx, player)
	require.NoError(t, err)
	view := f.send(t, session.ID(), game.Event{Kind: game.EventStart})
	assert.Equal(t, 40, view.Subtract.CurrentTarget)
	assert.True(t, session.TickerRunning())

	f.clock.Advance(12 * time.Second)
	view = f.send(t, session.ID(), game.Event{Kind: game.EventSubmit, Value: 0})
	assert.Equal(t, game.PhaseFinished, view.Phase)
	assert.True(t, view.Subtract.NewBest)
	f.trainer.Wait()
	f.trainer.Close(ctx, session.ID())

	best, err := f.results.BestTime(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 12*time.Second, best)

	// a slower game keeps the record
	session, view, err = f.trainer.StartSubtract(ctx, player)
	require.NoError(t, err)
	defer f.trainer.Close(ctx, session.ID())
	assert.Equal(t, int64(12000), view.Subtract.BestTimeMs)
	f.send(t, session.ID(), game.Event{Kind: game.EventStart})
	f.clock.Advance(20 * time.Second)
	view = f.send(t, session.ID(), game.Event{Kind: game.EventSubmit, Value: 0})
	assert.False(t, view.Subtract.NewBest)
	f.trainer.Wait()

	best, err = f.results.BestTime(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 12*time.Second, best)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	f := newFixture(t, []domain.Question{d20}, nil)
	ctx := context.Background()

	session, _, err := f.trainer.StartRapid(ctx, domain.Player{})
	require.NoError(t, err)

	updates, cancel, err := f.trainer.Subscribe(ctx, session.ID())
	require.NoError(t, err)
	defer cancel()
	first := <-updates
	assert.Equal(t, game.PhaseMenu, first.Phase)

	f.send(t, session.ID(), game.Event{Kind: game.EventStart})
	select {
	case v := <-updates:
		assert.Equal(t, game.ModeRapid, v.Mode)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after start")
	}

	f.trainer.Close(ctx, session.ID())
	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-updates:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond, "channel closes with the session")

	_, _, err = f.trainer.Subscribe(ctx, session.ID())
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
}

func TestLeaderboardRejectsUnknownPeriod(t *testing.T) {
	f := newFixture(t, nil, nil)
	_, err := f.trainer.Leaderboard(context.Background(), "yesterday", "")
	assert.True(t, errors.Is(err, domain.ErrUnknownPeriod))
}

func TestStatsForNewPlayer(t *testing.T) {
	f := newFixture(t, nil, nil)
	stats, err := f.trainer.Stats(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultStats("nobody"), stats)
}

func TestCheckouts(t *testing.T) {
	f := newFixture(t, nil, nil)

	advice := f.trainer.Checkouts(170, 0)
	assert.Equal(t, 3, advice.MaxDarts)
	assert.Equal(t, []string{"T20", "T20", "DBull"}, advice.Recommended)
	assert.False(t, advice.NoOutshot)

	advice = f.trainer.Checkouts(169, 3)
	assert.True(t, advice.NoOutshot)
	assert.Empty(t, advice.Checkouts)

	advice = f.trainer.Checkouts(40, 1)
	assert.Equal(t, [][]string{{"D20"}}, advice.Checkouts)
	assert.Equal(t, []string{"D20"}, advice.Recommended)
}
