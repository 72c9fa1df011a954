package game

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-trainer/internal/darts"
	"checkout-trainer/internal/domain"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeRand replays queued values and never reorders on Shuffle.
type fakeRand struct {
	floats []float64
	ints   []int
}

func (f *fakeRand) Float64() float64 {
	if len(f.floats) == 0 {
		return 0.5
	}
	v := f.floats[0]
	f.floats = f.floats[1:]
	return v
}

func (f *fakeRand) Intn(n int) int {
	if len(f.ints) == 0 {
		return 0
	}
	v := f.ints[0]
	f.ints = f.ints[1:]
	return v % n
}

func (f *fakeRand) Shuffle(int, func(i, j int)) {}

func typeValue(t *testing.T, h func(Event, time.Time) error, at time.Time, value string) {
	t.Helper()
	for _, r := range value {
		require.NoError(t, h(Event{Kind: EventDigit, Value: int(r - '0')}, at))
	}
}

func TestAnswerDigitsAndLimits(t *testing.T) {
	a := NewAnswer(2, RapidLimits)
	for _, d := range []int{6, 1} {
		_, err := a.Apply(Event{Kind: EventDigit, Value: d})
		require.NoError(t, err)
	}
	assert.Equal(t, "6", a.View().Slots[0], "61 exceeds the rapid limit")

	_, err := a.Apply(Event{Kind: EventDigit, Value: 0})
	require.NoError(t, err)
	_, err = a.Apply(Event{Kind: EventDigit, Value: 5})
	require.NoError(t, err)
	assert.Equal(t, "60", a.View().Slots[0], "only two digits")

	_, err = a.Apply(Event{Kind: EventDigit, Value: 12})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	submitted, _ := a.Apply(Event{Kind: EventEnter})
	assert.False(t, submitted, "enter moves to the next box first")
	assert.Equal(t, 1, a.View().Cursor)

	a.Apply(Event{Kind: EventBackspace})
	assert.Equal(t, 0, a.View().Cursor, "backspace on an empty box steps back")
	a.Apply(Event{Kind: EventBackspace})
	assert.Equal(t, "6", a.View().Slots[0])

	a.Apply(Event{Kind: EventClear})
	assert.Equal(t, []string{"", ""}, a.View().Slots)
}

func TestAnswerDartKeys(t *testing.T) {
	a := NewAnswer(3, QuizLimits)
	a.Apply(Event{Kind: EventMultiplier, Value: int(darts.Triple)})
	require.NoError(t, mustApply(a, Event{Kind: EventDart, Value: 20}))
	require.NoError(t, mustApply(a, Event{Kind: EventDart, Value: 20}))
	a.Apply(Event{Kind: EventMultiplier, Value: int(darts.Double)})
	require.NoError(t, mustApply(a, Event{Kind: EventDart, Value: darts.Bull}))

	sub := a.Submission()
	assert.Equal(t, []int{60, 20, 50}, sub.Values, "multiplier resets after each dart")

	a.Apply(Event{Kind: EventMultiplier, Value: int(darts.Triple)})
	err := mustApply(a, Event{Kind: EventDart, Value: darts.Bull})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = a.Apply(Event{Kind: "shout"})
	assert.True(t, errors.Is(err, domain.ErrUnknownEvent))
}

func mustApply(a *Answer, ev Event) error {
	_, err := a.Apply(ev)
	return err
}

func TestJudge(t *testing.T) {
	q60 := domain.Question{TargetScore: 60, DartCount: 3, Values: []int{20, 20, 20}}
	none := domain.Question{TargetScore: 169, NoOutshot: true}

	assert.True(t, Judge(q60, Submission{Values: []int{20, 20, 20}}))
	assert.False(t, Judge(q60, Submission{Values: []int{5, 55, 0}}))
	assert.False(t, Judge(q60, Submission{Values: []int{20, 20, 20}, NoOutshot: true}))
	assert.True(t, Judge(none, Submission{NoOutshot: true}))
	assert.False(t, Judge(none, Submission{Values: []int{60, 60, 49}}), "numbers never answer a no-outshot question")

	assert.Equal(t, []string{"D10", "D10", "D10"}, CorrectAnswer(q60))
	assert.Equal(t, []string{domain.NoOutshotLabel}, CorrectAnswer(none))
}

func quizQuestions() []domain.Question {
	return []domain.Question{
		{ID: 1, TargetScore: 40, DartCount: 1, Values: []int{40}},
		{ID: 2, TargetScore: 169, NoOutshot: true},
	}
}

func TestQuizSessionFlow(t *testing.T) {
	s := NewQuizSession("s1", "u1", DefaultQuizConfig)
	require.NoError(t, s.Load(quizQuestions(), t0))
	assert.Equal(t, PhaseCountdown, s.Phase())

	err := s.Handle(Event{Kind: EventDigit, Value: 4}, t0.Add(time.Second))
	assert.True(t, errors.Is(err, domain.ErrNotPlaying), "no input during countdown")
	assert.Equal(t, 2, s.View().Quiz.CountdownSeconds)

	typeValue(t, s.Handle, t0.Add(3*time.Second), "40")
	require.Equal(t, PhasePlaying, s.Phase())
	require.NoError(t, s.Handle(Event{Kind: EventEnter}, t0.Add(5*time.Second)))

	v := s.View().Quiz
	require.NotNil(t, v.Feedback)
	assert.True(t, v.Feedback.Correct)
	assert.Equal(t, 1, v.QuestionNumber)

	err = s.Handle(Event{Kind: EventDigit, Value: 1}, t0.Add(6*time.Second))
	assert.True(t, errors.Is(err, domain.ErrInputLocked))

	s.Tick(t0.Add(7*time.Second + 900*time.Millisecond))
	assert.Equal(t, 1, s.View().Quiz.QuestionNumber, "state must not advance before the delay")

	s.Tick(t0.Add(8 * time.Second))
	v = s.View().Quiz
	assert.Equal(t, 2, v.QuestionNumber)
	assert.Len(t, v.Input.Slots, 3, "no-outshot questions keep three boxes")

	require.NoError(t, s.Handle(Event{Kind: EventNoOutshot}, t0.Add(10*time.Second)))
	s.Tick(t0.Add(13 * time.Second))
	require.Equal(t, PhaseFinished, s.Phase())
	assert.False(t, s.Running())

	rec, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, 2, rec.CorrectAnswers)
	assert.Equal(t, "2/2", rec.Score)
	assert.Equal(t, 7*time.Second, rec.Duration)
	assert.Equal(t, t0.Add(3*time.Second), rec.StartTime)
	require.Len(t, rec.Answers, 2)
	assert.Equal(t, []string{"40"}, rec.Answers[0].UserInput)
	assert.Equal(t, []string{"D20"}, rec.Answers[0].CorrectAnswer)
	assert.Equal(t, 2*time.Second, rec.Answers[0].TimeSpent)
	assert.Equal(t, []string{domain.NoOutshotLabel}, rec.Answers[1].UserInput)
	assert.Equal(t, 1, s.Completed())

	err = s.Handle(Event{Kind: EventEnter}, t0.Add(14*time.Second))
	assert.True(t, errors.Is(err, domain.ErrSessionClosed))
	assert.True(t, errors.Is(s.Abort(t0.Add(14*time.Second)), domain.ErrSessionClosed))
}

func TestQuizSessionWrongAnswer(t *testing.T) {
	s := NewQuizSession("s1", "u1", DefaultQuizConfig)
	require.NoError(t, s.Load(quizQuestions()[:1], t0))
	require.NoError(t, s.Handle(Event{Kind: EventNoOutshot}, t0.Add(4*time.Second)))
	s.Tick(t0.Add(7 * time.Second))

	rec, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, 0, rec.CorrectAnswers)
	assert.False(t, rec.Answers[0].Correct)
	assert.Equal(t, "0/1", rec.Score)
}

func TestQuizSessionEmptyLoad(t *testing.T) {
	s := NewQuizSession("s1", "u1", DefaultQuizConfig)
	err := s.Load(nil, t0)
	assert.True(t, errors.Is(err, domain.ErrNoQuestions))
	assert.Equal(t, PhaseFinished, s.Phase())
	assert.Equal(t, domain.ErrNoQuestions.Error(), s.View().Error)
	_, ok := s.Result()
	assert.False(t, ok, "failed sessions are not persisted")
}

func TestQuizSessionFetchFailure(t *testing.T) {
	s := NewQuizSession("s1", "u1", DefaultQuizConfig)
	require.NoError(t, s.Fail(errors.New("bank offline"), t0))
	assert.Equal(t, PhaseFinished, s.Phase())
	assert.Error(t, s.Err())
	assert.True(t, errors.Is(s.Fail(errors.New("again"), t0), domain.ErrInvalidTransition))
}

func TestQuizSessionAbort(t *testing.T) {
	s := NewQuizSession("s1", "u1", DefaultQuizConfig)
	require.NoError(t, s.Load(quizQuestions(), t0))
	typeValue(t, s.Handle, t0.Add(4*time.Second), "40")
	require.NoError(t, s.Abort(t0.Add(5*time.Second)))

	assert.Equal(t, PhaseAborted, s.Phase())
	assert.False(t, s.Running())
	_, ok := s.Result()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Completed())
}

func rapidPool() []domain.Question {
	return []domain.Question{
		{ID: 1, TargetScore: 40, DartCount: 1, Values: []int{40}},
		{ID: 2, TargetScore: 32, DartCount: 1, Values: []int{32}},
	}
}

func answerRapid(t *testing.T, s *RapidSession, at time.Time, value string) {
	t.Helper()
	typeValue(t, s.Handle, at, value)
	require.NoError(t, s.Handle(Event{Kind: EventEnter}, at))
}

func TestRapidSessionRound(t *testing.T) {
	s := NewRapidSession("r1", "u1", DefaultRapidConfig, 10, rapidPool(), &fakeRand{})
	assert.Equal(t, PhaseMenu, s.Phase())
	assert.Equal(t, 10, s.View().Rapid.PersonalBest)

	err := s.Handle(Event{Kind: EventDigit, Value: 4}, t0)
	assert.True(t, errors.Is(err, domain.ErrNotPlaying))

	require.NoError(t, s.Handle(Event{Kind: EventStart}, t0))
	assert.Equal(t, 40, s.View().Rapid.TargetScore)

	answerRapid(t, s, t0.Add(time.Second), "40")
	assert.Equal(t, 32, s.View().Rapid.TargetScore, "answers advance immediately")

	answerRapid(t, s, t0.Add(2*time.Second), "1")
	v := s.View().Rapid
	assert.Equal(t, 40, v.TargetScore, "exhausted pool is reshuffled")
	assert.Equal(t, 0, v.CurrentStreak)

	answerRapid(t, s, t0.Add(3*time.Second), "40")
	v = s.View().Rapid
	assert.Equal(t, 3, v.QuestionsAnswered)
	assert.Equal(t, 2, v.CorrectAnswers)
	assert.Equal(t, 1, v.WrongAnswers)
	assert.Equal(t, 1, v.CurrentStreak)
	assert.Equal(t, 1, v.BestStreak)
	assert.Equal(t, int64(27000), v.TimeRemainingMs)

	s.Tick(t0.Add(30 * time.Second))
	require.Equal(t, PhaseFinished, s.Phase())
	assert.False(t, s.Running())

	res, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, 20, res.Score, "no bonus after a miss")
	assert.True(t, s.NewHighScore())

	err = s.Handle(Event{Kind: EventDigit, Value: 1}, t0.Add(31*time.Second))
	assert.True(t, errors.Is(err, domain.ErrNotPlaying), "answers after expiry are rejected")
}

func TestRapidSessionPerfectRoundAndReplay(t *testing.T) {
	s := NewRapidSession("r1", "u1", DefaultRapidConfig, 0, rapidPool(), &fakeRand{})
	require.NoError(t, s.Start(t0))
	answerRapid(t, s, t0.Add(time.Second), "40")
	answerRapid(t, s, t0.Add(2*time.Second), "32")
	s.Tick(t0.Add(31 * time.Second))

	res, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, 2*10+50, res.Score)
	assert.Equal(t, 2, res.BestStreak)
	assert.Equal(t, 1, s.Completed())

	start := t0.Add(time.Minute)
	require.NoError(t, s.Handle(Event{Kind: EventStart}, start))
	assert.Equal(t, 70, s.View().Rapid.PersonalBest, "previous round becomes the best")
	s.Tick(start.Add(30 * time.Second))

	res, _ = s.Result()
	assert.Equal(t, 0, res.Score)
	assert.False(t, s.NewHighScore())
	assert.Equal(t, 2, s.Completed())
}

func TestRapidSessionEmptyPool(t *testing.T) {
	s := NewRapidSession("r1", "u1", DefaultRapidConfig, 0, nil, &fakeRand{})
	assert.True(t, errors.Is(s.Start(t0), domain.ErrNoQuestions))
	require.NoError(t, s.Abort(t0))
	assert.True(t, s.Terminal())
	_, ok := s.Result()
	assert.False(t, ok)
}

func TestSubtractGameSubmit(t *testing.T) {
	g := NewSubtractGame(DefaultSubtractConfig, 0, &fakeRand{floats: []float64{0.5}, ints: []int{19}})
	require.NoError(t, g.Start(t0))
	require.Equal(t, 60, g.CurrentTarget())

	ok, err := g.Submit(400, t0.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 501, g.CurrentScore(), "wrong answers leave the score alone")
	assert.Equal(t, 60, g.CurrentTarget(), "and keep the same target")
	assert.Equal(t, 1, g.Mistakes())

	ok, err = g.Submit(441, t0.Add(2*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 441, g.CurrentScore())
	assert.Equal(t, 41, g.CurrentTarget())
	assert.Equal(t, 1, g.View().Subtract.ThrowCount)
}

func TestSubtractGameCompletionAndBestTime(t *testing.T) {
	rng := &fakeRand{floats: []float64{0.1}}
	g := NewSubtractGame(SubtractConfig{StartScore: 60}, 0, rng)

	_, err := g.Submit(0, t0)
	assert.True(t, errors.Is(err, domain.ErrNotPlaying))

	require.NoError(t, g.Start(t0))
	require.Equal(t, 60, g.CurrentTarget(), "exact finish offered")
	g.Tick(t0.Add(5 * time.Second))
	assert.Equal(t, int64(5000), g.View().Subtract.ElapsedMs)

	ok, err := g.Submit(0, t0.Add(12*time.Second))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PhaseFinished, g.Phase())
	best, isNew := g.BestTime()
	assert.Equal(t, 12*time.Second, best)
	assert.True(t, isNew)
	assert.Equal(t, 1, g.Completed())

	rng.floats = []float64{0.1}
	start := t0.Add(time.Minute)
	require.NoError(t, g.Handle(Event{Kind: EventStart}, start))
	require.NoError(t, g.Handle(Event{Kind: EventSubmit, Value: 0}, start.Add(20*time.Second)))
	best, isNew = g.BestTime()
	assert.Equal(t, 12*time.Second, best)
	assert.False(t, isNew)
}

func TestSubtractGamesAreIndependent(t *testing.T) {
	a := NewSubtractGame(DefaultSubtractConfig, 0, rand.New(rand.NewSource(1)))
	b := NewSubtractGame(DefaultSubtractConfig, 0, rand.New(rand.NewSource(2)))
	require.NoError(t, a.Start(t0))
	require.NoError(t, b.Start(t0))
	_, err := a.Submit(a.CurrentScore()-a.CurrentTarget(), t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 501, b.CurrentScore())
}

func TestDartScoreBands(t *testing.T) {
	cases := []struct {
		p    float64
		want int
	}{
		{0.01, 100},
		{0.10, 81},
		{0.50, 41},
		{0.80, 26},
		{0.99, 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DartScore(&fakeRand{floats: []float64{tc.p}}), "p=%v", tc.p)
	}
	assert.Equal(t, 180, DartScore(&fakeRand{floats: []float64{0.01}, ints: []int{80}}))
}

func TestSafeScoreNeverOvershoots(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for current := 1; current <= 180; current++ {
		for i := 0; i < 50; i++ {
			got := SafeScore(current, rng)
			require.GreaterOrEqual(t, got, 1)
			require.LessOrEqual(t, got, current)
			if current > 60 {
				require.LessOrEqual(t, got, 60)
			}
		}
	}
}

func TestSubtractGameNeverBusts(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g := NewSubtractGame(DefaultSubtractConfig, 0, rng)
	require.NoError(t, g.Start(t0))
	for i := 0; g.Phase() == PhasePlaying; i++ {
		require.Less(t, i, 1000)
		require.LessOrEqual(t, g.CurrentTarget(), g.CurrentScore())
		_, err := g.Submit(g.CurrentScore()-g.CurrentTarget(), t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
	assert.Equal(t, 0, g.CurrentScore())
}

func TestSelectQuestions(t *testing.T) {
	var pool []domain.Question
	for i := 0; i < 20; i++ {
		pool = append(pool, domain.Question{ID: i, TargetScore: 40, DartCount: 1, Values: []int{40}})
	}
	for i := 20; i < 25; i++ {
		pool = append(pool, domain.Question{ID: i, TargetScore: 169, NoOutshot: true})
	}

	got := SelectQuestions(pool, 10, rand.New(rand.NewSource(3)))
	require.Len(t, got, 10)
	none := 0
	seen := map[int]bool{}
	for _, q := range got {
		if q.IsNoOutshot() {
			none++
		}
		assert.False(t, seen[q.ID], "duplicate question %d", q.ID)
		seen[q.ID] = true
	}
	assert.Equal(t, 1, none)

	assert.Len(t, SelectQuestions(pool, 0, &fakeRand{}), 25)
	assert.Len(t, SelectQuestions(pool[:20], 10, &fakeRand{}), 10)
	assert.Empty(t, SelectQuestions(pool[20:], 10, &fakeRand{}))
	assert.Len(t, SelectQuestions(pool[:3], 10, &fakeRand{}), 3)
}

func TestRunTickerStopsWhenTickReportsDone(t *testing.T) {
	count := 0
	done := RunTicker(context.Background(), time.Millisecond, time.Now, func(time.Time) bool {
		count++
		return count < 3
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker did not stop")
	}
	assert.Equal(t, 3, count)
}

func TestRunTickerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := RunTicker(ctx, time.Millisecond, time.Now, func(time.Time) bool { return true })
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker leaked after cancel")
	}
}
