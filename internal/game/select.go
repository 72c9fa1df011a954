package game

import (
	"checkout-trainer/internal/domain"
)

// Rand is the randomness the games need. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// noOutshotShare is the fraction of a quiz drawn from no-outshot questions.
const noOutshotShare = 0.15

// SelectQuestions draws a quiz of count questions, about 15% of them
// no-outshot when the pool has any, in uniformly shuffled order. count <= 0
// returns the whole pool shuffled. A pool without answerable questions
// yields nothing.
func SelectQuestions(all []domain.Question, count int, rng Rand) []domain.Question {
	if count <= 0 {
		out := append([]domain.Question(nil), all...)
		shuffle(out, rng)
		return out
	}

	var answerable, noOutshot []domain.Question
	for _, q := range all {
		if q.IsNoOutshot() {
			noOutshot = append(noOutshot, q)
		} else {
			answerable = append(answerable, q)
		}
	}
	if len(answerable) == 0 {
		return []domain.Question{}
	}

	noOutshotCount := 0
	if len(noOutshot) > 0 {
		noOutshotCount = max(1, int(float64(count)*noOutshotShare))
		noOutshotCount = min(noOutshotCount, len(noOutshot))
	}
	answerableCount := min(count-noOutshotCount, len(answerable))

	shuffle(answerable, rng)
	shuffle(noOutshot, rng)
	out := make([]domain.Question, 0, answerableCount+noOutshotCount)
	out = append(out, answerable[:answerableCount]...)
	out = append(out, noOutshot[:noOutshotCount]...)
	shuffle(out, rng)
	return out
}

// shuffle is a Fisher-Yates shuffle driven by rng.
func shuffle(qs []domain.Question, rng Rand) {
	rng.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
}
