// Package scoring holds the performance arithmetic shared by the game modes:
// accuracy, the combined leaderboard score, rapid-fire totals and streaks.
package scoring

import (
	"math"
	"time"

	"checkout-trainer/internal/domain"
)

// MaxSpeedPoints caps the speed half of the combined score.
const MaxSpeedPoints = 100.0

// speedNumerator gives 100 points at 30 seconds and fewer after that.
const speedNumerator = 3000.0

// CombinedScore ranks a quiz result as accuracyPct*10 plus a speed bonus of
// 3000/seconds capped at MaxSpeedPoints. A zero or negative duration earns the
// full bonus.
func CombinedScore(accuracyPct float64, elapsed time.Duration) float64 {
	return accuracyPct*10 + SpeedPoints(elapsed)
}

// SpeedPoints is the bounded speed term of CombinedScore.
func SpeedPoints(elapsed time.Duration) float64 {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return MaxSpeedPoints
	}
	return math.Min(speedNumerator/secs, MaxSpeedPoints)
}

// Accuracy is correct/total as a percentage at full precision.
func Accuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// AccuracyPercent is Accuracy rounded for display.
func AccuracyPercent(correct, total int) int {
	return int(math.Round(Accuracy(correct, total)))
}

// RapidRules are the point values of a rapid-fire round.
type RapidRules struct {
	PointsPerCorrect int
	PerfectBonus     int
}

// DefaultRapidRules awards 10 per correct answer and 50 for a clean round.
var DefaultRapidRules = RapidRules{PointsPerCorrect: 10, PerfectBonus: 50}

// RapidFinalScore totals a rapid-fire round. The bonus needs at least one
// answer and no wrong ones.
func RapidFinalScore(correct, wrong, answered int, rules RapidRules) int {
	score := correct * rules.PointsPerCorrect
	if wrong == 0 && answered > 0 {
		score += rules.PerfectBonus
	}
	return score
}

// Entry builds the leaderboard row for a finished quiz.
func Entry(userID, displayName string, correct, total int, elapsed time.Duration, now time.Time) domain.LeaderboardEntry {
	accuracy := Accuracy(correct, total)
	return domain.LeaderboardEntry{
		UserID:          userID,
		DisplayName:     displayName,
		CombinedScore:   CombinedScore(accuracy, elapsed),
		BestScore:       FormatScore(correct, total),
		BestTimeSeconds: int(math.Round(elapsed.Seconds())),
		Accuracy:        accuracy,
		TotalGames:      1,
		UpdatedAt:       now,
	}
}
