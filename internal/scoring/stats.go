package scoring

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"checkout-trainer/internal/domain"
)

// FormatScore renders a quiz result as "correct/total".
func FormatScore(correct, total int) string {
	return fmt.Sprintf("%d/%d", correct, total)
}

// ParseScore reads the correct count back out of a "correct/total" string.
// Malformed input counts as zero.
func ParseScore(score string) int {
	head, _, _ := strings.Cut(score, "/")
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0
	}
	return n
}

// ApplySession folds one finished quiz into a player's aggregate stats.
func ApplySession(stats domain.UserStats, correct, total int, elapsed time.Duration, now time.Time, loc *time.Location) domain.UserStats {
	if stats.BestScore == "" {
		stats.BestScore = FormatScore(0, 0)
	}

	stats.TotalGames++
	stats.TotalCorrect += correct
	stats.TotalQuestions += total

	if correct > ParseScore(stats.BestScore) {
		stats.BestScore = FormatScore(correct, total)
	}
	stats.AverageScore = fmt.Sprintf("%.1f/10", Accuracy(stats.TotalCorrect, stats.TotalQuestions)/10)
	stats.Accuracy = AccuracyPercent(stats.TotalCorrect, stats.TotalQuestions)

	perfect := Streak{Current: stats.CurrentStreak, Best: stats.BestStreak}.Record(total > 0 && correct == total)
	stats.CurrentStreak, stats.BestStreak = perfect.Current, perfect.Best

	daily := DailyStreak{
		Current:   stats.DailyStreak,
		Best:      stats.BestDailyStreak,
		LastDay:   stats.LastDailyPlayDate,
		ExpiresAt: stats.StreakExpiresAt,
	}.Record(now, loc)
	stats.DailyStreak, stats.BestDailyStreak = daily.Current, daily.Best
	stats.LastDailyPlayDate, stats.StreakExpiresAt = daily.LastDay, daily.ExpiresAt

	secs := int(math.Round(elapsed.Seconds()))
	if secs > 0 && (stats.BestTimeSeconds == 0 || secs < stats.BestTimeSeconds) {
		stats.BestTimeSeconds = secs
	}
	stats.LastPlayed = now
	return stats
}

// CheckDailyStreak applies streak expiry to stored stats before they are shown.
func CheckDailyStreak(stats domain.UserStats, now time.Time, loc *time.Location) domain.UserStats {
	daily := DailyStreak{
		Current:   stats.DailyStreak,
		Best:      stats.BestDailyStreak,
		LastDay:   stats.LastDailyPlayDate,
		ExpiresAt: stats.StreakExpiresAt,
	}.Check(now, loc)
	stats.DailyStreak, stats.StreakExpiresAt = daily.Current, daily.ExpiresAt
	return stats
}
