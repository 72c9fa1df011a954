package scoring

import (
	"sort"
	"time"

	"checkout-trainer/internal/domain"
)

// Leaderboard periods.
const (
	PeriodToday   = "today"
	PeriodWeek    = "this-week"
	PeriodAllTime = "all-time"
)

// PeriodStart returns the earliest last-played time included in period.
// All-time returns the zero time.
func PeriodStart(period string, now time.Time, loc *time.Location) (time.Time, error) {
	switch period {
	case PeriodToday:
		y, m, d := now.In(location(loc)).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, location(loc)), nil
	case PeriodWeek:
		return now.AddDate(0, 0, -7), nil
	case PeriodAllTime, "":
		return time.Time{}, nil
	}
	return time.Time{}, domain.ErrUnknownPeriod
}

// Rank orders entries by combined score, highest first. Equal scores keep
// their input order. currentUserRank is 0 when the user is not listed.
func Rank(entries []domain.LeaderboardEntry, currentUserID string) ([]domain.RankedEntry, int) {
	sorted := make([]domain.LeaderboardEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CombinedScore > sorted[j].CombinedScore
	})

	ranked := make([]domain.RankedEntry, len(sorted))
	currentRank := 0
	for i, e := range sorted {
		isCurrent := currentUserID != "" && e.UserID == currentUserID
		ranked[i] = domain.RankedEntry{LeaderboardEntry: e, Rank: i + 1, IsCurrentUser: isCurrent}
		if isCurrent && currentRank == 0 {
			currentRank = i + 1
		}
	}
	return ranked, currentRank
}

// Better reports whether candidate should replace the stored entry.
func Better(candidate domain.LeaderboardEntry, stored *domain.LeaderboardEntry) bool {
	return stored == nil || candidate.CombinedScore > stored.CombinedScore
}

// MergeEntry folds a finished quiz into the stored entry. Name, game count,
// accuracy and last-played time always follow candidate; the score fields
// change only when candidate is Better. The bool reports whether the score
// was replaced.
func MergeEntry(candidate domain.LeaderboardEntry, stored *domain.LeaderboardEntry) (domain.LeaderboardEntry, bool) {
	if Better(candidate, stored) {
		return candidate, true
	}
	merged := *stored
	merged.DisplayName = candidate.DisplayName
	merged.TotalGames = candidate.TotalGames
	merged.Accuracy = candidate.Accuracy
	merged.UpdatedAt = candidate.UpdatedAt
	return merged, false
}
