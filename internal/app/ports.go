package app

import (
	"context"
	"time"

	"checkout-trainer/internal/domain"
)

// SessionRepository abstracts where live sessions are registered (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *ActiveSession)
	Get(id string) (*ActiveSession, bool)
	Delete(id string)
}

// QuestionBank returns the full question set.
type QuestionBank interface {
	FetchQuestions(ctx context.Context) ([]domain.Question, error)
}

// SessionWriter persists finished quizzes.
type SessionWriter interface {
	SaveSession(ctx context.Context, record domain.SessionRecord) error
}

// StatsRepository stores per-user aggregate stats. found is false for users
// without a record.
type StatsRepository interface {
	GetStats(ctx context.Context, userID string) (stats domain.UserStats, found bool, err error)
	SaveStats(ctx context.Context, stats domain.UserStats) error
}

// LeaderboardRepository keeps each user's best entry. Submit always records
// the player's activity but replaces the score fields only when the
// candidate scores higher; the bool reports that replacement.
type LeaderboardRepository interface {
	Submit(ctx context.Context, entry domain.LeaderboardEntry) (bool, error)
	List(ctx context.Context, since time.Time) ([]domain.LeaderboardEntry, error)
}

// RapidScoreRepository stores rapid-fire results.
type RapidScoreRepository interface {
	HighScore(ctx context.Context, userID string) (int, error)
	SaveRapidScore(ctx context.Context, score domain.RapidScore) error
	TopRapidScores(ctx context.Context, limit int) ([]domain.RapidScore, error)
}

// BestTimeStore keeps the speed-subtracting personal best. Zero means none.
type BestTimeStore interface {
	BestTime(ctx context.Context, userID string) (time.Duration, error)
	SetBestTime(ctx context.Context, userID string, best time.Duration) error
}
