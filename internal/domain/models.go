package domain

import "time"

// Question is a checkout prompt from the question bank.
type Question struct {
	ID          int   `json:"id" yaml:"id" validate:"gte=0"`
	TargetScore int   `json:"targetScore" yaml:"targetScore" validate:"gte=0,lte=501"`
	DartCount   int   `json:"dartCount" yaml:"dartCount" validate:"gte=0,lte=3"`
	Values      []int `json:"values" yaml:"values" validate:"max=3,dive,gte=0,lte=60"`
	NoOutshot   bool  `json:"noOutshot" yaml:"noOutshot"`
}

// IsNoOutshot reports whether the question has no legal checkout.
func (q Question) IsNoOutshot() bool {
	return q.NoOutshot || q.DartCount == 0
}

// InputSlots is the number of answer boxes offered for the question.
// No-outshot questions still get three.
func (q Question) InputSlots() int {
	if q.IsNoOutshot() {
		return 3
	}
	return q.DartCount
}

// AnswerRecord is the log line kept for every judged question.
type AnswerRecord struct {
	QuestionNumber int           `json:"questionNumber"`
	QuestionID     int           `json:"questionId"`
	Checkout       int           `json:"checkout"`
	UserInput      []string      `json:"userInput"`
	CorrectAnswer  []string      `json:"correctAnswer"`
	Correct        bool          `json:"isCorrect"`
	DartsRequired  int           `json:"dartsRequired"`
	TimeSpent      time.Duration `json:"timeSpent"`
}

// NoOutshotLabel marks a "no legal checkout" answer in the log.
const NoOutshotLabel = "NO OUTSHOT"

// SessionRecord is a finished standard quiz handed to persistence.
type SessionRecord struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	StartTime      time.Time      `json:"startTime"`
	EndTime        time.Time      `json:"endTime"`
	TotalQuestions int            `json:"totalQuestions"`
	CorrectAnswers int            `json:"correctAnswers"`
	Score          string         `json:"score"`
	Duration       time.Duration  `json:"duration"`
	Answers        []AnswerRecord `json:"answers"`
}

// RapidScore is a finished rapid-fire round.
type RapidScore struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Score             int       `json:"score"`
	QuestionsAnswered int       `json:"questionsAnswered"`
	CorrectAnswers    int       `json:"correctAnswers"`
	WrongAnswers      int       `json:"wrongAnswers"`
	BestStreak        int       `json:"bestStreak"`
	Timestamp         time.Time `json:"timestamp"`
}

// Accuracy is the rounded percentage of correct answers in the round.
func (r RapidScore) Accuracy() int {
	if r.QuestionsAnswered == 0 {
		return 0
	}
	return int(float64(r.CorrectAnswers)/float64(r.QuestionsAnswered)*100 + 0.5)
}

// UserStats aggregates a player's standard quiz history.
type UserStats struct {
	UserID            string     `json:"userId"`
	TotalGames        int        `json:"totalGames"`
	TotalCorrect      int        `json:"totalCorrect"`
	TotalQuestions    int        `json:"totalQuestions"`
	BestScore         string     `json:"bestScore"`
	AverageScore      string     `json:"averageScore"`
	CurrentStreak     int        `json:"currentStreak"`
	BestStreak        int        `json:"bestStreak"`
	Accuracy          int        `json:"accuracy"`
	BestTimeSeconds   int        `json:"bestTimeInSeconds"`
	LastPlayed        time.Time  `json:"lastPlayed"`
	DailyStreak       int        `json:"dailyStreak"`
	BestDailyStreak   int        `json:"bestDailyStreak"`
	LastDailyPlayDate string     `json:"lastDailyPlayDate,omitempty"`
	StreakExpiresAt   *time.Time `json:"streakExpiresAt,omitempty"`
}

// DefaultStats is the record of a player who has never finished a quiz.
func DefaultStats(userID string) UserStats {
	return UserStats{
		UserID:       userID,
		BestScore:    "0/0",
		AverageScore: "0.0/10",
	}
}

// LeaderboardEntry is a player's best ranked result. UpdatedAt is the last
// time the player finished a quiz, even one that did not beat the best.
type LeaderboardEntry struct {
	UserID          string    `json:"userId"`
	DisplayName     string    `json:"displayName"`
	CombinedScore   float64   `json:"combinedScore"`
	BestScore       string    `json:"bestScore"`
	BestTimeSeconds int       `json:"bestTimeInSeconds"`
	Accuracy        float64   `json:"accuracy"`
	TotalGames      int       `json:"totalGames"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// RankedEntry is a LeaderboardEntry with its position.
type RankedEntry struct {
	LeaderboardEntry
	Rank          int  `json:"rank"`
	IsCurrentUser bool `json:"isCurrentUser"`
}

// Leaderboard is a ranked page for one time period.
type Leaderboard struct {
	Period          string        `json:"period"`
	Players         []RankedEntry `json:"players"`
	CurrentUserRank int           `json:"currentUserRank"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// AnonymousName is shown for players without a display name.
const AnonymousName = "Anonymous Player"

// Player identifies who is playing. An empty ID is an anonymous player whose
// results are never persisted.
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Anonymous reports whether the player has no user id.
func (p Player) Anonymous() bool { return p.ID == "" }

// Name returns the display name or the anonymous placeholder.
func (p Player) Name() string {
	if p.DisplayName == "" {
		return AnonymousName
	}
	return p.DisplayName
}
