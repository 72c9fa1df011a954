package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"checkout-trainer/internal/domain"
	"checkout-trainer/internal/scoring"
)

// Store persists training results with bun. It implements the app session
// writer, stats, leaderboard, rapid score and best-time ports.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

type questionRow struct {
	bun.BaseModel `bun:"table:checkout_questions,alias:q"`

	ID          int   `bun:"id,pk"`
	TargetScore int   `bun:"target_score"`
	DartCount   int   `bun:"dart_count"`
	Values      []int `bun:"dart_values,type:jsonb"`
	NoOutshot   bool  `bun:"no_outshot"`
}

type sessionRow struct {
	bun.BaseModel `bun:"table:quiz_sessions,alias:qs"`

	ID             string                `bun:"id,pk"`
	UserID         string                `bun:"user_id"`
	StartTime      time.Time             `bun:"start_time"`
	EndTime        time.Time             `bun:"end_time"`
	TotalQuestions int                   `bun:"total_questions"`
	CorrectAnswers int                   `bun:"correct_answers"`
	Score          string                `bun:"score"`
	DurationMS     int64                 `bun:"duration_ms"`
	Answers        []domain.AnswerRecord `bun:"answers,type:jsonb"`
}

type statsRow struct {
	bun.BaseModel `bun:"table:user_stats,alias:us"`

	UserID            string     `bun:"user_id,pk"`
	TotalGames        int        `bun:"total_games"`
	TotalCorrect      int        `bun:"total_correct"`
	TotalQuestions    int        `bun:"total_questions"`
	BestScore         string     `bun:"best_score"`
	AverageScore      string     `bun:"average_score"`
	CurrentStreak     int        `bun:"current_streak"`
	BestStreak        int        `bun:"best_streak"`
	Accuracy          int        `bun:"accuracy"`
	BestTimeSeconds   int        `bun:"best_time_seconds"`
	LastPlayed        time.Time  `bun:"last_played"`
	DailyStreak       int        `bun:"daily_streak"`
	BestDailyStreak   int        `bun:"best_daily_streak"`
	LastDailyPlayDate string     `bun:"last_daily_play_date"`
	StreakExpiresAt   *time.Time `bun:"streak_expires_at"`
}

var statsColumns = []string{
	"total_games", "total_correct", "total_questions", "best_score", "average_score",
	"current_streak", "best_streak", "accuracy", "best_time_seconds", "last_played",
	"daily_streak", "best_daily_streak", "last_daily_play_date", "streak_expires_at",
}

type leaderboardRow struct {
	bun.BaseModel `bun:"table:leaderboard,alias:lb"`

	UserID          string    `bun:"user_id,pk"`
	DisplayName     string    `bun:"display_name"`
	CombinedScore   float64   `bun:"combined_score"`
	BestScore       string    `bun:"best_score"`
	BestTimeSeconds int       `bun:"best_time_seconds"`
	Accuracy        float64   `bun:"accuracy"`
	TotalGames      int       `bun:"total_games"`
	UpdatedAt       time.Time `bun:"updated_at"`
}

var leaderboardColumns = []string{
	"display_name", "combined_score", "best_score", "best_time_seconds",
	"accuracy", "total_games", "updated_at",
}

type rapidScoreRow struct {
	bun.BaseModel `bun:"table:rapid_scores,alias:rs"`

	ID                string    `bun:"id,pk"`
	UserID            string    `bun:"user_id"`
	Score             int       `bun:"score"`
	QuestionsAnswered int       `bun:"questions_answered"`
	CorrectAnswers    int       `bun:"correct_answers"`
	WrongAnswers      int       `bun:"wrong_answers"`
	BestStreak        int       `bun:"best_streak"`
	CreatedAt         time.Time `bun:"created_at"`
}

type bestTimeRow struct {
	bun.BaseModel `bun:"table:best_times,alias:bt"`

	UserID    string    `bun:"user_id,pk"`
	BestMS    int64     `bun:"best_ms"`
	UpdatedAt time.Time `bun:"updated_at"`
}

// SeedQuestions upserts questions into checkout_questions.
func (s *Store) SeedQuestions(ctx context.Context, questions []domain.Question) error {
	if len(questions) == 0 {
		return nil
	}
	rows := make([]questionRow, len(questions))
	for i, q := range questions {
		values := q.Values
		if values == nil {
			values = []int{}
		}
		rows[i] = questionRow{ID: q.ID, TargetScore: q.TargetScore, DartCount: q.DartCount, Values: values, NoOutshot: q.NoOutshot}
	}
	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("target_score = EXCLUDED.target_score").
		Set("dart_count = EXCLUDED.dart_count").
		Set("dart_values = EXCLUDED.dart_values").
		Set("no_outshot = EXCLUDED.no_outshot").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("seed questions: %w", err)
	}
	return nil
}

func (s *Store) SaveSession(ctx context.Context, record domain.SessionRecord) error {
	row := sessionRow{
		ID:             record.ID,
		UserID:         record.UserID,
		StartTime:      record.StartTime,
		EndTime:        record.EndTime,
		TotalQuestions: record.TotalQuestions,
		CorrectAnswers: record.CorrectAnswers,
		Score:          record.Score,
		DurationMS:     record.Duration.Milliseconds(),
		Answers:        record.Answers,
	}
	if row.Answers == nil {
		row.Answers = []domain.AnswerRecord{}
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Sessions returns userID's quiz records, newest first.
func (s *Store) Sessions(ctx context.Context, userID string, limit int) ([]domain.SessionRecord, error) {
	var rows []sessionRow
	q := s.db.NewSelect().Model(&rows).Where("user_id = ?", userID).Order("end_time DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]domain.SessionRecord, len(rows))
	for i, r := range rows {
		out[i] = domain.SessionRecord{
			ID:             r.ID,
			UserID:         r.UserID,
			StartTime:      r.StartTime,
			EndTime:        r.EndTime,
			TotalQuestions: r.TotalQuestions,
			CorrectAnswers: r.CorrectAnswers,
			Score:          r.Score,
			Duration:       time.Duration(r.DurationMS) * time.Millisecond,
			Answers:        r.Answers,
		}
	}
	return out, nil
}

func (s *Store) GetStats(ctx context.Context, userID string) (domain.UserStats, bool, error) {
	var row statsRow
	err := s.db.NewSelect().Model(&row).Where("user_id = ?", userID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserStats{}, false, nil
	}
	if err != nil {
		return domain.UserStats{}, false, fmt.Errorf("get stats: %w", err)
	}
	return statsFromRow(row), true, nil
}

func (s *Store) SaveStats(ctx context.Context, stats domain.UserStats) error {
	row := statsToRow(stats)
	q := s.db.NewInsert().Model(&row).On("CONFLICT (user_id) DO UPDATE")
	for _, col := range statsColumns {
		q = q.Set(col + " = EXCLUDED." + col)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}

// Submit merges entry into the stored row with scoring.MergeEntry. The row
// is locked for the read so concurrent submits cannot lose a best score.
func (s *Store) Submit(ctx context.Context, entry domain.LeaderboardEntry) (bool, error) {
	var replaced bool
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var (
			row     leaderboardRow
			current *domain.LeaderboardEntry
		)
		err := tx.NewSelect().Model(&row).Where("user_id = ?", entry.UserID).For("UPDATE").Limit(1).Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return err
		default:
			stored := leaderboardFromRow(row)
			current = &stored
		}

		merged, better := scoring.MergeEntry(entry, current)
		out := leaderboardToRow(merged)
		q := tx.NewInsert().Model(&out).On("CONFLICT (user_id) DO UPDATE")
		for _, col := range leaderboardColumns {
			q = q.Set(col + " = EXCLUDED." + col)
		}
		if _, err := q.Exec(ctx); err != nil {
			return err
		}
		replaced = better
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("submit leaderboard entry: %w", err)
	}
	return replaced, nil
}

func (s *Store) List(ctx context.Context, since time.Time) ([]domain.LeaderboardEntry, error) {
	var rows []leaderboardRow
	q := s.db.NewSelect().Model(&rows).Order("combined_score DESC")
	if !since.IsZero() {
		q = q.Where("updated_at >= ?", since)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}
	out := make([]domain.LeaderboardEntry, len(rows))
	for i, r := range rows {
		out[i] = leaderboardFromRow(r)
	}
	return out, nil
}

func (s *Store) HighScore(ctx context.Context, userID string) (int, error) {
	var best int
	err := s.db.NewSelect().
		Model((*rapidScoreRow)(nil)).
		ColumnExpr("COALESCE(MAX(score), 0)").
		Where("user_id = ?", userID).
		Scan(ctx, &best)
	if err != nil {
		return 0, fmt.Errorf("get high score: %w", err)
	}
	return best, nil
}

func (s *Store) SaveRapidScore(ctx context.Context, score domain.RapidScore) error {
	row := rapidScoreRow{
		ID:                score.ID,
		UserID:            score.UserID,
		Score:             score.Score,
		QuestionsAnswered: score.QuestionsAnswered,
		CorrectAnswers:    score.CorrectAnswers,
		WrongAnswers:      score.WrongAnswers,
		BestStreak:        score.BestStreak,
		CreatedAt:         score.Timestamp,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("save rapid score: %w", err)
	}
	return nil
}

// TopRapidScores returns each player's best round, highest first.
func (s *Store) TopRapidScores(ctx context.Context, limit int) ([]domain.RapidScore, error) {
	best := s.db.NewSelect().
		Model((*rapidScoreRow)(nil)).
		DistinctOn("user_id").
		OrderExpr("user_id, score DESC, created_at ASC")

	var rows []rapidScoreRow
	q := s.db.NewSelect().
		With("best", best).
		Model(&rows).
		ModelTableExpr("best AS rs").
		OrderExpr("rs.score DESC, rs.created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list rapid scores: %w", err)
	}
	out := make([]domain.RapidScore, len(rows))
	for i, r := range rows {
		out[i] = domain.RapidScore{
			ID:                r.ID,
			UserID:            r.UserID,
			Score:             r.Score,
			QuestionsAnswered: r.QuestionsAnswered,
			CorrectAnswers:    r.CorrectAnswers,
			WrongAnswers:      r.WrongAnswers,
			BestStreak:        r.BestStreak,
			Timestamp:         r.CreatedAt,
		}
	}
	return out, nil
}

func (s *Store) BestTime(ctx context.Context, userID string) (time.Duration, error) {
	var row bestTimeRow
	err := s.db.NewSelect().Model(&row).Where("user_id = ?", userID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get best time: %w", err)
	}
	return time.Duration(row.BestMS) * time.Millisecond, nil
}

// SetBestTime upserts best, keeping the stored time when it is already lower.
func (s *Store) SetBestTime(ctx context.Context, userID string, best time.Duration) error {
	row := bestTimeRow{UserID: userID, BestMS: best.Milliseconds(), UpdatedAt: time.Now().UTC()}
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("best_ms = EXCLUDED.best_ms").
		Set("updated_at = EXCLUDED.updated_at").
		Where("bt.best_ms > EXCLUDED.best_ms").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set best time: %w", err)
	}
	return nil
}

func statsToRow(s domain.UserStats) statsRow {
	return statsRow{
		UserID:            s.UserID,
		TotalGames:        s.TotalGames,
		TotalCorrect:      s.TotalCorrect,
		TotalQuestions:    s.TotalQuestions,
		BestScore:         s.BestScore,
		AverageScore:      s.AverageScore,
		CurrentStreak:     s.CurrentStreak,
		BestStreak:        s.BestStreak,
		Accuracy:          s.Accuracy,
		BestTimeSeconds:   s.BestTimeSeconds,
		LastPlayed:        s.LastPlayed,
		DailyStreak:       s.DailyStreak,
		BestDailyStreak:   s.BestDailyStreak,
		LastDailyPlayDate: s.LastDailyPlayDate,
		StreakExpiresAt:   s.StreakExpiresAt,
	}
}

func statsFromRow(r statsRow) domain.UserStats {
	return domain.UserStats{
		UserID:            r.UserID,
		TotalGames:        r.TotalGames,
		TotalCorrect:      r.TotalCorrect,
		TotalQuestions:    r.TotalQuestions,
		BestScore:         r.BestScore,
		AverageScore:      r.AverageScore,
		CurrentStreak:     r.CurrentStreak,
		BestStreak:        r.BestStreak,
		Accuracy:          r.Accuracy,
		BestTimeSeconds:   r.BestTimeSeconds,
		LastPlayed:        r.LastPlayed,
		DailyStreak:       r.DailyStreak,
		BestDailyStreak:   r.BestDailyStreak,
		LastDailyPlayDate: r.LastDailyPlayDate,
		StreakExpiresAt:   r.StreakExpiresAt,
	}
}

func leaderboardToRow(e domain.LeaderboardEntry) leaderboardRow {
	return leaderboardRow{
		UserID:          e.UserID,
		DisplayName:     e.DisplayName,
		CombinedScore:   e.CombinedScore,
		BestScore:       e.BestScore,
		BestTimeSeconds: e.BestTimeSeconds,
		Accuracy:        e.Accuracy,
		TotalGames:      e.TotalGames,
		UpdatedAt:       e.UpdatedAt,
	}
}

func leaderboardFromRow(r leaderboardRow) domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		UserID:          r.UserID,
		DisplayName:     r.DisplayName,
		CombinedScore:   r.CombinedScore,
		BestScore:       r.BestScore,
		BestTimeSeconds: r.BestTimeSeconds,
		Accuracy:        r.Accuracy,
		TotalGames:      r.TotalGames,
		UpdatedAt:       r.UpdatedAt,
	}
}
