package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"checkout-trainer/internal/domain"
	"checkout-trainer/internal/scoring"
)

// Key layout:
//
//	ZSET checkout:leaderboard          {userID} -> combined score
//	HASH checkout:leaderboard:entries  {userID} -> entry JSON
//	ZSET checkout:rapid:best           {userID} -> best rapid score
//	HASH checkout:rapid:scores         {userID} -> best rapid result JSON
//	HASH checkout:besttime             {userID} -> milliseconds
//	STR  checkout:stats:{userID}       stats JSON
//	LIST checkout:sessions:{userID}    quiz record JSON, newest first
const (
	leaderboardKey        = "checkout:leaderboard"
	leaderboardEntriesKey = "checkout:leaderboard:entries"
	rapidBestKey          = "checkout:rapid:best"
	rapidScoresKey        = "checkout:rapid:scores"
	bestTimeKey           = "checkout:besttime"

	maxTxRetries = 3
)

// ResultStore keeps results in Redis. It implements the app session writer,
// stats, leaderboard, rapid score and best-time ports.
type ResultStore struct {
	client *redis.Client
	// sessionHistory caps the per-user list of quiz records; 0 keeps all.
	sessionHistory int64
}

func NewResultStore(client *redis.Client, sessionHistory int64) *ResultStore {
	return &ResultStore{client: client, sessionHistory: sessionHistory}
}

func (s *ResultStore) SaveSession(ctx context.Context, record domain.SessionRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	key := sessionsKey(record.UserID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	if s.sessionHistory > 0 {
		pipe.LTrim(ctx, key, 0, s.sessionHistory-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Sessions returns the stored quiz records for userID, newest first.
func (s *ResultStore) Sessions(ctx context.Context, userID string) ([]domain.SessionRecord, error) {
	raw, err := s.client.LRange(ctx, sessionsKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]domain.SessionRecord, 0, len(raw))
	for _, item := range raw {
		var record domain.SessionRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *ResultStore) GetStats(ctx context.Context, userID string) (domain.UserStats, bool, error) {
	data, err := s.client.Get(ctx, statsKey(userID)).Bytes()
	if isNil(err) {
		return domain.UserStats{}, false, nil
	}
	if err != nil {
		return domain.UserStats{}, false, fmt.Errorf("get stats: %w", err)
	}
	var stats domain.UserStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return domain.UserStats{}, false, fmt.Errorf("decode stats: %w", err)
	}
	return stats, true, nil
}

func (s *ResultStore) SaveStats(ctx context.Context, stats domain.UserStats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	if err := s.client.Set(ctx, statsKey(stats.UserID), payload, 0).Err(); err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}

// Submit merges entry into the player's stored one with scoring.MergeEntry.
// The read and write run in a WATCH transaction and are retried on conflict.
func (s *ResultStore) Submit(ctx context.Context, entry domain.LeaderboardEntry) (bool, error) {
	var replaced bool
	txf := func(tx *redis.Tx) error {
		replaced = false
		var current *domain.LeaderboardEntry
		data, err := tx.HGet(ctx, leaderboardEntriesKey, entry.UserID).Bytes()
		if err != nil && !isNil(err) {
			return err
		}
		if err == nil {
			var stored domain.LeaderboardEntry
			if err := json.Unmarshal(data, &stored); err != nil {
				return fmt.Errorf("decode entry: %w", err)
			}
			current = &stored
		}
		merged, better := scoring.MergeEntry(entry, current)
		payload, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("encode entry: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, leaderboardEntriesKey, entry.UserID, payload)
			pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: merged.CombinedScore, Member: entry.UserID})
			return nil
		})
		if err == nil {
			replaced = better
		}
		return err
	}

	var err error
	for i := 0; i < maxTxRetries; i++ {
		err = s.client.Watch(ctx, txf, leaderboardEntriesKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return false, fmt.Errorf("submit leaderboard entry: %w", err)
	}
	return replaced, nil
}

// List returns entries last played at or after since, highest combined score first.
func (s *ResultStore) List(ctx context.Context, since time.Time) ([]domain.LeaderboardEntry, error) {
	ids, err := s.client.ZRevRange(ctx, leaderboardKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	raw, err := s.client.HMGet(ctx, leaderboardEntriesKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load leaderboard entries: %w", err)
	}
	out := make([]domain.LeaderboardEntry, 0, len(raw))
	for _, item := range raw {
		str, ok := item.(string)
		if !ok {
			continue
		}
		var entry domain.LeaderboardEntry
		if err := json.Unmarshal([]byte(str), &entry); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}
		if entry.UpdatedAt.Before(since) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *ResultStore) HighScore(ctx context.Context, userID string) (int, error) {
	score, err := s.client.ZScore(ctx, rapidBestKey, userID).Result()
	if isNil(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get high score: %w", err)
	}
	return int(score), nil
}

// SaveRapidScore records score as the player's best when it beats the stored one.
func (s *ResultStore) SaveRapidScore(ctx context.Context, score domain.RapidScore) error {
	payload, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("encode rapid score: %w", err)
	}
	txf := func(tx *redis.Tx) error {
		current, err := tx.ZScore(ctx, rapidBestKey, score.UserID).Result()
		if err != nil && !isNil(err) {
			return err
		}
		if err == nil && int(current) >= score.Score {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZAdd(ctx, rapidBestKey, redis.Z{Score: float64(score.Score), Member: score.UserID})
			pipe.HSet(ctx, rapidScoresKey, score.UserID, payload)
			return nil
		})
		return err
	}
	for i := 0; i < maxTxRetries; i++ {
		err = s.client.Watch(ctx, txf, rapidBestKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("save rapid score: %w", err)
	}
	return nil
}

func (s *ResultStore) TopRapidScores(ctx context.Context, limit int) ([]domain.RapidScore, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, rapidBestKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list rapid scores: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	raw, err := s.client.HMGet(ctx, rapidScoresKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load rapid scores: %w", err)
	}
	out := make([]domain.RapidScore, 0, len(raw))
	for _, item := range raw {
		str, ok := item.(string)
		if !ok {
			continue
		}
		var score domain.RapidScore
		if err := json.Unmarshal([]byte(str), &score); err != nil {
			return nil, fmt.Errorf("decode rapid score: %w", err)
		}
		out = append(out, score)
	}
	return out, nil
}

func (s *ResultStore) BestTime(ctx context.Context, userID string) (time.Duration, error) {
	raw, err := s.client.HGet(ctx, bestTimeKey, userID).Result()
	if isNil(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get best time: %w", err)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse best time %q: %w", raw, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// SetBestTime keeps the lower of the stored and the new time.
func (s *ResultStore) SetBestTime(ctx context.Context, userID string, best time.Duration) error {
	current, err := s.BestTime(ctx, userID)
	if err != nil {
		return err
	}
	if current > 0 && current <= best {
		return nil
	}
	if err := s.client.HSet(ctx, bestTimeKey, userID, best.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("set best time: %w", err)
	}
	return nil
}

func statsKey(userID string) string {
	return "checkout:stats:" + userID
}

func sessionsKey(userID string) string {
	return "checkout:sessions:" + userID
}
