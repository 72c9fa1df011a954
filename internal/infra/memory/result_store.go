package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"checkout-trainer/internal/domain"
	"checkout-trainer/internal/scoring"
)

// ResultStore keeps every persisted result in process memory. It implements
// the app session writer, stats, leaderboard, rapid score and best-time ports.
type ResultStore struct {
	mu          sync.RWMutex
	sessions    []domain.SessionRecord
	stats       map[string]domain.UserStats
	leaderboard map[string]domain.LeaderboardEntry
	order       []string
	rapid       []domain.RapidScore
	bestTimes   map[string]time.Duration
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		stats:       make(map[string]domain.UserStats),
		leaderboard: make(map[string]domain.LeaderboardEntry),
		bestTimes:   make(map[string]time.Duration),
	}
}

func (s *ResultStore) SaveSession(_ context.Context, record domain.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, record)
	return nil
}

// Sessions returns the saved quiz records for userID.
func (s *ResultStore) Sessions(userID string) []domain.SessionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.SessionRecord
	for _, r := range s.sessions {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

func (s *ResultStore) GetStats(_ context.Context, userID string) (domain.UserStats, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.stats[userID]
	return stats, ok, nil
}

func (s *ResultStore) SaveStats(_ context.Context, stats domain.UserStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[stats.UserID] = stats
	return nil
}

func (s *ResultStore) Submit(_ context.Context, entry domain.LeaderboardEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var current *domain.LeaderboardEntry
	if stored, ok := s.leaderboard[entry.UserID]; ok {
		current = &stored
	} else {
		s.order = append(s.order, entry.UserID)
	}
	merged, replaced := scoring.MergeEntry(entry, current)
	s.leaderboard[entry.UserID] = merged
	return replaced, nil
}

// List returns entries last played at or after since, in first-submission order.
func (s *ResultStore) List(_ context.Context, since time.Time) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LeaderboardEntry, 0, len(s.order))
	for _, id := range s.order {
		if e := s.leaderboard[id]; !e.UpdatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *ResultStore) HighScore(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	best := 0
	for _, r := range s.rapid {
		if r.UserID == userID && r.Score > best {
			best = r.Score
		}
	}
	return best, nil
}

func (s *ResultStore) SaveRapidScore(_ context.Context, score domain.RapidScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rapid = append(s.rapid, score)
	return nil
}

// TopRapidScores returns each player's best round, highest first.
func (s *ResultStore) TopRapidScores(_ context.Context, limit int) ([]domain.RapidScore, error) {
	s.mu.RLock()
	best := make(map[string]domain.RapidScore)
	var users []string
	for _, r := range s.rapid {
		cur, ok := best[r.UserID]
		if !ok {
			users = append(users, r.UserID)
		}
		if !ok || r.Score > cur.Score {
			best[r.UserID] = r
		}
	}
	s.mu.RUnlock()

	out := make([]domain.RapidScore, 0, len(users))
	for _, u := range users {
		out = append(out, best[u])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ResultStore) BestTime(_ context.Context, userID string) (time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bestTimes[userID], nil
}

// SetBestTime keeps the lower of the stored and the new time.
func (s *ResultStore) SetBestTime(_ context.Context, userID string, best time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.bestTimes[userID]; !ok || best < cur {
		s.bestTimes[userID] = best
	}
	return nil
}
