package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"checkout-trainer/internal/app"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Notes:
//   - Sessions still live in a local map; their tickers and subscribers are
//     bound to this process.
//   - Redis marks liveness per session with the owning user and mode, so other
//     instances or operators can see what is running.
//   - The marker's TTL restarts on every lookup, so it only lapses for a
//     session left idle longer than ttl. A lapsed marker is written again on
//     the next lookup.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.ActiveSession
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.ActiveSession),
	}
}

func (s *SessionStore) Put(session *app.ActiveSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	s.mark(session)
}

func (s *SessionStore) Get(id string) (*app.ActiveSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if ok {
		s.touch(session)
	}
	return session, ok
}

// mark writes the best-effort liveness marker.
func (s *SessionStore) mark(session *app.ActiveSession) {
	ctx := context.Background()
	key := s.key(session.ID())
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, "user", session.Player().ID, "mode", string(session.Mode()), "created", session.CreatedAt().Unix())
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func (s *SessionStore) touch(session *app.ActiveSession) {
	if s.ttl <= 0 {
		return
	}
	refreshed, err := s.client.Expire(context.Background(), s.key(session.ID()), s.ttl).Result()
	if err == nil && !refreshed {
		s.mark(session)
	}
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return
	}
	delete(s.sessions, id)
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

func (s *SessionStore) key(id string) string {
	return "checkout:session:" + id
}
