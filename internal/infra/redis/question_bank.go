package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"checkout-trainer/internal/domain"
	"checkout-trainer/internal/infra/memory"
)

const questionsKey = "checkout:questions"

// QuestionBank caches the question set in Redis as a single JSON blob and
// falls back to a loader on cache miss.
//
//	SET checkout:questions <json> EX <ttl>
type QuestionBank struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) FetchQuestions(ctx context.Context) ([]domain.Question, error) {
	if qs, ok := b.cached(ctx); ok {
		return qs, nil
	}

	result, err, _ := b.sf.Do(questionsKey, func() (interface{}, error) {
		// Re-check cache in case another instance filled it.
		if qs, ok := b.cached(ctx); ok {
			return qs, nil
		}

		qs, err := b.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(qs)
		if err != nil {
			return nil, fmt.Errorf("encode questions: %w", err)
		}
		if ttl := b.ttlWithJitter(); ttl > 0 {
			_ = b.client.Set(ctx, questionsKey, payload, ttl).Err()
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached set so the next fetch reloads it.
func (b *QuestionBank) Invalidate(ctx context.Context) error {
	return b.client.Del(ctx, questionsKey).Err()
}

func (b *QuestionBank) cached(ctx context.Context) ([]domain.Question, bool) {
	data, err := b.client.Get(ctx, questionsKey).Bytes()
	if err != nil {
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(data, &qs); err != nil || len(qs) == 0 {
		return nil, false
	}
	return qs, true
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

func isNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
