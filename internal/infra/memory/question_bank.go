package memory

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"checkout-trainer/internal/darts"
	"checkout-trainer/internal/domain"
)

// QuestionLoader fetches the question set from a backing store (e.g., Postgres, a YAML file).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// CachedQuestionBank caches the question set with TTL to avoid repeated store hits.
type CachedQuestionBank struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu        sync.RWMutex
	rnd       *rand.Rand
	questions []domain.Question
	expiresAt time.Time
}

func NewCachedQuestionBank(loader QuestionLoader, ttl time.Duration) *CachedQuestionBank {
	return &CachedQuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// FetchQuestions returns a copy of the cached set, loading it on a miss.
func (b *CachedQuestionBank) FetchQuestions(ctx context.Context) ([]domain.Question, error) {
	if qs, ok := b.cached(b.clock()); ok {
		return qs, nil
	}

	result, err, _ := b.sf.Do("questions", func() (interface{}, error) {
		now := b.clock()
		if qs, ok := b.cached(now); ok {
			return qs, nil
		}

		qs, err := b.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.questions = qs
		b.expiresAt = now.Add(b.ttlWithJitter())
		b.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneQuestions(result.([]domain.Question)), nil
}

func (b *CachedQuestionBank) cached(now time.Time) ([]domain.Question, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.questions == nil || !b.expiresAt.After(now) {
		return nil, false
	}
	return cloneQuestions(b.questions), true
}

func (b *CachedQuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

func cloneQuestions(in []domain.Question) []domain.Question {
	out := make([]domain.Question, len(in))
	for i, q := range in {
		q.Values = append([]int(nil), q.Values...)
		out[i] = q
	}
	return out
}

// StaticQuestionLoader is a loader backed by a fixed slice (useful for tests/demos).
type StaticQuestionLoader struct {
	questions []domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(context.Context) ([]domain.Question, error) {
	return cloneQuestions(l.questions), nil
}

// FileQuestionLoader reads questions from a YAML file on every load.
type FileQuestionLoader struct {
	path string
}

func NewFileQuestionLoader(path string) *FileQuestionLoader {
	return &FileQuestionLoader{path: path}
}

type questionFile struct {
	Questions []domain.Question `yaml:"questions"`
}

func (l *FileQuestionLoader) LoadQuestions(context.Context) ([]domain.Question, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	var file questionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse questions %s: %w", l.path, err)
	}
	return file.Questions, nil
}

// SampleQuestions builds a question per score from 2 to 170: the recommended
// finish where one exists, otherwise a no-outshot question.
func SampleQuestions() []domain.Question {
	questions := make([]domain.Question, 0, darts.MaxCheckout-darts.MinCheckout+1)
	for score := darts.MinCheckout; score <= darts.MaxCheckout; score++ {
		q := domain.Question{ID: score, TargetScore: score}
		if throws, ok := darts.Recommended(score); ok {
			q.DartCount = len(throws)
			q.Values = darts.Values(throws)
		} else {
			q.NoOutshot = true
		}
		questions = append(questions, q)
	}
	return questions
}
