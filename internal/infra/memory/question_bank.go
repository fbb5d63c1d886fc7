package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-arena/internal/domain"
)

// QuestionLoader fetches the question pool for a filter from a backing store.
// An empty category means every category.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, category string, difficulty domain.Difficulty) ([]domain.Question, error)
}

// QuestionBank caches question pools with TTL to avoid repeated DB hits and
// draws a random selection for each new match.
type QuestionBank struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedPool
}

type cachedPool struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionBank(loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return NewQuestionBankWithSeed(loader, ttl, time.Now().UnixNano())
}

// NewQuestionBankWithSeed makes the draw order reproducible.
func NewQuestionBankWithSeed(loader QuestionLoader, ttl time.Duration, seed int64) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(seed)),
		cache:  make(map[string]cachedPool),
	}
}

// FetchQuestions returns count distinct valid questions in random order.
func (b *QuestionBank) FetchQuestions(ctx context.Context, category string, difficulty domain.Difficulty, count int) ([]domain.Question, error) {
	pool, err := b.pool(ctx, category, difficulty)
	if err != nil {
		return nil, err
	}
	if len(pool) < count {
		return nil, fmt.Errorf("%w: %d available for %q/%s, %d requested",
			domain.ErrInsufficientQuestions, len(pool), category, difficulty, count)
	}

	b.rndMu.Lock()
	perm := b.rnd.Perm(len(pool))
	b.rndMu.Unlock()

	out := make([]domain.Question, 0, count)
	for _, i := range perm[:count] {
		out = append(out, pool[i].Clone())
	}
	return out, nil
}

// pool returns the cached, validated and deduplicated questions for a filter.
func (b *QuestionBank) pool(ctx context.Context, category string, difficulty domain.Difficulty) ([]domain.Question, error) {
	key := category + "|" + string(difficulty)
	if pool, ok := b.cached(key); ok {
		return pool, nil
	}

	result, err, _ := b.sf.Do(key, func() (interface{}, error) {
		if pool, ok := b.cached(key); ok {
			return pool, nil
		}

		loaded, err := b.loader.LoadQuestions(ctx, category, difficulty)
		if err != nil {
			return nil, err
		}
		pool := usable(loaded)

		b.mu.Lock()
		b.cache[key] = cachedPool{
			questions: pool,
			expiresAt: b.clock().Add(b.ttlWithJitter()),
		}
		b.mu.Unlock()
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *QuestionBank) cached(key string) ([]domain.Question, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entry, ok := b.cache[key]
	if !ok || !entry.expiresAt.After(b.clock()) {
		return nil, false
	}
	return entry.questions, true
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

func usable(questions []domain.Question) []domain.Question {
	seen := make(map[string]struct{}, len(questions))
	out := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if q.Validate() != nil {
			continue
		}
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out
}

// StaticQuestionLoader is a simple loader backed by a slice (useful for tests/demos).
type StaticQuestionLoader struct {
	questions []domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, category string, difficulty domain.Difficulty) ([]domain.Question, error) {
	var out []domain.Question
	for _, q := range l.questions {
		if category != "" && q.Category != category {
			continue
		}
		if difficulty != "" && q.Difficulty != difficulty {
			continue
		}
		out = append(out, q.Clone())
	}
	return out, nil
}
