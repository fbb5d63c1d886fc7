package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-arena/internal/domain"
	"quiz-arena/internal/infra/memory"
)

// QuestionCache keeps question pools in Redis so every instance shares one
// copy, and falls back to a loader on cache miss.
// Pools are stored as: SET arena:questions:{category}:{difficulty} <json>
type QuestionCache struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// LoadQuestions implements memory.QuestionLoader.
func (c *QuestionCache) LoadQuestions(ctx context.Context, category string, difficulty domain.Difficulty) ([]domain.Question, error) {
	key := c.key(category, difficulty)
	if qs, ok := c.cached(ctx, key); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := c.cached(ctx, key); ok {
			return qs, nil
		}

		qs, err := c.loader.LoadQuestions(ctx, category, difficulty)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(qs)
		if err != nil {
			return nil, fmt.Errorf("encode questions: %w", err)
		}
		// best-effort fill; a failed write only costs a reload
		_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) cached(ctx context.Context, key string) ([]domain.Question, bool) {
	// redis.Nil and transport errors both count as a miss
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, false
	}
	return qs, true
}

// Invalidate drops every cached pool, e.g. after seeding new questions.
func (c *QuestionCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "arena:questions:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *QuestionCache) key(category string, difficulty domain.Difficulty) string {
	if category == "" {
		category = domain.AnyCategory
	}
	if difficulty == "" {
		difficulty = "any"
	}
	return "arena:questions:" + category + ":" + string(difficulty)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
