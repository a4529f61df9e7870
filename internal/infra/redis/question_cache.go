package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizlive-service/internal/domain"
	"quizlive-service/internal/infra/memory"
)

// BankCache caches resolved question sequences in Redis and falls back to a
// loader on cache miss. Sequences are stored as one JSON blob per key:
//
//	SET qbank:set:{setID}     [...questions]
//	SET qbank:session:{id}    [...questions]
type BankCache struct {
	client *redis.Client
	loader memory.BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewBankCache(client *redis.Client, loader memory.BankLoader, ttl time.Duration) *BankCache {
	return &BankCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *BankCache) BySet(ctx context.Context, setID string) ([]domain.Question, error) {
	return c.cached(ctx, "qbank:set:"+setID, func() ([]domain.Question, error) {
		return c.loader.BySet(ctx, setID)
	})
}

func (c *BankCache) BySession(ctx context.Context, sessionID string) ([]domain.Question, error) {
	return c.cached(ctx, "qbank:session:"+sessionID, func() ([]domain.Question, error) {
		return c.loader.BySession(ctx, sessionID)
	})
}

func (c *BankCache) cached(ctx context.Context, key string, load func() ([]domain.Question, error)) ([]domain.Question, error) {
	if questions, ok := c.lookup(ctx, key); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if questions, ok := c.lookup(ctx, key); ok {
			return questions, nil
		}

		questions, err := load()
		if err != nil {
			return nil, err
		}
		// Empty results are not cached: the fallback chain probes several
		// keys that legitimately miss, and a set may appear later.
		if len(questions) > 0 {
			if raw, err := json.Marshal(questions); err == nil {
				_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
			}
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *BankCache) lookup(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, false
	}
	return questions, true
}

func (c *BankCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
