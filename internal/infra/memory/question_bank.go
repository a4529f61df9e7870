package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizlive-service/internal/domain"
)

// BankLoader fetches question sequences from a backing store.
type BankLoader interface {
	BySet(ctx context.Context, setID string) ([]domain.Question, error)
	BySession(ctx context.Context, sessionID string) ([]domain.Question, error)
}

// StaticBank serves question sets from in-memory maps (tests/demos).
type StaticBank struct {
	sets      map[string][]domain.Question
	bySession map[string][]domain.Question
}

func NewStaticBank(sets map[string][]domain.Question, bySession map[string][]domain.Question) *StaticBank {
	if sets == nil {
		sets = map[string][]domain.Question{}
	}
	if bySession == nil {
		bySession = map[string][]domain.Question{}
	}
	return &StaticBank{sets: sets, bySession: bySession}
}

func (b *StaticBank) BySet(_ context.Context, setID string) ([]domain.Question, error) {
	return b.sets[setID], nil
}

func (b *StaticBank) BySession(_ context.Context, sessionID string) ([]domain.Question, error) {
	return b.bySession[sessionID], nil
}

// CachedBank wraps a loader with a TTL cache to avoid repeated store hits
// while a lobby fills up. Concurrent misses for the same key collapse into a
// single load.
type CachedBank struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewCachedBank(loader BankLoader, ttl time.Duration) *CachedBank {
	return &CachedBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (b *CachedBank) BySet(ctx context.Context, setID string) ([]domain.Question, error) {
	return b.cached(ctx, "set:"+setID, func() ([]domain.Question, error) {
		return b.loader.BySet(ctx, setID)
	})
}

func (b *CachedBank) BySession(ctx context.Context, sessionID string) ([]domain.Question, error) {
	return b.cached(ctx, "session:"+sessionID, func() ([]domain.Question, error) {
		return b.loader.BySession(ctx, sessionID)
	})
}

func (b *CachedBank) cached(_ context.Context, key string, load func() ([]domain.Question, error)) ([]domain.Question, error) {
	now := b.clock()

	b.mu.RLock()
	if entry, ok := b.cache[key]; ok && entry.expiresAt.After(now) {
		b.mu.RUnlock()
		return entry.questions, nil
	}
	b.mu.RUnlock()

	result, err, _ := b.sf.Do(key, func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		if entry, ok := b.cache[key]; ok && entry.expiresAt.After(now) {
			b.mu.RUnlock()
			return entry.questions, nil
		}
		b.mu.RUnlock()

		questions, err := load()
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.cache[key] = cachedSet{questions: questions, expiresAt: now.Add(b.ttlWithJitter())}
		b.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *CachedBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
