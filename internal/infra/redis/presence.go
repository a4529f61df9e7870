package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Presence tracks which players currently hold an open connection to a
// session, one Redis set per session. The TTL keeps abandoned sets from
// accumulating after the reaper has ended their session.
type Presence struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPresence(client *redis.Client, ttl time.Duration) *Presence {
	return &Presence{client: client, ttl: ttl}
}

func (p *Presence) Connected(ctx context.Context, sessionID, playerID string) {
	key := p.key(sessionID)
	pipe := p.client.Pipeline()
	pipe.SAdd(ctx, key, playerID)
	if p.ttl > 0 {
		pipe.Expire(ctx, key, p.ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func (p *Presence) Disconnected(ctx context.Context, sessionID, playerID string) {
	_ = p.client.SRem(ctx, p.key(sessionID), playerID).Err()
}

// Online returns the number of players holding an open connection.
func (p *Presence) Online(ctx context.Context, sessionID string) int {
	n, err := p.client.SCard(ctx, p.key(sessionID)).Result()
	if err != nil {
		return 0
	}
	return int(n)
}

func (p *Presence) key(sessionID string) string {
	return "session:" + sessionID + ":online"
}
