package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestPresenceTracksConnections(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	presence := NewPresence(client, time.Minute)
	ctx := context.Background()

	presence.Connected(ctx, "s1", "p1")
	presence.Connected(ctx, "s1", "p2")
	if n := presence.Online(ctx, "s1"); n != 2 {
		t.Fatalf("expected 2 online, got %d", n)
	}

	presence.Disconnected(ctx, "s1", "p1")
	if n := presence.Online(ctx, "s1"); n != 1 {
		t.Fatalf("expected 1 online, got %d", n)
	}

	// Reconnecting the same player is not double-counted.
	presence.Connected(ctx, "s1", "p2")
	if n := presence.Online(ctx, "s1"); n != 1 {
		t.Fatalf("expected set semantics, got %d", n)
	}
}
