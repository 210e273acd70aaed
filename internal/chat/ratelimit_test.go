package chat

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRateLimiterAllow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	rl := NewRateLimiter(rdb, 2)
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	allowed, used, _, err := rl.Allow(context.Background(), 7, now)
	if err != nil {
		t.Fatalf("allow#1: %v", err)
	}
	if !allowed || used != 1 {
		t.Fatalf("expected first call allowed with used=1, got allowed=%v used=%d", allowed, used)
	}

	allowed, used, _, err = rl.Allow(context.Background(), 7, now)
	if err != nil {
		t.Fatalf("allow#2: %v", err)
	}
	if !allowed || used != 2 {
		t.Fatalf("expected second call allowed with used=2, got allowed=%v used=%d", allowed, used)
	}

	allowed, used, _, err = rl.Allow(context.Background(), 7, now)
	if err != nil {
		t.Fatalf("allow#3: %v", err)
	}
	if allowed || used != 3 {
		t.Fatalf("expected third call denied with used=3, got allowed=%v used=%d", allowed, used)
	}
}

func TestRateLimiterWindowRollover(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	rl := NewRateLimiter(rdb, 1)
	first := time.Date(2026, 9, 1, 10, 59, 0, 0, time.UTC)
	second := time.Date(2026, 9, 1, 11, 0, 1, 0, time.UTC)

	if allowed, _, _, err := rl.Allow(context.Background(), 7, first); err != nil || !allowed {
		t.Fatalf("expected first window send allowed, got allowed=%v err=%v", allowed, err)
	}
	if allowed, _, _, err := rl.Allow(context.Background(), 7, first); err != nil || allowed {
		t.Fatalf("expected first window second send denied, got allowed=%v err=%v", allowed, err)
	}
	// New hour bucket, fresh counter.
	if allowed, used, _, err := rl.Allow(context.Background(), 7, second); err != nil || !allowed || used != 1 {
		t.Fatalf("expected fresh window allowed with used=1, got allowed=%v used=%d err=%v", allowed, used, err)
	}
}

func TestRateLimiterPerUserIsolation(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	rl := NewRateLimiter(rdb, 1)
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	if allowed, _, _, err := rl.Allow(context.Background(), 1, now); err != nil || !allowed {
		t.Fatalf("user 1 first send should be allowed, err=%v", err)
	}
	if allowed, _, _, err := rl.Allow(context.Background(), 2, now); err != nil || !allowed {
		t.Fatalf("user 2 must have an independent counter, err=%v", err)
	}
}
