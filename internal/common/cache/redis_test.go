package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("NewRedisCacheWithClient: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestGetSetDel(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(t)
	ctx := context.Background()

	if got, err := c.Get(ctx, "absent"); err != nil || got != "" {
		t.Errorf("Get absent = %q, %v", got, err)
	}

	if err := c.Set(ctx, "42:j1", `{"jobId":"j1"}`, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := c.Get(ctx, "42:j1"); got != `{"jobId":"j1"}` {
		t.Errorf("Get = %q", got)
	}

	n, err := c.Del(ctx, "42:j1", "absent")
	if err != nil || n != 1 {
		t.Errorf("Del = %d, %v", n, err)
	}
}

func TestTTLSentinels(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(t)
	ctx := context.Background()

	if ttl, _ := c.TTL(ctx, "absent"); ttl != TTLKeyMissing {
		t.Errorf("TTL missing key = %v", ttl)
	}

	_ = c.Set(ctx, "forever", "v", 0)
	if ttl, _ := c.TTL(ctx, "forever"); ttl != TTLNoExpiry {
		t.Errorf("TTL persistent key = %v", ttl)
	}

	_ = c.Set(ctx, "bounded", "v", time.Hour)
	if ttl, _ := c.TTL(ctx, "bounded"); ttl <= 0 || ttl > time.Hour {
		t.Errorf("TTL bounded key = %v", ttl)
	}
}

func TestScanPattern(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "42:j1", "a", 0)
	_ = c.Set(ctx, "99:j1", "b", 0)
	_ = c.Set(ctx, "42:j2", "c", 0)

	keys, err := c.Scan(ctx, "*:j1")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Scan *:j1 = %v", keys)
	}

	keys, err = c.Scan(ctx, "42:*")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Scan 42:* = %v", keys)
	}
}
