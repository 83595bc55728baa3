package memory

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestSetGetAndTTL(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: time.Unix(1000, 0)}
	p := New(WithNow(clk.Now))

	if ok, err := p.Set(ctx, "k", []byte("v"), 1, time.Minute); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	if b, ok, _ := p.Get(ctx, "k"); !ok || string(b) != "v" {
		t.Fatalf("Get: ok=%v b=%q", ok, b)
	}
	clk.Advance(time.Minute)
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after TTL")
	}

	if _, err := p.Set(ctx, "forever", []byte("x"), 1, 0); err != nil {
		t.Fatal(err)
	}
	clk.Advance(24 * time.Hour)
	if _, ok, _ := p.Get(ctx, "forever"); !ok {
		t.Fatalf("ttl=0 must not expire")
	}
}

func TestDeleteMatched(t *testing.T) {
	ctx := context.Background()
	p := New()
	for _, k := range []string{"app:views/1", "app:views/2", "app:other", "tag:views"} {
		_, _ = p.Set(ctx, k, []byte("x"), 1, 0)
	}
	n, err := p.DeleteMatched(ctx, "app:views/*")
	if err != nil || n != 2 {
		t.Fatalf("DeleteMatched: n=%d err=%v", n, err)
	}
	if p.Len() != 2 {
		t.Fatalf("expected 2 keys left, got %v", p.Keys())
	}
}

func TestIncrBy(t *testing.T) {
	ctx := context.Background()
	p := New()

	if v, err := p.IncrBy(ctx, "c", 5); err != nil || v != 5 {
		t.Fatalf("IncrBy missing: v=%d err=%v", v, err)
	}
	if v, err := p.IncrBy(ctx, "c", -2); err != nil || v != 3 {
		t.Fatalf("IncrBy: v=%d err=%v", v, err)
	}
	_, _ = p.Set(ctx, "s", []byte("abc"), 1, 0)
	if _, err := p.IncrBy(ctx, "s", 1); err == nil {
		t.Fatalf("expected error incrementing a non-integer")
	}
}

func TestCleanupAndClear(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: time.Unix(1000, 0)}
	p := New(WithNow(clk.Now))
	_, _ = p.Set(ctx, "short", []byte("x"), 1, time.Second)
	_, _ = p.Set(ctx, "long", []byte("x"), 1, time.Hour)

	clk.Advance(2 * time.Second)
	if err := p.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Len() != 1 {
		t.Fatalf("Cleanup: expected 1 key, got %v", p.Keys())
	}
	if err := p.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Len() != 0 {
		t.Fatalf("Clear: expected empty, got %v", p.Keys())
	}
}
