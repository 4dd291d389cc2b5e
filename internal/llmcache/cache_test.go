package llmcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	c, err := New(fmt.Sprintf("redis://%s/0", mr.Addr()), time.Minute)
	if err != nil {
		t.Fatalf("llmcache.New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSetGetRoundtrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"

	if _, ok := c.Get(ctx, fen, 1200); ok {
		t.Fatalf("unexpected hit on empty cache")
	}

	c.Set(ctx, fen, 1200, "a solid king's pawn opening")
	text, ok := c.Get(ctx, fen, 1200)
	if !ok || text != "a solid king's pawn opening" {
		t.Fatalf("Get = %q, %v", text, ok)
	}

	// Different difficulty is a different key.
	if _, ok := c.Get(ctx, fen, 2400); ok {
		t.Fatalf("difficulty should partition the cache")
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *Cache
	ctx := context.Background()
	c.Set(ctx, "fen", 1200, "text")
	if _, ok := c.Get(ctx, "fen", 1200); ok {
		t.Fatalf("nil cache must miss")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

func TestEmptyTextNotStored(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	c.Set(ctx, "fen", 1200, "   ")
	if _, ok := c.Get(ctx, "fen", 1200); ok {
		t.Fatalf("blank text should not be cached")
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New("http://localhost:6379", time.Minute); err == nil {
		t.Fatalf("expected scheme error")
	}
	if _, err := New("", time.Minute); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
