// Package llmcache caches model commentary in Redis so identical positions
// at the same difficulty do not trigger repeat completions. Game state is
// never stored here; entries are derived, expendable text.
package llmcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is nil-safe: a nil *Cache disables caching entirely.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(redisURL string, ttl time.Duration) (*Cache, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url required")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Cache{rdb: rdb, ttl: ttl}, nil
}

func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Get returns the cached text for the position, if present.
func (c *Cache) Get(ctx context.Context, fen string, difficulty int) (string, bool) {
	if c == nil || c.rdb == nil {
		return "", false
	}
	text, err := c.rdb.Get(ctx, key(fen, difficulty)).Result()
	if err != nil {
		return "", false
	}
	return text, text != ""
}

// Set stores text for the position. Best effort; errors are swallowed.
func (c *Cache) Set(ctx context.Context, fen string, difficulty int, text string) {
	if c == nil || c.rdb == nil || strings.TrimSpace(text) == "" {
		return
	}
	_ = c.rdb.Set(ctx, key(fen, difficulty), text, c.ttl).Err()
}

func key(fen string, difficulty int) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(fen) + ":" + strconv.Itoa(difficulty)))
	return "llmchess:analysis:" + hex.EncodeToString(sum[:])
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
