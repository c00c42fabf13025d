package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akatsuki-games/liveroom/internal/models"
)

// DefaultTokenTTL is how long a resolved token stays cached before the next
// lookup goes back to the database.
const DefaultTokenTTL = 5 * time.Minute

// ConnectRedis builds a Redis client from environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis(ctx context.Context) (*redis.Client, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// TokenCache is a lookaside cache for token -> user resolution. Entries are
// invalidated whenever the user row changes, so stale reads are bounded by
// explicit drops rather than a short TTL alone.
type TokenCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTokenCache(rdb *redis.Client, ttl time.Duration) *TokenCache {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenCache{rdb: rdb, ttl: ttl}
}

func tokenKey(token string) string {
	return "liveroom:token:" + token
}

// Get returns the cached user for the token, or ok=false on a miss or any
// Redis error.
func (c *TokenCache) Get(ctx context.Context, token string) (*models.User, bool) {
	data, err := c.rdb.Get(ctx, tokenKey(token)).Bytes()
	if err != nil {
		return nil, false
	}
	var u models.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, false
	}
	u.Token = token
	return &u, true
}

// Set stores the resolved user under the token key. Failures are swallowed;
// the cache is strictly best-effort.
func (c *TokenCache) Set(ctx context.Context, token string, u *models.User) {
	data, err := json.Marshal(u)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, tokenKey(token), data, c.ttl)
}

// Invalidate drops the cached entry for the token.
func (c *TokenCache) Invalidate(ctx context.Context, token string) {
	c.rdb.Del(ctx, tokenKey(token))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
