package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vdavid/vcode/internal/models"
)

const redisKeyPrefix = "vcode:result:"

// Redis keeps one key per user and lets the server expire it.
// The stored entry carries its own expiry so a lagging server clock cannot
// serve a stale result.
type Redis struct {
	rdb *goredis.Client
	now func() time.Time
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

func NewRedis(rdb *goredis.Client, now func() time.Time) *Redis {
	return &Redis{rdb: rdb, now: clockOrNow(now)}
}

func redisKey(userID int64) string {
	return redisKeyPrefix + strconv.FormatInt(userID, 10)
}

func (r *Redis) Put(ctx context.Context, userID int64, result *models.SearchResult) error {
	entry := models.NewCacheEntry(userID, result, r.now())
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := r.rdb.Set(ctx, redisKey(userID), data, models.ResultCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, userID int64) (models.CacheEntry, error) {
	data, err := r.rdb.Get(ctx, redisKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return models.CacheEntry{}, ErrNotFound
		}
		return models.CacheEntry{}, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return models.CacheEntry{}, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	if !entry.Live(r.now()) {
		return models.CacheEntry{}, ErrNotFound
	}
	return entry, nil
}

// Sweep is a no-op; keys carry a server-side TTL.
func (r *Redis) Sweep(context.Context) (int64, error) {
	return 0, nil
}
