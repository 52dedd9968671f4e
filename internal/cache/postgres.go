package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/vcode/internal/db"
	"github.com/vdavid/vcode/internal/models"
)

// searchResultType is the cache_type of rows written by this package.
const searchResultType = "search_result"

// Postgres stores one row per user in result_cache.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgres(pool *pgxpool.Pool, now func() time.Time) *Postgres {
	return &Postgres{pool: pool, now: clockOrNow(now)}
}

func (p *Postgres) Put(ctx context.Context, userID int64, result *models.SearchResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return db.PutCachedResult(ctx, p.pool, userID, searchResultType, payload, p.now())
}

func (p *Postgres) Get(ctx context.Context, userID int64) (models.CacheEntry, error) {
	payload, createdAt, err := db.GetCachedResult(ctx, p.pool, userID, searchResultType)
	if err != nil {
		if errors.Is(err, db.ErrCacheEntryNotFound) {
			return models.CacheEntry{}, ErrNotFound
		}
		return models.CacheEntry{}, err
	}

	var result models.SearchResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return models.CacheEntry{}, fmt.Errorf("failed to decode cached result: %w", err)
	}

	entry := models.NewCacheEntry(userID, &result, createdAt)
	if !entry.Live(p.now()) {
		return models.CacheEntry{}, ErrNotFound
	}
	return entry, nil
}

func (p *Postgres) Sweep(ctx context.Context) (int64, error) {
	return db.DeleteCachedResultsBefore(ctx, p.pool, p.now().Add(-models.ResultCacheTTL))
}
