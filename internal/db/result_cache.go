package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCacheEntryNotFound is returned when a user has no cached row of the given type.
var ErrCacheEntryNotFound = errors.New("cache entry not found")

// PutCachedResult replaces the user's row for cacheType.
func PutCachedResult(ctx context.Context, pool *pgxpool.Pool, userID int64, cacheType string, payload []byte, createdAt time.Time) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO result_cache (user_id, cache_type, payload, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, cache_type) DO UPDATE SET
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at
	`, userID, cacheType, payload, createdAt)
	if err != nil {
		return fmt.Errorf("failed to put cached result: %w", err)
	}
	return nil
}

// GetCachedResult returns the payload and creation time of the user's row.
// Expiry is the caller's concern.
func GetCachedResult(ctx context.Context, pool *pgxpool.Pool, userID int64, cacheType string) ([]byte, time.Time, error) {
	var payload []byte
	var createdAt time.Time
	err := pool.QueryRow(ctx, `
		SELECT payload, created_at FROM result_cache
		WHERE user_id = $1 AND cache_type = $2
	`, userID, cacheType).Scan(&payload, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, time.Time{}, ErrCacheEntryNotFound
		}
		return nil, time.Time{}, fmt.Errorf("failed to get cached result: %w", err)
	}
	return payload, createdAt, nil
}

// DeleteCachedResultsBefore removes rows created before cutoff and returns how many went.
func DeleteCachedResultsBefore(ctx context.Context, pool *pgxpool.Pool, cutoff time.Time) (int64, error) {
	tag, err := pool.Exec(ctx, `DELETE FROM result_cache WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache rows: %w", err)
	}
	return tag.RowsAffected(), nil
}
