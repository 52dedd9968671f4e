package models

import "time"

// ResultCacheTTL bounds how long an extracted code or link stays retrievable.
const ResultCacheTTL = 2 * time.Minute

// CacheEntry is the single cached search outcome of a user.
type CacheEntry struct {
	UserID    int64         `json:"user_id"`
	Result    *SearchResult `json:"result"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// NewCacheEntry stamps an entry with the fixed TTL.
func NewCacheEntry(userID int64, result *SearchResult, now time.Time) CacheEntry {
	return CacheEntry{
		UserID:    userID,
		Result:    result,
		CreatedAt: now,
		ExpiresAt: now.Add(ResultCacheTTL),
	}
}

// Live reports whether the entry may still be served at now.
func (e CacheEntry) Live(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}
