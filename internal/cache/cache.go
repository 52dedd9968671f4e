// Package cache keeps the last successful search result of each user for a
// short, fixed time so a client can fetch it again without another IMAP round.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/vdavid/vcode/internal/models"
	"github.com/vdavid/vcode/internal/search"
)

// ErrNotFound is returned when a user has no live cached result.
var ErrNotFound = errors.New("no cached result")

// Store is implemented by every backend.
// Get never returns an entry whose TTL has passed, even before Sweep removed it.
type Store interface {
	Put(ctx context.Context, userID int64, result *models.SearchResult) error
	Get(ctx context.Context, userID int64) (models.CacheEntry, error)
	Sweep(ctx context.Context) (int64, error)
}

var (
	_ search.ResultStore = Store(nil)
	_ Store              = (*Memory)(nil)
	_ Store              = (*Postgres)(nil)
	_ Store              = (*Redis)(nil)
)

func clockOrNow(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
