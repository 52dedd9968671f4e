package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is how often expired rows are purged.
const DefaultSweepInterval = 30 * time.Second

// Sweeper periodically purges expired entries from a Store.
type Sweeper struct {
	store    Store
	interval time.Duration
	log      *zap.Logger
}

func NewSweeper(store Store, interval time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{store: store, interval: interval, log: log.Named("cache")}
}

// Run blocks until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	removed, err := s.store.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("cache sweep failed", zap.Error(err))
		}
		return
	}
	if removed > 0 {
		s.log.Debug("expired cache entries removed", zap.Int64("count", removed))
	}
}
