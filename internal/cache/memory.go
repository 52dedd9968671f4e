package cache

import (
	"context"
	"sync"
	"time"

	"github.com/vdavid/vcode/internal/models"
)

// Memory is a process-local Store, used in tests and single-instance setups.
type Memory struct {
	mu      sync.Mutex
	entries map[int64]models.CacheEntry
	now     func() time.Time
}

// NewMemory returns an empty store. A nil clock means time.Now.
func NewMemory(now func() time.Time) *Memory {
	return &Memory{
		entries: make(map[int64]models.CacheEntry),
		now:     clockOrNow(now),
	}
}

func (m *Memory) Put(_ context.Context, userID int64, result *models.SearchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userID] = models.NewCacheEntry(userID, result, m.now())
	return nil
}

func (m *Memory) Get(_ context.Context, userID int64) (models.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[userID]
	if !ok || !entry.Live(m.now()) {
		return models.CacheEntry{}, ErrNotFound
	}
	return entry, nil
}

func (m *Memory) Sweep(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var removed int64
	for userID, entry := range m.entries {
		if !entry.Live(now) {
			delete(m.entries, userID)
			removed++
		}
	}
	return removed, nil
}
