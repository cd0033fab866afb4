package memory

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/shopcore/internal/domain"
)

// cacheEntry хранит значение и срок его жизни.
type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// cacheInMemory — in-memory реализация CacheStore. Истёкшие ключи
// удаляются лениво, при обращении.
type cacheInMemory struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache создаёт in-memory кэш для разработки и тестов.
func NewCache() domain.CacheStore {
	return &cacheInMemory{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// NewCacheWithClock создаёт кэш с управляемыми часами (для тестов TTL).
func NewCacheWithClock(now func() time.Time) domain.CacheStore {
	return &cacheInMemory{
		entries: make(map[string]cacheEntry),
		now:     now,
	}
}

func (c *cacheInMemory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

func (c *cacheInMemory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	c.entries[key] = cacheEntry{
		value:     stored,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

func (c *cacheInMemory) Remove(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

func (c *cacheInMemory) RemoveByPattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return err
		}
		if matched {
			delete(c.entries, key)
		}
	}
	return nil
}

var _ domain.CacheStore = (*cacheInMemory)(nil)
