package testsupport

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/vslpipeline/internal/cache"
)

// MemCache is an in-memory cache.Cache. TTLs are honored lazily on read.
type MemCache struct {
	mu       sync.Mutex
	entries  map[string]memEntry
	counters map[string]int64

	// Err, when set, is returned by every operation.
	Err error
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemCache() *MemCache {
	return &MemCache{entries: map[string]memEntry{}, counters: map[string]int64{}}
}

func (c *MemCache) Ping(_ context.Context) error { return c.Err }

func (c *MemCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.Err != nil {
		return c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

func (c *MemCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if c.Err != nil {
		return nil, false, c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (c *MemCache) Delete(_ context.Context, key string) error {
	if c.Err != nil {
		return c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *MemCache) SetTaskStatus(ctx context.Context, taskID uuid.UUID, status []byte, ttl time.Duration) error {
	return c.Set(ctx, cache.TaskStatusKey(taskID), status, ttl)
}

func (c *MemCache) GetTaskStatus(ctx context.Context, taskID uuid.UUID) ([]byte, bool, error) {
	return c.Get(ctx, cache.TaskStatusKey(taskID))
}

func (c *MemCache) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	if c.Err != nil {
		return 0, c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key]++
	return c.counters[key], nil
}

var _ cache.Cache = (*MemCache)(nil)
