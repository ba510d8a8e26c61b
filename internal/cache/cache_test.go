package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/vslpipeline/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis spins up a Redis container and returns a connected RedisCache.
func setupRedis(t *testing.T) *cache.RedisCache {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rc, err := cache.NewRedisCache("redis://" + host + ":" + port.Port())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	return rc
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := cache.NewRedisCache("not-a-redis-url")
	assert.Error(t, err)
}

func TestRedisCache_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, rc.Ping(ctx))
	})

	t.Run("set get delete", func(t *testing.T) {
		require.NoError(t, rc.Set(ctx, "test:key", []byte("hello"), 10*time.Second))

		val, found, err := rc.Get(ctx, "test:key")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("hello"), val)

		require.NoError(t, rc.Delete(ctx, "test:key"))
		_, found, err = rc.Get(ctx, "test:key")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("get missing", func(t *testing.T) {
		val, found, err := rc.Get(ctx, "nonexistent:key")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, val)
	})

	t.Run("ttl expiry", func(t *testing.T) {
		require.NoError(t, rc.Set(ctx, "expiry:key", []byte("temp"), 1*time.Second))
		time.Sleep(1500 * time.Millisecond)

		_, found, err := rc.Get(ctx, "expiry:key")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("task status", func(t *testing.T) {
		taskID := uuid.New()
		require.NoError(t, rc.SetTaskStatus(ctx, taskID, []byte(`{"state":"running"}`), 10*time.Second))

		status, found, err := rc.GetTaskStatus(ctx, taskID)
		require.NoError(t, err)
		assert.True(t, found)
		assert.JSONEq(t, `{"state":"running"}`, string(status))

		_, found, err = rc.GetTaskStatus(ctx, uuid.New())
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("incr with expiry", func(t *testing.T) {
		key := cache.RateLimitKey("test-" + uuid.NewString()[:8])
		for want := int64(1); want <= 3; want++ {
			val, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
			require.NoError(t, err)
			assert.Equal(t, want, val)
		}
	})
}

// --- Cache Key Builders ---

func TestTaskStatusKey(t *testing.T) {
	taskID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	assert.Equal(t, "vsl:task:22222222-2222-2222-2222-222222222222", cache.TaskStatusKey(taskID))
}

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "vsl:ratelimit:10.0.0.1", cache.RateLimitKey("10.0.0.1"))
}

func TestSearchResultKey_Normalized(t *testing.T) {
	assert.Equal(t, cache.SearchResultKey("Dieta"), cache.SearchResultKey("  dieta "))
	assert.NotEqual(t, cache.SearchResultKey("dieta"), cache.SearchResultKey("curso"))
	assert.Regexp(t, `^vsl:search:[0-9a-f]{16}$`, cache.SearchResultKey("anything at all"))
}

func TestKeyBuilders_NonColliding(t *testing.T) {
	keys := map[string]bool{
		cache.TaskStatusKey(uuid.New()): true,
		cache.RateLimitKey("client"):    true,
		cache.SearchResultKey("client"): true,
	}
	assert.Len(t, keys, 3, "all keys should be unique")
}
