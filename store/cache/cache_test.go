package cache

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()

	c.Set(ctx, "a", []byte("1"))
	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)
	assert.Equal(t, int64(1), c.Size())

	c.Set(ctx, "a", []byte("2"))
	assert.Equal(t, int64(1), c.Size(), "overwrite must not grow the cache")

	c.Delete(ctx, "a")
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Size())
}

func TestCache_Expiration(t *testing.T) {
	ctx := context.Background()
	var evicted []string
	c := New(Config{
		DefaultTTL: time.Minute,
		OnEviction: func(key string, _ any) { evicted = append(evicted, key) },
	})
	defer c.Close()

	c.SetWithTTL(ctx, "short", 1, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get(ctx, "short")
	assert.False(t, ok)
	assert.Equal(t, []string{"short"}, evicted)
	assert.Equal(t, int64(0), c.Size())
}

func TestCache_MaxItems(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute, MaxItems: 2})
	defer c.Close()

	c.SetWithTTL(ctx, "first", 1, time.Second)
	c.SetWithTTL(ctx, "second", 2, time.Minute)
	c.SetWithTTL(ctx, "third", 3, time.Minute)

	assert.Equal(t, int64(2), c.Size())
	_, ok := c.Get(ctx, "first")
	assert.False(t, ok, "entry closest to expiry is evicted")
	_, ok = c.Get(ctx, "third")
	assert.True(t, ok)
}

func TestCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute, CleanupInterval: time.Millisecond})
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := string(rune('a' + (i+j)%10))
				c.Set(ctx, key, j)
				c.Get(ctx, key)
				if j%7 == 0 {
					c.Delete(ctx, key)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(), int64(10))
	c.Clear(ctx)
	assert.Equal(t, int64(0), c.Size())
}

func TestTiered_LoadsOnce(t *testing.T) {
	ctx := context.Background()
	tc := NewTiered(DefaultTieredOptions())
	defer tc.Close()

	calls := 0
	load := func(context.Context) ([]byte, error) {
		calls++
		return []byte("value"), nil
	}

	for i := 0; i < 3; i++ {
		v, err := tc.Load(ctx, "k", load)
		require.NoError(t, err)
		assert.Equal(t, []byte("value"), v)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(2), tc.Stats()["l1_hits"])

	tc.Invalidate(ctx, "k")
	_, err := tc.Load(ctx, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(2), tc.Stats()["loads"])
}

func TestTiered_MissAndError(t *testing.T) {
	ctx := context.Background()
	tc := NewTiered(DefaultTieredOptions())
	defer tc.Close()

	v, err := tc.Load(ctx, "missing", func(context.Context) ([]byte, error) { return nil, nil })
	require.NoError(t, err)
	assert.Nil(t, v)

	boom := errors.New("boom")
	_, err = tc.Load(ctx, "broken", func(context.Context) ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), tc.Stats()["l1_size"])
}

type memoryTier struct {
	data     map[string][]byte
	closed   bool
	closeErr error
}

func (m *memoryTier) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.data[key]
	return v, ok
}
func (m *memoryTier) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	m.data[key] = value
}
func (m *memoryTier) Delete(_ context.Context, keys ...string) {
	for _, key := range keys {
		delete(m.data, key)
	}
}
func (m *memoryTier) Close() error {
	m.closed = true
	return m.closeErr
}

func TestTiered_SharedTier(t *testing.T) {
	ctx := context.Background()
	shared := &memoryTier{data: map[string][]byte{"shared": []byte("from-redis")}}
	opts := DefaultTieredOptions()
	opts.Shared = shared
	tc := NewTiered(opts)

	v, err := tc.Load(ctx, "shared", func(context.Context) ([]byte, error) {
		t.Fatal("loader must not run on a shared hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("from-redis"), v)

	stats := tc.Stats()
	assert.Equal(t, true, stats["l2_enabled"])
	assert.Equal(t, int64(1), stats["l2_hits"])
	assert.Equal(t, int64(1), stats["l1_size"], "shared hits are promoted")

	_, err = tc.Load(ctx, "fresh", func(context.Context) ([]byte, error) { return []byte("db"), nil })
	require.NoError(t, err)
	assert.Equal(t, []byte("db"), shared.data["fresh"], "loads fill the shared tier")

	tc.Invalidate(ctx, "shared")
	_, ok := shared.data["shared"]
	assert.False(t, ok)

	require.NoError(t, tc.Close())
	assert.True(t, shared.closed)
}

func TestTiered_InvalidateDuringLoad(t *testing.T) {
	ctx := context.Background()
	shared := &memoryTier{data: map[string][]byte{}}
	opts := DefaultTieredOptions()
	opts.Shared = shared
	tc := NewTiered(opts)
	defer tc.Close()

	// A writer invalidates while the read is still in the database.
	v, err := tc.Load(ctx, "k", func(context.Context) ([]byte, error) {
		tc.Invalidate(ctx, "k")
		return []byte("stale"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("stale"), v, "the caller still gets what it read")
	assert.Equal(t, int64(0), tc.Stats()["l1_size"])
	assert.Empty(t, shared.data)

	v, err = tc.Load(ctx, "k", func(context.Context) ([]byte, error) { return []byte("fresh"), nil })
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), v)
	assert.Equal(t, int64(1), tc.Stats()["l1_size"])
}

func TestTiered_CloseReportsSharedError(t *testing.T) {
	boom := errors.New("connection reset")
	shared := &memoryTier{data: map[string][]byte{}, closeErr: boom}
	opts := DefaultTieredOptions()
	opts.Shared = shared
	tc := NewTiered(opts)

	err := tc.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to close shared cache tier")
	assert.True(t, shared.closed)

	assert.NoError(t, NewTiered(DefaultTieredOptions()).Close())
}

func TestRedisTier(t *testing.T) {
	addr := os.Getenv("STUDYQUEST_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STUDYQUEST_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	r, err := DialRedis(ctx, RedisOptions{Addr: addr, KeyPrefix: "studyquest-test:"})
	require.NoError(t, err)
	defer r.Close()
	defer func() { require.NoError(t, r.Purge(ctx)) }()

	r.Set(ctx, "a", []byte(`{"xp":10}`), time.Minute)
	r.Set(ctx, "b", []byte(`{"xp":5}`), time.Minute)
	v, ok := r.Get(ctx, "a")
	require.True(t, ok)
	assert.JSONEq(t, `{"xp":10}`, string(v))

	r.Delete(ctx, "a", "b")
	_, ok = r.Get(ctx, "a")
	assert.False(t, ok)
	_, ok = r.Get(ctx, "b")
	assert.False(t, ok)
}
