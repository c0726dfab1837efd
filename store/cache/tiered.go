package cache

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// Loader reads a value from the database. A nil slice means "no such row"
// and is never cached.
type Loader func(ctx context.Context) ([]byte, error)

// TieredOptions configures a Tiered cache.
type TieredOptions struct {
	LocalMaxItems int
	LocalTTL      time.Duration
	SharedTTL     time.Duration
	// Shared is the optional second tier; nil keeps the cache process local.
	Shared SharedTier
}

// DefaultTieredOptions keeps up to a thousand learners locally for five
// minutes and half an hour in the shared tier.
func DefaultTieredOptions() TieredOptions {
	return TieredOptions{
		LocalMaxItems: 1000,
		LocalTTL:      5 * time.Minute,
		SharedTTL:     30 * time.Minute,
	}
}

// Tiered is a read-through byte cache: process memory first, then the shared
// tier, then the loader. Entries must be treated as immutable by callers.
type Tiered struct {
	local     *Cache
	shared    SharedTier
	sharedTTL time.Duration

	// generation advances on every Invalidate; a load that overlaps one
	// returns its result without caching it.
	generation atomic.Uint64

	localHits  atomic.Int64
	sharedHits atomic.Int64
	loads      atomic.Int64
}

func NewTiered(opts TieredOptions) *Tiered {
	return &Tiered{
		local: New(Config{
			DefaultTTL:      opts.LocalTTL,
			CleanupInterval: time.Minute,
			MaxItems:        opts.LocalMaxItems,
		}),
		shared:    opts.Shared,
		sharedTTL: opts.SharedTTL,
	}
}

// Load returns the cached bytes for key, filling both tiers from load on a
// miss. It returns (nil, nil) when the loader finds nothing.
func (t *Tiered) Load(ctx context.Context, key string, load Loader) ([]byte, error) {
	if v, ok := t.local.Get(ctx, key); ok {
		t.localHits.Add(1)
		return v.([]byte), nil
	}
	if t.shared != nil {
		if data, ok := t.shared.Get(ctx, key); ok {
			t.sharedHits.Add(1)
			t.local.Set(ctx, key, data)
			return data, nil
		}
	}

	t.loads.Add(1)
	gen := t.generation.Load()
	data, err := load(ctx)
	if err != nil || data == nil {
		return nil, err
	}
	if t.generation.Load() != gen {
		return data, nil
	}
	t.local.Set(ctx, key, data)
	if t.shared != nil {
		t.shared.Set(ctx, key, data, t.sharedTTL)
	}
	return data, nil
}

// Invalidate drops key from every tier and discards the result of any load
// still in flight.
func (t *Tiered) Invalidate(ctx context.Context, key string) {
	t.generation.Add(1)
	t.local.Delete(ctx, key)
	if t.shared != nil {
		t.shared.Delete(ctx, key)
	}
}

// Stats reports tier configuration and hit counters.
func (t *Tiered) Stats() map[string]any {
	return map[string]any{
		"l1_enabled": true,
		"l2_enabled": t.shared != nil,
		"l1_size":    t.local.Size(),
		"l1_hits":    t.localHits.Load(),
		"l2_hits":    t.sharedHits.Load(),
		"loads":      t.loads.Load(),
	}
}

// Close stops both tiers and reports every failure.
func (t *Tiered) Close() error {
	err := errors.Wrap(t.local.Close(), "failed to close local cache tier")
	if t.shared != nil {
		err = stderrors.Join(err, errors.Wrap(t.shared.Close(), "failed to close shared cache tier"))
	}
	return err
}
