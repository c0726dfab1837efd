package store

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hrygo/studyquest/internal/profile"
	"github.com/hrygo/studyquest/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// snapshotCache holds encoded study snapshots keyed by user.
	snapshotCache *cache.Tiered
	snapshotGroup singleflight.Group
}

// New creates a new instance of Store. When the profile configures Redis, it
// is used as the shared snapshot tier; a failed connection only disables it.
func New(driver Driver, profile *profile.Profile) *Store {
	opts := cache.DefaultTieredOptions()
	if profile.IsRedisEnabled() {
		shared, err := cache.DialRedis(context.Background(), cache.RedisOptions{
			Addr:      profile.RedisAddr,
			Password:  profile.RedisPassword,
			DB:        profile.RedisDB,
			KeyPrefix: "studyquest:",
		})
		if err != nil {
			slog.Warn("redis cache unavailable, using memory cache only", slog.String("addr", profile.RedisAddr), slog.String("error", err.Error()))
		} else {
			opts.Shared = shared
		}
	}

	return &Store{
		driver:        driver,
		profile:       profile,
		snapshotCache: cache.NewTiered(opts),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// CacheStats reports the snapshot cache tiers.
func (s *Store) CacheStats() map[string]any {
	return s.snapshotCache.Stats()
}

func (s *Store) Close() error {
	if err := s.snapshotCache.Close(); err != nil {
		slog.Warn("failed to close snapshot cache", slog.String("error", err.Error()))
	}
	return s.driver.Close()
}

func (s *Store) ListCardStates(ctx context.Context, find *FindCardState) ([]*CardState, error) {
	return s.driver.ListCardStates(ctx, find)
}

func (s *Store) ListDailyHistory(ctx context.Context, find *FindDailyHistory) ([]*DailyHistory, error) {
	return s.driver.ListDailyHistory(ctx, find)
}

func nowTs() int64 {
	return time.Now().Unix()
}
