package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// SystemSetting model related methods.
	UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error)
	ListSystemSettings(ctx context.Context, find *FindSystemSetting) ([]*SystemSetting, error)

	// Study model related methods.
	GetStudyProfile(ctx context.Context, find *FindStudyProfile) (*StudyProfile, error)
	ListCardStates(ctx context.Context, find *FindCardState) ([]*CardState, error)
	ListDailyHistory(ctx context.Context, find *FindDailyHistory) ([]*DailyHistory, error)
	UpsertStudySnapshot(ctx context.Context, upsert *UpsertStudySnapshot) error
	DeleteStudySnapshot(ctx context.Context, delete *DeleteStudySnapshot) error
}
