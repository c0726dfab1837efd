package test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hrygo/studyquest/internal/profile"
	"github.com/hrygo/studyquest/internal/version"
	"github.com/hrygo/studyquest/store"
	"github.com/hrygo/studyquest/store/db"
)

// NewTestingStore returns a migrated store for the driver named by the DRIVER
// environment variable. sqlite (default) uses a fresh file under t.TempDir();
// postgres uses POSTGRES_TEST_DSN and is skipped when it is unset.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	return newTestingStoreWithDriver(ctx, t, nil)
}

// newTestingStoreWithDriver is NewTestingStore with the driver passed through
// wrap first, so tests can intercept driver calls.
func newTestingStoreWithDriver(ctx context.Context, t *testing.T, wrap func(store.Driver) store.Driver) *store.Store {
	t.Helper()
	p := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	var driver store.Driver = dbDriver
	if wrap != nil {
		driver = wrap(dbDriver)
	}
	s := store.New(driver, p)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		if p.Driver == "postgres" {
			resetPostgres(ctx, dbDriver)
		}
		s.Close()
	})
	return s
}

func getTestingProfile(t *testing.T) *profile.Profile {
	mode := "prod"
	driver := getDriverFromEnv()
	p := &profile.Profile{
		Mode:    mode,
		Driver:  driver,
		Version: version.GetCurrentVersion(mode),
		Data:    t.TempDir(),
	}

	switch driver {
	case "postgres":
		dsn := os.Getenv("POSTGRES_TEST_DSN")
		if dsn == "" {
			t.Skip("POSTGRES_TEST_DSN not set")
		}
		p.DSN = dsn
	default:
		p.DSN = filepath.Join(p.Data, fmt.Sprintf("studyquest_%s.db", mode))
	}
	return p
}

func getDriverFromEnv() string {
	driver := os.Getenv("DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}

// resetPostgres drops the study tables so the next test starts from LATEST.sql.
func resetPostgres(ctx context.Context, driver store.Driver) {
	for _, table := range []string{"study_card_state", "study_daily_history", "study_profile", "system_setting"} {
		_, _ = driver.GetDB().ExecContext(ctx, "DROP TABLE IF EXISTS "+table)
	}
}
