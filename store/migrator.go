package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/studyquest/internal/version"
)

// Schema layout: migration/<driver>/LATEST.sql creates a fresh database and
// migration/<driver>/<minor>/NN__name.sql upgrades an existing one, where file
// NN of directory X.Y carries schema version X.Y.(NN+1). The applied version
// lives in system_setting under "schema_version".

//go:embed migration
var migrationFS embed.FS

//go:embed seed
var seedFS embed.FS

const (
	// MigrateFileNameSplit is the split character between the patch version and the description in the migration file name.
	// For example, "1__create_table.sql".
	MigrateFileNameSplit = "__"
	// LatestSchemaFileName is the name of the latest schema file.
	LatestSchemaFileName = "LATEST.sql"

	// defaultSchemaVersion is used when schema version is empty or not set.
	defaultSchemaVersion = "0.0.0"
	// minimumUpgradeVersion is the oldest schema that can be migrated in place.
	minimumUpgradeVersion = "0.2.0"

	modeProd = "prod"
	modeDemo = "demo"
)

func getSchemaVersionOrDefault(schemaVersion string) string {
	if schemaVersion == "" {
		return defaultSchemaVersion
	}
	return schemaVersion
}

func isVersionEmpty(schemaVersion string) bool {
	return schemaVersion == "" || schemaVersion == defaultSchemaVersion
}

// shouldApplyMigration reports whether fileVersion lies in (currentDBVersion, targetVersion].
func shouldApplyMigration(fileVersion, currentDBVersion, targetVersion string) bool {
	currentDBVersionSafe := getSchemaVersionOrDefault(currentDBVersion)
	return version.IsVersionGreaterThan(fileVersion, currentDBVersionSafe) &&
		version.IsVersionGreaterOrEqualThan(targetVersion, fileVersion)
}

// validateMigrationFileName checks the "NN__description.sql" convention.
func validateMigrationFileName(filename string) error {
	parts := strings.SplitN(filename, MigrateFileNameSplit, 2)
	if len(parts) < 2 {
		return errors.Errorf("invalid migration filename format (missing %s): %s", MigrateFileNameSplit, filename)
	}
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return errors.Errorf("migration filename must start with a number: %s", filename)
	}
	return nil
}

// Migrate migrates the database schema to the latest version.
// In demo mode it also seeds a sample learner.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.preMigrate(ctx); err != nil {
		return errors.Wrap(err, "failed to pre-migrate")
	}

	switch s.profile.Mode {
	case modeProd:
		dbSchemaVersion, err := s.getDatabaseSchemaVersion(ctx)
		if err != nil {
			return err
		}
		currentSchemaVersion, err := s.GetCurrentSchemaVersion()
		if err != nil {
			return errors.Wrap(err, "failed to get current schema version")
		}
		if !isVersionEmpty(dbSchemaVersion) && version.IsVersionGreaterThan(dbSchemaVersion, currentSchemaVersion) {
			slog.Error("cannot downgrade schema version",
				slog.String("databaseVersion", dbSchemaVersion),
				slog.String("currentVersion", currentSchemaVersion),
			)
			return errors.Errorf("cannot downgrade schema version from %s to %s", dbSchemaVersion, currentSchemaVersion)
		}
		if isVersionEmpty(dbSchemaVersion) || version.IsVersionGreaterThan(currentSchemaVersion, dbSchemaVersion) {
			if err := s.applyMigrations(ctx, dbSchemaVersion, currentSchemaVersion); err != nil {
				return errors.Wrap(err, "failed to apply migrations")
			}
		}
	case modeDemo:
		if err := s.seed(ctx); err != nil {
			return errors.Wrap(err, "failed to seed")
		}
	}
	return nil
}

type migrationFile struct {
	path    string
	version string
}

// pendingMigrations lists the migration files in (current, target], oldest first.
func (s *Store) pendingMigrations(current, target string) ([]migrationFile, error) {
	paths, err := fs.Glob(migrationFS, s.getMigrationBasePath()+"*/*.sql")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read migration files")
	}
	sort.Strings(paths)

	var pending []migrationFile
	for _, path := range paths {
		v, err := s.getSchemaVersionOfMigrateScript(path)
		if err != nil {
			return nil, err
		}
		if !shouldApplyMigration(v, current, target) {
			continue
		}
		if err := validateMigrationFileName(filepath.Base(path)); err != nil {
			slog.Warn("migration file has invalid name but will be applied", "file", path, "error", err)
		}
		pending = append(pending, migrationFile{path: path, version: v})
	}
	return pending, nil
}

// applyMigrations upgrades the schema in one transaction, then records target.
func (s *Store) applyMigrations(ctx context.Context, current, target string) error {
	pending, err := s.pendingMigrations(current, target)
	if err != nil {
		return err
	}
	slog.Info("migrating schema", "from", getSchemaVersionOrDefault(current), "to", target, "files", len(pending))

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, m := range pending {
			slog.Info("applying migration", "file", m.path, "version", m.version)
			if err := s.executeFile(ctx, tx, migrationFS, m.path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.updateCurrentSchemaVersion(ctx, target)
}

// preMigrate creates the latest schema on an empty database.
func (s *Store) preMigrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}

	if !initialized {
		latest := s.getMigrationBasePath() + LatestSchemaFileName
		slog.Info("initializing new database", "file", latest)
		if err := s.withTx(ctx, func(tx *sql.Tx) error {
			return s.executeFile(ctx, tx, migrationFS, latest)
		}); err != nil {
			return err
		}
		schemaVersion, err := s.GetCurrentSchemaVersion()
		if err != nil {
			return errors.Wrap(err, "failed to get current schema version")
		}
		if err := s.updateCurrentSchemaVersion(ctx, schemaVersion); err != nil {
			return err
		}
		slog.Info("database initialized", "schema_version", schemaVersion)
	}

	if s.profile.Mode == modeProd {
		return s.checkMinimumUpgradeVersion(ctx)
	}
	return nil
}

func (s *Store) getMigrationBasePath() string {
	return fmt.Sprintf("migration/%s/", s.profile.Driver)
}

func (s *Store) getSeedBasePath() string {
	return fmt.Sprintf("seed/%s/", s.profile.Driver)
}

// seed loads the demo learner. Seed files are idempotent; only sqlite is seeded.
func (s *Store) seed(ctx context.Context) error {
	if s.profile.Driver != "sqlite" {
		slog.Warn("demo seed is only available for sqlite", "driver", s.profile.Driver)
		return nil
	}

	paths, err := fs.Glob(seedFS, s.getSeedBasePath()+"*.sql")
	if err != nil {
		return errors.Wrap(err, "failed to read seed files")
	}
	sort.Strings(paths)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, path := range paths {
			if err := s.executeFile(ctx, tx, seedFS, path); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

func (s *Store) executeFile(ctx context.Context, tx *sql.Tx, fsys embed.FS, path string) error {
	script, err := fsys.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	return errors.Wrapf(s.execute(ctx, tx, string(script)), "failed to execute %s", path)
}

// GetCurrentSchemaVersion is the schema version this binary expects: the
// newest migration of the running minor version.
func (s *Store) GetCurrentSchemaVersion() (string, error) {
	currentVersion := version.GetCurrentVersion(s.profile.Mode)
	minorVersion := version.GetMinorVersion(currentVersion)
	filePaths, err := fs.Glob(migrationFS, fmt.Sprintf("%s%s/*.sql", s.getMigrationBasePath(), minorVersion))
	if err != nil {
		return "", errors.Wrap(err, "failed to read migration files")
	}

	sort.Strings(filePaths)
	if len(filePaths) == 0 {
		return fmt.Sprintf("%s.0", minorVersion), nil
	}
	return s.getSchemaVersionOfMigrateScript(filePaths[len(filePaths)-1])
}

// getSchemaVersionOfMigrateScript maps "migration/sqlite/0.3/01__x.sql" to "0.3.2".
func (s *Store) getSchemaVersionOfMigrateScript(filePath string) (string, error) {
	if strings.HasSuffix(filePath, LatestSchemaFileName) {
		return s.GetCurrentSchemaVersion()
	}

	elements := strings.Split(filepath.ToSlash(filePath), "/")
	if len(elements) < 2 {
		return "", errors.Errorf("invalid file path: %s", filePath)
	}
	minorVersion := elements[len(elements)-2]
	rawPatchVersion := strings.Split(elements[len(elements)-1], MigrateFileNameSplit)[0]
	patchVersion, err := strconv.Atoi(rawPatchVersion)
	if err != nil {
		return "", errors.Wrapf(err, "failed to convert patch version to int: %s", rawPatchVersion)
	}
	return fmt.Sprintf("%s.%d", minorVersion, patchVersion+1), nil
}

// execute runs a SQL script inside tx. lib/pq rejects multi-statement
// scripts in one call, so postgres scripts are split first.
func (s *Store) execute(ctx context.Context, tx *sql.Tx, script string) error {
	if s.profile.Driver != "postgres" {
		if _, err := tx.ExecContext(ctx, script); err != nil {
			return errors.Wrap(err, "failed to execute statement")
		}
		return nil
	}
	for i, stmt := range splitSQL(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute statement %d: %s", i+1, stmt)
		}
	}
	return nil
}

// splitSQL splits a script on semicolons outside single quotes, dropping
// "--" comments. Migration scripts contain no dollar-quoted bodies.
func splitSQL(script string) []string {
	var (
		statements []string
		current    strings.Builder
		inQuote    bool
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, line := range strings.Split(script, "\n") {
		for i := 0; i < len(line); i++ {
			ch := line[i]
			switch {
			case ch == '\'':
				inQuote = !inQuote
				current.WriteByte(ch)
			case !inQuote && ch == '-' && i+1 < len(line) && line[i+1] == '-':
				i = len(line)
			case !inQuote && ch == ';':
				flush()
			default:
				current.WriteByte(ch)
			}
		}
		current.WriteByte('\n')
	}
	flush()
	return statements
}

func (s *Store) getDatabaseSchemaVersion(ctx context.Context) (string, error) {
	setting, err := s.GetSystemSetting(ctx, systemSettingSchemaVersion)
	if err != nil {
		return "", errors.Wrap(err, "failed to get schema version setting")
	}
	if setting == nil {
		return "", nil
	}
	return setting.Value, nil
}

func (s *Store) updateCurrentSchemaVersion(ctx context.Context, schemaVersion string) error {
	if _, err := s.UpsertSystemSetting(ctx, &SystemSetting{
		Name:        systemSettingSchemaVersion,
		Value:       schemaVersion,
		Description: "database schema version",
	}); err != nil {
		return errors.Wrap(err, "failed to upsert schema version")
	}
	return nil
}

// checkMinimumUpgradeVersion rejects schemas older than minimumUpgradeVersion.
func (s *Store) checkMinimumUpgradeVersion(ctx context.Context) error {
	schemaVersion, err := s.getDatabaseSchemaVersion(ctx)
	if err != nil {
		return err
	}
	if isVersionEmpty(schemaVersion) || version.IsVersionGreaterOrEqualThan(schemaVersion, minimumUpgradeVersion) {
		return nil
	}
	currentVersion, _ := s.GetCurrentSchemaVersion()
	return errors.Errorf(
		"schema version %s is too old to upgrade to %s directly; minimum required is %s",
		schemaVersion, currentVersion, minimumUpgradeVersion,
	)
}
