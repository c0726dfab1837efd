package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/studyquest/internal/profile"
)

func TestShouldApplyMigration(t *testing.T) {
	tests := []struct {
		file, current, target string
		want                  bool
	}{
		{"0.3.1", "0.3.0", "0.3.2", true},
		{"0.3.2", "0.3.0", "0.3.2", true},
		{"0.3.1", "0.3.1", "0.3.2", false},
		{"0.3.3", "0.3.0", "0.3.2", false},
		{"0.3.1", "", "0.3.2", true},
	}
	for _, tt := range tests {
		if got := shouldApplyMigration(tt.file, tt.current, tt.target); got != tt.want {
			t.Errorf("shouldApplyMigration(%s, %s, %s) = %v, want %v", tt.file, tt.current, tt.target, got, tt.want)
		}
	}
}

func TestValidateMigrationFileName(t *testing.T) {
	assert.NoError(t, validateMigrationFileName("00__topic_stats.sql"))
	assert.Error(t, validateMigrationFileName("topic_stats.sql"))
	assert.Error(t, validateMigrationFileName("xx__topic_stats.sql"))
}

func TestGetSchemaVersionOfMigrateScript(t *testing.T) {
	s := &Store{profile: &profile.Profile{Mode: "prod", Driver: "sqlite"}}

	v, err := s.getSchemaVersionOfMigrateScript("migration/sqlite/0.3/01__card_due_index.sql")
	assert.NoError(t, err)
	assert.Equal(t, "0.3.2", v)

	latest, err := s.getSchemaVersionOfMigrateScript("migration/sqlite/LATEST.sql")
	assert.NoError(t, err)
	assert.Equal(t, "0.3.2", latest)

	_, err = s.getSchemaVersionOfMigrateScript("migration/sqlite/0.3/bad__name.sql")
	assert.Error(t, err)
}

func TestSplitSQL(t *testing.T) {
	script := `-- header comment
CREATE TABLE a (x TEXT DEFAULT 'a;b'); -- trailing
INSERT INTO a VALUES ('it''s');

CREATE INDEX i ON a (x)`

	got := splitSQL(script)
	assert.Equal(t, []string{
		"CREATE TABLE a (x TEXT DEFAULT 'a;b')",
		"INSERT INTO a VALUES ('it''s')",
		"CREATE INDEX i ON a (x)",
	}, got)
}
