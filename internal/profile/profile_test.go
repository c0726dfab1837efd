package profile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileFromEnvDefaults(t *testing.T) {
	clearEnvVars(t)

	profile := &Profile{}
	profile.FromEnv()

	tests := []struct {
		name     string
		expected any
		actual   any
	}{
		{"RedisAddr empty", "", profile.RedisAddr},
		{"RedisDB default", 0, profile.RedisDB},
		{"RateLimitPerSecond default", 5.0, profile.RateLimitPerSecond},
		{"RateLimitBurst default", 10, profile.RateLimitBurst},
		{"SessionTTL default", 2 * time.Hour, profile.SessionTTL},
		{"Redis disabled", false, profile.IsRedisEnabled()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.expected, tt.actual)
			}
		})
	}
}

func TestProfileFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		field    func(*Profile) any
		expected any
	}{
		{
			name:     "STUDYQUEST_REDIS_ADDR",
			envVar:   "STUDYQUEST_REDIS_ADDR",
			envValue: "localhost:6379",
			field:    func(p *Profile) any { return p.IsRedisEnabled() },
			expected: true,
		},
		{
			name:     "STUDYQUEST_REDIS_DB",
			envVar:   "STUDYQUEST_REDIS_DB",
			envValue: "3",
			field:    func(p *Profile) any { return p.RedisDB },
			expected: 3,
		},
		{
			name:     "STUDYQUEST_RATE_LIMIT_RPS",
			envVar:   "STUDYQUEST_RATE_LIMIT_RPS",
			envValue: "0.5",
			field:    func(p *Profile) any { return p.RateLimitPerSecond },
			expected: 0.5,
		},
		{
			name:     "invalid STUDYQUEST_RATE_LIMIT_RPS keeps default",
			envVar:   "STUDYQUEST_RATE_LIMIT_RPS",
			envValue: "fast",
			field:    func(p *Profile) any { return p.RateLimitPerSecond },
			expected: 5.0,
		},
		{
			name:     "STUDYQUEST_SESSION_TTL",
			envVar:   "STUDYQUEST_SESSION_TTL",
			envValue: "15m",
			field:    func(p *Profile) any { return p.SessionTTL },
			expected: 15 * time.Minute,
		},
		{
			name:     "STUDYQUEST_SECRET",
			envVar:   "STUDYQUEST_SECRET",
			envValue: "s3cret",
			field:    func(p *Profile) any { return p.Secret },
			expected: "s3cret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars(t)
			t.Setenv(tt.envVar, tt.envValue)

			profile := &Profile{}
			profile.FromEnv()

			if actual := tt.field(profile); actual != tt.expected {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.expected, actual)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	p := &Profile{Mode: "weird", Data: dir}
	require.NoError(t, p.Validate())
	assert.Equal(t, "demo", p.Mode)
	assert.Equal(t, "sqlite", p.Driver)
	assert.Equal(t, filepath.Join(dir, "studyquest_demo.db"), p.DSN)
	assert.Equal(t, 2*time.Hour, p.SessionTTL)
	assert.Equal(t, DevSecret, p.Secret)

	assert.Error(t, (&Profile{Mode: "dev", Data: dir, Driver: "mysql"}).Validate())
	assert.Error(t, (&Profile{Mode: "dev", Data: dir, Driver: "postgres"}).Validate())
	assert.Error(t, (&Profile{Mode: "prod", Data: dir}).Validate(), "prod requires a secret")
	assert.Error(t, (&Profile{Mode: "dev", Data: filepath.Join(dir, "missing")}).Validate())
}

func clearEnvVars(t *testing.T) {
	for _, key := range []string{
		"STUDYQUEST_SECRET",
		"STUDYQUEST_REDIS_ADDR",
		"STUDYQUEST_REDIS_PASSWORD",
		"STUDYQUEST_REDIS_DB",
		"STUDYQUEST_RATE_LIMIT_RPS",
		"STUDYQUEST_RATE_LIMIT_BURST",
		"STUDYQUEST_SESSION_TTL",
	} {
		t.Setenv(key, "")
	}
}
