package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DevSecret signs tokens in dev and demo mode when no secret is configured.
const DevSecret = "studyquest-dev"

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where studyquest stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// Secret is the HMAC key used to verify access tokens issued by the auth service.
	Secret string

	// Cache Configuration
	RedisAddr     string // STUDYQUEST_REDIS_ADDR (empty disables the L2 cache)
	RedisPassword string // STUDYQUEST_REDIS_PASSWORD
	RedisDB       int    // STUDYQUEST_REDIS_DB (default: 0)

	// Study Configuration
	RateLimitPerSecond float64       // STUDYQUEST_RATE_LIMIT_RPS (default: 5)
	RateLimitBurst     int           // STUDYQUEST_RATE_LIMIT_BURST (default: 10)
	SessionTTL         time.Duration // STUDYQUEST_SESSION_TTL (default: 2h)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsRedisEnabled reports whether the L2 profile cache should be used.
func (p *Profile) IsRedisEnabled() bool {
	return p.RedisAddr != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from STUDYQUEST_* environment variables.
// Values that fail to parse keep their defaults.
func (p *Profile) FromEnv() {
	getInt := func(key string, defaultValue int) int {
		if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
			return v
		}
		return defaultValue
	}

	p.Secret = getEnvOrDefault("STUDYQUEST_SECRET", p.Secret)

	p.RedisAddr = os.Getenv("STUDYQUEST_REDIS_ADDR")
	p.RedisPassword = os.Getenv("STUDYQUEST_REDIS_PASSWORD")
	p.RedisDB = getInt("STUDYQUEST_REDIS_DB", 0)

	p.RateLimitPerSecond = 5
	if v, err := strconv.ParseFloat(os.Getenv("STUDYQUEST_RATE_LIMIT_RPS"), 64); err == nil && v > 0 {
		p.RateLimitPerSecond = v
	}
	p.RateLimitBurst = getInt("STUDYQUEST_RATE_LIMIT_BURST", 10)

	p.SessionTTL = 2 * time.Hour
	if d, err := time.ParseDuration(os.Getenv("STUDYQUEST_SESSION_TTL")); err == nil && d > 0 {
		p.SessionTTL = d
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q", p.Driver)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a dsn")
	}
	if p.Secret == "" {
		if p.Mode == "prod" {
			return errors.New("secret is required in prod mode")
		}
		slog.Warn("no secret configured, using the insecure development secret", slog.String("mode", p.Mode))
		p.Secret = DevSecret
	}
	if p.RateLimitPerSecond <= 0 {
		p.RateLimitPerSecond = 5
	}
	if p.RateLimitBurst <= 0 {
		p.RateLimitBurst = 10
	}
	if p.SessionTTL <= 0 {
		p.SessionTTL = 2 * time.Hour
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "studyquest")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/studyquest"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("studyquest_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
