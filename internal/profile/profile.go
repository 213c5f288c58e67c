package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the runtime configuration for the mastery engine.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to where the engine stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of the engine
	Version string

	// RedisAddr enables the Redis L2 cache when non-empty (MASTERY_CACHE_REDIS_ADDR)
	RedisAddr string
	// RedisPassword is the Redis password (MASTERY_CACHE_REDIS_PASSWORD)
	RedisPassword string

	// BatchSize is the number of users fetched per scheduling page (MASTERY_BATCH_SIZE, default 100)
	BatchSize int
	// Concurrency bounds simultaneous per-user computations within a batch (MASTERY_CONCURRENCY, default 8)
	Concurrency int
	// RetryAttempts is the per-user retry ceiling for transient failures (MASTERY_RETRY_ATTEMPTS, default 3)
	RetryAttempts int
	// EngineConfigPath points to an optional engine tunables file (MASTERY_ENGINE_CONFIG)
	EngineConfigPath string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvOrDefault returns the environment variable parsed as int, or the default.
func getIntEnvOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// FromEnv loads configuration from MASTERY_* environment variables.
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("MASTERY_MODE", p.Mode)
	p.Data = getEnvOrDefault("MASTERY_DATA", p.Data)
	p.DSN = getEnvOrDefault("MASTERY_DSN", p.DSN)
	p.Driver = getEnvOrDefault("MASTERY_DRIVER", p.Driver)

	p.RedisAddr = os.Getenv("MASTERY_CACHE_REDIS_ADDR")
	p.RedisPassword = os.Getenv("MASTERY_CACHE_REDIS_PASSWORD")

	p.BatchSize = getIntEnvOrDefault("MASTERY_BATCH_SIZE", p.BatchSize)
	p.Concurrency = getIntEnvOrDefault("MASTERY_CONCURRENCY", p.Concurrency)
	p.RetryAttempts = getIntEnvOrDefault("MASTERY_RETRY_ATTEMPTS", p.RetryAttempts)
	p.EngineConfigPath = getEnvOrDefault("MASTERY_ENGINE_CONFIG", p.EngineConfigPath)
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

	if p.Data == "" {
		p.Data = "."
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir

	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q: only 'sqlite' and 'postgres' are supported", p.Driver)
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("mastery_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	if p.BatchSize <= 0 {
		p.BatchSize = 100
	}
	if p.Concurrency <= 0 {
		p.Concurrency = 8
	}
	if p.Concurrency > 10 {
		// Bounded fan-out protects downstream store throughput.
		p.Concurrency = 10
	}
	if p.RetryAttempts <= 0 {
		p.RetryAttempts = 3
	}

	return nil
}
