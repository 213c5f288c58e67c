package profile

import (
	"os"
	"testing"
)

func clearEnvVars() {
	vars := []string{
		"MASTERY_MODE", "MASTERY_DATA", "MASTERY_DSN", "MASTERY_DRIVER",
		"MASTERY_CACHE_REDIS_ADDR", "MASTERY_CACHE_REDIS_PASSWORD",
		"MASTERY_BATCH_SIZE", "MASTERY_CONCURRENCY", "MASTERY_RETRY_ATTEMPTS",
		"MASTERY_ENGINE_CONFIG",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}

func TestProfileDefaults(t *testing.T) {
	clearEnvVars()

	p := &Profile{Mode: "dev", Data: "."}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}

	if p.Driver != "sqlite" {
		t.Errorf("expected sqlite default driver, got %q", p.Driver)
	}
	if p.DSN == "" {
		t.Error("expected DSN to be derived for sqlite")
	}
	if p.BatchSize != 100 {
		t.Errorf("expected default batch size 100, got %d", p.BatchSize)
	}
	if p.Concurrency != 8 {
		t.Errorf("expected default concurrency 8, got %d", p.Concurrency)
	}
	if p.RetryAttempts != 3 {
		t.Errorf("expected default retry attempts 3, got %d", p.RetryAttempts)
	}
}

func TestProfileFromEnv(t *testing.T) {
	clearEnvVars()

	os.Setenv("MASTERY_DRIVER", "postgres")
	os.Setenv("MASTERY_DSN", "postgres://localhost/mastery")
	os.Setenv("MASTERY_BATCH_SIZE", "50")
	os.Setenv("MASTERY_CONCURRENCY", "5")
	defer clearEnvVars()

	p := &Profile{Mode: "prod", Data: "."}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}

	if p.Driver != "postgres" {
		t.Errorf("expected postgres driver, got %q", p.Driver)
	}
	if p.BatchSize != 50 {
		t.Errorf("expected batch size 50, got %d", p.BatchSize)
	}
	if p.Concurrency != 5 {
		t.Errorf("expected concurrency 5, got %d", p.Concurrency)
	}
}

func TestProfileConcurrencyCeiling(t *testing.T) {
	clearEnvVars()

	p := &Profile{Mode: "dev", Data: ".", Concurrency: 64}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
	if p.Concurrency != 10 {
		t.Errorf("expected concurrency capped at 10, got %d", p.Concurrency)
	}
}

func TestProfileRejectsUnknownDriver(t *testing.T) {
	clearEnvVars()

	p := &Profile{Mode: "prod", Data: ".", Driver: "mysql", DSN: "x"}
	if err := p.Validate(); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestProfilePostgresRequiresDSN(t *testing.T) {
	clearEnvVars()

	p := &Profile{Mode: "prod", Data: ".", Driver: "postgres"}
	if err := p.Validate(); err == nil {
		t.Error("expected error for postgres without DSN")
	}
}
