package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MODE", "")
	t.Setenv("AUTH_HMAC_SECRET", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.AccessTokenTTL != 30*time.Minute {
		t.Fatalf("access ttl = %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTTLDays != 7 {
		t.Fatalf("refresh ttl days = %d", cfg.RefreshTTLDays)
	}
	if cfg.MinPasswordLen != 6 || cfg.BcryptCost != 12 {
		t.Fatalf("password policy = %d/%d", cfg.MinPasswordLen, cfg.BcryptCost)
	}
	if cfg.AuthSecret == "" {
		t.Fatal("dev mode should fall back to a dev secret")
	}
}

func TestFromEnvProdRequiresSecret(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MODE", "prod")
	t.Setenv("AUTH_HMAC_SECRET", "")

	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for prod without secret")
	}

	t.Setenv("AUTH_HMAC_SECRET", devSecret)
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for prod with the dev secret")
	}
}

func TestFileOverlayEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aiquiz.yaml")
	body := "http_addr: \":9000\"\naccess_token_ttl: 5m\nmin_password_len: 10\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MODE", "")
	t.Setenv("AUTH_HMAC_SECRET", "")
	t.Setenv("MIN_PASSWORD_LEN", "8")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Fatalf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Fatalf("access ttl = %v", cfg.AccessTokenTTL)
	}
	if cfg.MinPasswordLen != 8 {
		t.Fatalf("env should override file, got %d", cfg.MinPasswordLen)
	}
}

func TestValidateRejectsUnknownDrivers(t *testing.T) {
	cfg := Defaults()
	cfg.AuthSecret = "x"
	cfg.DBDriver = "mysql"
	cfg.RevocationDriver = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestTracingFromEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MODE", "")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLER_RATIO", "0.5")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.OTelEnabled || cfg.OTelSampleRatio != 0.5 || cfg.OTelEndpoint != "collector:4318" {
		t.Fatalf("tracing = %v %v %q", cfg.OTelEnabled, cfg.OTelSampleRatio, cfg.OTelEndpoint)
	}
}
