package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

const devSecret = "supersecret-dev-key"

type Config struct {
	Mode     Mode   `yaml:"mode"`
	HTTPAddr string `yaml:"http_addr"`
	LogMode  string `yaml:"log_mode"`

	DBDriver string `yaml:"db_driver"` // sqlite|postgres
	DBDSN    string `yaml:"db_dsn"`

	// Token signing. Must be identical on every instance behind a load balancer.
	AuthSecret      string        `yaml:"auth_hmac_secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTTLDays  int           `yaml:"refresh_token_ttl_days"`
	BcryptCost      int           `yaml:"bcrypt_cost"`
	MinPasswordLen  int           `yaml:"min_password_len"`
	HashConcurrency int           `yaml:"hash_concurrency"`
	CookieSecure    bool          `yaml:"cookie_secure"`

	CORSOrigins []string `yaml:"cors_origins"`

	BlobDriver     string `yaml:"blob_driver"` // fs|gcs
	BlobBasePath   string `yaml:"blob_base_path"`
	GCSBucket      string `yaml:"gcs_bucket"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`

	RevocationDriver string `yaml:"revocation_driver"` // sql|redis|memory
	RedisAddr        string `yaml:"redis_addr"`

	OTelEnabled     bool    `yaml:"otel_enabled"`
	OTelEndpoint    string  `yaml:"otel_endpoint"`
	OTelInsecure    bool    `yaml:"otel_insecure"`
	OTelHeaders     string  `yaml:"otel_headers"`
	OTelSampleRatio float64 `yaml:"otel_sample_ratio"`
}

// Defaults returns the configuration used when neither a file nor env sets a key.
func Defaults() Config {
	return Config{
		Mode:             ModeDev,
		HTTPAddr:         ":8080",
		LogMode:          "dev",
		DBDriver:         "sqlite",
		AccessTokenTTL:   30 * time.Minute,
		RefreshTTLDays:   7,
		BcryptCost:       12,
		MinPasswordLen:   6,
		HashConcurrency:  runtime.NumCPU(),
		CORSOrigins:      []string{"http://localhost:3000", "http://localhost:5173"},
		BlobDriver:       "fs",
		BlobBasePath:     "./uploads",
		MaxUploadBytes:   10 << 20,
		RevocationDriver: "sql",
		OTelSampleRatio:  0.1,
	}
}

// FromEnv loads defaults, overlays CONFIG_FILE (YAML) when set, then env.
func FromEnv() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	if cfg.AuthSecret == "" && cfg.Mode != ModeProd {
		cfg.AuthSecret = devSecret
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Mode = Mode(envOr("MODE", string(c.Mode)))
	c.HTTPAddr = envOr("HTTP_ADDR", c.HTTPAddr)
	c.LogMode = envOr("LOG_MODE", c.LogMode)
	c.DBDriver = envOr("DB_DRIVER", c.DBDriver)
	c.DBDSN = envOr("DB_DSN", c.DBDSN)
	c.AuthSecret = envOr("AUTH_HMAC_SECRET", c.AuthSecret)
	c.AccessTokenTTL = envDuration("ACCESS_TOKEN_TTL", c.AccessTokenTTL)
	c.RefreshTTLDays = envInt("REFRESH_TOKEN_TTL_DAYS", c.RefreshTTLDays)
	c.BcryptCost = envInt("BCRYPT_COST", c.BcryptCost)
	c.MinPasswordLen = envInt("MIN_PASSWORD_LEN", c.MinPasswordLen)
	c.HashConcurrency = envInt("HASH_CONCURRENCY", c.HashConcurrency)
	c.CookieSecure = envBool("COOKIE_SECURE", c.CookieSecure || c.Mode == ModeProd)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitCSV(v)
	}
	c.BlobDriver = envOr("BLOB_DRIVER", c.BlobDriver)
	c.BlobBasePath = envOr("BLOB_BASE_PATH", c.BlobBasePath)
	c.GCSBucket = envOr("GCS_BUCKET", c.GCSBucket)
	c.MaxUploadBytes = int64(envInt("MAX_UPLOAD_BYTES", int(c.MaxUploadBytes)))
	c.RevocationDriver = envOr("REVOCATION_DRIVER", c.RevocationDriver)
	c.RedisAddr = envOr("REDIS_ADDR", c.RedisAddr)
	c.OTelEnabled = envBool("OTEL_ENABLED", c.OTelEnabled)
	c.OTelEndpoint = envOr("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTelEndpoint)
	c.OTelInsecure = envBool("OTEL_EXPORTER_OTLP_INSECURE", c.OTelInsecure)
	c.OTelHeaders = envOr("OTEL_EXPORTER_OTLP_HEADERS", c.OTelHeaders)
	c.OTelSampleRatio = envFloat("OTEL_SAMPLER_RATIO", c.OTelSampleRatio)
}

func (c Config) Validate() error {
	var errs []error
	switch c.Mode {
	case ModeDev, ModeProd:
	default:
		errs = append(errs, fmt.Errorf("unknown MODE %q", c.Mode))
	}
	if c.AuthSecret == "" {
		errs = append(errs, errors.New("AUTH_HMAC_SECRET is required"))
	}
	if c.Mode == ModeProd && c.AuthSecret == devSecret {
		errs = append(errs, errors.New("AUTH_HMAC_SECRET must not be the dev default in prod"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.RefreshTTLDays <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL_DAYS must be positive"))
	}
	if c.MinPasswordLen < 1 {
		errs = append(errs, errors.New("MIN_PASSWORD_LEN must be at least 1"))
	}
	if c.HashConcurrency < 1 {
		errs = append(errs, errors.New("HASH_CONCURRENCY must be at least 1"))
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	switch c.BlobDriver {
	case "fs":
	case "gcs":
		if c.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required when BLOB_DRIVER=gcs"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported BLOB_DRIVER %q", c.BlobDriver))
	}
	switch c.RevocationDriver {
	case "sql", "memory":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when REVOCATION_DRIVER=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported REVOCATION_DRIVER %q", c.RevocationDriver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return i
}
func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return d
}
func envFloat(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}
func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
