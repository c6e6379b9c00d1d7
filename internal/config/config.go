// Package config loads application configuration from the environment and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends for file attachments.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds application configuration. It is built once at startup and
// passed explicitly to the components that need it.
type Config struct {
	// HTTPAddr is the address the REST API listens on.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr enables the gRPC health service when set.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN; empty selects the in-memory stores.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// AutoMigrate applies pending migrations at startup.
	AutoMigrate bool   `mapstructure:"AUTO_MIGRATE"`
	Env         string `mapstructure:"APP_ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// JWTSecret signs and verifies session tokens. Rotating it invalidates every issued token.
	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTIssuer string        `mapstructure:"JWT_ISSUER"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`
	// BcryptCost is the bcrypt cost factor (4-31).
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
	// TrustedProxies lists the addresses or CIDR ranges of reverse proxies
	// whose X-Forwarded-For header is believed. Empty trusts nobody.
	TrustedProxies  []string `mapstructure:"TRUSTED_PROXIES"`
	MaxBodyBytes    int64    `mapstructure:"MAX_BODY_BYTES"`
	LoginRatePerSec int      `mapstructure:"LOGIN_RATE_PER_SEC"`
	LoginRateBurst  int      `mapstructure:"LOGIN_RATE_BURST"`

	// AuditWriteTimeout bounds a single background audit append.
	AuditWriteTimeout time.Duration `mapstructure:"AUDIT_WRITE_TIMEOUT"`

	StorageBackend    string `mapstructure:"STORAGE_BACKEND"`
	UploadDir         string `mapstructure:"UPLOAD_DIR"`
	UploadMaxBytes    int64  `mapstructure:"UPLOAD_MAX_BYTES"`
	S3Endpoint        string `mapstructure:"S3_ENDPOINT"`
	S3Region          string `mapstructure:"S3_REGION"`
	S3Bucket          string `mapstructure:"S3_BUCKET"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`

	OTelEnabled      bool    `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint     string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure     bool    `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelSamplingRate float64 `mapstructure:"OTEL_SAMPLING_RATE"`
}

// Load reads .env (if present), then builds and validates Config from the environment.
// Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":5000")
	v.SetDefault("GRPC_ADDR", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("AUTO_MIGRATE", false)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "clinic-api")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("MAX_BODY_BYTES", 1<<20)
	v.SetDefault("LOGIN_RATE_PER_SEC", 5)
	v.SetDefault("LOGIN_RATE_BURST", 10)
	v.SetDefault("AUDIT_WRITE_TIMEOUT", "5s")
	v.SetDefault("STORAGE_BACKEND", StorageLocal)
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_REGION", "auto")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_ACCESS_KEY_ID", "")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "")
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
	v.SetDefault("OTEL_SAMPLING_RATE", 1.0)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)
	cfg.TrustedProxies = splitList(cfg.TrustedProxies)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that would otherwise surface as runtime failures.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	if c.JWTTTL <= 0 {
		return errors.New("config: JWT_TTL must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.LoginRatePerSec <= 0 || c.LoginRateBurst <= 0 {
		return errors.New("config: LOGIN_RATE_PER_SEC and LOGIN_RATE_BURST must be positive")
	}
	for _, p := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			return fmt.Errorf("config: TRUSTED_PROXIES entry %q is not an address or CIDR", p)
		}
	}
	if c.AuditWriteTimeout <= 0 {
		return errors.New("config: AUDIT_WRITE_TIMEOUT must be positive")
	}
	switch c.StorageBackend {
	case StorageLocal:
		if strings.TrimSpace(c.UploadDir) == "" {
			return errors.New("config: UPLOAD_DIR must be set for local storage")
		}
	case StorageS3:
		if c.S3Bucket == "" || c.S3Endpoint == "" {
			return errors.New("config: S3_BUCKET and S3_ENDPOINT must be set for s3 storage")
		}
	default:
		return fmt.Errorf("config: unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.OTelSamplingRate < 0 || c.OTelSamplingRate > 1 {
		return errors.New("config: OTEL_SAMPLING_RATE must be between 0 and 1")
	}
	return nil
}

// splitList normalises list values that may arrive as one comma-separated string.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
