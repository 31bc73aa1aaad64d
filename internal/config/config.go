// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"storefront/backend/internal/credentials"
)

// Config holds application configuration loaded from the environment. Values are read once at
// startup and never reloaded.
type Config struct {
	// HTTPAddr is the address the storefront and admin HTTP API listens on.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address of the gRPC health endpoint.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN. Empty selects the in-memory tenant store (development only).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// RedisURL enables the shared resolution cache (redis://host:6379/0). Empty keeps a per-process cache.
	RedisURL string `mapstructure:"REDIS_URL"`
	// ResolveCacheTTL bounds how long a resolution is cached (e.g. "5m").
	ResolveCacheTTL string `mapstructure:"RESOLVE_CACHE_TTL"`

	// KafkaBrokers is a comma-separated broker list. When set, audit entries are mirrored to TenantEventsTopic.
	KafkaBrokers      string `mapstructure:"KAFKA_BROKERS"`
	TenantEventsTopic string `mapstructure:"TENANT_EVENTS_TOPIC"`

	// KafkaGroupID is the consumer group of the audit archive worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is where the audit archive worker pushes entries (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	OTelEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// JWTPublicKey is the PEM-encoded public key, or a path to it, used to verify admin bearer tokens.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTPrivateKey signs local admin tokens (cmd/admintoken only). Never set it on servers.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
	JWTAudience   string `mapstructure:"JWT_AUDIENCE"`
	// AdminPolicyFile optionally replaces the built-in Rego admin policy.
	AdminPolicyFile string `mapstructure:"ADMIN_POLICY_FILE"`

	// Backend project credentials handed to tenants by the credential router.
	MainProjectURL        string `mapstructure:"MAIN_PROJECT_URL"`
	MainProjectKey        string `mapstructure:"MAIN_PROJECT_KEY"`
	SecondaryProjectURL   string `mapstructure:"SECONDARY_PROJECT_URL"`
	SecondaryProjectKey   string `mapstructure:"SECONDARY_PROJECT_KEY"`
	SecondarySlugKeywords string `mapstructure:"SECONDARY_SLUG_KEYWORDS"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	// Every key needs a default for AutomaticEnv to reach Unmarshal.
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RESOLVE_CACHE_TTL", "5m")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TENANT_EVENTS_TOPIC", "storefront-tenant-events")
	v.SetDefault("KAFKA_GROUP_ID", "storefront-audit-archive")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "storefront")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_ISSUER", "storefront-auth")
	v.SetDefault("JWT_AUDIENCE", "storefront-admin")
	v.SetDefault("ADMIN_POLICY_FILE", "")
	v.SetDefault("MAIN_PROJECT_URL", "")
	v.SetDefault("MAIN_PROJECT_KEY", "")
	v.SetDefault("SECONDARY_PROJECT_URL", "")
	v.SetDefault("SECONDARY_PROJECT_KEY", "")
	v.SetDefault("SECONDARY_SLUG_KEYWORDS", "outlet")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	if d, err := time.ParseDuration(cfg.ResolveCacheTTL); err != nil || d <= 0 {
		return nil, errors.New("config: RESOLVE_CACHE_TTL must be a positive duration")
	}
	if cfg.IsProduction() {
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: DATABASE_URL must be set when APP_ENV=production")
		}
		if cfg.JWTPublicKey == "" {
			return nil, errors.New("config: JWT_PUBLIC_KEY must be set when APP_ENV=production")
		}
	}

	return &cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// CacheTTL parses ResolveCacheTTL. Returns 5m if unset or invalid.
func (c *Config) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.ResolveCacheTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables the audit event stream.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

// Credentials returns the credential router configuration.
func (c *Config) Credentials() credentials.Config {
	return credentials.Config{
		Main:              credentials.Project{URL: c.MainProjectURL, Key: c.MainProjectKey},
		Secondary:         credentials.Project{URL: c.SecondaryProjectURL, Key: c.SecondaryProjectKey},
		SecondaryKeywords: splitList(c.SecondarySlugKeywords),
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
