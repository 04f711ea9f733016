package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/rddigitech/dashboard-api/internal/core"
	"github.com/rddigitech/dashboard-api/internal/metrics"
)

type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Analytics AnalyticsConfig
	Metrics   MetricsConfig
	Tenants   []core.TenantConfig
}

type ServerConfig struct {
	Port            string
	MetricsPort     string          `mapstructure:"metrics_port"`
	Mode            string
	AllowedOrigins  []string        `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig caps dashboard requests per tenant. Zero disables it.
type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	Burst     int
}

type AuthConfig struct {
	Issuer     string
	Audience   string
	JWKSURL    string `mapstructure:"jwks_url"`
	Secret     string
	EmailClaim string `mapstructure:"email_claim"`
	OwnerEmail string `mapstructure:"owner_email"`
}

type AnalyticsConfig struct {
	CredentialsJSON string        `mapstructure:"credentials_json"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	Endpoint        string
	Timeout         time.Duration
}

type MetricsConfig struct {
	RemoteWrite metrics.RemoteWriteConfig `mapstructure:"remote_write"`
}

var defaultOrigins = []string{
	"https://stepbystepclub.ca",
	"https://www.stepbystepclub.ca",
	"http://localhost:5173",
	"http://localhost:8888",
	"http://localhost:5174",
}

func defaultTenants() []core.TenantConfig {
	return []core.TenantConfig{
		{Key: "stepbystep", Aliases: []string{"stepxstep", "stepbystepclub"}},
		{Key: "ksnapstudio", Aliases: []string{"ksnap", "k-snap"}},
		{Key: "rddigitech", Aliases: []string{"rd", "rd-digitech", "rddigitaltech"}},
	}
}

// Load reads .env, config.yaml and the environment, in increasing priority.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.metrics_port", "9090")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.rate_limit.per_minute", 60)
	v.SetDefault("server.rate_limit.burst", 10)
	v.SetDefault("auth.email_claim", "https://rddigitech.ca/email")
	v.SetDefault("analytics.timeout", "20s")
	v.SetDefault("metrics.remote_write.tenant_header", "X-Scope-OrgID")
	v.SetDefault("metrics.remote_write.batch_size", 1000)
	v.SetDefault("metrics.remote_write.flush_interval", "30s")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg, os.Getenv)
	return &cfg, nil
}

// applyEnv overlays the variables used by existing deployments.
func applyEnv(cfg *Config, getenv func(string) string) {
	if port := getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if origins := ParseList(getenv("CORS_ALLOWED_ORIGINS")); len(origins) > 0 {
		cfg.Server.AllowedOrigins = origins
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = append([]string(nil), defaultOrigins...)
	}

	if v := getenv("AUTH0_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}
	if v := getenv("AUTH0_AUDIENCE"); v != "" {
		cfg.Auth.Audience = v
	}
	if v := getenv("JWT_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := getenv("OWNER_EMAIL"); v != "" {
		cfg.Auth.OwnerEmail = v
	}
	if v := getenv("GOOGLE_SERVICE_ACCOUNT_JSON"); v != "" {
		cfg.Analytics.CredentialsJSON = v
	}

	if len(cfg.Tenants) == 0 {
		cfg.Tenants = defaultTenants()
	}
	for i := range cfg.Tenants {
		t := &cfg.Tenants[i]
		suffix := EnvSuffix(t.Key)
		if id := getenv("GA4_PROPERTY_ID_" + suffix); id != "" {
			t.DataSourceID = id
		}
		if emails := ParseList(getenv("ALLOWED_EMAILS_" + suffix)); len(emails) > 0 {
			t.AllowedEmails = emails
		}
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs error
	if strings.TrimSpace(c.Auth.OwnerEmail) == "" {
		errs = multierr.Append(errs, errors.New("auth.owner_email (OWNER_EMAIL) is required"))
	}
	if c.Auth.Issuer == "" && c.Auth.JWKSURL == "" && c.Auth.Secret == "" {
		errs = multierr.Append(errs, errors.New("one of auth.issuer, auth.jwks_url or auth.secret is required"))
	}
	if c.Analytics.CredentialsJSON == "" && c.Analytics.CredentialsFile == "" {
		errs = multierr.Append(errs, errors.New("analytics credentials (GOOGLE_SERVICE_ACCOUNT_JSON) are required"))
	}
	if len(c.Tenants) == 0 {
		errs = multierr.Append(errs, errors.New("no tenants configured"))
	}
	for i, t := range c.Tenants {
		if strings.TrimSpace(t.Key) == "" {
			errs = multierr.Append(errs, fmt.Errorf("tenants[%d]: key is required", i))
		}
	}
	return errs
}

// ParseList splits a comma-separated value, trimming entries and dropping blanks.
func ParseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EnvSuffix turns a tenant key into the suffix of its environment variables,
// e.g. "k-snap" becomes "K_SNAP".
func EnvSuffix(key string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(key)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
