// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const minSecretLength = 32

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	Auth      AuthConfig      `koanf:"auth"`
	Avatar    AvatarConfig    `koanf:"avatar"`
	Mail      MailConfig      `koanf:"mail"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// MutationTimeout bounds store and file side effects that keep running
	// after the client goes away.
	MutationTimeout time.Duration `koanf:"mutation_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type RedisConfig struct {
	URL          string        `koanf:"url"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
}

type JWTConfig struct {
	Secret        string        `koanf:"secret"`
	SessionExpire time.Duration `koanf:"session_expire"`
	Issuer        string        `koanf:"issuer"`
	Audience      string        `koanf:"audience"`
}

type AuthConfig struct {
	BcryptCost          int    `koanf:"bcrypt_cost"`
	RequireVerification bool   `koanf:"require_verification"`
	VerifyBaseURL       string `koanf:"verify_base_url"`
}

type AvatarConfig struct {
	PublicDir      string `koanf:"public_dir"`
	TempDir        string `koanf:"temp_dir"`
	MaxUploadBytes int64  `koanf:"max_upload_bytes"`
}

type MailConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Username    string        `koanf:"username"`
	Password    string        `koanf:"password"`
	From        string        `koanf:"from"`
	ImplicitTLS bool          `koanf:"implicit_tls"`
	Timeout     time.Duration `koanf:"timeout"`
	QueueSize   int           `koanf:"queue_size"`
	Workers     int           `koanf:"workers"`
}

// LimitConfig allows Requests per Window with bursts up to Burst.
type LimitConfig struct {
	Requests int           `koanf:"requests"`
	Burst    int           `koanf:"burst"`
	Window   time.Duration `koanf:"window"`
}

type RateLimitConfig struct {
	Global LimitConfig `koanf:"global"`
	// Auth applies per client and route to the unauthenticated account
	// endpoints.
	Auth LimitConfig `koanf:"auth"`
	// Tiers are keyed by subscription. Unknown subscriptions use DefaultTier.
	Tiers       map[string]LimitConfig `koanf:"tiers"`
	DefaultTier string                 `koanf:"default_tier"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// Load layers defaults, the optional YAML file at configPath and the mapped
// environment variables, then validates the result.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Contacts API",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             3000,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",
		"server.mutation_timeout": "10s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.auto_migrate":       true,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,
		"redis.dial_timeout":   "5s",
		"redis.read_timeout":   "3s",

		"jwt.session_expire": "24h",
		"jwt.issuer":         "contacts-api",
		"jwt.audience":       "contacts-api",

		"auth.bcrypt_cost":          10,
		"auth.require_verification": true,
		"auth.verify_base_url":      "http://localhost:3000",

		"avatar.public_dir":       "public",
		"avatar.temp_dir":         "temp",
		"avatar.max_upload_bytes": 5 << 20,

		"mail.port":         465,
		"mail.implicit_tls": true,
		"mail.timeout":      "10s",
		"mail.queue_size":   100,
		"mail.workers":      2,

		"rate_limit.global.requests":         100,
		"rate_limit.global.burst":            20,
		"rate_limit.global.window":           "1m",
		"rate_limit.auth.requests":           30,
		"rate_limit.auth.burst":              10,
		"rate_limit.auth.window":             "1h",
		"rate_limit.tiers.starter.requests":  60,
		"rate_limit.tiers.starter.burst":     10,
		"rate_limit.tiers.starter.window":    "1m",
		"rate_limit.tiers.pro.requests":      300,
		"rate_limit.tiers.pro.burst":         50,
		"rate_limit.tiers.pro.window":        "1m",
		"rate_limit.tiers.business.requests": 1200,
		"rate_limit.tiers.business.burst":    200,
		"rate_limit.tiers.business.window":   "1m",
		"rate_limit.default_tier":            "starter",

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "contacts-api",

		"metrics.enabled": true,
		"metrics.path":    "/metrics",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"DB_AUTO_MIGRATE":             "database.auto_migrate",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_SECRET":                  "jwt.secret",
	"JWT_SESSION_EXPIRE":          "jwt.session_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"BCRYPT_COST":                 "auth.bcrypt_cost",
	"REQUIRE_EMAIL_VERIFICATION":  "auth.require_verification",
	"BASE_URL":                    "auth.verify_base_url",
	"AVATAR_PUBLIC_DIR":           "avatar.public_dir",
	"AVATAR_TEMP_DIR":             "avatar.temp_dir",
	"SMTP_HOST":                   "mail.host",
	"SMTP_PORT":                   "mail.port",
	"SMTP_USER":                   "mail.username",
	"SMTP_PASSWORD":               "mail.password",
	"SMTP_FROM":                   "mail.from",
	"SMTP_IMPLICIT_TLS":           "mail.implicit_tls",
	"RATE_LIMIT_REQUESTS":         "rate_limit.global.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.global.window",
	"RATE_LIMIT_BURST":            "rate_limit.global.burst",
	"AUTH_RATE_LIMIT_REQUESTS":    "rate_limit.auth.requests",
	"AUTH_RATE_LIMIT_WINDOW":      "rate_limit.auth.window",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"METRICS_ENABLED":             "metrics.enabled",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if len(c.JWT.Secret) < minSecretLength {
		return fmt.Errorf(
			"JWT_SECRET must be at least %d bytes",
			minSecretLength,
		)
	}

	if c.JWT.SessionExpire <= 0 {
		return fmt.Errorf("jwt.session_expire must be positive")
	}

	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31")
	}

	if c.Avatar.PublicDir == "" || c.Avatar.TempDir == "" {
		return fmt.Errorf("avatar.public_dir and avatar.temp_dir are required")
	}

	if c.Mail.QueueSize < 1 || c.Mail.Workers < 1 {
		return fmt.Errorf("mail.queue_size and mail.workers must be positive")
	}

	if c.Mail.Host != "" && c.Mail.From == "" {
		return fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set")
	}

	if err := validateRateLimits(c.RateLimit); err != nil {
		return err
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	if c.Server.MutationTimeout <= 0 {
		return fmt.Errorf("server.mutation_timeout must be positive")
	}

	return nil
}

func validateRateLimits(rl RateLimitConfig) error {
	limits := map[string]LimitConfig{
		"global": rl.Global,
		"auth":   rl.Auth,
	}
	for name, l := range rl.Tiers {
		limits["tiers."+name] = l
	}

	for name, l := range limits {
		if l.Requests < 1 || l.Burst < 1 || l.Window <= 0 {
			return fmt.Errorf(
				"rate_limit.%s needs positive requests, burst and window",
				name,
			)
		}
	}

	if _, ok := rl.Tiers[rl.DefaultTier]; !ok {
		return fmt.Errorf(
			"rate_limit.default_tier %q has no tier limit",
			rl.DefaultTier,
		)
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (m *MailConfig) Address() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}
