package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultSessionSecret is the development fallback. Running production with it
// is reported by Warnings and must be treated as a deployment error.
const DefaultSessionSecret = "auth-core-dev-secret"

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Session   SessionSettings   `mapstructure:"session"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// IsProduction reports whether the service runs with production hardening.
func (a AppSettings) IsProduction() bool {
	return a.Env == "production"
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	QueryTimeout      time.Duration `mapstructure:"query_timeout"`
}

// RedisSettings configures the durable rate-limit and remembered-device backing.
type RedisSettings struct {
	Host                string        `mapstructure:"host"`
	Port                int           `mapstructure:"port"`
	DB                  int           `mapstructure:"db"`
	Password            string        `mapstructure:"password"`
	TLSEnabled          bool          `mapstructure:"tls_enabled"`
	RateLimitPrefix     string        `mapstructure:"rate_limit_prefix"`
	DevicePrefix        string        `mapstructure:"device_prefix"`
	RememberedDeviceTTL time.Duration `mapstructure:"remembered_device_ttl"`
}

// KafkaSettings configures the notification event producer. Empty brokers
// selects the logging stub publisher.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// SessionSettings carries environment-level session and cookie overrides; the
// durable session configuration lives in the settings table and is layered on
// top at runtime.
type SessionSettings struct {
	Secret           string `mapstructure:"secret"`
	CookieDomain     string `mapstructure:"cookie_domain"`
	CookieSameSite   string `mapstructure:"cookie_same_site"`
	DisableSecure    bool   `mapstructure:"disable_secure"`
	SessionTokenSize int    `mapstructure:"token_size"`
}

// RateLimitSettings configures the login admission budget and the asymmetric
// failure penalty weights.
type RateLimitSettings struct {
	Window          time.Duration `mapstructure:"window"`
	LoginLimit      int           `mapstructure:"login_limit"`
	UsernameLimit   int           `mapstructure:"username_limit"`
	PairLimit       int           `mapstructure:"pair_limit"`
	IPPenalty       int           `mapstructure:"ip_penalty"`
	UsernamePenalty int           `mapstructure:"username_penalty"`
	PairPenalty     int           `mapstructure:"pair_penalty"`
}

type TelemetrySettings struct {
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	Namespace      string `mapstructure:"namespace"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AUTHCORE")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.query_timeout",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.rate_limit_prefix",
		"redis.device_prefix",
		"redis.remembered_device_ttl",
		"kafka.brokers",
		"kafka.topic_prefix",
		"session.secret",
		"session.cookie_domain",
		"session.cookie_same_site",
		"session.disable_secure",
		"session.token_size",
		"rate_limit.window",
		"rate_limit.login_limit",
		"rate_limit.username_limit",
		"rate_limit.pair_limit",
		"rate_limit.ip_penalty",
		"rate_limit.username_penalty",
		"rate_limit.pair_penalty",
		"telemetry.metrics_enabled",
		"telemetry.namespace",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Warnings returns human-readable complaints about insecure or suspicious
// settings. The caller decides how loudly to surface them; production
// deployments log each at warn level on startup.
func (c *AppConfig) Warnings() []string {
	var warnings []string

	if c.App.IsProduction() {
		if c.Session.Secret == DefaultSessionSecret {
			warnings = append(warnings, "session secret is the built-in default; set AUTHCORE_SESSION_SECRET")
		}
		if c.Session.DisableSecure {
			warnings = append(warnings, "secure cookies are disabled in production")
		}
		if c.Postgres.SSLMode == "disable" {
			warnings = append(warnings, "postgres ssl_mode is disabled in production")
		}
	}

	if strings.EqualFold(c.Session.CookieSameSite, "none") && c.Session.DisableSecure {
		warnings = append(warnings, "SameSite=none requires secure cookies; the disable_secure override will be ignored")
	}

	return warnings
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "auth-core")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "auth")
	v.SetDefault("postgres.password", "auth_password")
	v.SetDefault("postgres.database", "auth")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.query_timeout", "5s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.rate_limit_prefix", "auth:rate-limit")
	v.SetDefault("redis.device_prefix", "auth:device")
	v.SetDefault("redis.remembered_device_ttl", "720h")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "auth")

	v.SetDefault("session.secret", DefaultSessionSecret)
	v.SetDefault("session.cookie_domain", "")
	v.SetDefault("session.cookie_same_site", "")
	v.SetDefault("session.disable_secure", false)
	v.SetDefault("session.token_size", 32)

	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.login_limit", 5)
	v.SetDefault("rate_limit.username_limit", 10)
	v.SetDefault("rate_limit.pair_limit", 5)
	v.SetDefault("rate_limit.ip_penalty", 1)
	v.SetDefault("rate_limit.username_penalty", 2)
	v.SetDefault("rate_limit.pair_penalty", 3)

	v.SetDefault("telemetry.metrics_enabled", true)
	v.SetDefault("telemetry.namespace", "authcore")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "AUTHCORE_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
