package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix scopes every environment variable consumed by the service.
const EnvPrefix = "GIFTREE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Checkout     CheckoutConfig
	Square       SquareConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GIFTREE_APP_ENV" required:"true"`
	Port         string `envconfig:"GIFTREE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GIFTREE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GIFTREE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GIFTREE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GIFTREE_DB_DSN"`
	Driver string `envconfig:"GIFTREE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GIFTREE_DB_HOST"`
	LegacyPort     int    `envconfig:"GIFTREE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GIFTREE_DB_USER"`
	LegacyPassword string `envconfig:"GIFTREE_DB_PASSWORD"`
	LegacyName     string `envconfig:"GIFTREE_DB_NAME"`
	LegacySSLMode  string `envconfig:"GIFTREE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GIFTREE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GIFTREE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GIFTREE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GIFTREE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if strings.TrimSpace(d.DSN) != "" {
		return nil
	}
	if d.LegacyHost == "" || d.LegacyUser == "" || d.LegacyName == "" {
		return fmt.Errorf("db config: either GIFTREE_DB_DSN or host/user/name must be set")
	}
	userInfo := url.UserPassword(d.LegacyUser, d.LegacyPassword)
	dsn := url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     fmt.Sprintf("%s:%d", d.LegacyHost, d.LegacyPort),
		Path:     d.LegacyName,
		RawQuery: "sslmode=" + d.LegacySSLMode,
	}
	d.DSN = dsn.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"GIFTREE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GIFTREE_REDIS_ADDR"`
	Password     string        `envconfig:"GIFTREE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GIFTREE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GIFTREE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GIFTREE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GIFTREE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GIFTREE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GIFTREE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GIFTREE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GIFTREE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GIFTREE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// CheckoutConfig tunes the checkout session engine.
type CheckoutConfig struct {
	InactivityTimeout time.Duration `envconfig:"GIFTREE_CHECKOUT_INACTIVITY_TIMEOUT" default:"60s"`
	HoldTTL           time.Duration `envconfig:"GIFTREE_CHECKOUT_HOLD_TTL" default:"5m"`
	HandoffTTL        time.Duration `envconfig:"GIFTREE_CHECKOUT_HANDOFF_TTL" default:"30m"`
	WidgetInitTimeout time.Duration `envconfig:"GIFTREE_CHECKOUT_WIDGET_INIT_TIMEOUT" default:"10s"`
}

type SquareConfig struct {
	AccessToken   string `envconfig:"GIFTREE_SQUARE_ACCESS_TOKEN"`
	Env           string `envconfig:"GIFTREE_SQUARE_ENV" default:"sandbox"`
	LocationID    string `envconfig:"GIFTREE_SQUARE_LOCATION_ID"`
	WebhookSecret string `envconfig:"GIFTREE_SQUARE_WEBHOOK_SECRET"`
}

func (s SquareConfig) Environment() string {
	return strings.ToLower(strings.TrimSpace(s.Env))
}

type GCPConfig struct {
	ProjectID string `envconfig:"GIFTREE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"GIFTREE_PUBSUB_DOMAIN_TOPIC" default:"giftree-domain-events"`
}

type OutboxConfig struct {
	BatchSize   int           `envconfig:"GIFTREE_OUTBOX_BATCH_SIZE" default:"50"`
	PollEvery   time.Duration `envconfig:"GIFTREE_OUTBOX_POLL_EVERY" default:"500ms"`
	MaxAttempts int           `envconfig:"GIFTREE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"GIFTREE_CRON_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"GIFTREE_CRON_LOCK_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GIFTREE_FEATURE_AUTO_MIGRATE" default:"false"`
}
