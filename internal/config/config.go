package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	NotifierSES = "ses"
	NotifierLog = "log"

	SecretSourceManager = "secretsmanager"
	SecretSourceEnv     = "env"
)

// AWS groups the settings shared by every AWS client.
type AWS struct {
	Region   string `envconfig:"REGION" default:"eu-west-3"`
	Endpoint string `envconfig:"ENDPOINT"`
}

// ExchangeRate configures the currency lookup service.
type ExchangeRate struct {
	APIURL      string        `envconfig:"API_URL" default:"https://api.exchangerate-api.com/v4/latest"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
	CacheTTL    time.Duration `envconfig:"CACHE_TTL" default:"15m"`
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string        `envconfig:"APP_NAME" default:"EazyCard"`
	AppEnv         string        `envconfig:"APP_ENV" default:"development"`
	Port           string        `envconfig:"PORT" default:"8080"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string        `envconfig:"LOG_FORMAT" default:"json"`
	ShutdownPeriod time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	Store       string `envconfig:"ACCOUNT_STORE" default:"dynamodb"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	RedisURL    string `envconfig:"REDIS_URL"`

	AWS          AWS          `envconfig:"AWS"`
	ClientsTable string       `envconfig:"DYNAMODB_TABLE_CLIENT_NAME" default:"eazycard-clients"`
	ExchangeRate ExchangeRate `envconfig:"EXCHANGE_RATE"`

	SecretSource      string        `envconfig:"SECRET_SOURCE" default:"secretsmanager"`
	SecretName        string        `envconfig:"SECRET_CLIENT_NAME" default:"eazycard/api"`
	APIKeySecretField string        `envconfig:"API_KEY_SECRET_FIELD" default:"EAZYCARD_API_KEY"`
	SecretCacheTTL    time.Duration `envconfig:"SECRET_CACHE_TTL" default:"5m"`

	Notifier            string        `envconfig:"NOTIFIER" default:"ses"`
	VerifiedEmail       string        `envconfig:"VERIFIED_EMAIL"`
	AdminEmails         []string      `envconfig:"ADMIN_EMAILS"`
	NotificationTimeout time.Duration `envconfig:"NOTIFICATION_TIMEOUT" default:"15s"`

	SettlementCurrency string        `envconfig:"SETTLEMENT_CURRENCY" default:"EUR"`
	StatementSchedule  string        `envconfig:"STATEMENT_SCHEDULE" default:"0 8 * * MON"`
	StatementTimeout   time.Duration `envconfig:"STATEMENT_TIMEOUT" default:"10m"`
	MaxUpdateAttempts  int           `envconfig:"MAX_UPDATE_ATTEMPTS" default:"3"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
}

// Load reads an optional .env file, then populates a Config from the environment.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Store = strings.ToLower(cfg.Store)
	cfg.Notifier = strings.ToLower(cfg.Notifier)
	cfg.SecretSource = strings.ToLower(cfg.SecretSource)
	cfg.SettlementCurrency = strings.ToUpper(strings.TrimSpace(cfg.SettlementCurrency))
	cfg.AdminEmails = compact(cfg.AdminEmails)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store {
	case StoreDynamoDB, StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when ACCOUNT_STORE=%s", c.Store)
		}
	default:
		return fmt.Errorf("unsupported ACCOUNT_STORE %q", c.Store)
	}

	switch c.Notifier {
	case NotifierLog:
	case NotifierSES:
		if c.VerifiedEmail == "" {
			return fmt.Errorf("VERIFIED_EMAIL must be set when NOTIFIER=%s", c.Notifier)
		}
	default:
		return fmt.Errorf("unsupported NOTIFIER %q", c.Notifier)
	}

	switch c.SecretSource {
	case SecretSourceManager, SecretSourceEnv:
	default:
		return fmt.Errorf("unsupported SECRET_SOURCE %q", c.SecretSource)
	}

	if !c.IsDevelopment() {
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", c.AppEnv)
		}
		if c.Store == StoreMemory {
			return fmt.Errorf("ACCOUNT_STORE=%s is only allowed in development", StoreMemory)
		}
	}

	if len(c.SettlementCurrency) != 3 {
		return fmt.Errorf("invalid SETTLEMENT_CURRENCY %q", c.SettlementCurrency)
	}
	if c.MaxUpdateAttempts < 1 {
		return fmt.Errorf("MAX_UPDATE_ATTEMPTS must be at least 1")
	}
	return nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDevelopment reports whether the app runs in a local environment.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// LogValue keeps secrets out of startup logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("env", c.AppEnv),
		slog.String("store", c.Store),
		slog.String("notifier", c.Notifier),
		slog.String("secret_source", c.SecretSource),
		slog.String("database_url", mask(c.DatabaseURL)),
		slog.String("redis_url", mask(c.RedisURL)),
		slog.String("aws_region", c.AWS.Region),
		slog.String("settlement_currency", c.SettlementCurrency),
		slog.String("statement_schedule", c.StatementSchedule),
		slog.Int("admin_recipients", len(c.AdminEmails)),
	)
}

func mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 6 {
		return "****"
	}
	return value[:3] + "****" + value[len(value)-3:]
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
