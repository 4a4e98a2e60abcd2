package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Stripe   StripeConfig   `koanf:"stripe"`
	BoothAPI BoothAPIConfig `koanf:"booth_api"`
	Checkout CheckoutConfig `koanf:"checkout"`
	Logger   LoggerConfig   `koanf:"logger"`
	Worker   WorkerConfig   `koanf:"worker"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
	MigrationsPath  string        `koanf:"migrations_path"`
}

// StripeConfig holds credentials for the payment processor. WebhookTolerance
// bounds how old a signed webhook timestamp may be before it is rejected.
type StripeConfig struct {
	SecretKey        string        `koanf:"secret_key" validate:"required"`
	WebhookSecret    string        `koanf:"webhook_secret" validate:"required"`
	BaseURL          string        `koanf:"base_url"`
	ConnTimeout      time.Duration `koanf:"conn_timeout" validate:"required"`
	WebhookTolerance time.Duration `koanf:"webhook_tolerance"`
}

// BoothAPIConfig points at the booth's backing API, which serves both promo
// validation/redemption and customer lookup.
type BoothAPIConfig struct {
	BaseURL     string        `koanf:"base_url" validate:"required"`
	ConnTimeout time.Duration `koanf:"conn_timeout" validate:"required"`
}

type CheckoutConfig struct {
	SessionTTL       time.Duration `koanf:"session_ttl" validate:"required"`
	Currency         string        `koanf:"currency" validate:"required"`
	ZeroAmountBypass bool          `koanf:"zero_amount_bypass"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

type WorkerConfig struct {
	Interval  time.Duration `koanf:"interval" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"required"`
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("BOOTH_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "BOOTH_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}
	// Unmarshal only touches keys present in the environment, so default-true
	// flags are seeded up front.
	mainConfig.Checkout.ZeroAmountBypass = true

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	applyDefaults(mainConfig)

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Stripe.BaseURL == "" {
		cfg.Stripe.BaseURL = "https://api.stripe.com"
	}
	if cfg.Stripe.WebhookTolerance == 0 {
		cfg.Stripe.WebhookTolerance = 5 * time.Minute
	}
	if cfg.Checkout.SessionTTL == 0 {
		cfg.Checkout.SessionTTL = 120 * time.Second
	}
	if cfg.Checkout.Currency == "" {
		cfg.Checkout.Currency = "thb"
	}
	if cfg.Database.MigrationsPath == "" {
		cfg.Database.MigrationsPath = "db/migrations"
	}
}

// NewLogger builds the process-wide slog logger from the configured level.
func (c LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level

	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
