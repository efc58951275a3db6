package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App      AppConfig
	Telegram TelegramConfig
	Catalog  CatalogConfig
	Session  SessionConfig
	Redis    RedisConfig
	Checkout CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env            string   `envconfig:"ASALA_APP_ENV" required:"true"`
	Port           string   `envconfig:"ASALA_APP_PORT" required:"true"`
	LogLevel       string   `envconfig:"ASALA_LOG_LEVEL" default:"info"`
	LogWarnStack   bool     `envconfig:"ASALA_LOG_WARN_STACK" default:"false"`
	StoreName      string   `envconfig:"ASALA_STORE_NAME" default:"متجر الأصالة"`
	AllowedOrigins []string `envconfig:"ASALA_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// TelegramConfig points the order sender at a bot and a destination chat.
type TelegramConfig struct {
	BotToken        string        `envconfig:"ASALA_TELEGRAM_BOT_TOKEN" required:"true"`
	ChatID          string        `envconfig:"ASALA_TELEGRAM_CHAT_ID" required:"true"`
	BaseURL         string        `envconfig:"ASALA_TELEGRAM_BASE_URL" default:"https://api.telegram.org"`
	Timeout         time.Duration `envconfig:"ASALA_TELEGRAM_TIMEOUT" default:"0s"`
	BreakerFailures uint32        `envconfig:"ASALA_TELEGRAM_BREAKER_FAILURES" default:"0"`
	BreakerCoolDown time.Duration `envconfig:"ASALA_TELEGRAM_BREAKER_COOLDOWN" default:"30s"`
	BreakerHalfOpen uint32        `envconfig:"ASALA_TELEGRAM_BREAKER_HALF_OPEN_REQUESTS" default:"1"`
}

// BreakerEnabled reports whether sends go through the circuit breaker.
func (t TelegramConfig) BreakerEnabled() bool {
	return t.BreakerFailures > 0
}

type CatalogConfig struct {
	Path string `envconfig:"ASALA_CATALOG_PATH"`
}

type SessionConfig struct {
	CookieName    string        `envconfig:"ASALA_SESSION_COOKIE" default:"asala_session"`
	IdleTTL       time.Duration `envconfig:"ASALA_SESSION_IDLE_TTL" default:"2h"`
	SweepInterval time.Duration `envconfig:"ASALA_SESSION_SWEEP_INTERVAL" default:"10m"`
	SecureCookie  bool          `envconfig:"ASALA_SESSION_SECURE_COOKIE" default:"false"`
}

// RedisConfig is optional; without a URL or address the checkout guards run
// without rate limiting and idempotent replay.
type RedisConfig struct {
	URL          string        `envconfig:"ASALA_REDIS_URL"`
	Address      string        `envconfig:"ASALA_REDIS_ADDR"`
	Password     string        `envconfig:"ASALA_REDIS_PASSWORD"`
	DB           int           `envconfig:"ASALA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ASALA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ASALA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ASALA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ASALA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ASALA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type CheckoutConfig struct {
	RateLimitWindow       time.Duration `envconfig:"ASALA_CHECKOUT_RATE_LIMIT_WINDOW" default:"10m"`
	IPLimit               int           `envconfig:"ASALA_CHECKOUT_RATE_LIMIT_IP" default:"20"`
	SessionLimit          int           `envconfig:"ASALA_CHECKOUT_RATE_LIMIT_SESSION" default:"5"`
	IdempotencyTTL        time.Duration `envconfig:"ASALA_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
	RequireIdempotencyKey bool          `envconfig:"ASALA_CHECKOUT_REQUIRE_IDEMPOTENCY_KEY" default:"false"`
}

func (c *Config) validate() error {
	var errs error
	if strings.TrimSpace(c.Telegram.BotToken) == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s must not be blank", EnvTelegramBotToken))
	}
	if strings.TrimSpace(c.Telegram.ChatID) == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s must not be blank", EnvTelegramChatID))
	}
	if parsed, err := url.Parse(c.Telegram.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s must be an absolute url", EnvTelegramBaseURL))
	}
	if c.Telegram.Timeout < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must not be negative", EnvTelegramTimeout))
	}
	if c.Session.IdleTTL <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvSessionIdleTTL))
	}
	if strings.TrimSpace(c.Session.CookieName) == "" {
		errs = multierr.Append(errs, errors.New("session cookie name must not be blank"))
	}
	if errs != nil {
		return fmt.Errorf("invalid config: %w", errs)
	}
	return nil
}
