package config

// EnvPrefix is the envconfig prefix shared by every variable.
const EnvPrefix = "ASALA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "ASALA_APP_ENV"
	EnvPort     = "ASALA_APP_PORT"
	EnvLogLevel = "ASALA_LOG_LEVEL"

	EnvTelegramBotToken = "ASALA_TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID   = "ASALA_TELEGRAM_CHAT_ID"
	EnvTelegramBaseURL  = "ASALA_TELEGRAM_BASE_URL"
	EnvTelegramTimeout  = "ASALA_TELEGRAM_TIMEOUT"
	EnvTelegramBreaker  = "ASALA_TELEGRAM_BREAKER_FAILURES"

	EnvCatalogPath = "ASALA_CATALOG_PATH"

	EnvSessionIdleTTL = "ASALA_SESSION_IDLE_TTL"

	EnvRedisURL = "ASALA_REDIS_URL"

	EnvCheckoutSessionLimit = "ASALA_CHECKOUT_RATE_LIMIT_SESSION"
)
