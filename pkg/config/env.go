package config

// EnvPrefix namespaces every variable read by envconfig.
const EnvPrefix = "GEMLINE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	CooldownStoreMemory = "memory"
	CooldownStoreRedis  = "redis"

	CacheBackendBadger = "badger"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

const (
	EnvAppEnv    = "GEMLINE_APP_ENV"
	EnvPort      = "GEMLINE_APP_PORT"
	EnvLogLevel  = "GEMLINE_LOG_LEVEL"
	EnvLogFormat = "GEMLINE_LOG_FORMAT"

	EnvDBDSN    = "GEMLINE_DB_DSN"
	EnvDBDriver = "GEMLINE_DB_DRIVER"
	EnvDBHost   = "GEMLINE_DB_HOST"
	EnvDBUser   = "GEMLINE_DB_USER"
	EnvDBName   = "GEMLINE_DB_NAME"
	EnvUseSQL   = "GEMLINE_USE_SQLITE"

	EnvRedisURL = "GEMLINE_REDIS_URL"

	EnvJWTSecret = "GEMLINE_JWT_SECRET"
	EnvJWTIssuer = "GEMLINE_JWT_ISSUER"

	EnvAnalyticsCooldownStore = "GEMLINE_ANALYTICS_COOLDOWN_STORE"
	EnvAnalyticsStaleAfter    = "GEMLINE_ANALYTICS_STALE_AFTER"

	EnvConsoleBaseURL      = "GEMLINE_CONSOLE_BASE_URL"
	EnvConsoleToken        = "GEMLINE_CONSOLE_TOKEN"
	EnvConsoleCacheBackend = "GEMLINE_CONSOLE_CACHE_BACKEND"
	EnvConsoleCacheDir     = "GEMLINE_CONSOLE_CACHE_DIR"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
