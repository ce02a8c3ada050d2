package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
	Analytics    AnalyticsConfig
	Dashboard    DashboardConfig
	Cron         CronConfig
}

var validate = validator.New()

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := validate.Struct(cfg.App); err != nil {
		return nil, fmt.Errorf("invalid app config: %w", err)
	}
	if err := validate.Struct(cfg.Analytics); err != nil {
		return nil, fmt.Errorf("invalid analytics config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GEMLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"GEMLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GEMLINE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"GEMLINE_LOG_FORMAT" default:"json" validate:"oneof=json console"`
	LogWarnStack bool   `envconfig:"GEMLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GEMLINE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GEMLINE_DB_DSN"`
	Driver string `envconfig:"GEMLINE_DB_DRIVER" default:"postgres"`

	SQLitePath string `envconfig:"GEMLINE_SQLITE_PATH" default:"gemline.db"`

	LegacyHost     string `envconfig:"GEMLINE_DB_HOST"`
	LegacyPort     int    `envconfig:"GEMLINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GEMLINE_DB_USER"`
	LegacyPassword string `envconfig:"GEMLINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"GEMLINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"GEMLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GEMLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GEMLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GEMLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GEMLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"GEMLINE_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"GEMLINE_REDIS_URL"`
	Address      string        `envconfig:"GEMLINE_REDIS_ADDR"`
	Password     string        `envconfig:"GEMLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GEMLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GEMLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GEMLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GEMLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GEMLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GEMLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"GEMLINE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GEMLINE_JWT_ISSUER" default:"gemline"`
	ExpirationMinutes int    `envconfig:"GEMLINE_JWT_EXPIRATION_MINUTES" default:"720"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"GEMLINE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GEMLINE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GEMLINE_AUTO_MIGRATE" default:"false"`
}

type AnalyticsConfig struct {
	// CooldownStore selects where per-metric refresh timestamps live.
	CooldownStore string        `envconfig:"GEMLINE_ANALYTICS_COOLDOWN_STORE" default:"memory" validate:"oneof=memory redis"`
	StaleAfter    time.Duration `envconfig:"GEMLINE_ANALYTICS_STALE_AFTER" default:"1h" validate:"gt=0"`
	// RefreshRateLimit caps refresh requests per minute per client IP.
	RefreshRateLimit int `envconfig:"GEMLINE_ANALYTICS_REFRESH_RATE_LIMIT" default:"10" validate:"gte=0"`
}

// SharedCooldown reports whether cooldown timestamps are kept in redis.
func (a AnalyticsConfig) SharedCooldown() bool {
	return strings.EqualFold(a.CooldownStore, CooldownStoreRedis)
}

type DashboardConfig struct {
	WidgetsTTL time.Duration `envconfig:"GEMLINE_DASHBOARD_WIDGETS_TTL" default:"5m"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"GEMLINE_CRON_INTERVAL" default:"1h"`
	Actor    string        `envconfig:"GEMLINE_CRON_ACTOR" default:"cron"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DBDriverSQLite
	}
	if db.IsSQLite() {
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
