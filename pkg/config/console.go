package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ConsoleConfig configures the admin console client process.
type ConsoleConfig struct {
	BaseURL      string        `envconfig:"GEMLINE_CONSOLE_BASE_URL" default:"http://localhost:8080" validate:"required,url"`
	Token        string        `envconfig:"GEMLINE_CONSOLE_TOKEN"`
	Actor        string        `envconfig:"GEMLINE_CONSOLE_ACTOR" default:"admin-console"`
	Timeout      time.Duration `envconfig:"GEMLINE_CONSOLE_TIMEOUT" default:"30s" validate:"gt=0"`
	CacheBackend string        `envconfig:"GEMLINE_CONSOLE_CACHE_BACKEND" default:"badger" validate:"oneof=badger redis none"`
	CacheDir     string        `envconfig:"GEMLINE_CONSOLE_CACHE_DIR" default:".gemline/cache"`
	ClearOnStart bool          `envconfig:"GEMLINE_CONSOLE_CLEAR_ON_START" default:"false"`
	LogLevel     string        `envconfig:"GEMLINE_LOG_LEVEL" default:"warn"`

	BreakerFailures uint32        `envconfig:"GEMLINE_CONSOLE_BREAKER_FAILURES" default:"3"`
	BreakerTimeout  time.Duration `envconfig:"GEMLINE_CONSOLE_BREAKER_TIMEOUT" default:"30s"`

	Redis RedisConfig
	JWT   ConsoleJWTConfig
}

// ConsoleJWTConfig holds the optional signing material used by the token command.
type ConsoleJWTConfig struct {
	Secret            string `envconfig:"GEMLINE_JWT_SECRET"`
	Issuer            string `envconfig:"GEMLINE_JWT_ISSUER" default:"gemline"`
	ExpirationMinutes int    `envconfig:"GEMLINE_JWT_EXPIRATION_MINUTES" default:"720"`
}

// AsJWTConfig converts to the server-side shape consumed by pkg/auth.
func (c ConsoleJWTConfig) AsJWTConfig() JWTConfig {
	return JWTConfig{Secret: c.Secret, Issuer: c.Issuer, ExpirationMinutes: c.ExpirationMinutes}
}

// LoadConsole reads the admin console configuration from the environment.
func LoadConsole() (*ConsoleConfig, error) {
	var cfg ConsoleConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing console config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid console config: %w", err)
	}
	if cfg.CacheBackend == CacheBackendRedis && !cfg.Redis.Enabled() {
		return nil, fmt.Errorf("%s=redis requires %s", EnvConsoleCacheBackend, EnvRedisURL)
	}
	return &cfg, nil
}
