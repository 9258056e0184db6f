package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress         = "localhost:8080"
	defaultMigrationsDir      = "internal/db/migrations"
	defaultRateLimitPerMinute = 60
	defaultIdempotencyTTL     = 24 * time.Hour
	defaultTxIsolation        = "read committed"
)

var (
	ErrEmptyDatabaseDSN = errors.New("database DSN is not set")
	ErrEmptyJWTSecret   = errors.New("jwt secret is not set")
)

// Config конфигурация сервиса. Пустой RedisURL означает работу без redis: idempotency отключена, rate limit
// считается в памяти процесса. TxIsolation уровень изоляции транзакций обработки: read committed,
// repeatable read, serializable.
type Config struct {
	RunAddress         string        `env:"RUN_ADDRESS"`
	DatabaseDSN        string        `env:"DATABASE_URI"`
	MigrationsDir      string        `env:"MIGRATIONS_DIR"`
	JWTSecret          string        `env:"JWT_SECRET"`
	RedisURL           string        `env:"REDIS_URL"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE"`
	IdempotencyTTL     time.Duration `env:"IDEMPOTENCY_TTL"`
	TxIsolation        string        `env:"TX_ISOLATION"`
	LogLevel           string        `env:"LOG_LEVEL"`
}

// String не раскрывает секреты при логировании конфигурации.
func (c Config) String() string {
	return fmt.Sprintf(
		"{RunAddress:%s MigrationsDir:%s RedisEnabled:%t RateLimitPerMinute:%d IdempotencyTTL:%s TxIsolation:%s}",
		c.RunAddress, c.MigrationsDir, c.RedisURL != "", c.RateLimitPerMinute, c.IdempotencyTTL, c.TxIsolation,
	)
}

// LoadConfig собирает конфигурацию: переменные окружения (включая .env, если он есть) имеют приоритет над флагами.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}

func loadConfig(args []string) (*Config, error) {
	var flagsConfig, envConfig Config

	// .env необязателен, уже установленные переменные окружения он не перезаписывает.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %w", envParseErr)
	}

	if flagsErr := loadFlags(&flagsConfig, args); flagsErr != nil {
		return nil, flagsErr
	}

	conf := mergeConfig(&envConfig, &flagsConfig)
	if conf.DatabaseDSN == "" {
		return nil, ErrEmptyDatabaseDSN
	}
	if conf.JWTSecret == "" {
		return nil, ErrEmptyJWTSecret
	}
	return conf, nil
}

func loadFlags(flagConfig *Config, args []string) error {
	fs := flag.NewFlagSet("ledger", flag.ContinueOnError)
	fs.StringVar(&flagConfig.RunAddress, "a", defaultRunAddress, "Run address in format host:port")
	fs.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN")
	fs.StringVar(&flagConfig.MigrationsDir, "m", defaultMigrationsDir, "Database migrations directory")
	fs.StringVar(&flagConfig.JWTSecret, "j", "", "JWT secret key")
	fs.StringVar(&flagConfig.RedisURL, "r", "", "Redis URL, redis://host:port/db")
	fs.IntVar(&flagConfig.RateLimitPerMinute, "l", defaultRateLimitPerMinute, "Requests per minute per client")
	fs.DurationVar(&flagConfig.IdempotencyTTL, "i", defaultIdempotencyTTL, "Idempotency key TTL")
	fs.StringVar(&flagConfig.TxIsolation, "t", defaultTxIsolation, "Transaction isolation level")
	fs.StringVar(&flagConfig.LogLevel, "log-level", "", "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}

func mergeConfig(envConfig, flagsConfig *Config) *Config {
	return &Config{
		RunAddress:         defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress),
		DatabaseDSN:        defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN),
		MigrationsDir:      defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir),
		JWTSecret:          defaultIfBlank(envConfig.JWTSecret, flagsConfig.JWTSecret),
		RedisURL:           defaultIfBlank(envConfig.RedisURL, flagsConfig.RedisURL),
		RateLimitPerMinute: defaultIfBlank(envConfig.RateLimitPerMinute, flagsConfig.RateLimitPerMinute),
		IdempotencyTTL:     defaultIfBlank(envConfig.IdempotencyTTL, flagsConfig.IdempotencyTTL),
		TxIsolation:        defaultIfBlank(envConfig.TxIsolation, flagsConfig.TxIsolation),
		LogLevel:           defaultIfBlank(envConfig.LogLevel, flagsConfig.LogLevel),
	}
}

func defaultIfBlank[T comparable](value T, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}
