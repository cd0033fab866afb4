package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// StorageDriver выбирает основное хранилище приложения.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	// RedisAddr пустой — кэш каталога работает в памяти процесса.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// KafkaBrokers пустой — события остаются в outbox до появления брокера.
	KafkaBrokers string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,
	}
}

// LoadConfigFromEnv строит конфигурацию из переменных окружения SHOPCORE_*.
// Заданный SHOPCORE_POSTGRES_DSN автоматически переключает драйвер на postgres.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := envString("SHOPCORE_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := envString("SHOPCORE_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
		cfg.StorageDriver = StorageDriverPostgres
	}
	if v := envString("SHOPCORE_STORAGE_DRIVER"); v != "" {
		cfg.StorageDriver = StorageDriver(strings.ToLower(v))
	}
	if v := envString("SHOPCORE_POSTGRES_AUTO_MIGRATE"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.PostgresAutoMigrate = parsed
		}
	}
	if v := envString("SHOPCORE_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := envString("SHOPCORE_REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := envString("SHOPCORE_REDIS_DB"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.RedisDB = parsed
		}
	}
	if v := envString("SHOPCORE_KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = v
	}
	if v := envString("SHOPCORE_OUTBOX_POLL_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			cfg.OutboxPollInterval = parsed
		}
	}
	if v := envString("SHOPCORE_OUTBOX_BATCH_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.OutboxBatchSize = parsed
		}
	}
	if v := envString("SHOPCORE_OUTBOX_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.OutboxMaxAttempts = parsed
		}
	}
	if v := envString("SHOPCORE_OUTBOX_RETRY_DELAY"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed >= 0 {
			cfg.OutboxRetryDelay = parsed
		}
	}

	return cfg
}

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
