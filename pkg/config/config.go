package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix scopes every environment variable consumed by the service.
	EnvPrefix = "FHM"

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Storage driver names accepted by StorageConfig.Driver.
const (
	StorageDriverMemory = "memory"
	StorageDriverSQLite = "sqlite"
	StorageDriverRedis  = "redis"
)

type Config struct {
	App       AppConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Cart      CartConfig
	Recommend RecommendConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FHM_APP_ENV" default:"development"`
	Port         string `envconfig:"FHM_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FHM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FHM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type StorageConfig struct {
	Driver     string `envconfig:"FHM_STORAGE_DRIVER" default:"memory"`
	SQLitePath string `envconfig:"FHM_STORAGE_SQLITE_PATH" default:"fhm.db"`
	KeyPrefix  string `envconfig:"FHM_STORAGE_KEY_PREFIX" default:"fhm"`
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case StorageDriverMemory, StorageDriverSQLite, StorageDriverRedis:
		return nil
	}
	return fmt.Errorf("unknown storage driver %q", s.Driver)
}

// NormalizedDriver returns the lower-cased storage driver name.
func (s StorageConfig) NormalizedDriver() string {
	return strings.ToLower(strings.TrimSpace(s.Driver))
}

type RedisConfig struct {
	URL          string        `envconfig:"FHM_REDIS_URL"`
	Address      string        `envconfig:"FHM_REDIS_ADDR"`
	Password     string        `envconfig:"FHM_REDIS_PASSWORD"`
	DB           int           `envconfig:"FHM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FHM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FHM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FHM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FHM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FHM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CartConfig struct {
	MaxQuantity int `envconfig:"FHM_CART_MAX_QUANTITY" default:"99"`
}

type RecommendConfig struct {
	DefaultCount int `envconfig:"FHM_RECOMMEND_DEFAULT_COUNT" default:"4"`
}
