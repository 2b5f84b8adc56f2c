package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service settings read from app.env and the environment.
type Config struct {
	Env              string        `mapstructure:"APP_ENV"`
	ServerAddress    string        `mapstructure:"SERVER_ADDRESS"`
	StorageDriver    string        `mapstructure:"STORAGE_DRIVER"`
	PostgresConn     string        `mapstructure:"POSTGRES_CONN"`
	MigrationURL     string        `mapstructure:"MIGRATION_URL"`
	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RequestTTL       time.Duration `mapstructure:"CONTACT_REQUEST_TTL"`
	ExpirySweepEvery time.Duration `mapstructure:"EXPIRY_SWEEP_INTERVAL"`
	MetricsPrefix    string        `mapstructure:"METRICS_PREFIX"`
}

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

var configKeys = []string{
	"APP_ENV", "SERVER_ADDRESS", "STORAGE_DRIVER", "POSTGRES_CONN", "MIGRATION_URL",
	"JWT_SECRET", "LOG_LEVEL", "REQUEST_TIMEOUT", "CONTACT_REQUEST_TTL", "EXPIRY_SWEEP_INTERVAL",
	"METRICS_PREFIX",
}

// LoadConfig reads app.env from path; environment variables override file values.
// A missing app.env is not an error as long as the environment supplies the rest.
func LoadConfig(path string) (cfg Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SERVER_ADDRESS", ":8080")
	v.SetDefault("STORAGE_DRIVER", StoragePostgres)
	v.SetDefault("MIGRATION_URL", "file://migrations")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REQUEST_TIMEOUT", 5*time.Second)
	v.SetDefault("CONTACT_REQUEST_TTL", 30*24*time.Hour)
	v.SetDefault("EXPIRY_SWEEP_INTERVAL", time.Hour)
	v.SetDefault("METRICS_PREFIX", "surplus_market")

	v.AutomaticEnv()
	for _, key := range configKeys {
		if err = v.BindEnv(key); err != nil {
			return
		}
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}
	if err = v.Unmarshal(&cfg); err != nil {
		return
	}
	err = cfg.Validate()
	return
}

// Validate checks the settings the service cannot start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.StorageDriver {
	case StoragePostgres:
		if c.PostgresConn == "" {
			return errors.New("POSTGRES_CONN is required for the postgres storage driver")
		}
	case StorageMemory:
	default:
		return errors.New("STORAGE_DRIVER must be postgres or memory")
	}
	if c.RequestTTL <= 0 {
		return errors.New("CONTACT_REQUEST_TTL must be positive")
	}
	if c.ExpirySweepEvery <= 0 {
		return errors.New("EXPIRY_SWEEP_INTERVAL must be positive")
	}
	return nil
}
