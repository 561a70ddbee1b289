package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Store  StoreConfig
	Redis  RedisConfig
	App    AppConfig
	Logger LoggerConfig
}

// StoreConfig selects and configures the durable key-value substrate.
type StoreConfig struct {
	Backend string `mapstructure:"STORE_BACKEND"` // sqlite or redis
	Path    string `mapstructure:"STORE_PATH"`    // sqlite database file
}

// RedisConfig holds configuration for the Redis store backend. Timeouts are
// in seconds.
type RedisConfig struct {
	Host         string `mapstructure:"REDIS_HOST"`
	Port         string `mapstructure:"REDIS_PORT"`
	Password     string `mapstructure:"REDIS_PASSWORD"`
	DB           int    `mapstructure:"REDIS_DB"`
	MaxRetries   int    `mapstructure:"REDIS_MAX_RETRIES"`
	PoolSize     int    `mapstructure:"REDIS_POOL_SIZE"`
	MinIdleConn  int    `mapstructure:"REDIS_MIN_IDLE_CONN"`
	DialTimeout  int    `mapstructure:"REDIS_DIAL_TIMEOUT"`
	ReadTimeout  int    `mapstructure:"REDIS_READ_TIMEOUT"`
	WriteTimeout int    `mapstructure:"REDIS_WRITE_TIMEOUT"`
	PoolTimeout  int    `mapstructure:"REDIS_POOL_TIMEOUT"`
}

// AppConfig holds application behavior settings.
type AppConfig struct {
	LatencyMillis int    `mapstructure:"OP_LATENCY_MS"` // simulated I/O delay per operation
	SeedName      string `mapstructure:"SEED_USER_NAME"`
	SeedEmail     string `mapstructure:"SEED_USER_EMAIL"`
	SeedPassword  string `mapstructure:"SEED_USER_PASSWORD"`
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	Level          string `mapstructure:"LOG_LEVEL"`
	Format         string `mapstructure:"LOG_FORMAT"`
	OutputPath     string `mapstructure:"LOG_OUTPUT_PATH"`
	EnableSampling bool   `mapstructure:"LOG_ENABLE_SAMPLING"`
	ServiceName    string `mapstructure:"SERVICE_NAME"`
	ServiceVersion string `mapstructure:"SERVICE_VERSION"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (*Config, error) {
	setDefaults()

	viper.AddConfigPath(path)
	viper.SetConfigName("app") // Look for app.env
	viper.SetConfigType("env")

	viper.AutomaticEnv() // Read from environment variables

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if we have env vars
	}

	var config Config

	config.Store.Backend = viper.GetString("STORE_BACKEND")
	config.Store.Path = viper.GetString("STORE_PATH")

	config.Redis.Host = viper.GetString("REDIS_HOST")
	config.Redis.Port = viper.GetString("REDIS_PORT")
	config.Redis.Password = viper.GetString("REDIS_PASSWORD")
	config.Redis.DB = viper.GetInt("REDIS_DB")
	config.Redis.MaxRetries = viper.GetInt("REDIS_MAX_RETRIES")
	config.Redis.PoolSize = viper.GetInt("REDIS_POOL_SIZE")
	config.Redis.MinIdleConn = viper.GetInt("REDIS_MIN_IDLE_CONN")
	config.Redis.DialTimeout = viper.GetInt("REDIS_DIAL_TIMEOUT")
	config.Redis.ReadTimeout = viper.GetInt("REDIS_READ_TIMEOUT")
	config.Redis.WriteTimeout = viper.GetInt("REDIS_WRITE_TIMEOUT")
	config.Redis.PoolTimeout = viper.GetInt("REDIS_POOL_TIMEOUT")

	config.App.LatencyMillis = viper.GetInt("OP_LATENCY_MS")
	config.App.SeedName = viper.GetString("SEED_USER_NAME")
	config.App.SeedEmail = viper.GetString("SEED_USER_EMAIL")
	config.App.SeedPassword = viper.GetString("SEED_USER_PASSWORD")

	config.Logger.Level = viper.GetString("LOG_LEVEL")
	config.Logger.Format = viper.GetString("LOG_FORMAT")
	config.Logger.OutputPath = viper.GetString("LOG_OUTPUT_PATH")
	config.Logger.EnableSampling = viper.GetBool("LOG_ENABLE_SAMPLING")
	config.Logger.ServiceName = viper.GetString("SERVICE_NAME")
	config.Logger.ServiceVersion = viper.GetString("SERVICE_VERSION")

	return &config, nil
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}
	if c.Store.Backend == "sqlite" && c.Store.Path == "" {
		return fmt.Errorf("sqlite store requires STORE_PATH")
	}
	if c.App.LatencyMillis < 0 {
		return fmt.Errorf("OP_LATENCY_MS must not be negative")
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("STORE_BACKEND", "sqlite")
	viper.SetDefault("STORE_PATH", "ticketdesk.db")

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_MAX_RETRIES", 3)
	viper.SetDefault("REDIS_POOL_SIZE", 10)
	viper.SetDefault("REDIS_MIN_IDLE_CONN", 2)
	viper.SetDefault("REDIS_DIAL_TIMEOUT", 5)
	viper.SetDefault("REDIS_READ_TIMEOUT", 3)
	viper.SetDefault("REDIS_WRITE_TIMEOUT", 3)
	viper.SetDefault("REDIS_POOL_TIMEOUT", 4)

	viper.SetDefault("OP_LATENCY_MS", 500)
	viper.SetDefault("SEED_USER_NAME", "Test User")
	viper.SetDefault("SEED_USER_EMAIL", "test@example.com")
	viper.SetDefault("SEED_USER_PASSWORD", "password123")

	// Logger defaults
	env := viper.GetString("APP_ENV")
	if env == "production" {
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("LOG_FORMAT", "json")
		viper.SetDefault("LOG_ENABLE_SAMPLING", true)
	} else {
		viper.SetDefault("LOG_LEVEL", "debug")
		viper.SetDefault("LOG_FORMAT", "console")
		viper.SetDefault("LOG_ENABLE_SAMPLING", false)
	}
	viper.SetDefault("LOG_OUTPUT_PATH", "stderr")
	viper.SetDefault("SERVICE_NAME", "ticketdesk")
	viper.SetDefault("SERVICE_VERSION", "1.0.0")
}
