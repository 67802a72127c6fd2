// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/medatechnology/tenantorm/postgres"
	"go.uber.org/zap"
)

const defaultSigningKey = "defaultsecretkey"

// DBConfig holds database configuration. URL, when set, takes precedence
// over the individual fields.
type DBConfig struct {
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
	AutoMigrate     bool
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Env             string
	ShutdownTimeout time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey string
	Expiration time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// StoreConfig holds repository behaviour switches
type StoreConfig struct {
	// AtomicOrders creates a sales order and its items in one transaction.
	AtomicOrders bool
}

// Config holds all configuration
type Config struct {
	ServiceName string
	DB          DBConfig
	Server      ServerConfig
	JWT         JWTConfig
	Log         LogConfig
	Metrics     MetricsConfig
	Store       StoreConfig
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load(serviceName string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := &Config{
		ServiceName: serviceName,
		DB: DBConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", postgres.DefaultHost),
			Port:            getEnvAsInt("DB_PORT", postgres.DefaultPort),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			DBName:          getEnv("DB_NAME", serviceName),
			SSLMode:         getEnv("DB_SSL_MODE", postgres.DefaultSSLMode),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", postgres.DefaultMaxIdleConns),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", postgres.DefaultMaxOpenConns),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", postgres.DefaultConnMaxLifetime),
			QueryTimeout:    getEnvAsDuration("DB_QUERY_TIMEOUT", postgres.DefaultQueryTimeout),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "development"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		JWT: JWTConfig{
			SigningKey: getEnv("JWT_SIGNING_KEY", defaultSigningKey),
			Expiration: getEnvAsDuration("JWT_EXPIRATION", time.Hour),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Store: StoreConfig{
			AtomicOrders: getEnvAsBool("STORE_ATOMIC_ORDERS", false),
		},
	}

	if config.Server.Env == "production" && config.JWT.SigningKey == defaultSigningKey {
		return nil, errors.New("JWT_SIGNING_KEY must be set in production")
	}
	if config.JWT.Expiration <= 0 {
		return nil, errors.New("JWT_EXPIRATION must be positive")
	}

	return config, nil
}

// Postgres converts the database settings into a validated postgres config.
func (c DBConfig) Postgres() (*postgres.PostgresConfig, error) {
	var pg *postgres.PostgresConfig
	if c.URL != "" {
		parsed, err := postgres.ParseDSN(c.URL)
		if err != nil {
			return nil, err
		}
		pg = parsed
	} else {
		pg = postgres.NewConfig(c.Host, c.Port, c.User, c.Password, c.DBName).WithSSLMode(c.SSLMode)
	}

	pg.WithConnectionPool(c.MaxOpenConns, c.MaxIdleConns, c.ConnMaxLifetime, pg.ConnMaxIdleTime)
	pg.QueryTimeout = c.QueryTimeout
	if pg.QueryTimeout == 0 {
		// DB_QUERY_TIMEOUT=0 disables the per-statement timeout.
		pg.QueryTimeout = -1
	}
	if err := pg.Validate(); err != nil {
		return nil, err
	}
	return pg, nil
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("db_host", c.DB.Host),
		zap.Int("db_port", c.DB.Port),
		zap.String("db_name", c.DB.DBName),
		zap.Bool("db_url", c.DB.URL != ""),
		zap.String("server_port", c.Server.Port),
		zap.Bool("atomic_orders", c.Store.AtomicOrders),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
