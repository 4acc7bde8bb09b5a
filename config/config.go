// Package config reads the simulator's settings from the environment and
// opens the connections they describe.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stocks-simulator/database"
)

// Config contains all the configuration options
type Config struct {
	// Database related options

	DbHost     string
	DbPort     string
	DbUser     string
	DbPassword string
	DbName     string
	// DbTimeZone is passed to PostgreSQL as the session time zone
	DbTimeZone string

	// RedisAddr is the address of the Redis server. When empty, quotes are
	// not cached and refresh tokens are kept in memory.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Authentication related options

	// JWTSecret signs access and refresh tokens
	JWTSecret string
	// TokenCacheSize is the capacity of the in-memory refresh token store
	TokenCacheSize int

	// Quote provider related options

	AlphaVantageAPIKey string
	// QuoteTimeout bounds a single quote lookup
	QuoteTimeout time.Duration
	// QuoteRetries is the number of attempts made for a failing lookup
	QuoteRetries int
	// QuoteCacheTTL is how long a quote stays in Redis
	QuoteCacheTTL time.Duration

	// Logging related options

	// LogFileName is the name of the log file. "stdout" logs to the console.
	LogFileName string
	// LogMaxSize is the maximum size(MB) of a log file before it gets rotated
	LogMaxSize int
	// LogLevel can be one of "debug", "info", "warn", "error"
	LogLevel string

	// ServerAddr is the address the HTTP server binds to
	ServerAddr string
}

// Load reads the configuration from the environment, after loading a .env
// file when one exists. Unset options take their defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := &Config{
		DbHost:             getEnv("DB_HOST", "localhost"),
		DbPort:             getEnv("DB_PORT", "5432"),
		DbUser:             getEnv("DB_USER", "postgres"),
		DbPassword:         getEnv("DB_PASSWORD", ""),
		DbName:             getEnv("DB_NAME", "stocks_simulator"),
		DbTimeZone:         getEnv("DB_TIMEZONE", "UTC"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		AlphaVantageAPIKey: os.Getenv("ALPHA_VANTAGE_API_KEY"),
		LogFileName:        getEnv("LOG_FILE", "stdout"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ServerAddr:         getEnv("SERVER_ADDR", ":8080"),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.TokenCacheSize, err = getInt("TOKEN_CACHE_SIZE", 10000); err != nil {
		return nil, err
	}
	if cfg.QuoteRetries, err = getInt("QUOTE_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.LogMaxSize, err = getInt("LOG_MAX_SIZE", 50); err != nil {
		return nil, err
	}
	if cfg.QuoteTimeout, err = getDuration("QUOTE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.QuoteCacheTTL, err = getDuration("QUOTE_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports options the server cannot run without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if c.AlphaVantageAPIKey == "" {
		return fmt.Errorf("ALPHA_VANTAGE_API_KEY must be set")
	}
	return nil
}

// DSN is the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.DbHost, c.DbUser, c.DbPassword, c.DbName, c.DbPort, c.DbTimeZone)
}

// InitDB opens the PostgreSQL connection, logging SQL through logger.
func InitDB(cfg *Config, logger *logrus.Entry) (*gorm.DB, error) {
	return database.Open(cfg.DSN(), database.NewLogrusLogger(logger, 200*time.Millisecond))
}

// InitRedis connects to Redis. It returns nil when no address is configured.
func InitRedis(ctx context.Context, cfg *Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
