// Package config loads process configuration from the environment.
// Engine settings live in the database and are loaded by the db package.
package config

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cache backends.
const (
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
	CacheBackendMemory   = "memory"
)

type Config struct {
	Environment         string
	TestMode            bool
	EncryptionKeyBase64 string
	JWTSecret           string
	JWTIssuer           string

	DBHost     string
	DBPort     string
	DBUsername string
	DBPassword string
	DBName     string
	DBSSLMode  string

	Port     string
	Timezone string

	LogLevel string
	LogFile  string

	CacheBackend       string
	RedisAddress       string
	RedisPassword      string
	RedisDB            int
	CacheSweepInterval time.Duration

	SettingsReloadInterval time.Duration
	SearchRatePerMinute    int
	SearchBurst            int
}

// NewConfig reads .env in development, then VCODE_* variables, and validates the result.
func NewConfig() (*Config, error) {
	env := os.Getenv("VCODE_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	v := viper.New()
	v.SetEnvPrefix("vcode")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("test_mode", false)
	v.SetDefault("jwt.issuer", "vcode")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "vcode")
	v.SetDefault("db.name", "vcode")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("cache.backend", CacheBackendPostgres)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.sweep_interval", "30s")
	v.SetDefault("settings.reload_interval", "1m")
	v.SetDefault("search.rate_per_minute", 6)
	v.SetDefault("search.burst", 3)

	sweep, err := time.ParseDuration(v.GetString("cache.sweep_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid VCODE_CACHE_SWEEP_INTERVAL: %w", err)
	}
	reload, err := time.ParseDuration(v.GetString("settings.reload_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid VCODE_SETTINGS_RELOAD_INTERVAL: %w", err)
	}

	timezone := os.Getenv("TZ")
	if timezone == "" {
		timezone = "UTC"
	}

	config := &Config{
		Environment:            env,
		TestMode:               v.GetBool("test_mode"),
		EncryptionKeyBase64:    v.GetString("encryption_key_base64"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTIssuer:              v.GetString("jwt.issuer"),
		DBHost:                 v.GetString("db.host"),
		DBPort:                 v.GetString("db.port"),
		DBUsername:             v.GetString("db.user"),
		DBPassword:             v.GetString("db.password"),
		DBName:                 v.GetString("db.name"),
		DBSSLMode:              v.GetString("db.sslmode"),
		Port:                   v.GetString("port"),
		Timezone:               timezone,
		LogLevel:               v.GetString("log.level"),
		LogFile:                v.GetString("log.file"),
		CacheBackend:           strings.ToLower(v.GetString("cache.backend")),
		RedisAddress:           v.GetString("redis.address"),
		RedisPassword:          v.GetString("redis.password"),
		RedisDB:                v.GetInt("redis.db"),
		CacheSweepInterval:     sweep,
		SettingsReloadInterval: reload,
		SearchRatePerMinute:    v.GetInt("search.rate_per_minute"),
		SearchBurst:            v.GetInt("search.burst"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.EncryptionKeyBase64 == "" {
		return fmt.Errorf("VCODE_ENCRYPTION_KEY_BASE64 is required")
	}

	key, err := base64.StdEncoding.DecodeString(c.EncryptionKeyBase64)
	if err != nil {
		return fmt.Errorf("VCODE_ENCRYPTION_KEY_BASE64 is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return fmt.Errorf("VCODE_ENCRYPTION_KEY_BASE64 must decode to 32 bytes, got %d", len(key))
	}

	if c.DBPassword == "" {
		return fmt.Errorf("VCODE_DB_PASSWORD is required")
	}

	if !c.TestMode && len(c.JWTSecret) < 32 {
		return fmt.Errorf("VCODE_JWT_SECRET must be at least 32 characters")
	}

	switch c.CacheBackend {
	case CacheBackendPostgres, CacheBackendRedis, CacheBackendMemory:
	default:
		return fmt.Errorf("VCODE_CACHE_BACKEND must be one of postgres, redis, memory, got %q", c.CacheBackend)
	}

	if c.CacheSweepInterval <= 0 {
		return fmt.Errorf("VCODE_CACHE_SWEEP_INTERVAL must be positive")
	}

	if c.SearchRatePerMinute <= 0 || c.SearchBurst <= 0 {
		return fmt.Errorf("VCODE_SEARCH_RATE_PER_MINUTE and VCODE_SEARCH_BURST must be positive")
	}

	return nil
}

// GetDatabaseURL builds the pgx connection URL with credentials escaped.
func (c *Config) GetDatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUsername, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return u.String()
}

// IsDevelopment reports whether logs should use the console encoder.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
