package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Backend  BackendConfig
	Release  ReleaseConfig
	Jobs     JobsConfig
	Log      LogConfig
	Catalog  CatalogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

// StoreConfig selects the order/ad store driver ("kv" or "sql").
type StoreConfig struct {
	Driver string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string
}

// URL returns the postgres connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// MySQLDSN returns the go-sql-driver DSN for the mysql driver.
func (c DatabaseConfig) MySQLDSN() string {
	return c.User + ":" + c.Password + "@tcp(" + c.Host + ":" + strconv.Itoa(c.Port) + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=UTC"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

// BackendConfig describes the external finstack backend.
type BackendConfig struct {
	BaseURL      string
	Timeout      time.Duration
	RateLimit    float64
	RateBurst    int
	ServiceToken string
}

// Configured reports whether a backend base URL is set.
func (c BackendConfig) Configured() bool {
	return strings.TrimSpace(c.BaseURL) != ""
}

// ReleaseConfig controls the release authorization flow.
type ReleaseConfig struct {
	Mode        string
	CodeTTL     time.Duration
	MaxAttempts int
	ExposeCode  bool
}

// JobsConfig holds background job intervals
type JobsConfig struct {
	OrderExpiryInterval time.Duration
	KYCPollInterval     time.Duration
}

// LogConfig holds the optional rotating file sink
type LogConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// CatalogConfig points at an optional catalog override file.
type CatalogConfig struct {
	File string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            getEnv("SERVER_ENV", "development"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", "kv")),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "finstack_p2p"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Path:     getEnv("DB_PATH", "finstack_p2p.db"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", "change-this-in-production"),
			AccessExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		},
		Backend: BackendConfig{
			BaseURL:      strings.TrimRight(getEnv("FINSTACK_BACKEND_API_URL", ""), "/"),
			Timeout:      getEnvAsDuration("BACKEND_TIMEOUT", 15*time.Second),
			RateLimit:    getEnvAsFloat("BACKEND_RATE_LIMIT", 20),
			RateBurst:    getEnvAsInt("BACKEND_RATE_BURST", 40),
			ServiceToken: getEnv("BACKEND_SERVICE_TOKEN", ""),
		},
		Release: ReleaseConfig{
			Mode:        strings.ToLower(getEnv("RELEASE_MODE", "backend")),
			CodeTTL:     getEnvAsDuration("RELEASE_CODE_TTL", 5*time.Minute),
			MaxAttempts: getEnvAsInt("RELEASE_MAX_ATTEMPTS", 5),
			ExposeCode:  getEnvAsBool("RELEASE_EXPOSE_CODE", false),
		},
		Jobs: JobsConfig{
			OrderExpiryInterval: getEnvAsDuration("ORDER_EXPIRY_INTERVAL", 30*time.Second),
			KYCPollInterval:     getEnvAsDuration("KYC_POLL_INTERVAL", 15*time.Second),
		},
		Log: LogConfig{
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
		},
		Catalog: CatalogConfig{
			File: getEnv("CATALOG_FILE", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
