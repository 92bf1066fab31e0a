package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Acquisition engine
	Acquisition AcquisitionConfig

	// Chain cache
	Cache CacheConfig

	// Market data provider
	MarketData MarketDataConfig

	// Database (result sink, optional)
	Database DatabaseConfig

	// Redis (distributed rate gate, optional)
	Redis RedisConfig

	// Strategy catalog YAML path; empty uses the embedded catalog
	StrategyCatalog string

	// Scheduler
	ScheduleRequestsFile string
	ScheduleOutputDir    string

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// Monitoring
	MetricsEnabled bool
}

// AcquisitionConfig holds scheduler, retry and rate limit settings
type AcquisitionConfig struct {
	ChunkSize          int
	ChunkSleep         time.Duration
	MaxRetryAttempts   int
	RetryBackoff       []time.Duration
	FetchTimeout       time.Duration
	RateLimitPerSecond int
	RateLimitBackend   string // local, redis
	WorkerCount        int
	SessionOverride    string // "", regular, after_hours
}

// CacheConfig holds chain cache configuration
type CacheConfig struct {
	Enabled bool
	Dir     string
	TTL     time.Duration
}

// MarketDataConfig holds the option chain provider endpoint
type MarketDataConfig struct {
	BaseURL string
	Token   string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Default acquisition values
const (
	DefaultChunkSize          = 25
	DefaultChunkSleep         = 500 * time.Millisecond
	DefaultMaxRetryAttempts   = 3
	DefaultFetchTimeout       = 30 * time.Second
	DefaultRateLimitPerSecond = 10
	DefaultWorkerCount        = 8
	DefaultCacheTTL           = 24 * time.Hour
)

// DefaultRetryBackoff returns the delays applied after failed attempts
func DefaultRetryBackoff() []time.Duration {
	return []time.Duration{500 * time.Millisecond, 1 * time.Second, 2 * time.Second}
}

// DefaultAcquisition returns acquisition settings with every default applied
func DefaultAcquisition() AcquisitionConfig {
	return AcquisitionConfig{
		ChunkSize:          DefaultChunkSize,
		ChunkSleep:         DefaultChunkSleep,
		MaxRetryAttempts:   DefaultMaxRetryAttempts,
		RetryBackoff:       DefaultRetryBackoff(),
		FetchTimeout:       DefaultFetchTimeout,
		RateLimitPerSecond: DefaultRateLimitPerSecond,
		RateLimitBackend:   "local",
		WorkerCount:        DefaultWorkerCount,
	}
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	env := getEnv("ENV", "development")

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  env,

		Acquisition: AcquisitionConfig{
			ChunkSize:          getEnvAsInt("CHUNK_SIZE", DefaultChunkSize),
			ChunkSleep:         getEnvAsDuration("CHUNK_SLEEP", "500ms"),
			MaxRetryAttempts:   getEnvAsInt("MAX_RETRY_ATTEMPTS", DefaultMaxRetryAttempts),
			RetryBackoff:       getEnvAsDurations("RETRY_BACKOFF", DefaultRetryBackoff()),
			FetchTimeout:       getEnvAsDuration("FETCH_TIMEOUT", "30s"),
			RateLimitPerSecond: getEnvAsInt("RATE_LIMIT_PER_SECOND", DefaultRateLimitPerSecond),
			RateLimitBackend:   getEnv("RATE_LIMIT_BACKEND", "local"),
			WorkerCount:        getEnvAsInt("WORKER_COUNT", DefaultWorkerCount),
			SessionOverride:    getEnv("SESSION_OVERRIDE", ""),
		},

		// 개발 환경에서만 기본 캐시 활성화
		Cache: CacheConfig{
			Enabled: getEnvAsBool("CACHE_ENABLED", env != "production"),
			Dir:     getEnv("CACHE_DIR", filepath.Join(".cache", "chains")),
			TTL:     time.Duration(getEnvAsInt("CACHE_TTL_HOURS", 24)) * time.Hour,
		},

		MarketData: MarketDataConfig{
			BaseURL: getEnv("MARKET_DATA_BASE_URL", "https://api.marketdata.example.com/v1"),
			Token:   getEnv("MARKET_DATA_TOKEN", ""),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		StrategyCatalog:      getEnv("STRATEGY_CATALOG", ""),
		ScheduleRequestsFile: getEnv("SCHEDULE_REQUESTS_FILE", ""),
		ScheduleOutputDir:    getEnv("SCHEDULE_OUTPUT_DIR", ""),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile:   getEnv("LOG_FILE", ""),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" && c.Env != "test" {
		return fmt.Errorf("ENV must be one of: development, staging, production, test")
	}

	a := c.Acquisition
	if a.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", a.ChunkSize)
	}
	if a.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", a.WorkerCount)
	}
	if a.RateLimitPerSecond <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_SECOND must be positive, got %d", a.RateLimitPerSecond)
	}
	if a.MaxRetryAttempts <= 0 {
		return fmt.Errorf("MAX_RETRY_ATTEMPTS must be positive, got %d", a.MaxRetryAttempts)
	}
	if a.ChunkSleep < 0 {
		return fmt.Errorf("CHUNK_SLEEP must not be negative")
	}
	if a.RateLimitBackend != "local" && a.RateLimitBackend != "redis" {
		return fmt.Errorf("RATE_LIMIT_BACKEND must be one of: local, redis")
	}
	if a.RateLimitBackend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("RATE_LIMIT_BACKEND=redis requires REDIS_ENABLED=true")
	}
	switch a.SessionOverride {
	case "", "regular", "after_hours":
	default:
		return fmt.Errorf("SESSION_OVERRIDE must be one of: regular, after_hours")
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL_HOURS must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsDurations parses a comma separated list such as "500ms,1s,2s"
func getEnvAsDurations(key string, defaultValue []time.Duration) []time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	durations := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		d, err := time.ParseDuration(strings.TrimSpace(part))
		if err != nil || d < 0 {
			return defaultValue
		}
		durations = append(durations, d)
	}

	return durations
}
