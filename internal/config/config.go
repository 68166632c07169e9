package config

import (
	"os"
	"strings"
	"time"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/utils"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Env         string
	Port        string
	DatabaseURL string
	// Timeouts
	DBStatementTimeout time.Duration
	ShutdownTimeout    time.Duration
	// Memory lifecycle
	SweepInterval      time.Duration // periodic idle sweep
	HeapPollInterval   time.Duration // heap usage poll
	HeapThresholdMB    int           // heap usage that triggers a full flush; 0 disables the heap path
	TabMaxAge          time.Duration
	CalcMaxAge         time.Duration
	ComponentMaxAge    time.Duration
	ListMaxAge         time.Duration
	WorkingSetCapacity int           // entries per working-set category
	StatsStreamPeriod  time.Duration // websocket stats push interval
	MetricsInterval    time.Duration // background metrics collector interval
	// Analytics
	AnalyticsBatchSize int
	AnalyticsMaxQueue  int
	// Response cache
	CacheMaxSizeMB  int64
	CacheMaxEntries int64
	CacheTTL        time.Duration
	// Security settings
	RateLimitGlobal      float64  // requests per second globally
	RateLimitGlobalBurst int      // burst size for global rate limit
	RateLimitPerIP       float64  // requests per second per IP
	RateLimitPerIPBurst  int      // burst size for per-IP rate limit
	CORSAllowedOrigins   []string // allowed CORS origins
	EnableRateLimit      bool     // enable rate limiting middleware
	// Observability settings
	LogLevel          string  // log level: debug, info, warn, error
	LogFormat         string  // json or text; empty picks by environment
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string  // Sentry DSN for error reporting
	SentryEnvironment string  // Sentry environment (dev, staging, production)
	SentryRelease     string  // Sentry release version
	SentrySampleRate  float64 // Sentry error sampling rate (0.0 to 1.0)
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	cached = &Config{
		Env:                utils.GetEnv("ENV", "development"),
		Port:               utils.GetEnv("PORT", "8000"),
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBStatementTimeout: utils.GetEnvAsDuration("DB_STATEMENT_TIMEOUT", 10*time.Second),
		ShutdownTimeout:    utils.GetEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		// Memory lifecycle defaults match the browser-side manager.
		SweepInterval:      utils.GetEnvAsDuration("MEMORY_SWEEP_INTERVAL", 2*time.Minute),
		HeapPollInterval:   utils.GetEnvAsDuration("MEMORY_HEAP_POLL_INTERVAL", 30*time.Second),
		HeapThresholdMB:    utils.GetEnvAsInt("MEMORY_HEAP_THRESHOLD_MB", 100),
		TabMaxAge:          utils.GetEnvAsDuration("MEMORY_TAB_MAX_AGE", 5*time.Minute),
		CalcMaxAge:         utils.GetEnvAsDuration("MEMORY_CALC_MAX_AGE", 5*time.Minute),
		ComponentMaxAge:    utils.GetEnvAsDuration("MEMORY_COMPONENT_MAX_AGE", 10*time.Minute),
		ListMaxAge:         utils.GetEnvAsDuration("MEMORY_LIST_MAX_AGE", 10*time.Minute),
		WorkingSetCapacity: utils.GetEnvAsInt("MEMORY_WORKING_SET_CAPACITY", 500),
		StatsStreamPeriod:  utils.GetEnvAsDuration("MEMORY_STATS_STREAM_PERIOD", 5*time.Second),
		MetricsInterval:    utils.GetEnvAsDuration("METRICS_INTERVAL", 30*time.Second),
		// Analytics
		AnalyticsBatchSize: utils.GetEnvAsInt("ANALYTICS_BATCH_SIZE", 50),
		AnalyticsMaxQueue:  utils.GetEnvAsInt("ANALYTICS_MAX_QUEUE", 1000),
		// Response cache
		CacheMaxSizeMB:  int64(utils.GetEnvAsInt("CACHE_MAX_SIZE_MB", 64)),
		CacheMaxEntries: int64(utils.GetEnvAsInt("CACHE_MAX_ENTRIES", 1000)),
		CacheTTL:        utils.GetEnvAsDuration("CACHE_TTL", 60*time.Second),
		// Security settings with sensible defaults
		RateLimitGlobal:      utils.GetEnvAsFloat("RATE_LIMIT_GLOBAL", 100.0),
		RateLimitGlobalBurst: utils.GetEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 200),
		RateLimitPerIP:       utils.GetEnvAsFloat("RATE_LIMIT_PER_IP", 10.0),
		RateLimitPerIPBurst:  utils.GetEnvAsInt("RATE_LIMIT_PER_IP_BURST", 20),
		EnableRateLimit:      utils.GetEnvAsBool("ENABLE_RATE_LIMIT", true),
		CORSAllowedOrigins: utils.GetEnvAsSlice("CORS_ALLOWED_ORIGINS",
			[]string{"http://localhost:5173", "http://localhost:3000"}, ","),
		// Observability settings
		LogLevel:          strings.ToLower(utils.GetEnv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
		SentrySampleRate:  utils.GetEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0),
	}
	if cached.SentryEnvironment == "" {
		cached.SentryEnvironment = cached.Env
	}
	if cached.AnalyticsMaxQueue < cached.AnalyticsBatchSize {
		cached.AnalyticsMaxQueue = cached.AnalyticsBatchSize
	}
	return cached
}

// HeapThresholdBytes converts HeapThresholdMB to bytes; non-positive values yield 0.
func (c *Config) HeapThresholdBytes() uint64 {
	if c.HeapThresholdMB <= 0 {
		return 0
	}
	return uint64(c.HeapThresholdMB) << 20
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }
