// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the HTTP
// server, logging, the durable mapping store, the delivery engine (retention,
// retry and reachability windows), the outbound transport, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "relayd")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// SecurityConfig defines security-related HTTP settings.
type SecurityConfig struct {
	EnableHSTS bool          // SECURITY_ENABLE_HSTS; only when served over HTTPS end-to-end
	HSTSMaxAge time.Duration // SECURITY_HSTS_MAX_AGE
}

// EngineConfig holds the tunables of the relay engine.
type EngineConfig struct {
	BotID          int64         // BOT_ID; 0 means "no bot identity" (legacy, unpartitioned)
	Retention      time.Duration // how long a logical message stays in the registry
	ExpiryInterval time.Duration // how often the GC sweep runs
	RetryWindow    time.Duration // transient failures are retried until this age
	RetryBackoff   time.Duration // delay before a failed job is re-enqueued
	ReachTTL       time.Duration // reachability cache lifetime
	Workers        int           // dispatcher worker count
	SendRPS        float64       // outbound sends per second (all workers)
	SendBurst      int
}

// TransportConfig selects the outbound transport client.
type TransportConfig struct {
	Kind           string // loopback|webhook
	WebhookURL     string
	WebhookTimeout time.Duration
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	LogRedact   bool   // mask participant ids in access logs
	APIBasePath string // base path for API routes

	// Store
	DBDriver    string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // Postgres DSN

	// Inbound rate limiting (per sender)
	RateRPS   float64
	RateBurst int

	CORS      CORSConfig
	Security  SecurityConfig
	Engine    EngineConfig
	Transport TransportConfig

	// Cross-process reachability invalidation; empty disables it.
	RedisURL string

	// Observability
	OTEL OTELConfig
}

// BotIdentity returns the configured bot identity, or nil when unset.
func (c Config) BotIdentity() *int64 {
	if c.Engine.BotID == 0 {
		return nil
	}
	id := c.Engine.BotID
	return &id
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		LogRedact:   getbool("LOG_REDACT", true),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Store
		DBDriver:    strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:      getenv("DB_PATH", "relay.sqlite"),
		DatabaseURL: getenv("DATABASE_URL", ""),

		RateRPS:   getfloat("RATE_RPS", 1.0),
		RateBurst: getint("RATE_BURST", 6),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},

		Security: SecurityConfig{
			EnableHSTS: getbool("SECURITY_ENABLE_HSTS", false),
			HSTSMaxAge: getdur("SECURITY_HSTS_MAX_AGE", 180*24*time.Hour),
		},

		Engine: EngineConfig{
			BotID:          getint64("BOT_ID", 0),
			Retention:      getdur("RETENTION", 48*time.Hour),
			ExpiryInterval: getdur("EXPIRY_INTERVAL", 6*time.Hour),
			RetryWindow:    getdur("RETRY_WINDOW", 60*time.Second),
			RetryBackoff:   getdur("RETRY_BACKOFF", 500*time.Millisecond),
			ReachTTL:       getdur("REACH_TTL", 5*time.Second),
			Workers:        getint("DISPATCH_WORKERS", 1),
			SendRPS:        getfloat("SEND_RPS", 25),
			SendBurst:      getint("SEND_BURST", 25),
		},

		Transport: TransportConfig{
			Kind:           strings.ToLower(getenv("TRANSPORT", "loopback")),
			WebhookURL:     getenv("WEBHOOK_URL", ""),
			WebhookTimeout: getdur("WEBHOOK_TIMEOUT", 20*time.Second),
		},

		RedisURL: getenv("REDIS_URL", ""),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "relayd"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DBDriver == "postgresql" || cfg.DBDriver == "pg" {
		cfg.DBDriver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Engine.BotID < 0 {
		return cfg, errors.New("BOT_ID must be >= 0")
	}
	if cfg.Engine.Retention <= 0 || cfg.Engine.ExpiryInterval <= 0 {
		return cfg, errors.New("RETENTION and EXPIRY_INTERVAL must be > 0")
	}
	if cfg.Engine.RetryWindow < 0 || cfg.Engine.RetryBackoff < 0 {
		return cfg, errors.New("RETRY_WINDOW and RETRY_BACKOFF must be >= 0")
	}
	if cfg.Engine.ReachTTL <= 0 {
		return cfg, errors.New("REACH_TTL must be > 0")
	}
	if cfg.Engine.Workers < 1 {
		return cfg, errors.New("DISPATCH_WORKERS must be >= 1")
	}
	if cfg.Engine.SendRPS <= 0 || cfg.Engine.SendBurst < 1 {
		return cfg, errors.New("SEND_RPS must be > 0 and SEND_BURST >= 1")
	}
	switch cfg.Transport.Kind {
	case "loopback":
	case "webhook":
		if strings.TrimSpace(cfg.Transport.WebhookURL) == "" {
			return cfg, errors.New("WEBHOOK_URL is required when TRANSPORT=webhook")
		}
		if cfg.Transport.WebhookTimeout <= 0 {
			return cfg, errors.New("WEBHOOK_TIMEOUT must be > 0")
		}
	default:
		return cfg, errors.New("TRANSPORT must be one of: loopback, webhook")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
