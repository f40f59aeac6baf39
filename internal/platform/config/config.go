// Package config provides configuration loading and management using koanf.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default configuration values.
const (
	// DefaultServerPort is the default HTTP server port.
	DefaultServerPort = 8080

	// DefaultMaxRequestSize is the default maximum request body size (1MB).
	DefaultMaxRequestSize = 1 << 20

	// DefaultClientRetryMaxAttempts is the default number of retry attempts.
	DefaultClientRetryMaxAttempts = 3

	// DefaultClientRetryMultiplier is the default exponential backoff multiplier.
	DefaultClientRetryMultiplier = 2.0

	// DefaultClientRetryJitterFactor is the default jitter percentage (±25%).
	DefaultClientRetryJitterFactor = 0.25

	// DefaultClientCircuitMaxFailures is the default consecutive failures before the circuit opens.
	DefaultClientCircuitMaxFailures = 5

	// DefaultClientCircuitHalfOpenLimit is the default number of trial requests while half-open.
	DefaultClientCircuitHalfOpenLimit = 3

	// DefaultTransportMaxIdleConns is the default max idle connections.
	DefaultTransportMaxIdleConns = 100

	// DefaultTransportMaxIdleConnsPerHost is the default max idle connections per host.
	DefaultTransportMaxIdleConnsPerHost = 10

	// DefaultLogFileMaxSizeMB is the default max log file size in megabytes.
	DefaultLogFileMaxSizeMB = 100

	// DefaultLogFileMaxBackups is the default number of old log files to retain.
	DefaultLogFileMaxBackups = 3

	// DefaultLogFileMaxAgeDays is the default max days to retain old log files.
	DefaultLogFileMaxAgeDays = 28

	// DefaultCacheSize is the default number of storage keys kept in memory.
	DefaultCacheSize = 64

	// DefaultHistoryLimit is the default number of remembered quote views.
	DefaultHistoryLimit = 100

	// DefaultRemotePageSize is the default page size when fetching a remote corpus.
	DefaultRemotePageSize = 50

	// DefaultRemoteMaxPages bounds how many pages a remote corpus load reads.
	DefaultRemoteMaxPages = 4

	// DefaultEventBuffer is the default per-subscriber event buffer.
	DefaultEventBuffer = 64

	// DefaultRateLimitRPS is the default sustained rate for forced refreshes and reloads.
	DefaultRateLimitRPS = 1.0

	// DefaultRateLimitBurst is the default burst for forced refreshes and reloads.
	DefaultRateLimitBurst = 5
)

// Config is the root configuration structure.
type Config struct {
	App       AppConfig       `koanf:"app"       validate:"required"`
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	Log       LogConfig       `koanf:"log"       validate:"required"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Client    ClientConfig    `koanf:"client"    validate:"required"`
	Storage   StorageConfig   `koanf:"storage"   validate:"required"`
	Cache     CacheConfig     `koanf:"cache"`
	Corpus    CorpusConfig    `koanf:"corpus"`
	Selector  SelectorConfig  `koanf:"selector"`
	Streak    StreakConfig    `koanf:"streak"`
	History   HistoryConfig   `koanf:"history"`
	Refresher RefresherConfig `koanf:"refresher"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Events    EventsConfig    `koanf:"events"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	RequestTimeout  time.Duration `koanf:"request_timeout"  validate:"required,min=100ms"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	Level      string `koanf:"level"       validate:"omitempty,oneof=trace debug info warn error"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true,omitempty,url"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// ClientConfig contains HTTP client settings for the remote corpus API.
type ClientConfig struct {
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=100ms"`
	Retry          RetryConfig          `koanf:"retry"           validate:"required"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" validate:"required"`
	Transport      TransportConfig      `koanf:"transport"       validate:"required"`
}

// RetryConfig contains retry settings for HTTP clients.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig contains circuit breaker settings for HTTP clients.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// TransportConfig contains HTTP transport pool settings.
type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"          validate:"required,min=1"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"required,min=1"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"       validate:"required,min=1s"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Driver    string `koanf:"driver"     validate:"required,oneof=memory file badger redis sqlite"`
	Path      string `koanf:"path"       validate:"required"`
	RedisURL  string `koanf:"redis_url"  validate:"required_if=Driver redis,omitempty,url"`
	KeyPrefix string `koanf:"key_prefix"`
}

// CacheConfig controls the in-memory read-through cache in front of storage.
type CacheConfig struct {
	Enabled bool          `koanf:"enabled"`
	Size    int           `koanf:"size"    validate:"required_if=Enabled true,omitempty,min=1"`
	TTL     time.Duration `koanf:"ttl"`
}

// CorpusConfig lists the quote sources merged into the corpus.
type CorpusConfig struct {
	Embedded bool               `koanf:"embedded"`
	File     string             `koanf:"file"`
	Remote   RemoteCorpusConfig `koanf:"remote"`
}

// RemoteCorpusConfig describes a quotable-style HTTP API.
type RemoteCorpusConfig struct {
	Enabled  bool   `koanf:"enabled"`
	BaseURL  string `koanf:"base_url"  validate:"required_if=Enabled true,omitempty,url"`
	Name     string `koanf:"name"      validate:"required_if=Enabled true"`
	PageSize int    `koanf:"page_size" validate:"omitempty,min=1,max=150"`
	MaxPages int    `koanf:"max_pages" validate:"omitempty,min=1,max=100"`
}

// SelectorConfig controls how calendar days are computed.
type SelectorConfig struct {
	// Timezone is an IANA name, or "Local" for the host zone.
	Timezone string `koanf:"timezone" validate:"required"`
}

// Location resolves Timezone.
func (s SelectorConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("selector.timezone %q: %w", s.Timezone, err)
	}

	return loc, nil
}

// StreakConfig tunes streak bookkeeping.
type StreakConfig struct {
	GraceDays int `koanf:"grace_days" validate:"min=0,max=7"`
}

// HistoryConfig bounds the viewing history.
type HistoryConfig struct {
	Limit int `koanf:"limit" validate:"required,min=1,max=1000"`
}

// RefresherConfig controls the background date-boundary service.
type RefresherConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Interval     time.Duration `koanf:"interval"      validate:"required_if=Enabled true,omitempty,min=1s"`
	ReminderTime string        `koanf:"reminder_time" validate:"omitempty,datetime=15:04"`
}

// RateLimitConfig throttles forced refreshes and corpus reloads.
type RateLimitConfig struct {
	Enabled           bool    `koanf:"enabled"`
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"required_if=Enabled true,omitempty,gt=0"`
	Burst             int     `koanf:"burst"               validate:"required_if=Enabled true,omitempty,min=1"`
}

// EventsConfig sizes the in-process event bus.
type EventsConfig struct {
	BufferSize int64 `koanf:"buffer_size" validate:"min=0"`
}

// defaults returns the default configuration values.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "daily-quote",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             DefaultServerPort,
		"server.host":             "127.0.0.1",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.request_timeout":  "15s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/daily-quote.log",
		"log.file.level":       "",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.service_name":  "daily-quote",
		"telemetry.sampling_rate": 1.0,

		"client.timeout":                           "10s",
		"client.retry.max_attempts":                DefaultClientRetryMaxAttempts,
		"client.retry.initial_interval":            "100ms",
		"client.retry.max_interval":                "5s",
		"client.retry.multiplier":                  DefaultClientRetryMultiplier,
		"client.retry.jitter_factor":               DefaultClientRetryJitterFactor,
		"client.circuit_breaker.max_failures":      DefaultClientCircuitMaxFailures,
		"client.circuit_breaker.timeout":           "30s",
		"client.circuit_breaker.half_open_limit":   DefaultClientCircuitHalfOpenLimit,
		"client.transport.max_idle_conns":          DefaultTransportMaxIdleConns,
		"client.transport.max_idle_conns_per_host": DefaultTransportMaxIdleConnsPerHost,
		"client.transport.idle_conn_timeout":       "90s",

		"storage.driver":     "badger",
		"storage.path":       "./data",
		"storage.redis_url":  "",
		"storage.key_prefix": "",

		"cache.enabled": true,
		"cache.size":    DefaultCacheSize,
		"cache.ttl":     "30s",

		"corpus.embedded":         true,
		"corpus.file":             "",
		"corpus.remote.enabled":   false,
		"corpus.remote.base_url":  "https://api.quotable.io",
		"corpus.remote.name":      "quotable",
		"corpus.remote.page_size": DefaultRemotePageSize,
		"corpus.remote.max_pages": DefaultRemoteMaxPages,

		"selector.timezone": "Local",

		"streak.grace_days": 1,

		"history.limit": DefaultHistoryLimit,

		"refresher.enabled":       true,
		"refresher.interval":      "1m",
		"refresher.reminder_time": "",

		"ratelimit.enabled":             true,
		"ratelimit.requests_per_second": DefaultRateLimitRPS,
		"ratelimit.burst":               DefaultRateLimitBurst,

		"events.buffer_size": DefaultEventBuffer,
	}
}

// Load loads configuration with the following precedence (highest to lowest):
//  1. Environment variables (APP_ prefix)
//  2. Profile config file (configs/{profile}.yaml)
//  3. Base config file (configs/base.yaml)
//  4. Default values
func Load(profile string) (*Config, error) {
	k := koanf.New(".")

	defs := defaults()

	err := k.Load(confmap.Provider(defs, "."), nil)
	if err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	err = loadFileIfExists(k, "configs/base.yaml")
	if err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}

	if profile != "" {
		profilePath := fmt.Sprintf("configs/%s.yaml", profile)

		err := loadFileIfExists(k, profilePath)
		if err != nil {
			return nil, fmt.Errorf("loading profile config %q: %w", profile, err)
		}
	}

	err = k.Load(env.Provider("APP_", ".", envKeyMapper(defs)), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config

	err = k.Unmarshal("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// envKeyMapper maps APP_SERVER_READ_TIMEOUT to server.read_timeout.
// Underscores inside known keys are kept; unknown names split on every underscore.
func envKeyMapper(known map[string]any) func(string) string {
	byFlat := make(map[string]string, len(known))
	for key := range known {
		byFlat[strings.ReplaceAll(key, ".", "_")] = key
	}

	return func(s string) string {
		flat := strings.ToLower(strings.TrimPrefix(s, "APP_"))
		if key, ok := byFlat[flat]; ok {
			return key
		}

		return strings.ReplaceAll(flat, "_", ".")
	}
}

// loadFileIfExists loads a YAML config file if it exists.
func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
