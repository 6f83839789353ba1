package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the storefront client.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithBaseURL("https://shop.example.com/api/v1"),
//	    WithStorageProvider("redis"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	// BaseURL is the root of the REST catalog API, including the
	// version prefix (e.g. https://host/api/v1). Required.
	BaseURL string `json:"base_url" yaml:"base_url" env:"STOREFRONT_BASE_URL"`

	// HTTP client configuration
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Catalog configuration
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`

	// Storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Resilience configuration
	Resilience ResilienceConfig `json:"resilience" yaml:"resilience"`

	// Telemetry configuration (optional module)
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Development configuration
	Development DevelopmentConfig `json:"development" yaml:"development"`
}

// HTTPConfig contains HTTP client configuration.
type HTTPConfig struct {
	Timeout   time.Duration `json:"timeout" yaml:"timeout" env:"STOREFRONT_HTTP_TIMEOUT" default:"30s"`
	UserAgent string        `json:"user_agent" yaml:"user_agent" env:"STOREFRONT_HTTP_USER_AGENT"`
}

// CatalogConfig contains catalog client configuration.
//
// RatingSeed controls the synthesized product ratings: the backend
// does not serve ratings, so the translator generates them. With
// RatingSeed=0 the source is time-seeded (ratings differ between
// reloads); any other value makes the sequence reproducible.
type CatalogConfig struct {
	DefaultPageSize int   `json:"default_page_size" yaml:"default_page_size" env:"STOREFRONT_PAGE_SIZE" default:"20"`
	RatingSeed      int64 `json:"rating_seed" yaml:"rating_seed" env:"STOREFRONT_RATING_SEED"`
}

// StorageConfig contains state storage configuration.
// Supports in-memory storage (default) or Redis for shared state.
type StorageConfig struct {
	Provider  string `json:"provider" yaml:"provider" env:"STOREFRONT_STORAGE_PROVIDER" default:"inmemory"`
	RedisURL  string `json:"redis_url" yaml:"redis_url" env:"STOREFRONT_REDIS_URL,REDIS_URL"`
	Namespace string `json:"namespace" yaml:"namespace" env:"STOREFRONT_STORAGE_NAMESPACE"`
}

// ResilienceConfig contains fault tolerance settings for the
// transport. Everything here is off by default: the data layer never
// retries or breaks circuits on its own unless asked to.
type ResilienceConfig struct {
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker" yaml:"circuit_breaker"`
	Retry          RetryConfig          `json:"retry" yaml:"retry"`
}

// CircuitBreakerConfig defines circuit breaker pattern settings.
// The circuit breaker prevents hammering an unhealthy backend by
// failing fast after a threshold of errors. After a timeout period it
// allows limited requests to test if the service has recovered.
type CircuitBreakerConfig struct {
	Enabled          bool          `json:"enabled" yaml:"enabled" env:"STOREFRONT_CB_ENABLED" default:"false"`
	Threshold        int           `json:"threshold" yaml:"threshold" env:"STOREFRONT_CB_THRESHOLD" default:"5"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout" env:"STOREFRONT_CB_TIMEOUT" default:"30s"`
	HalfOpenRequests int           `json:"half_open_requests" yaml:"half_open_requests" env:"STOREFRONT_CB_HALF_OPEN" default:"3"`
}

// RetryConfig defines retry pattern settings with exponential backoff.
/// Formula: interval = min(InitialInterval * (Multiplier ^ attempt), MaxInterval)
type RetryConfig struct {
	Enabled         bool          `json:"enabled" yaml:"enabled" env:"STOREFRONT_RETRY_ENABLED" default:"false"`
	MaxAttempts     int           `json:"max_attempts" yaml:"max_attempts" env:"STOREFRONT_RETRY_MAX_ATTEMPTS" default:"3"`
	InitialInterval time.Duration `json:"initial_interval" yaml:"initial_interval" env:"STOREFRONT_RETRY_INITIAL_INTERVAL" default:"1s"`
	MaxInterval     time.Duration `json:"max_interval" yaml:"max_interval" env:"STOREFRONT_RETRY_MAX_INTERVAL" default:"30s"`
	Multiplier      float64       `json:"multiplier" yaml:"multiplier" env:"STOREFRONT_RETRY_MULTIPLIER" default:"2.0"`
}

// TelemetryConfig contains observability configuration for metrics and
// distributed tracing. This is an optional module - telemetry is only
// initialized when Enabled=true. The endpoint should be an OTLP
// receiver address.
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled" env:"STOREFRONT_TELEMETRY_ENABLED" default:"false"`
	Endpoint    string `json:"endpoint" yaml:"endpoint" env:"STOREFRONT_TELEMETRY_ENDPOINT,OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `json:"service_name" yaml:"service_name" env:"STOREFRONT_TELEMETRY_SERVICE_NAME,OTEL_SERVICE_NAME"`
}

// LoggingConfig contains logging configuration.
// Supports structured (JSON) and human-readable (text) formats.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"STOREFRONT_LOG_LEVEL" default:"info"`
	Format string `json:"format" yaml:"format" env:"STOREFRONT_LOG_FORMAT" default:"json"`
}

// DevelopmentConfig contains settings for local development and testing.
type DevelopmentConfig struct {
	Enabled      bool `json:"enabled" yaml:"enabled" env:"STOREFRONT_DEV_MODE" default:"false"`
	DebugLogging bool `json:"debug_logging" yaml:"debug_logging" env:"STOREFRONT_DEBUG" default:"false"`
	PrettyLogs   bool `json:"pretty_logs" yaml:"pretty_logs" env:"STOREFRONT_PRETTY_LOGS" default:"false"`
}

// Option is a functional option for configuring the client.
// Options are applied in order and can return an error if the
// configuration is invalid.
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults.
// These defaults can be overridden using functional options or
// environment variables.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:   DefaultHTTPTimeout,
			UserAgent: "storefront-go",
		},
		Catalog: CatalogConfig{
			DefaultPageSize: DefaultPageSize,
		},
		Storage: StorageConfig{
			Provider:  "inmemory",
			Namespace: DefaultRedisPrefix,
		},
		Resilience: ResilienceConfig{
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          false,
				Threshold:        5,
				Timeout:          30 * time.Second,
				HalfOpenRequests: 3,
			},
			Retry: RetryConfig{
				Enabled:         false,
				MaxAttempts:     3,
				InitialInterval: 1 * time.Second,
				MaxInterval:     30 * time.Second,
				Multiplier:      2.0,
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "storefront-client",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Development: DevelopmentConfig{
			Enabled:      false,
			DebugLogging: false,
			PrettyLogs:   false,
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables take precedence over defaults but are
// overridden by functional options.
//
// Variable naming convention:
//   - Client-specific: STOREFRONT_<SETTING>
//   - Standard variables: REDIS_URL, OTEL_EXPORTER_OTLP_ENDPOINT
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("STOREFRONT_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.HTTP.Timeout = d
		}
	}
	if v := os.Getenv("STOREFRONT_HTTP_USER_AGENT"); v != "" {
		c.HTTP.UserAgent = v
	}

	if v := os.Getenv("STOREFRONT_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Catalog.DefaultPageSize = n
		}
	}
	if v := os.Getenv("STOREFRONT_RATING_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Catalog.RatingSeed = n
		}
	}

	if v := os.Getenv("STOREFRONT_STORAGE_PROVIDER"); v != "" {
		c.Storage.Provider = v
	}
	if v := os.Getenv("STOREFRONT_REDIS_URL"); v != "" {
		c.Storage.RedisURL = v
	} else if v := os.Getenv(EnvRedisURL); v != "" {
		c.Storage.RedisURL = v
	}
	if v := os.Getenv("STOREFRONT_STORAGE_NAMESPACE"); v != "" {
		c.Storage.Namespace = v
	}

	if v := os.Getenv("STOREFRONT_CB_ENABLED"); v != "" {
		c.Resilience.CircuitBreaker.Enabled = parseBool(v)
	}
	if v := os.Getenv("STOREFRONT_CB_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Resilience.CircuitBreaker.Threshold = n
		}
	}
	if v := os.Getenv("STOREFRONT_CB_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Resilience.CircuitBreaker.Timeout = d
		}
	}
	if v := os.Getenv("STOREFRONT_RETRY_ENABLED"); v != "" {
		c.Resilience.Retry.Enabled = parseBool(v)
	}
	if v := os.Getenv("STOREFRONT_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Resilience.Retry.MaxAttempts = n
		}
	}

	if v := os.Getenv("STOREFRONT_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv("STOREFRONT_TELEMETRY_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	} else if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
	if v := os.Getenv("STOREFRONT_TELEMETRY_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	} else if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	}

	if v := os.Getenv("STOREFRONT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STOREFRONT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	if v := os.Getenv(EnvDevMode); v != "" {
		c.Development.Enabled = parseBool(v)
	}
	if v := os.Getenv("STOREFRONT_DEBUG"); v != "" {
		c.Development.DebugLogging = parseBool(v)
	}
	if v := os.Getenv("STOREFRONT_PRETTY_LOGS"); v != "" {
		c.Development.PrettyLogs = parseBool(v)
	}

	return nil
}

// LoadFromFile merges configuration from a YAML file. File values
// override whatever is already set on the receiver, so call it before
// LoadFromEnv to keep the defaults < file < env < options ordering.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, ErrInvalidConfiguration)
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required: %w", ErrMissingConfiguration)
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base URL %q must be http(s): %w", c.BaseURL, ErrInvalidConfiguration)
	}
	if c.Catalog.DefaultPageSize <= 0 {
		return fmt.Errorf("default page size must be positive: %w", ErrInvalidConfiguration)
	}
	switch c.Storage.Provider {
	case "inmemory":
	case "redis":
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("redis storage provider requires a redis URL: %w", ErrMissingConfiguration)
		}
	default:
		return fmt.Errorf("unknown storage provider %q: %w", c.Storage.Provider, ErrInvalidConfiguration)
	}
	return nil
}

// NewConfig builds a configuration from defaults, environment
// variables and functional options, in that priority order.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WithBaseURL sets the backend API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) error {
		if url == "" {
			return fmt.Errorf("base URL cannot be empty: %w", ErrInvalidConfiguration)
		}
		c.BaseURL = strings.TrimRight(url, "/")
		return nil
	}
}

// WithHTTPTimeout sets the HTTP client timeout.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive: %w", ErrInvalidConfiguration)
		}
		c.HTTP.Timeout = timeout
		return nil
	}
}

// WithStorageProvider selects the storage backend ("inmemory" or "redis").
func WithStorageProvider(provider string) Option {
	return func(c *Config) error {
		c.Storage.Provider = provider
		return nil
	}
}

// WithRedisURL sets the Redis connection URL for the redis storage provider.
func WithRedisURL(url string) Option {
	return func(c *Config) error {
		c.Storage.RedisURL = url
		return nil
	}
}

// WithRatingSeed pins the synthesized-rating random source so ratings
// are reproducible across runs.
func WithRatingSeed(seed int64) Option {
	return func(c *Config) error {
		c.Catalog.RatingSeed = seed
		return nil
	}
}

// WithCircuitBreaker enables the transport circuit breaker.
func WithCircuitBreaker(threshold int, timeout time.Duration) Option {
	return func(c *Config) error {
		if threshold <= 0 {
			return fmt.Errorf("circuit breaker threshold must be positive: %w", ErrInvalidConfiguration)
		}
		c.Resilience.CircuitBreaker.Enabled = true
		c.Resilience.CircuitBreaker.Threshold = threshold
		c.Resilience.CircuitBreaker.Timeout = timeout
		return nil
	}
}

// WithRetry enables transport retries with exponential backoff.
func WithRetry(maxAttempts int, initialInterval time.Duration) Option {
	return func(c *Config) error {
		if maxAttempts <= 0 {
			return fmt.Errorf("retry attempts must be positive: %w", ErrInvalidConfiguration)
		}
		c.Resilience.Retry.Enabled = true
		c.Resilience.Retry.MaxAttempts = maxAttempts
		if initialInterval > 0 {
			c.Resilience.Retry.InitialInterval = initialInterval
		}
		return nil
	}
}

// WithTelemetry enables OpenTelemetry export to the given endpoint.
func WithTelemetry(endpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = true
		c.Telemetry.Endpoint = endpoint
		return nil
	}
}

// WithDevelopmentMode enables development defaults: debug logging and
// human-readable log output.
func WithDevelopmentMode() Option {
	return func(c *Config) error {
		c.Development.Enabled = true
		c.Development.DebugLogging = true
		c.Development.PrettyLogs = true
		c.Logging.Format = "text"
		c.Logging.Level = "debug"
		return nil
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
