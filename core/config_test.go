package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "storefront-go", cfg.HTTP.UserAgent)

	assert.Equal(t, 20, cfg.Catalog.DefaultPageSize)
	assert.Equal(t, int64(0), cfg.Catalog.RatingSeed)

	assert.Equal(t, "inmemory", cfg.Storage.Provider)

	assert.False(t, cfg.Resilience.CircuitBreaker.Enabled)
	assert.Equal(t, 5, cfg.Resilience.CircuitBreaker.Threshold)
	assert.False(t, cfg.Resilience.Retry.Enabled)
	assert.Equal(t, 3, cfg.Resilience.Retry.MaxAttempts)

	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestNewConfig_RequiresBaseURL(t *testing.T) {
	_, err := NewConfig()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingConfiguration)
}

func TestNewConfig_Options(t *testing.T) {
	cfg, err := NewConfig(
		WithBaseURL("https://shop.example.com/api/v1/"),
		WithHTTPTimeout(5*time.Second),
		WithRatingSeed(42),
		WithCircuitBreaker(10, time.Minute),
	)
	require.NoError(t, err)

	// Trailing slash is trimmed
	assert.Equal(t, "https://shop.example.com/api/v1", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, int64(42), cfg.Catalog.RatingSeed)
	assert.True(t, cfg.Resilience.CircuitBreaker.Enabled)
	assert.Equal(t, 10, cfg.Resilience.CircuitBreaker.Threshold)
	assert.Equal(t, time.Minute, cfg.Resilience.CircuitBreaker.Timeout)
}

func TestNewConfig_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("STOREFRONT_BASE_URL", "http://localhost:8000/api/v1")
	t.Setenv("STOREFRONT_PAGE_SIZE", "50")
	t.Setenv("STOREFRONT_LOG_LEVEL", "debug")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api/v1", cfg.BaseURL)
	assert.Equal(t, 50, cfg.Catalog.DefaultPageSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestNewConfig_OptionsOverrideEnv(t *testing.T) {
	t.Setenv("STOREFRONT_BASE_URL", "http://env.example.com/api/v1")

	cfg, err := NewConfig(WithBaseURL("http://option.example.com/api/v1"))
	require.NoError(t, err)

	assert.Equal(t, "http://option.example.com/api/v1", cfg.BaseURL)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "valid",
			mutate:  func(c *Config) { c.BaseURL = "https://shop.example.com/api/v1" },
			wantErr: nil,
		},
		{
			name:    "missing base URL",
			mutate:  func(c *Config) {},
			wantErr: ErrMissingConfiguration,
		},
		{
			name: "non-http base URL",
			mutate: func(c *Config) {
				c.BaseURL = "ftp://shop.example.com"
			},
			wantErr: ErrInvalidConfiguration,
		},
		{
			name: "redis provider without URL",
			mutate: func(c *Config) {
				c.BaseURL = "https://shop.example.com/api/v1"
				c.Storage.Provider = "redis"
			},
			wantErr: ErrMissingConfiguration,
		},
		{
			name: "unknown provider",
			mutate: func(c *Config) {
				c.BaseURL = "https://shop.example.com/api/v1"
				c.Storage.Provider = "etcd"
			},
			wantErr: ErrInvalidConfiguration,
		},
		{
			name: "zero page size",
			mutate: func(c *Config) {
				c.BaseURL = "https://shop.example.com/api/v1"
				c.Catalog.DefaultPageSize = 0
			},
			wantErr: ErrInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestConfig_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yaml")
	yaml := `
base_url: https://file.example.com/api/v1
catalog:
  default_page_size: 25
storage:
  provider: redis
  redis_url: redis://localhost:6379
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "https://file.example.com/api/v1", cfg.BaseURL)
	assert.Equal(t, 25, cfg.Catalog.DefaultPageSize)
	assert.Equal(t, "redis", cfg.Storage.Provider)
	assert.Equal(t, "redis://localhost:6379", cfg.Storage.RedisURL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	// Untouched fields keep their defaults
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestConfig_LoadFromFile_Missing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_LoadFromFile_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: [unclosed"), 0o644))

	cfg := DefaultConfig()
	err := cfg.LoadFromFile(path)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestWithDevelopmentMode(t *testing.T) {
	cfg, err := NewConfig(
		WithBaseURL("http://localhost:8000/api/v1"),
		WithDevelopmentMode(),
	)
	require.NoError(t, err)

	assert.True(t, cfg.Development.Enabled)
	assert.True(t, cfg.Development.DebugLogging)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
}
