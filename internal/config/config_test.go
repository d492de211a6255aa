package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5000, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	// Cache defaults
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 1000, cfg.Cache.MaxSize)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SweepInterval)

	// Search defaults
	assert.Equal(t, 8*time.Second, cfg.Search.PMCTimeout)
	assert.Equal(t, int64(3000), cfg.Search.CounterSeed)

	// Paper sources defaults
	assert.True(t, cfg.PaperSources.ArXiv.Enabled)
	assert.Equal(t, 3.0, cfg.PaperSources.ArXiv.RateLimit)
	assert.True(t, cfg.PaperSources.BioRxiv.Enabled)
	assert.Equal(t, 3, cfg.PaperSources.BioRxiv.MaxPages)
	assert.True(t, cfg.PaperSources.MedRxiv.Enabled)
	assert.Equal(t, "https://api.biorxiv.org", cfg.PaperSources.MedRxiv.BaseURL)
	assert.True(t, cfg.PaperSources.PMC.Enabled)
	assert.Equal(t, "PaperSearch", cfg.PaperSources.PMC.Tool)
	assert.Equal(t, "developer@helixir.io", cfg.PaperSources.PMC.Email)
	assert.Equal(t, 100*time.Millisecond, cfg.PaperSources.PMC.MinInterval)
	assert.Equal(t, 1, cfg.PaperSources.PMC.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.PaperSources.PMC.RetryDelay)

	// Kafka defaults
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("PAPERSEARCH_SERVER_HTTP_PORT", "8888")
	t.Setenv("PAPERSEARCH_SERVER_ENVIRONMENT", "production")
	t.Setenv("PAPERSEARCH_LOGGING_LEVEL", "debug")
	t.Setenv("PAPERSEARCH_CACHE_TTL", "1m")
	t.Setenv("PAPERSEARCH_CACHE_MAX_SIZE", "10")
	t.Setenv("PAPERSEARCH_SEARCH_PMC_TIMEOUT", "2s")
	t.Setenv("PAPERSEARCH_PAPER_SOURCES_PMC_EMAIL", "ops@example.org")
	t.Setenv("PAPERSEARCH_PAPER_SOURCES_MEDRXIV_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, "production", cfg.Server.Environment)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 10, cfg.Cache.MaxSize)
	assert.Equal(t, 2*time.Second, cfg.Search.PMCTimeout)
	assert.Equal(t, "ops@example.org", cfg.PaperSources.PMC.Email)
	assert.False(t, cfg.PaperSources.MedRxiv.Enabled)
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("PAPERSEARCH_LOGGING_LEVEL", "verbose")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level: verbose")
}

func TestLoadDotEnv(t *testing.T) {
	clearEnvVars(t)

	t.Run("missing file is ignored", func(t *testing.T) {
		require.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("exports variables without overriding", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		content := "PAPERSEARCH_SERVER_ENVIRONMENT=staging\nPAPERSEARCH_LOGGING_LEVEL=warn\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		t.Setenv("PAPERSEARCH_LOGGING_LEVEL", "error")
		t.Setenv("PAPERSEARCH_SERVER_ENVIRONMENT", "")
		require.NoError(t, os.Unsetenv("PAPERSEARCH_SERVER_ENVIRONMENT"))

		require.NoError(t, loadDotEnv(path))
		assert.Equal(t, "staging", os.Getenv("PAPERSEARCH_SERVER_ENVIRONMENT"))
		assert.Equal(t, "error", os.Getenv("PAPERSEARCH_LOGGING_LEVEL"))
	})
}

func TestValidate_InvalidPort(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name: "HTTP port zero",
			modifyFunc: func(c *Config) {
				c.Server.HTTPPort = 0
			},
			expectedErr: "invalid HTTP port: 0",
		},
		{
			name: "HTTP port too high",
			modifyFunc: func(c *Config) {
				c.Server.HTTPPort = 70000
			},
			expectedErr: "invalid HTTP port: 70000",
		},
		{
			name: "metrics port invalid",
			modifyFunc: func(c *Config) {
				c.Server.MetricsPort = -5
			},
			expectedErr: "invalid metrics port: -5",
		},
		{
			name: "metrics port clashes",
			modifyFunc: func(c *Config) {
				c.Server.MetricsPort = c.Server.HTTPPort
			},
			expectedErr: "metrics port must differ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestValidate_Sections(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name:        "log level",
			modifyFunc:  func(c *Config) { c.Logging.Level = "loud" },
			expectedErr: "invalid log level: loud",
		},
		{
			name:        "cache ttl",
			modifyFunc:  func(c *Config) { c.Cache.TTL = 0 },
			expectedErr: "cache ttl must be positive",
		},
		{
			name:        "cache size",
			modifyFunc:  func(c *Config) { c.Cache.MaxSize = 0 },
			expectedErr: "cache max_size must be positive",
		},
		{
			name:        "pmc timeout",
			modifyFunc:  func(c *Config) { c.Search.PMCTimeout = -time.Second },
			expectedErr: "pmc_timeout must not be negative",
		},
		{
			name:        "pmc email",
			modifyFunc:  func(c *Config) { c.PaperSources.PMC.Email = " " },
			expectedErr: "pmc requires tool and email",
		},
		{
			name:        "pmc interval",
			modifyFunc:  func(c *Config) { c.PaperSources.PMC.MinInterval = 0 },
			expectedErr: "pmc min_interval must be positive",
		},
		{
			name: "kafka brokers",
			modifyFunc: func(c *Config) {
				c.Kafka.Enabled = true
				c.Kafka.Brokers = nil
			},
			expectedErr: "kafka brokers are required",
		},
		{
			name: "kafka topic",
			modifyFunc: func(c *Config) {
				c.Kafka.Enabled = true
				c.Kafka.Topic = ""
			},
			expectedErr: "kafka topic is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestValidate_DisabledPMCSkipsIdentification(t *testing.T) {
	cfg := validConfig()
	cfg.PaperSources.PMC = PMCConfig{Enabled: false}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_LogLevelCaseInsensitive(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "WARN"
	assert.NoError(t, cfg.Validate())
}

func TestServerConfig_Addresses(t *testing.T) {
	cfg := ServerConfig{
		Host:        "127.0.0.1",
		HTTPPort:    5000,
		MetricsPort: 9091,
	}
	assert.Equal(t, "127.0.0.1:5000", cfg.HTTPAddress())
	assert.Equal(t, "127.0.0.1:9091", cfg.MetricsAddress())
}

// clearEnvVars unsets every PAPERSEARCH_ variable for the duration of the test.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		key, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(key, EnvPrefix+"_") {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

// validConfig returns a valid configuration for testing
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			HTTPPort:    5000,
			MetricsPort: 9091,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		Cache: CacheConfig{
			TTL:     5 * time.Minute,
			MaxSize: 1000,
		},
		Search: SearchConfig{
			PMCTimeout:  8 * time.Second,
			CounterSeed: 3000,
		},
		PaperSources: PaperSourcesConfig{
			PMC: PMCConfig{
				Enabled:     true,
				Tool:        "PaperSearch",
				Email:       "developer@helixir.io",
				MinInterval: 100 * time.Millisecond,
				MaxRetries:  1,
			},
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "events.paper_search.searches",
		},
	}
}
