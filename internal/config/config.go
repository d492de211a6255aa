// Package config provides configuration management for the paper search service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "PAPERSEARCH"

// Config holds all configuration for the paper search service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Cache contains result cache settings.
	Cache CacheConfig `mapstructure:"cache"`
	// Search contains aggregator settings.
	Search SearchConfig `mapstructure:"search"`
	// PaperSources contains per-source upstream settings.
	PaperSources PaperSourcesConfig `mapstructure:"paper_sources"`
	// Kafka contains search event publisher settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP API port (default: 5000).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// Environment is reported by the health endpoint.
	Environment string `mapstructure:"environment"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console, pretty).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// CacheConfig holds result cache configuration.
type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	MaxSize       int           `mapstructure:"max_size"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// SearchConfig holds aggregator configuration.
type SearchConfig struct {
	// PMCTimeout bounds the PMC call of a single search.
	PMCTimeout time.Duration `mapstructure:"pmc_timeout"`
	// CounterSeed is the starting value of the search counter.
	CounterSeed int64 `mapstructure:"counter_seed"`
}

// PaperSourcesConfig holds paper source configurations.
type PaperSourcesConfig struct {
	ArXiv   PaperSourceConfig `mapstructure:"arxiv"`
	BioRxiv PaperSourceConfig `mapstructure:"biorxiv"`
	MedRxiv PaperSourceConfig `mapstructure:"medrxiv"`
	PMC     PMCConfig         `mapstructure:"pmc"`
}

// PaperSourceConfig holds configuration for an HTTP paper source.
type PaperSourceConfig struct {
	// Enabled indicates whether this source is enabled.
	Enabled bool `mapstructure:"enabled"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxRetries bounds retries on throttling and server errors.
	MaxRetries int `mapstructure:"max_retries"`
	// MaxPages bounds details pages scanned per search (bioRxiv family only).
	MaxPages int `mapstructure:"max_pages"`
}

// PMCConfig holds PubMed Central E-utilities configuration.
type PMCConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Tool and Email identify the caller per NCBI policy.
	Tool  string `mapstructure:"tool"`
	Email string `mapstructure:"email"`
	// MinInterval is the spacing between dispatched requests.
	MinInterval time.Duration `mapstructure:"min_interval"`
	// MaxRetries bounds re-enqueues after a 429 or transport error.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the base backoff, multiplied by the attempt number.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// KafkaConfig holds Kafka publisher configuration.
type KafkaConfig struct {
	// Enabled enables publishing of search events.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic for search events.
	Topic string `mapstructure:"topic"`
	// BatchSize is the maximum number of messages per batch.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout is the maximum time to wait before flushing a batch.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load reads configuration from a .env file, config.yaml and PAPERSEARCH_*
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-search-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports the variables of path into the process environment.
// Variables that are already set win. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 5000)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.sweep_interval", "5m")

	v.SetDefault("search.pmc_timeout", "8s")
	v.SetDefault("search.counter_seed", 3000)

	v.SetDefault("paper_sources.arxiv.enabled", true)
	v.SetDefault("paper_sources.arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("paper_sources.arxiv.timeout", "30s")
	v.SetDefault("paper_sources.arxiv.rate_limit", 3.0) // arXiv recommends max 3 req/sec
	v.SetDefault("paper_sources.arxiv.max_retries", 2)

	v.SetDefault("paper_sources.biorxiv.enabled", true)
	v.SetDefault("paper_sources.biorxiv.base_url", "https://api.biorxiv.org")
	v.SetDefault("paper_sources.biorxiv.timeout", "30s")
	v.SetDefault("paper_sources.biorxiv.rate_limit", 5.0)
	v.SetDefault("paper_sources.biorxiv.max_retries", 2)
	v.SetDefault("paper_sources.biorxiv.max_pages", 3)

	v.SetDefault("paper_sources.medrxiv.enabled", true)
	v.SetDefault("paper_sources.medrxiv.base_url", "https://api.biorxiv.org")
	v.SetDefault("paper_sources.medrxiv.timeout", "30s")
	v.SetDefault("paper_sources.medrxiv.rate_limit", 5.0)
	v.SetDefault("paper_sources.medrxiv.max_retries", 2)
	v.SetDefault("paper_sources.medrxiv.max_pages", 3)

	v.SetDefault("paper_sources.pmc.enabled", true)
	v.SetDefault("paper_sources.pmc.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("paper_sources.pmc.timeout", "30s")
	v.SetDefault("paper_sources.pmc.tool", "PaperSearch")
	v.SetDefault("paper_sources.pmc.email", "developer@helixir.io")
	v.SetDefault("paper_sources.pmc.min_interval", "100ms") // NCBI allows 10 req/sec with an email
	v.SetDefault("paper_sources.pmc.max_retries", 1)
	v.SetDefault("paper_sources.pmc.retry_delay", "200ms")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.paper_search.searches")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}
	if c.Metrics.Enabled && c.Server.MetricsPort == c.Server.HTTPPort {
		return fmt.Errorf("metrics port must differ from HTTP port: %d", c.Server.HTTPPort)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache max_size must be positive")
	}

	if c.Search.PMCTimeout < 0 {
		return fmt.Errorf("search pmc_timeout must not be negative")
	}

	if pmc := c.PaperSources.PMC; pmc.Enabled {
		if strings.TrimSpace(pmc.Tool) == "" || strings.TrimSpace(pmc.Email) == "" {
			return fmt.Errorf("pmc requires tool and email identification")
		}
		if pmc.MinInterval <= 0 {
			return fmt.Errorf("pmc min_interval must be positive")
		}
		if pmc.MaxRetries < 0 {
			return fmt.Errorf("pmc max_retries must not be negative")
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka is enabled")
		}
	}

	return nil
}
