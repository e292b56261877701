package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration. Values
// load from environment variables (prefix SCHOOLPULSE_) with an
// optional YAML file overlay.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Source   SourceConfig   `yaml:"source" envconfig:"SOURCE"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"50"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/schoolpulse.log"`
}

// SourceConfig describes the upstream incident dataset. The fetch is
// a single bounded call per session; the pipeline itself never does
// network I/O.
type SourceConfig struct {
	URL          string        `yaml:"url" envconfig:"URL" default:"https://everytownresearch.org/wp-content/uploads/sites/4/etown-maps/gunfire-on-school-grounds/data.csv"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT" default:"10s"`
	UserAgent    string        `yaml:"user_agent" envconfig:"USER_AGENT" default:"Mozilla/5.0 (compatible; schoolpulse)"`
}

// PipelineConfig tunes the core computation.
type PipelineConfig struct {
	// TopKStates is the number of leading states in the concentration
	// metrics.
	TopKStates int `yaml:"top_k_states" envconfig:"TOP_K_STATES" default:"10"`
	// IncludePartialYear folds the partial current calendar year into
	// the year-over-year trend. Off by default; partial-year counts
	// understate the trend.
	IncludePartialYear bool `yaml:"include_partial_year" envconfig:"INCLUDE_PARTIAL_YEAR" default:"false"`
	// CacheSize bounds the memoized compute results held per process.
	CacheSize int `yaml:"cache_size" envconfig:"CACHE_SIZE" default:"64"`
}

// Load reads configuration from the environment and, when
// SCHOOLPULSE_CONFIG_FILE points at a YAML file, overlays it on top.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("SCHOOLPULSE", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if path := os.Getenv("SCHOOLPULSE_CONFIG_FILE"); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks cross-field constraints not expressible in tags.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Source.URL == "" {
		return fmt.Errorf("source url must not be empty")
	}
	if c.Pipeline.TopKStates < 1 {
		return fmt.Errorf("top_k_states must be positive, got %d", c.Pipeline.TopKStates)
	}
	return nil
}
