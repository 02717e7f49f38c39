package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Mode    string        `toml:"mode" validate:"oneof=api worker both"` // "api", "worker" or "both"
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
	Queue   QueueConfig   `toml:"queue"`
	Browser BrowserConfig `toml:"browser"`
	Workers WorkersConfig `toml:"workers"`
	Ingest  IngestConfig  `toml:"ingest"`
	Logging LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host"`
}

// StoreConfig holds the embedded queue store settings. Host/Port/Password
// mirror the deployment's queue-address variables so existing environment
// files keep working; they address the data directory namespace, not a
// network service.
type StoreConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Password       string `toml:"password"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type QueueConfig struct {
	MaxAttempts      int           `toml:"max_attempts" validate:"gte=1"` // Attempts per job before terminal failure
	RetryBackoffBase time.Duration `toml:"retry_backoff_base"`            // First retry delay; doubles per attempt
	StallInterval    time.Duration `toml:"stall_interval"`                // Active jobs without a heartbeat this long are reclaimed
	RetainCompleted  int           `toml:"retain_completed"`              // Completed jobs kept per sweep
	RetainFailed     int           `toml:"retain_failed"`                 // Failed jobs kept per sweep
}

type BrowserConfig struct {
	MaxInstances int           `toml:"max_instances" validate:"gte=1"`
	Timeout      time.Duration `toml:"timeout"` // Browser launch timeout
	Headless     bool          `toml:"headless"`
	MaxUses      int           `toml:"max_uses"` // Recycle an instance after this many jobs
}

type WorkersConfig struct {
	Concurrency int `toml:"concurrency" validate:"gte=1"` // Jobs processed in parallel per worker process
}

type IngestConfig struct {
	MaxUploadBytes int64 `toml:"max_upload_bytes" validate:"gt=0"`
	MaxRows        int   `toml:"max_rows" validate:"gt=0"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in reperio.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Mode: "both",
		Server: ServerConfig{
			Port: 3000,
			Host: "0.0.0.0",
		},
		Store: StoreConfig{
			Path: "./data",
		},
		Queue: QueueConfig{
			MaxAttempts:      3,
			RetryBackoffBase: 2 * time.Second,
			StallInterval:    30 * time.Second,
			RetainCompleted:  100,
			RetainFailed:     50,
		},
		Browser: BrowserConfig{
			MaxInstances: 3,
			Timeout:      30 * time.Second,
			Headless:     true,
			MaxUses:      40,
		},
		Workers: WorkersConfig{
			Concurrency: 2,
		},
		Ingest: IngestConfig{
			MaxUploadBytes: 10 * 1024 * 1024, // 10MB
			MaxRows:        5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
// A missing path loads defaults plus environment overrides.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	// Queue store addressing. Kept under the legacy REDIS_* names so the
	// deployment environment files carry over unchanged.
	if host := os.Getenv("REDIS_HOST"); host != "" {
		config.Store.Host = host
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Store.Port = p
		}
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		config.Store.Password = password
	}

	if maxInstances := os.Getenv("MAX_BROWSER_INSTANCES"); maxInstances != "" {
		if mi, err := strconv.Atoi(maxInstances); err == nil {
			config.Browser.MaxInstances = mi
		}
	}
	// BROWSER_TIMEOUT is a millisecond count, not a duration string.
	if timeout := os.Getenv("BROWSER_TIMEOUT"); timeout != "" {
		if ms, err := strconv.Atoi(timeout); err == nil && ms > 0 {
			config.Browser.Timeout = time.Duration(ms) * time.Millisecond
		}
	}

	if concurrency := os.Getenv("WORKER_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Workers.Concurrency = c
		}
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if mode := os.Getenv("APP_MODE"); mode != "" {
		config.Mode = mode
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, mode string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if mode != "" {
		config.Mode = mode
	}
}

// RunsAPI reports whether this process serves HTTP.
func (c *Config) RunsAPI() bool {
	return c.Mode == "api" || c.Mode == "both"
}

// RunsWorkers reports whether this process runs the scrape worker fleet.
func (c *Config) RunsWorkers() bool {
	return c.Mode == "worker" || c.Mode == "both"
}
