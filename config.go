package queuectl

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported store backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

// Config holds process-level configuration for the CLI and engine.
// Durable queue settings such as base-backoff live in the settings
// store instead, so every worker process sees the same values.
type Config struct {
	Store   StoreConfig  `yaml:"store"`
	Worker  WorkerConfig `yaml:"worker"`
	Log     LogConfig    `yaml:"log"`
	PIDFile string       `yaml:"pid_file"`
}

// StoreConfig selects and locates the persistence backend.
type StoreConfig struct {
	// Backend is one of sqlite, postgres, redis, mongo, memory.
	Backend string `yaml:"backend"`

	// DSN is the backend connection string. For sqlite it is a file path.
	DSN string `yaml:"dsn"`
}

// WorkerConfig controls the worker pool.
type WorkerConfig struct {
	// Count is the number of workers started by "worker start".
	Count int `yaml:"count"`

	// PollInterval is the idle wait between claim attempts on an empty queue.
	PollInterval time.Duration `yaml:"poll_interval"`

	// ShutdownTimeout bounds how long Stop waits for in-flight jobs.
	// Zero waits until they finish.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// JobTimeout caps a single command execution. Zero means unlimited.
	JobTimeout time.Duration `yaml:"job_timeout"`

	// HeartbeatInterval is how often workers heartbeat their in-flight job.
	// Zero disables heartbeats.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// StaleJobThreshold is how long a processing job may go without a
	// heartbeat before it is returned to pending. Zero disables reclaim,
	// leaving jobs of crashed workers in processing.
	StaleJobThreshold time.Duration `yaml:"stale_job_threshold"`

	// ClaimRate limits claims per second across the pool. Zero is unlimited.
	ClaimRate float64 `yaml:"claim_rate"`
}

// LogConfig controls the slog handler built by the CLI.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Backend: BackendSQLite,
			DSN:     "queuectl.db",
		},
		Worker: WorkerConfig{
			Count:        1,
			PollInterval: 2 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		PIDFile: "worker_pids.json",
	}
}

// LoadConfig reads the YAML file at path on top of DefaultConfig, applies
// QUEUECTL_* environment overrides, and validates the result. A missing
// file is not an error; an empty path skips the file entirely.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
			}
		case os.IsNotExist(err):
		default:
			return cfg, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("QUEUECTL_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("QUEUECTL_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("QUEUECTL_PID_FILE"); v != "" {
		c.PIDFile = v
	}
	if v := os.Getenv("QUEUECTL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("QUEUECTL_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("QUEUECTL_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: QUEUECTL_WORKERS: %v", ErrInvalidConfig, err)
		}
		c.Worker.Count = n
	}
	if v := os.Getenv("QUEUECTL_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: QUEUECTL_POLL_INTERVAL: %v", ErrInvalidConfig, err)
		}
		c.Worker.PollInterval = d
	}
	if v := os.Getenv("QUEUECTL_JOB_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: QUEUECTL_JOB_TIMEOUT: %v", ErrInvalidConfig, err)
		}
		c.Worker.JobTimeout = d
	}
	return nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendPostgres, BackendRedis, BackendMongo, BackendMemory:
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	if c.Store.Backend != BackendMemory && c.Store.DSN == "" {
		return fmt.Errorf("%w: store dsn is required for %s", ErrInvalidConfig, c.Store.Backend)
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("%w: worker count must be positive, got %d", ErrInvalidConfig, c.Worker.Count)
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("%w: worker poll interval must be positive", ErrInvalidConfig)
	}
	if c.Worker.ShutdownTimeout < 0 || c.Worker.JobTimeout < 0 {
		return fmt.Errorf("%w: worker timeouts must be non-negative", ErrInvalidConfig)
	}
	if c.Worker.HeartbeatInterval < 0 || c.Worker.StaleJobThreshold < 0 {
		return fmt.Errorf("%w: heartbeat settings must be non-negative", ErrInvalidConfig)
	}
	if c.Worker.StaleJobThreshold > 0 && c.Worker.HeartbeatInterval == 0 {
		return fmt.Errorf("%w: stale_job_threshold requires heartbeat_interval", ErrInvalidConfig)
	}
	if c.Worker.StaleJobThreshold > 0 && c.Worker.StaleJobThreshold <= c.Worker.HeartbeatInterval {
		return fmt.Errorf("%w: stale_job_threshold must exceed heartbeat_interval", ErrInvalidConfig)
	}
	if c.Worker.ClaimRate < 0 {
		return fmt.Errorf("%w: claim rate must be non-negative", ErrInvalidConfig)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format must be text or json, got %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}
