package queuectl_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KarthikHK-01/queuectl"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := queuectl.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Worker.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want %v", cfg.Worker.PollInterval, 2*time.Second)
	}
	if cfg.Store.Backend != queuectl.BackendSQLite {
		t.Errorf("Backend = %q, want %q", cfg.Store.Backend, queuectl.BackendSQLite)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := queuectl.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.PIDFile != "worker_pids.json" {
		t.Errorf("PIDFile = %q, want %q", cfg.PIDFile, "worker_pids.json")
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queuectl.yaml")
	data := []byte(`
store:
  backend: memory
worker:
  count: 3
  poll_interval: 500ms
  heartbeat_interval: 5s
  stale_job_threshold: 30s
log:
  format: json
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("QUEUECTL_WORKERS", "7")

	cfg, err := queuectl.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Store.Backend != queuectl.BackendMemory {
		t.Errorf("Backend = %q, want %q", cfg.Store.Backend, queuectl.BackendMemory)
	}
	if cfg.Worker.Count != 7 {
		t.Errorf("Count = %d, want 7 (env override)", cfg.Worker.Count)
	}
	if cfg.Worker.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", cfg.Worker.PollInterval)
	}
	if cfg.Worker.StaleJobThreshold != 30*time.Second {
		t.Errorf("StaleJobThreshold = %v, want 30s", cfg.Worker.StaleJobThreshold)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
}

func TestConfig_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*queuectl.Config)
	}{
		{"unknown backend", func(c *queuectl.Config) { c.Store.Backend = "etcd" }},
		{"empty dsn", func(c *queuectl.Config) { c.Store.DSN = "" }},
		{"zero workers", func(c *queuectl.Config) { c.Worker.Count = 0 }},
		{"zero poll interval", func(c *queuectl.Config) { c.Worker.PollInterval = 0 }},
		{"reclaim without heartbeat", func(c *queuectl.Config) { c.Worker.StaleJobThreshold = time.Minute }},
		{"threshold below heartbeat", func(c *queuectl.Config) {
			c.Worker.HeartbeatInterval = time.Minute
			c.Worker.StaleJobThreshold = time.Second
		}},
		{"negative claim rate", func(c *queuectl.Config) { c.Worker.ClaimRate = -1 }},
		{"bad log format", func(c *queuectl.Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := queuectl.DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, queuectl.ErrInvalidConfig) {
				t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadConfig_BadEnvDuration(t *testing.T) {
	t.Setenv("QUEUECTL_POLL_INTERVAL", "soon")
	_, err := queuectl.LoadConfig("")
	if !errors.Is(err, queuectl.ErrInvalidConfig) {
		t.Fatalf("LoadConfig() = %v, want ErrInvalidConfig", err)
	}
}
