package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	content := `
version: "1"
region: eu-west-1
store_dir: /tmp/vahti-test
sweeps:
  orphan_interval: 12h
  self_heal_interval: 30s
executor:
  resize_timeout: 10m
`
	path := filepath.Join(t.TempDir(), "vahti.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Region != "eu-west-1" {
		t.Errorf("Region = %q, want eu-west-1", cfg.Region)
	}
	if cfg.Sweeps.OrphanInterval != 12*time.Hour {
		t.Errorf("OrphanInterval = %v, want 12h", cfg.Sweeps.OrphanInterval)
	}
	if cfg.Sweeps.SelfHealInterval != 30*time.Second {
		t.Errorf("SelfHealInterval = %v, want 30s", cfg.Sweeps.SelfHealInterval)
	}
	// Defaults fill what the file omits
	if cfg.Sweeps.RightsizingInterval != 6*time.Hour {
		t.Errorf("RightsizingInterval = %v, want default 6h", cfg.Sweeps.RightsizingInterval)
	}
	if cfg.Executor.PollInterval != 10*time.Second {
		t.Errorf("PollInterval = %v, want default 10s", cfg.Executor.PollInterval)
	}
	if cfg.Scanner.StoppedAfterDays != 7 {
		t.Errorf("StoppedAfterDays = %d, want default 7", cfg.Scanner.StoppedAfterDays)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"missing region", func(c *Config) { c.Region = "" }, true},
		{"missing version", func(c *Config) { c.Version = "" }, true},
		{"poll longer than timeout", func(c *Config) {
			c.Executor.PollInterval = time.Hour
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/vahti.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
