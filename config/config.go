package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration
type Config struct {
	Version     string      `yaml:"version"`
	Region      string      `yaml:"region"`
	StoreDir    string      `yaml:"store_dir"`
	JournalDir  string      `yaml:"journal_dir"`
	MetricsAddr string      `yaml:"metrics_addr,omitempty"`
	Sweeps      SweepConfig `yaml:"sweeps,omitempty"`
	Executor    ExecConfig  `yaml:"executor,omitempty"`
	Scanner     ScanConfig  `yaml:"scanner,omitempty"`
}

// SweepConfig sets the cadences of the background sweeps.
type SweepConfig struct {
	OrphanInterval      time.Duration `yaml:"orphan_interval"`
	RightsizingInterval time.Duration `yaml:"rightsizing_interval"`
	SelfHealInterval    time.Duration `yaml:"self_heal_interval"`
}

// ExecConfig bounds the executor's blocking waits.
type ExecConfig struct {
	ResizeTimeout time.Duration `yaml:"resize_timeout"`
	PollInterval  time.Duration `yaml:"poll_interval"`
}

// ScanConfig tunes orphan detection thresholds.
type ScanConfig struct {
	StoppedAfterDays int `yaml:"stopped_after_days"`
}

// Load reads configuration from file with defaults applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{Version: "1", Region: "us-east-1"}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values with working defaults.
func (c *Config) ApplyDefaults() {
	if c.StoreDir == "" {
		c.StoreDir = "/var/lib/vahti"
	}
	if c.JournalDir == "" {
		c.JournalDir = c.StoreDir
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}
	if c.Sweeps.OrphanInterval == 0 {
		c.Sweeps.OrphanInterval = 24 * time.Hour
	}
	if c.Sweeps.RightsizingInterval == 0 {
		c.Sweeps.RightsizingInterval = 6 * time.Hour
	}
	if c.Sweeps.SelfHealInterval == 0 {
		c.Sweeps.SelfHealInterval = time.Minute
	}
	if c.Executor.ResizeTimeout == 0 {
		c.Executor.ResizeTimeout = 5 * time.Minute
	}
	if c.Executor.PollInterval == 0 {
		c.Executor.PollInterval = 10 * time.Second
	}
	if c.Scanner.StoppedAfterDays == 0 {
		c.Scanner.StoppedAfterDays = 7
	}
}

// Validate ensures config has required fields
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if c.Executor.PollInterval >= c.Executor.ResizeTimeout {
		return fmt.Errorf("poll_interval must be shorter than resize_timeout")
	}
	return nil
}
