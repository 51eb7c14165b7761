package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ruteri/identity-registry/interfaces"
	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML deployment file.
type File struct {
	Admin      string                 `yaml:"admin"`
	Limits     Limits                 `yaml:"limits"`
	Chains     []interfaces.ChainInfo `yaml:"chains"`
	Checkpoint CheckpointFile         `yaml:"checkpoint"`
	RateLimit  RateLimitFile          `yaml:"rate_limit"`
}

type CheckpointFile struct {
	StorageURIs []string      `yaml:"storage_uris"`
	Interval    time.Duration `yaml:"interval"`
	HeadFile    string        `yaml:"head_file"`
}

type RateLimitFile struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// Config is the resolved deployment configuration.
type Config struct {
	// Admin gates every chain directory mutation. Zero if not configured.
	Admin interfaces.AccountID

	Limits Limits

	// GenesisChains pre-populate the chain directory in order, receiving
	// chain ids 0, 1, 2...
	GenesisChains []interfaces.ChainInfo

	CheckpointStorageURIs []string
	CheckpointInterval    time.Duration
	CheckpointHeadFile    string

	RateLimitPerSecond float64
	RateLimitBurst     int
}

func Default() *Config {
	return &Config{
		Limits:             DefaultLimits(),
		CheckpointInterval: 5 * time.Minute,
		CheckpointHeadFile: "checkpoint.head",
		RateLimitPerSecond: 10,
		RateLimitBurst:     20,
	}
}

// Load reads the YAML file at path and merges it over the defaults. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var parsed File
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := Merge(cfg, parsed); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the resolved configuration, after every override.
func (c *Config) Validate() error {
	if c.CheckpointInterval <= 0 {
		return fmt.Errorf("checkpoint interval %s: must be positive", c.CheckpointInterval)
	}
	if len(c.CheckpointStorageURIs) > 0 && c.CheckpointHeadFile == "" {
		return fmt.Errorf("checkpoint head file must be set when checkpoint storage is configured")
	}
	return nil
}

// Merge applies every set field of src to dst.
func Merge(dst *Config, src File) error {
	if src.Admin != "" {
		admin, err := interfaces.NewAccountIDFromHex(src.Admin)
		if err != nil {
			return fmt.Errorf("admin: %w", err)
		}
		dst.Admin = admin
	}

	dst.Limits.merge(src.Limits)

	if src.Chains != nil {
		dst.GenesisChains = src.Chains
	}
	if src.Checkpoint.StorageURIs != nil {
		dst.CheckpointStorageURIs = src.Checkpoint.StorageURIs
	}
	if src.Checkpoint.Interval < 0 {
		return fmt.Errorf("checkpoint interval %s: must be positive", src.Checkpoint.Interval)
	}
	if src.Checkpoint.Interval != 0 {
		dst.CheckpointInterval = src.Checkpoint.Interval
	}
	if src.Checkpoint.HeadFile != "" {
		dst.CheckpointHeadFile = src.Checkpoint.HeadFile
	}
	if src.RateLimit.PerSecond != 0 {
		dst.RateLimitPerSecond = src.RateLimit.PerSecond
	}
	if src.RateLimit.Burst != 0 {
		dst.RateLimitBurst = src.RateLimit.Burst
	}
	return nil
}
