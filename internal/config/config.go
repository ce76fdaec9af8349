package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the gannet dispatcher.
// It is immutable after creation via LoadConfig().
type Config struct {
	// Store contains remote object store connection settings
	Store StoreConfig `yaml:"store"`

	// Pipeline contains annotation pipeline invocation settings
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Parallelism is the maximum number of jobs to execute concurrently
	Parallelism int `yaml:"parallelism"`

	// LogDir is the directory where per-job pipeline logs are written.
	// Relative paths are resolved from the working directory.
	LogDir string `yaml:"log_dir"`

	// LogLevel controls log verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`
}

// StoreConfig identifies the remote object store holding genome inputs
// and annotation outputs.
type StoreConfig struct {
	// Endpoint is the store's base URL (empty = provider default)
	Endpoint string `yaml:"endpoint"`

	// Region is the store region (some providers accept "auto")
	Region string `yaml:"region"`

	// Bucket is the bucket holding the annotation workspace
	Bucket string `yaml:"bucket"`

	// AccessKey and SecretKey are static credentials. Prefer setting
	// these via GANNET_STORE_ACCESS_KEY / GANNET_STORE_SECRET_KEY over
	// writing them into the config file.
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// PathStyle forces path-style bucket addressing (needed by MinIO
	// and some self-hosted stores)
	PathStyle bool `yaml:"path_style"`
}

// PipelineConfig controls how the external annotation pipeline is invoked.
type PipelineConfig struct {
	// Command is the path or name of the pipeline launcher binary
	Command string `yaml:"command"`

	// App is the fixed leading token passed as the pipeline's first
	// argument, naming the application to run
	App string `yaml:"app"`

	// SpecDirs are searched in order for the <app>.json parameter-schema
	// file handed to the pipeline
	SpecDirs []string `yaml:"spec_dirs"`

	// ScratchDir is the base directory for per-job scratch directories
	// (empty = system temp dir)
	ScratchDir string `yaml:"scratch_dir"`
}

// LoadConfig loads configuration from the given directory.
// It applies defaults, then file values, then environment overrides,
// then resolves paths and validates.
//
// Parameters:
//   - dir: directory to look for .gannet.yaml in (usually the working directory)
//
// Returns the validated Config or an error if validation fails.
func LoadConfig(dir string) (*Config, error) {
	cfg := DefaultConfig()

	// Try to load config file (optional)
	configPath := filepath.Join(dir, ".gannet.yaml")
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	// Note: missing config file is not an error (use defaults)

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Resolve relative paths
	if cfg.LogDir != "" && !filepath.IsAbs(cfg.LogDir) {
		cfg.LogDir = filepath.Join(dir, cfg.LogDir)
	}

	// Validate
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
