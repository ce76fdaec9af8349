package config

import (
	"os"
	"strconv"
)

// envOverrides maps environment variables to config field setters.
var envOverrides = []struct {
	envVar string
	apply  func(*Config, string)
}{
	{
		envVar: "GANNET_STORE_ENDPOINT",
		apply: func(c *Config, v string) {
			c.Store.Endpoint = v
		},
	},
	{
		envVar: "GANNET_STORE_REGION",
		apply: func(c *Config, v string) {
			c.Store.Region = v
		},
	},
	{
		envVar: "GANNET_STORE_BUCKET",
		apply: func(c *Config, v string) {
			c.Store.Bucket = v
		},
	},
	{
		envVar: "GANNET_STORE_ACCESS_KEY",
		apply: func(c *Config, v string) {
			c.Store.AccessKey = v
		},
	},
	{
		envVar: "GANNET_STORE_SECRET_KEY",
		apply: func(c *Config, v string) {
			c.Store.SecretKey = v
		},
	},
	{
		envVar: "GANNET_PIPELINE_CMD",
		apply: func(c *Config, v string) {
			c.Pipeline.Command = v
		},
	},
	{
		envVar: "GANNET_PIPELINE_APP",
		apply: func(c *Config, v string) {
			c.Pipeline.App = v
		},
	},
	{
		envVar: "GANNET_SCRATCH_DIR",
		apply: func(c *Config, v string) {
			c.Pipeline.ScratchDir = v
		},
	},
	{
		envVar: "GANNET_PARALLELISM",
		apply: func(c *Config, v string) {
			if n, err := strconv.Atoi(v); err == nil {
				c.Parallelism = n
			}
		},
	},
	{
		envVar: "GANNET_LOG_DIR",
		apply: func(c *Config, v string) {
			c.LogDir = v
		},
	},
	{
		envVar: "GANNET_LOG_LEVEL",
		apply: func(c *Config, v string) {
			c.LogLevel = v
		},
	},
}

// applyEnvOverrides modifies config in place with environment variable values.
func applyEnvOverrides(cfg *Config) {
	for _, override := range envOverrides {
		if val := os.Getenv(override.envVar); val != "" {
			override.apply(cfg, val)
		}
	}
}
