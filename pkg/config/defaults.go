package config

import (
	"os"
	"time"

	"github.com/ccollicutt/logparse/pkg/source"
)

// Default values for configuration.
const (
	DefaultWebhookTimeout = 10 * time.Second
	DefaultCharset        = source.DefaultCharset
)

// Environment variable names.
const (
	EnvRules     = "LOGPARSE_RULES"
	EnvWorkspace = "LOGPARSE_WORKSPACE"
	EnvCharset   = "LOGPARSE_CHARSET"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Logs:    []string{},
		Charset: DefaultCharset,
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv(EnvRules); v != "" {
		c.Rules = v
	}
	if v := os.Getenv(EnvWorkspace); v != "" {
		c.Workspace = v
	}
	if v := os.Getenv(EnvCharset); v != "" {
		c.Charset = v
	}
}
