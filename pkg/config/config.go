package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/logparse/pkg/source"
)

// Load reads and validates a job configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables that are already set are left alone.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// Validate checks a configuration for errors and fills in defaults.
func Validate(cfg *Config) error {
	if cfg.Rules == "" {
		return errors.New("rules: a rule file is required")
	}

	if len(cfg.Logs) == 0 {
		return errors.New("logs: at least one log is required")
	}

	if cfg.Charset == "" {
		cfg.Charset = DefaultCharset
	}
	if _, err := source.LookupCharset(cfg.Charset); err != nil {
		return fmt.Errorf("charset: %w", err)
	}

	if cfg.MaxLineBytes < 0 {
		return fmt.Errorf("max_line_bytes: must be >= 0, got %d", cfg.MaxLineBytes)
	}

	if cfg.Remote != nil {
		if err := validateRemote(cfg.Remote); err != nil {
			return fmt.Errorf("remote: %w", err)
		}
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateRemote(r *RemoteConfig) error {
	if err := validateHTTPURL(r.URL); err != nil {
		return err
	}
	r.Token = expandEnvVar(r.Token)
	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if err := validateHTTPURL(wh.URL); err != nil {
		return err
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	switch wh.Trigger {
	case "":
		wh.Trigger = WebhookTriggerOnFailure
	case WebhookTriggerOnFailure, WebhookTriggerAlways, WebhookTriggerNever:
	default:
		return fmt.Errorf("invalid trigger %q (must be on_failure, always, or never)", wh.Trigger)
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	return nil
}

// expandEnvVar expands a value of the form ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		return os.Getenv(s[1:])
	}

	return s
}
