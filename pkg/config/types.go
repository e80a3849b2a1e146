// Package config provides job configuration loading and validation for logparse.
package config

import "time"

// Config is the root configuration structure loaded from YAML. It describes
// one parsing job: which rules, which logs, and the outcome policy.
type Config struct {
	// Rules is the path to the rule file.
	Rules string `yaml:"rules"`

	// RulesRelativeToWorkspace resolves Rules against the workspace (and the
	// remote agent, when configured) instead of the local filesystem.
	RulesRelativeToWorkspace bool `yaml:"rules_relative_to_workspace,omitempty"`

	// Workspace is the build workspace that relative log paths resolve against.
	Workspace string `yaml:"workspace,omitempty"`

	// Remote serves the workspace from a build agent over HTTP.
	Remote *RemoteConfig `yaml:"remote,omitempty"`

	// Logs lists log paths or glob patterns to classify.
	Logs []string `yaml:"logs"`

	// OutputDir receives one annotated HTML file per log. Empty disables it.
	OutputDir string `yaml:"output_dir,omitempty"`

	// PreformattedOutput wraps each annotated line in <pre> instead of rich HTML.
	PreformattedOutput bool `yaml:"preformatted_output,omitempty"`

	// Charset used to decode logs.
	Charset string `yaml:"charset,omitempty"`

	// Outcome policy.
	FailOnError       bool `yaml:"fail_on_error,omitempty"`
	UnstableOnWarning bool `yaml:"unstable_on_warning,omitempty"`

	// MaxMatchedLines caps retained excerpts per log; negative disables the cap.
	MaxMatchedLines int `yaml:"max_matched_lines,omitempty"`

	// MaxLineBytes caps a single log line.
	MaxLineBytes int `yaml:"max_line_bytes,omitempty"`

	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
	Metrics  MetricsConfig   `yaml:"metrics,omitempty"`
}

// RemoteConfig points at an agent serving its workspace over HTTP.
type RemoteConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token,omitempty"`
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	// Textfile is written in Prometheus text format after the run.
	Textfile string `yaml:"textfile,omitempty"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnFailure fires when the verdict is not SUCCESS (default).
	WebhookTriggerOnFailure WebhookTrigger = "on_failure"
	// WebhookTriggerAlways fires after every run.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending parse reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_failure" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
