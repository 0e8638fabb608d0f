package config

import "time"

// Config represents the complete slipway configuration.
type Config struct {
	Service    ServiceConfig   `yaml:"service"`
	State      StateConfig     `yaml:"state"`
	API        APIConfig       `yaml:"api,omitempty"`
	Lifecycle  LifecycleConfig `yaml:"lifecycle"`
	Review     ReviewConfig    `yaml:"review"`
	Providers  []ProviderConf  `yaml:"providers"`
	Workspaces []WorkspaceConf `yaml:"workspaces,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// StateConfig defines state storage settings.
type StateConfig struct {
	Path string `yaml:"path"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	APIKey  string `yaml:"api_key"`
}

// LifecycleConfig defines the lifecycle aggregator's timing policy.
type LifecycleConfig struct {
	// IdleGrace is how long a workspace must stay idle while active before
	// it is promoted to ready-for-review.
	IdleGrace        time.Duration `yaml:"idle_grace"`
	LocalChangesPoll time.Duration `yaml:"local_changes_poll"`
	PullRequestPoll  time.Duration `yaml:"pull_request_poll"`
	BranchAheadPoll  time.Duration `yaml:"branch_ahead_poll"`
}

// ReviewConfig defines review pipeline and auto-start gate settings.
type ReviewConfig struct {
	Enabled bool `yaml:"enabled"`
	// AutoStartDelay lets a freshly created surface become interactive
	// before the review session attaches to it.
	AutoStartDelay time.Duration `yaml:"auto_start_delay"`
	// Provider is the surface provider kind hosting review sessions.
	Provider string `yaml:"provider"`
}

// ProviderConf declares a known work-surface provider kind.
type ProviderConf struct {
	ID      string `yaml:"id"`
	Default bool   `yaml:"default,omitempty"`
}

// WorkspaceConf declares a workspace known at startup.
type WorkspaceConf struct {
	ID        string   `yaml:"id"`
	Path      string   `yaml:"path"`
	Worktrees []string `yaml:"worktrees,omitempty"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "slipway",
			LogLevel:  "info",
			LogFormat: "json",
		},
		State: StateConfig{
			Path: "./data/slipway.db",
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8080",
		},
		Lifecycle: LifecycleConfig{
			IdleGrace:        10 * time.Second,
			LocalChangesPoll: 10 * time.Second,
			PullRequestPoll:  30 * time.Second,
			BranchAheadPoll:  30 * time.Second,
		},
		Review: ReviewConfig{
			Enabled:        true,
			AutoStartDelay: 500 * time.Millisecond,
			Provider:       "terminal",
		},
		Providers: []ProviderConf{
			{ID: "terminal", Default: true},
		},
	}
}

// ProviderIDs returns the declared provider kinds in declaration order.
func (c *Config) ProviderIDs() []string {
	ids := make([]string, 0, len(c.Providers))
	for _, p := range c.Providers {
		ids = append(ids, p.ID)
	}
	return ids
}

// DefaultProvider returns the provider marked default, or the first declared.
func (c *Config) DefaultProvider() string {
	for _, p := range c.Providers {
		if p.Default {
			return p.ID
		}
	}
	if len(c.Providers) > 0 {
		return c.Providers[0].ID
	}
	return "terminal"
}
