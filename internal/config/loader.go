package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads, decodes, and validates a slipway config file. Unset fields
// fall back to Defaults().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Defaults()
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued fields after decode. A config file that
// sets only a few keys still gets the full default timing policy.
func applyDefaults(cfg *Config) {
	def := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = def.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = def.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = def.Service.LogFormat
	}
	if cfg.State.Path == "" {
		cfg.State.Path = def.State.Path
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = def.API.Listen
	}
	if cfg.Lifecycle.IdleGrace <= 0 {
		cfg.Lifecycle.IdleGrace = def.Lifecycle.IdleGrace
	}
	if cfg.Lifecycle.LocalChangesPoll <= 0 {
		cfg.Lifecycle.LocalChangesPoll = def.Lifecycle.LocalChangesPoll
	}
	if cfg.Lifecycle.PullRequestPoll <= 0 {
		cfg.Lifecycle.PullRequestPoll = def.Lifecycle.PullRequestPoll
	}
	if cfg.Lifecycle.BranchAheadPoll <= 0 {
		cfg.Lifecycle.BranchAheadPoll = def.Lifecycle.BranchAheadPoll
	}
	if cfg.Review.AutoStartDelay <= 0 {
		cfg.Review.AutoStartDelay = def.Review.AutoStartDelay
	}
	if cfg.Review.Provider == "" {
		cfg.Review.Provider = def.Review.Provider
	}
	if len(cfg.Providers) == 0 {
		cfg.Providers = def.Providers
	}
}

// Validate checks cross-field consistency.
func Validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("provider with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate provider id %q", p.ID)
		}
		seen[p.ID] = true
	}

	if !seen[cfg.Review.Provider] {
		return fmt.Errorf("review provider %q is not a declared provider", cfg.Review.Provider)
	}

	wsSeen := make(map[string]bool, len(cfg.Workspaces))
	for _, ws := range cfg.Workspaces {
		if strings.TrimSpace(ws.ID) == "" {
			return fmt.Errorf("workspace with empty id")
		}
		if wsSeen[ws.ID] {
			return fmt.Errorf("duplicate workspace id %q", ws.ID)
		}
		wsSeen[ws.ID] = true
		if strings.TrimSpace(ws.Path) == "" {
			return fmt.Errorf("workspace %q has empty path", ws.ID)
		}
	}

	return nil
}
