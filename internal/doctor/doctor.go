// Package doctor validates slipway configuration and the host environment.
package doctor

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattjoyce/slipway/internal/config"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration against the environment it will
// run in: declared providers, workspace paths on disk, and required tools.
type Doctor struct {
	cfg      *config.Config
	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg, lookPath: exec.LookPath, stat: os.Stat}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateService(r)
	d.validateProviders(r)
	d.validateWorkspaces(r)
	d.validateAPI(r)
	d.validateLifecycle(r)
	d.validateReview(r)
	d.checkTools(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateService checks required service and state fields.
func (d *Doctor) validateService(r *Result) {
	if d.cfg.State.Path == "" {
		d.addError(r, "service", "state.path", "state.path is required")
	}
	switch d.cfg.Service.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		d.addError(r, "service", "service.log_level",
			fmt.Sprintf("unknown log level %q (expected debug, info, warn, or error)", d.cfg.Service.LogLevel))
	}
	switch d.cfg.Service.LogFormat {
	case "", "json", "text":
	default:
		d.addError(r, "service", "service.log_format",
			fmt.Sprintf("unknown log format %q (expected json or text)", d.cfg.Service.LogFormat))
	}
}

// validateProviders checks the declared surface provider kinds.
func (d *Doctor) validateProviders(r *Result) {
	if len(d.cfg.Providers) == 0 {
		d.addError(r, "providers", "providers", "at least one surface provider is required")
		return
	}

	seen := make(map[string]int)
	defaults := 0
	for i, p := range d.cfg.Providers {
		field := fmt.Sprintf("providers[%d]", i)
		if p.ID == "" {
			d.addError(r, "providers", field+".id", "provider id is required")
			continue
		}
		if prev, dup := seen[p.ID]; dup {
			d.addError(r, "providers", field+".id",
				fmt.Sprintf("provider %q duplicates providers[%d]", p.ID, prev))
		}
		seen[p.ID] = i
		if p.Default {
			defaults++
		}
	}
	if defaults > 1 {
		d.addWarning(r, "providers", "providers",
			"multiple providers marked default; the first declared one wins")
	}
}

// validateWorkspaces checks declared workspaces against the filesystem.
func (d *Doctor) validateWorkspaces(r *Result) {
	seen := make(map[string]int)
	for i, ws := range d.cfg.Workspaces {
		field := fmt.Sprintf("workspaces[%d]", i)

		if ws.ID == "" {
			d.addError(r, "workspaces", field+".id", "workspace id is required")
		} else if prev, dup := seen[ws.ID]; dup {
			d.addError(r, "workspaces", field+".id",
				fmt.Sprintf("workspace %q duplicates workspaces[%d]", ws.ID, prev))
		} else {
			seen[ws.ID] = i
		}

		if ws.Path == "" {
			d.addError(r, "workspaces", field+".path", "workspace path is required")
			continue
		}
		if _, err := d.stat(ws.Path); err != nil {
			d.addWarning(r, "workspaces", field+".path",
				fmt.Sprintf("workspace %q path %q does not exist", ws.ID, ws.Path))
		} else if _, err := d.stat(filepath.Join(ws.Path, ".git")); err != nil {
			d.addWarning(r, "workspaces", field+".path",
				fmt.Sprintf("workspace %q path %q is not a git repository; change polling will find nothing", ws.ID, ws.Path))
		}
		for j, wt := range ws.Worktrees {
			if _, err := d.stat(wt); err != nil {
				d.addWarning(r, "workspaces", fmt.Sprintf("%s.worktrees[%d]", field, j),
					fmt.Sprintf("workspace %q worktree %q does not exist", ws.ID, wt))
			}
		}
	}
}

// validateAPI checks API server settings.
func (d *Doctor) validateAPI(r *Result) {
	if !d.cfg.API.Enabled {
		return
	}
	if d.cfg.API.Listen == "" {
		d.addError(r, "api", "api.listen", "api.listen is required when the API is enabled")
	}
	if d.cfg.API.APIKey == "" {
		d.addWarning(r, "api", "api.api_key", "API enabled but no api_key configured; all requests will be rejected")
	}
}

// validateLifecycle checks aggregator timing policy.
func (d *Doctor) validateLifecycle(r *Result) {
	lc := d.cfg.Lifecycle
	if lc.IdleGrace <= 0 {
		d.addError(r, "lifecycle", "lifecycle.idle_grace", "idle_grace must be positive")
	}
	polls := []struct {
		field string
		value time.Duration
	}{
		{"lifecycle.local_changes_poll", lc.LocalChangesPoll},
		{"lifecycle.pull_request_poll", lc.PullRequestPoll},
		{"lifecycle.branch_ahead_poll", lc.BranchAheadPoll},
	}
	for _, p := range polls {
		switch {
		case p.value <= 0:
			d.addError(r, "lifecycle", p.field, "poll interval must be positive")
		case p.value < time.Second:
			d.addWarning(r, "lifecycle", p.field, "poll interval is very short (< 1s)")
		}
	}
}

// validateReview checks review gate settings against declared providers.
func (d *Doctor) validateReview(r *Result) {
	if !d.cfg.Review.Enabled {
		return
	}
	if d.cfg.Review.AutoStartDelay < 0 {
		d.addError(r, "review", "review.auto_start_delay", "auto_start_delay cannot be negative")
	}
	if d.cfg.Review.Provider == "" {
		d.addError(r, "review", "review.provider", "review.provider is required when review is enabled")
		return
	}
	for _, p := range d.cfg.Providers {
		if p.ID == d.cfg.Review.Provider {
			return
		}
	}
	d.addError(r, "review", "review.provider",
		fmt.Sprintf("review.provider %q is not a declared provider", d.cfg.Review.Provider))
}

// checkTools verifies the external binaries the pollers shell out to.
func (d *Doctor) checkTools(r *Result) {
	if _, err := d.lookPath("git"); err != nil {
		d.addError(r, "tools", "", "git not found on PATH")
	}
	if _, err := d.lookPath("gh"); err != nil {
		d.addWarning(r, "tools", "", "gh not found on PATH; pull request polling will be unavailable")
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid {
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	} else {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
