package doctor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattjoyce/slipway/internal/config"
)

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatalf("mkdir .git: %v", err)
	}

	cfg := config.Defaults()
	cfg.Workspaces = []config.WorkspaceConf{{ID: "ws-1", Path: dir}}
	return cfg
}

// newDoctor returns a Doctor whose tool lookups always succeed, so tests
// only exercise config checks.
func newDoctor(cfg *config.Config) *Doctor {
	d := New(cfg)
	d.lookPath = func(string) (string, error) { return "/usr/bin/fake", nil }
	return d
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()
	r := newDoctor(validConfig(t)).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
	if len(r.Warnings) != 0 {
		t.Fatalf("expected no warnings, got: %v", r.Warnings)
	}
}

func TestValidate_MissingStatePath(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.State.Path = ""
	r := newDoctor(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertIssue(t, r.Errors, "state.path")
}

func TestValidate_UnknownLogLevel(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Service.LogLevel = "verbose"
	r := newDoctor(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertIssue(t, r.Errors, "service.log_level")
}

func TestValidate_DuplicateProvider(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Providers = []config.ProviderConf{
		{ID: "terminal", Default: true},
		{ID: "terminal"},
	}
	r := newDoctor(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertIssue(t, r.Errors, "providers[1].id")
}

func TestValidate_NoProviders(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Providers = nil
	r := newDoctor(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
}

func TestValidate_ReviewProviderUndeclared(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Review.Provider = "ghost"
	r := newDoctor(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertIssue(t, r.Errors, "review.provider")
}

func TestValidate_ReviewDisabledSkipsProviderCheck(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Review.Enabled = false
	cfg.Review.Provider = "ghost"
	r := newDoctor(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
}

func TestValidate_DuplicateWorkspaceID(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Workspaces = append(cfg.Workspaces, config.WorkspaceConf{
		ID: "ws-1", Path: cfg.Workspaces[0].Path,
	})
	r := newDoctor(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertIssue(t, r.Errors, "workspaces[1].id")
}

func TestValidate_MissingWorkspacePathWarns(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Workspaces[0].Path = "/nonexistent/path/nowhere"
	r := newDoctor(cfg).Validate()
	if !r.Valid {
		t.Fatalf("missing path should warn, not error: %v", r.Errors)
	}
	assertIssue(t, r.Warnings, "workspaces[0].path")
}

func TestValidate_NonGitWorkspaceWarns(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Workspaces = []config.WorkspaceConf{{ID: "ws-1", Path: t.TempDir()}}
	r := newDoctor(cfg).Validate()
	if !r.Valid {
		t.Fatalf("non-git path should warn, not error: %v", r.Errors)
	}
	assertIssue(t, r.Warnings, "workspaces[0].path")
}

func TestValidate_APIEnabledWithoutListen(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.API.Enabled = true
	cfg.API.Listen = ""
	cfg.API.APIKey = ""
	r := newDoctor(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertIssue(t, r.Errors, "api.listen")
	assertIssue(t, r.Warnings, "api.api_key")
}

func TestValidate_ZeroIdleGrace(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Lifecycle.IdleGrace = 0
	r := newDoctor(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertIssue(t, r.Errors, "lifecycle.idle_grace")
}

func TestValidate_ShortPollWarns(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Lifecycle.LocalChangesPoll = 100 * time.Millisecond
	r := newDoctor(cfg).Validate()
	if !r.Valid {
		t.Fatalf("short poll should warn, not error: %v", r.Errors)
	}
	assertIssue(t, r.Warnings, "lifecycle.local_changes_poll")
}

func TestValidate_MissingGit(t *testing.T) {
	t.Parallel()
	d := New(validConfig(t))
	d.lookPath = func(name string) (string, error) {
		if name == "git" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}
	r := d.Validate()
	if r.Valid {
		t.Fatal("expected invalid when git is missing")
	}
}

func TestValidate_MissingGHWarnsOnly(t *testing.T) {
	t.Parallel()
	d := New(validConfig(t))
	d.lookPath = func(name string) (string, error) {
		if name == "gh" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}
	r := d.Validate()
	if !r.Valid {
		t.Fatalf("missing gh should warn, not error: %v", r.Errors)
	}
	if len(r.Warnings) == 0 {
		t.Fatal("expected a warning for missing gh")
	}
}

func TestFormatHuman(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.State.Path = ""
	r := newDoctor(cfg).Validate()

	out := FormatHuman(r)
	if !strings.Contains(out, "Configuration invalid") {
		t.Fatalf("unexpected report header: %q", out)
	}
	if !strings.Contains(out, "ERROR [service] state.path") {
		t.Fatalf("missing error line: %q", out)
	}
}

func TestFormatHumanValid(t *testing.T) {
	t.Parallel()
	out := FormatHuman(&Result{Valid: true})
	if out != "Configuration valid.\n" {
		t.Fatalf("unexpected report: %q", out)
	}
}

func TestFormatJSON(t *testing.T) {
	t.Parallel()
	out, err := FormatJSON(&Result{Valid: true})
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}
	if !strings.Contains(out, `"valid": true`) {
		t.Fatalf("unexpected json: %q", out)
	}
}

func assertIssue(t *testing.T, issues []Issue, field string) {
	t.Helper()
	for _, i := range issues {
		if i.Field == field {
			return
		}
	}
	t.Fatalf("no issue for field %q in %v", field, issues)
}
