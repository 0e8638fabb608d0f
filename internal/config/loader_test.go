package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slipway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	assert.Equal(t, "slipway", cfg.Service.Name)
	assert.Equal(t, 10*time.Second, cfg.Lifecycle.IdleGrace)
	assert.Equal(t, 10*time.Second, cfg.Lifecycle.LocalChangesPoll)
	assert.Equal(t, 30*time.Second, cfg.Lifecycle.PullRequestPoll)
	assert.Equal(t, 30*time.Second, cfg.Lifecycle.BranchAheadPoll)
	assert.Equal(t, 500*time.Millisecond, cfg.Review.AutoStartDelay)
	assert.True(t, cfg.Review.Enabled)
	assert.Equal(t, "terminal", cfg.DefaultProvider())
}

func TestLoadPartialConfigFillsDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
service:
  name: testd
  log_level: debug
lifecycle:
  idle_grace: 2s
review:
  enabled: true
  provider: agent
providers:
  - id: agent
    default: true
  - id: terminal
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "testd", cfg.Service.Name)
	assert.Equal(t, 2*time.Second, cfg.Lifecycle.IdleGrace)
	// Unset intervals come from defaults.
	assert.Equal(t, 30*time.Second, cfg.Lifecycle.PullRequestPoll)
	assert.Equal(t, "agent", cfg.DefaultProvider())
	assert.Equal(t, []string{"agent", "terminal"}, cfg.ProviderIDs())
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "service:\n  nmae: oops\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRejectsUndeclaredReviewProvider(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
review:
  provider: ghost
providers:
  - id: terminal
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestValidateRejectsDuplicateWorkspaces(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
workspaces:
  - id: ws-1
    path: /tmp/a
  - id: ws-1
    path: /tmp/b
`)
	_, err := Load(path)
	require.Error(t, err)
}
