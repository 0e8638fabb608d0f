package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/slipway/internal/config"
	"github.com/mattjoyce/slipway/internal/events"
	"github.com/mattjoyce/slipway/internal/git"
	"github.com/mattjoyce/slipway/internal/review"
	"github.com/mattjoyce/slipway/internal/status"
	"github.com/mattjoyce/slipway/internal/tabs"
	"github.com/mattjoyce/slipway/internal/workspace"
)

type countingClient struct {
	statusCalls chan string
}

func (c *countingClient) Status(_ context.Context, path string) ([]git.Change, error) {
	if c.statusCalls != nil {
		c.statusCalls <- path
	}
	return nil, nil
}

func (c *countingClient) FileDiff(context.Context, string, string) (*git.FileDiff, error) {
	return &git.FileDiff{}, nil
}

func (c *countingClient) PRStatus(context.Context, string) (*git.PRInfo, error) {
	return nil, nil
}

func (c *countingClient) BranchAhead(context.Context, string) (int, error) { return 0, nil }

type fixture struct {
	gate     *Gate
	store    *status.Store
	tabs     *tabs.Registry
	client   *countingClient
	records  []Record
	recorded chan Record
}

func newFixture(t *testing.T, cfg config.ReviewConfig) *fixture {
	t.Helper()

	f := &fixture{
		store:    status.NewStore(nil),
		tabs:     tabs.NewRegistry(nil, []string{"terminal", "agent"}, "terminal"),
		client:   &countingClient{statusCalls: make(chan string, 4)},
		recorded: make(chan Record, 4),
	}
	dir := workspace.NewDirectory()
	require.NoError(t, dir.Add(workspace.Workspace{ID: "ws-1", Path: "/tmp/ws-1"}))

	pipeline := review.NewPipeline(f.client, nil)
	f.gate = NewGate(cfg, f.store, f.tabs, pipeline, dir, events.NewHub(16))
	f.gate.Sink = func(_ string, rec Record) {
		f.records = append(f.records, rec)
		f.recorded <- rec
	}
	return f
}

func enabledConfig() config.ReviewConfig {
	return config.ReviewConfig{Enabled: true, AutoStartDelay: 0, Provider: "terminal"}
}

func TestCanStartTruthTable(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enabledConfig())

	// Two work surfaces, pending flag set: bypass allowed.
	require.NoError(t, f.tabs.OpenSurface("ws-1", "terminal"))
	require.NoError(t, f.tabs.OpenSurface("ws-1", "agent"))
	f.store.SetPendingReview("ws-1", true)
	assert.True(t, f.gate.CanStart("ws-1"))

	// Same surfaces, no pending flag: rejected.
	f.store.ClearPendingReview("ws-1")
	assert.False(t, f.gate.CanStart("ws-1"))

	// Single surface, no pending flag: allowed.
	snap := f.tabs.Snapshot("ws-1")
	for _, s := range snap.Surfaces {
		if s.Provider == "agent" {
			require.NoError(t, f.tabs.CloseSurface("ws-1", s.ID))
		}
	}
	assert.True(t, f.gate.CanStart("ws-1"))
}

func TestCanStartFalseWhenDisabled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.ReviewConfig{Enabled: false, Provider: "terminal"})
	f.store.SetPendingReview("ws-1", true)
	assert.False(t, f.gate.CanStart("ws-1"))
}

func TestAutoStartConsumesPendingFlag(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enabledConfig())
	f.store.SetPendingReview("ws-1", true)

	require.True(t, f.gate.RequestAutoStart("ws-1"))
	assert.False(t, f.store.IsPendingReview("ws-1"),
		"pending flag is cleared the moment the gate initiates a review")

	rec := <-f.recorded
	assert.Equal(t, "in-review", rec.Status)
	assert.Equal(t, "terminal-review", rec.TabID)
	assert.Nil(t, rec.CompletedAt)
	assert.False(t, rec.StartedAt.IsZero())

	select {
	case path := <-f.client.statusCalls:
		assert.Equal(t, "/tmp/ws-1", path)
	case <-time.After(time.Second):
		t.Fatal("pipeline never invoked")
	}

	// The review surface was opened in the tab registry.
	snap := f.tabs.Snapshot("ws-1")
	assert.Equal(t, "terminal-review", snap.ActiveID)
}

func TestAutoStartRunsOncePerAttachment(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enabledConfig())
	f.store.SetPendingReview("ws-1", true)

	require.True(t, f.gate.RequestAutoStart("ws-1"))
	<-f.recorded

	f.store.SetPendingReview("ws-1", true)
	assert.False(t, f.gate.RequestAutoStart("ws-1"),
		"repeated auto-start must be a no-op until the guard resets")

	f.gate.ResetGuard("ws-1")
	assert.True(t, f.gate.RequestAutoStart("ws-1"))
}

func TestAutoStartNoOpWithoutPendingFlag(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enabledConfig())
	assert.False(t, f.gate.RequestAutoStart("ws-1"))
	assert.Empty(t, f.records)
}

func TestManualStartRejectedWithMultipleSurfaces(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enabledConfig())
	require.NoError(t, f.tabs.OpenSurface("ws-1", "terminal"))
	require.NoError(t, f.tabs.OpenSurface("ws-1", "agent"))

	err := f.gate.RequestManualStart("ws-1", false)
	var rejected *StartRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "ws-1", rejected.WorkspaceID)
	assert.NotEmpty(t, rejected.Reason)
}

func TestManualStartForceBypassesCheck(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enabledConfig())
	require.NoError(t, f.tabs.OpenSurface("ws-1", "terminal"))
	require.NoError(t, f.tabs.OpenSurface("ws-1", "agent"))

	require.NoError(t, f.gate.RequestManualStart("ws-1", true))
	rec := <-f.recorded
	assert.Equal(t, "in-review", rec.Status)
}

func TestManualStartIdempotentUntilReset(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enabledConfig())
	require.NoError(t, f.gate.RequestManualStart("ws-1", false))
	<-f.recorded

	require.NoError(t, f.gate.RequestManualStart("ws-1", false))
	assert.Len(t, f.records, 1, "second manual start must not publish again")
}

func TestManualStartRejectedWhenDisabled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.ReviewConfig{Enabled: false, Provider: "terminal"})
	err := f.gate.RequestManualStart("ws-1", true)
	var rejected *StartRejectedError
	require.True(t, errors.As(err, &rejected))
}
