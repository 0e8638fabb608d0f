package review

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/slipway/internal/git"
)

type fakeClient struct {
	statusFn   func(ctx context.Context, path string) ([]git.Change, error)
	fileDiffFn func(ctx context.Context, path, filePath string) (*git.FileDiff, error)
}

func (c *fakeClient) Status(ctx context.Context, path string) ([]git.Change, error) {
	return c.statusFn(ctx, path)
}

func (c *fakeClient) FileDiff(ctx context.Context, path, filePath string) (*git.FileDiff, error) {
	if c.fileDiffFn == nil {
		return &git.FileDiff{}, nil
	}
	return c.fileDiffFn(ctx, path, filePath)
}

func (c *fakeClient) PRStatus(context.Context, string) (*git.PRInfo, error) { return nil, nil }
func (c *fakeClient) BranchAhead(context.Context, string) (int, error)      { return 0, nil }

func TestReviewTwoChangedFiles(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		statusFn: func(context.Context, string) ([]git.Change, error) {
			return []git.Change{
				{Path: "src/index.ts", Status: "modified", Additions: 5, Deletions: 2},
				{Path: "README.md", Status: "modified", Additions: 10, Deletions: 0},
			}, nil
		},
	}
	p := NewPipeline(client, nil)

	state := p.Start(context.Background(), "ws-1", "/tmp/ws-1").Wait()
	require.Equal(t, StatusSuccess, state.Status)
	require.Len(t, state.Files, 2)
	assert.Contains(t, state.Summary, "2 files")
	assert.Contains(t, state.Summary, "+15")
	assert.Contains(t, state.Summary, "-2")
	require.NotNil(t, state.FinishedAt)
}

func TestReviewNoChanges(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		statusFn: func(context.Context, string) ([]git.Change, error) {
			return nil, nil
		},
	}
	p := NewPipeline(client, nil)

	state := p.Start(context.Background(), "ws-1", "/tmp/ws-1").Wait()
	assert.Equal(t, StatusSuccess, state.Status)
	assert.Contains(t, state.Summary, "no local changes")
}

func TestReviewStatusFailure(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		statusFn: func(context.Context, string) ([]git.Change, error) {
			return nil, errors.New("boom")
		},
	}
	p := NewPipeline(client, nil)

	state := p.Start(context.Background(), "ws-1", "/tmp/ws-1").Wait()
	assert.Equal(t, StatusError, state.Status)
	assert.Contains(t, state.Error, "boom")
}

func TestSingleFlight(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var calls atomic.Int32
	client := &fakeClient{
		statusFn: func(context.Context, string) ([]git.Change, error) {
			calls.Add(1)
			<-release
			return nil, nil
		},
	}
	p := NewPipeline(client, nil)

	first := p.Start(context.Background(), "ws-1", "/tmp/ws-1")
	second := p.Start(context.Background(), "ws-1", "/tmp/ws-1")
	assert.Same(t, first, second, "concurrent starts must share one flight")

	close(release)
	a := first.Wait()
	b := second.Wait()
	assert.Same(t, a, b)
	assert.Equal(t, int32(1), calls.Load(), "collaborator invoked exactly once")
}

func TestCachedSuccessNotRecomputed(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := &fakeClient{
		statusFn: func(context.Context, string) ([]git.Change, error) {
			calls.Add(1)
			return nil, nil
		},
	}
	p := NewPipeline(client, nil)

	first := p.Start(context.Background(), "ws-1", "/tmp/ws-1").Wait()
	second := p.Start(context.Background(), "ws-1", "/tmp/ws-1").Wait()
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), calls.Load())

	p.Reset("ws-1")
	p.Start(context.Background(), "ws-1", "/tmp/ws-1").Wait()
	assert.Equal(t, int32(2), calls.Load())
}

func TestErrorResultIsRetriedOnNextStart(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := &fakeClient{
		statusFn: func(context.Context, string) ([]git.Change, error) {
			calls.Add(1)
			return nil, errors.New("flaky")
		},
	}
	p := NewPipeline(client, nil)

	p.Start(context.Background(), "ws-1", "/tmp/ws-1").Wait()
	p.Start(context.Background(), "ws-1", "/tmp/ws-1").Wait()
	// Only a success is cached; an error result does not block retries.
	assert.Equal(t, int32(2), calls.Load())
}

func TestDiffFailureRecordsFileWithoutDiff(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		statusFn: func(context.Context, string) ([]git.Change, error) {
			return []git.Change{
				{Path: "good.go", Status: "modified", Additions: 1},
				{Path: "bad.go", Status: "modified", Additions: 1},
			}, nil
		},
		fileDiffFn: func(_ context.Context, _, filePath string) (*git.FileDiff, error) {
			if filePath == "bad.go" {
				return nil, errors.New("diff exploded")
			}
			return &git.FileDiff{Lines: []git.DiffLine{{Right: "x", Type: "add"}}}, nil
		},
	}
	p := NewPipeline(client, nil)

	state := p.Start(context.Background(), "ws-1", "/tmp/ws-1").Wait()
	require.Equal(t, StatusSuccess, state.Status)
	require.Len(t, state.Files, 2)
	assert.NotNil(t, state.Files[0].Diff)
	assert.Nil(t, state.Files[1].Diff)
}

func TestBookkeepingPathsFiltered(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		statusFn: func(context.Context, string) ([]git.Change, error) {
			return []git.Change{
				{Path: ".slipway/state.db", Status: "modified"},
				{Path: ".git/config", Status: "modified"},
				{Path: "main.go", Status: "modified", Additions: 3},
			}, nil
		},
	}
	p := NewPipeline(client, nil)

	state := p.Start(context.Background(), "ws-1", "/tmp/ws-1").Wait()
	require.Len(t, state.Files, 1)
	assert.Equal(t, "main.go", state.Files[0].Path)
	assert.Contains(t, state.Summary, "1 file changed")
}

func TestRunningBroadcastBeforeIO(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	client := &fakeClient{
		statusFn: func(context.Context, string) ([]git.Change, error) {
			<-release
			return nil, nil
		},
	}
	p := NewPipeline(client, nil)

	var states []string
	defer p.Subscribe("ws-1", func(s State) { states = append(states, s.Status) })()

	f := p.Start(context.Background(), "ws-1", "/tmp/ws-1")
	// The running broadcast happens before Start returns.
	require.NotEmpty(t, states)
	assert.Equal(t, StatusRunning, states[0])
	assert.Equal(t, StatusRunning, p.Current("ws-1").Status)

	close(release)
	f.Wait()
}

func TestCurrentDefaultsToIdle(t *testing.T) {
	t.Parallel()

	p := NewPipeline(&fakeClient{}, nil)
	assert.Equal(t, StatusIdle, p.Current("never-reviewed").Status)
}
