// Package git wraps the VCS collaborators the lifecycle engine consults:
// working-tree status, per-file diffs, pull-request lookup and the
// branch-ahead count. All calls shell out to git (and gh for PRs) so the
// engine stays decoupled from any particular hosting API.
package git

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Change is one modified path in a workspace working tree.
type Change struct {
	Path      string `json:"path"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// DiffLine is one row of a side-by-side diff rendering.
type DiffLine struct {
	Left  string `json:"left,omitempty"`
	Right string `json:"right,omitempty"`
	Type  string `json:"type"`
}

// FileDiff is the parsed diff for a single file.
type FileDiff struct {
	Lines []DiffLine `json:"lines"`
}

// PRInfo describes an open pull request for a workspace branch.
type PRInfo struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	State  string `json:"state"`
}

// Client is the seam the review pipeline and polling loops consume.
type Client interface {
	// Status lists changed files under path. An empty slice means a clean
	// working tree.
	Status(ctx context.Context, path string) ([]Change, error)
	// FileDiff fetches the diff for one file under path.
	FileDiff(ctx context.Context, path, filePath string) (*FileDiff, error)
	// PRStatus reports the open pull request for path's branch, or
	// (nil, nil) when there is none.
	PRStatus(ctx context.Context, path string) (*PRInfo, error)
	// BranchAhead reports how many commits path's branch is ahead of its
	// upstream.
	BranchAhead(ctx context.Context, path string) (int, error)
}

// ExecClient implements Client by invoking the git and gh binaries.
type ExecClient struct {
	// GitBin and GHBin override the binaries looked up on PATH.
	GitBin string
	GHBin  string
}

func NewExecClient() *ExecClient {
	return &ExecClient{GitBin: "git", GHBin: "gh"}
}

func (c *ExecClient) run(ctx context.Context, dir, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s %s: %s", bin, args[0], msg)
	}
	return stdout.Bytes(), nil
}

func (c *ExecClient) Status(ctx context.Context, path string) ([]Change, error) {
	porcelain, err := c.run(ctx, path, c.GitBin, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	changes := ParsePorcelain(string(porcelain))

	// numstat fills in line counts for tracked changes; untracked files
	// stay at zero.
	numstat, err := c.run(ctx, path, c.GitBin, "diff", "--numstat", "HEAD")
	if err == nil {
		MergeNumstat(changes, ParseNumstat(string(numstat)))
	}
	return changes, nil
}

func (c *ExecClient) FileDiff(ctx context.Context, path, filePath string) (*FileDiff, error) {
	out, err := c.run(ctx, path, c.GitBin, "diff", "HEAD", "--", filePath)
	if err != nil {
		return nil, err
	}
	return ParseUnifiedDiff(string(out)), nil
}

func (c *ExecClient) PRStatus(ctx context.Context, path string) (*PRInfo, error) {
	out, err := c.run(ctx, path, c.GHBin, "pr", "view",
		"--json", "number,title,url,state")
	if err != nil {
		// gh exits nonzero when the branch has no PR; that is not an
		// error for our purposes.
		if strings.Contains(err.Error(), "no pull requests found") {
			return nil, nil
		}
		return nil, err
	}
	var pr PRInfo
	if err := json.Unmarshal(out, &pr); err != nil {
		return nil, fmt.Errorf("parse gh pr view output: %w", err)
	}
	return &pr, nil
}

func (c *ExecClient) BranchAhead(ctx context.Context, path string) (int, error) {
	out, err := c.run(ctx, path, c.GitBin, "rev-list", "--count", "@{u}..HEAD")
	if err != nil {
		// No upstream configured means nothing to be ahead of.
		if strings.Contains(err.Error(), "no upstream") {
			return 0, nil
		}
		return 0, err
	}
	return ParseCount(string(out))
}
