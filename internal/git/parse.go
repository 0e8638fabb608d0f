package git

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePorcelain parses `git status --porcelain` output into Changes.
// The two-letter XY code is collapsed into a coarse status word.
func ParsePorcelain(out string) []Change {
	var changes []Change
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		path := strings.TrimSpace(line[3:])
		// Renames are reported as "old -> new"; keep the new path.
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+4:]
		}
		path = strings.Trim(path, `"`)
		changes = append(changes, Change{Path: path, Status: porcelainStatus(code)})
	}
	return changes
}

func porcelainStatus(code string) string {
	switch {
	case code == "??":
		return "untracked"
	case strings.ContainsRune(code, 'A'):
		return "added"
	case strings.ContainsRune(code, 'D'):
		return "deleted"
	case strings.ContainsRune(code, 'R'):
		return "renamed"
	default:
		return "modified"
	}
}

// ParseNumstat parses `git diff --numstat` output into a path -> (+,-)
// map. Binary files report "-" counts and are recorded as zero.
func ParseNumstat(out string) map[string][2]int {
	counts := make(map[string][2]int)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(strings.TrimRight(line, "\r"), "\t")
		if len(fields) != 3 {
			continue
		}
		add, _ := strconv.Atoi(fields[0])
		del, _ := strconv.Atoi(fields[1])
		path := fields[2]
		if i := strings.Index(path, " => "); i >= 0 {
			path = path[i+4:]
			path = strings.TrimSuffix(path, "}")
		}
		counts[path] = [2]int{add, del}
	}
	return counts
}

// MergeNumstat copies line counts into changes that have a numstat entry.
func MergeNumstat(changes []Change, counts map[string][2]int) {
	for i := range changes {
		if c, ok := counts[changes[i].Path]; ok {
			changes[i].Additions = c[0]
			changes[i].Deletions = c[1]
		}
	}
}

// ParseUnifiedDiff converts unified diff text into side-by-side lines.
// Headers and hunk markers are skipped.
func ParseUnifiedDiff(out string) *FileDiff {
	diff := &FileDiff{}
	for _, line := range strings.Split(out, "\n") {
		switch {
		case line == "",
			strings.HasPrefix(line, "diff "),
			strings.HasPrefix(line, "index "),
			strings.HasPrefix(line, "--- "),
			strings.HasPrefix(line, "+++ "),
			strings.HasPrefix(line, "@@"),
			strings.HasPrefix(line, "\\ No newline"),
			strings.HasPrefix(line, "new file mode"),
			strings.HasPrefix(line, "deleted file mode"),
			strings.HasPrefix(line, "old mode"),
			strings.HasPrefix(line, "new mode"):
			continue
		case strings.HasPrefix(line, "+"):
			diff.Lines = append(diff.Lines, DiffLine{Right: line[1:], Type: "add"})
		case strings.HasPrefix(line, "-"):
			diff.Lines = append(diff.Lines, DiffLine{Left: line[1:], Type: "del"})
		default:
			text := strings.TrimPrefix(line, " ")
			diff.Lines = append(diff.Lines, DiffLine{Left: text, Right: text, Type: "context"})
		}
	}
	return diff
}

// ParseCount parses a single-number command output such as rev-list --count.
func ParseCount(out string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("parse count %q: %w", strings.TrimSpace(out), err)
	}
	return n, nil
}
