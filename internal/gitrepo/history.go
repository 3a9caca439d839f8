package gitrepo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// CommitMeta is the subset of commit metadata the training walk needs.
type CommitMeta struct {
	Hash    CommitRef
	Parents []CommitRef
	Message string
}

const (
	histRecordSep = "\x1e"
	histFieldSep  = "\x1f"
)

// WalkHistory yields up to max commits reachable from fromHead, in the
// topological order of `git log --topo-order` (parents after children).
func (g *Gateway) WalkHistory(ctx context.Context, fromHead string, max int) ([]CommitMeta, error) {
	if max <= 0 {
		return nil, nil
	}
	format := histRecordSep + "%H" + histFieldSep + "%P" + histFieldSep + "%B"
	out, err := g.git(ctx, "log",
		"--topo-order",
		"--max-count="+strconv.Itoa(max),
		"--pretty=format:"+format,
		fromHead,
	).output(g.exec)
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}

	var commits []CommitMeta
	for _, rec := range strings.Split(out, histRecordSep) {
		if strings.TrimSpace(rec) == "" {
			continue
		}
		fields := strings.SplitN(rec, histFieldSep, 3)
		if len(fields) != 3 {
			continue
		}
		hash := CommitRef(strings.TrimSpace(fields[0]))
		var parents []CommitRef
		for _, p := range strings.Fields(fields[1]) {
			parents = append(parents, CommitRef(p))
		}
		message := strings.TrimRight(fields[2], "\n")
		commits = append(commits, CommitMeta{Hash: hash, Parents: parents, Message: message})
	}
	return commits, nil
}

// DiffTrees returns the set of paths that differ between two tree
// references.
func (g *Gateway) DiffTrees(ctx context.Context, a, b string) ([]string, error) {
	out, err := g.git(ctx, "diff-tree", "--no-commit-id", "--name-only", "-r", a, b).output(g.exec)
	if err != nil {
		return nil, fmt.Errorf("diff-tree %s %s: %w", a, b, err)
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// TreeEntryBlob returns the blob reference for path in the given tree,
// or ok=false if the path does not exist in that tree.
func (g *Gateway) TreeEntryBlob(ctx context.Context, tree, path string) (ref BlobRef, ok bool, err error) {
	out, err := g.git(ctx, "rev-parse", "--verify", "--quiet", tree+":"+path).output(g.exec)
	if err != nil {
		return "", false, nil
	}
	if strings.TrimSpace(out) == "" {
		return "", false, nil
	}
	return BlobRef(out), true, nil
}
