package orchestrator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ealebed/context-cherry-pick/internal/gitrepo"
)

const trainingTargetBranch = "history"

// TrainOnHistory walks up to depth commits from HEAD looking for merge
// commits that look like cherry-pick or merge resolutions, and learns a
// resolution pattern from each path they touch differently between
// their two parents. Individual failures are logged and skipped; the
// walk never fails as a whole because of one bad commit. Returns the
// count of patterns learned.
func (o *Orchestrator) TrainOnHistory(ctx context.Context, depth int) (int, error) {
	commits, err := o.Gateway.WalkHistory(ctx, "HEAD", depth)
	if err != nil {
		return 0, err
	}

	learned := 0
	for _, commit := range commits {
		if len(commit.Parents) < 2 {
			continue
		}
		if !strings.Contains(commit.Message, "Merge") && !strings.Contains(commit.Message, "cherry") {
			continue
		}

		n, err := o.trainFromMergeCommit(ctx, commit)
		if err != nil {
			slog.Warn("skipping merge commit during training", "commit", commit.Hash, "error", err)
			continue
		}
		learned += n
	}

	return learned, nil
}

func (o *Orchestrator) trainFromMergeCommit(ctx context.Context, commit gitrepo.CommitMeta) (int, error) {
	p1, p2 := commit.Parents[0], commit.Parents[1]

	paths, err := o.Gateway.DiffTrees(ctx, string(p1)+"^{tree}", string(p2)+"^{tree}")
	if err != nil {
		return 0, err
	}

	learned := 0
	for _, path := range paths {
		n, ok := o.trainFromPath(ctx, commit, p1, p2, path)
		if ok {
			learned += n
		}
	}
	return learned, nil
}

func (o *Orchestrator) trainFromPath(ctx context.Context, commit gitrepo.CommitMeta, p1, p2 gitrepo.CommitRef, path string) (int, bool) {
	resolvedRef, ok, err := o.Gateway.TreeEntryBlob(ctx, string(commit.Hash)+"^{tree}", path)
	if err != nil || !ok {
		return 0, false
	}
	resolvedBlob, err := o.Gateway.ReadBlob(ctx, resolvedRef)
	if err != nil || len(resolvedBlob) == 0 {
		return 0, false
	}

	signature := o.synthesizeSignature(ctx, p1, p2, path)
	if signature == "" {
		return 0, false
	}

	if err := o.LearnResolution(ctx, signature, path, string(resolvedBlob), string(commit.Hash), trainingTargetBranch); err != nil {
		slog.Warn("failed to learn resolution from history", "path", path, "error", err)
		return 0, false
	}
	return 1, true
}

func (o *Orchestrator) synthesizeSignature(ctx context.Context, p1, p2 gitrepo.CommitRef, path string) string {
	var blocks []string

	if ref, ok, err := o.Gateway.TreeEntryBlob(ctx, string(p1)+"^{tree}", path); err == nil && ok {
		if blob, err := o.Gateway.ReadBlob(ctx, ref); err == nil {
			blocks = append(blocks, "<<<<<<< PARENT1\n"+string(blob)+"\n")
		}
	}
	if ref, ok, err := o.Gateway.TreeEntryBlob(ctx, string(p2)+"^{tree}", path); err == nil && ok {
		if blob, err := o.Gateway.ReadBlob(ctx, ref); err == nil {
			blocks = append(blocks, string(blob)+"\n>>>>>>> PARENT2\n")
		}
	}

	return strings.Join(blocks, "=======\n")
}
