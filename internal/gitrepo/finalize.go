package gitrepo

import (
	"context"
	"fmt"
)

// FinalizeCommit writes the current index as a tree, creates a commit
// with HEAD as its sole parent and the given identities, advances HEAD,
// and clears cherry-pick state. Fails with ErrIndexUnclean if any
// unmerged entries remain — attempting to finalize with residual
// conflicts is a programmer error, not a recoverable one.
func (g *Gateway) FinalizeCommit(ctx context.Context, message string, author, committer Identity) (CommitRef, error) {
	entries, err := g.EnumerateConflicts(ctx)
	if err != nil {
		return "", fmt.Errorf("enumerate conflicts before finalize: %w", err)
	}
	if len(entries) > 0 {
		return "", ErrIndexUnclean
	}

	tree, err := g.git(ctx, "write-tree").output(g.exec)
	if err != nil {
		return "", fmt.Errorf("write-tree: %w", err)
	}

	parent, err := g.Head(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve current HEAD: %w", err)
	}

	cmd := g.git(ctx, "commit-tree", tree, "-p", string(parent)).
		stdin(message).
		env(
			"GIT_AUTHOR_NAME="+author.Name,
			"GIT_AUTHOR_EMAIL="+author.Email,
			"GIT_COMMITTER_NAME="+committer.Name,
			"GIT_COMMITTER_EMAIL="+committer.Email,
		)
	sha, err := cmd.output(g.exec)
	if err != nil {
		return "", fmt.Errorf("commit-tree: %w", err)
	}

	if err := g.git(ctx, "update-ref", "HEAD", sha).run(g.exec); err != nil {
		return "", fmt.Errorf("update-ref HEAD: %w", err)
	}

	if err := g.CleanupCherryPickState(ctx); err != nil {
		return "", fmt.Errorf("cleanup cherry-pick state after finalize: %w", err)
	}

	return CommitRef(sha), nil
}

// CleanupCherryPickState discards cherry-pick sequencer state (e.g.
// CHERRY_PICK_HEAD) without touching the working tree or index.
func (g *Gateway) CleanupCherryPickState(ctx context.Context) error {
	// "nothing to quit" and similar sequencer-state errors are not
	// interesting to callers; this is best-effort cleanup.
	_ = g.git(ctx, "cherry-pick", "--quit").run(g.exec)
	return nil
}
