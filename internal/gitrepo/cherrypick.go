package gitrepo

import (
	"context"
	"fmt"
	"strconv"
)

// AttemptCherryPick performs a three-way merge of commit against HEAD,
// populating the index (and leaving unmerged entries where conflicts
// exist) without creating a commit. Fails with ErrCherryPickFailed on
// backend errors unrelated to merge conflicts (I/O, missing object,
// etc.) — a conflicting cherry-pick is not itself an error here; the
// caller discovers conflicts via EnumerateConflicts.
func (g *Gateway) AttemptCherryPick(ctx context.Context, commit CommitRef) error {
	return g.attemptCherryPick(ctx, commit, 0)
}

// AttemptCherryPickMainline is AttemptCherryPick for a merge commit,
// selecting mainline as the parent number (1-based) to diff against.
func (g *Gateway) AttemptCherryPickMainline(ctx context.Context, commit CommitRef, mainline int) error {
	return g.attemptCherryPick(ctx, commit, mainline)
}

func (g *Gateway) attemptCherryPick(ctx context.Context, commit CommitRef, mainline int) error {
	args := []string{"cherry-pick", "-n"}
	if mainline > 0 {
		args = append(args, "-m", strconv.Itoa(mainline))
	}
	args = append(args, string(commit))

	err := g.git(ctx, args...).run(g.exec)
	if err == nil {
		return nil
	}

	// A conflicting cherry-pick exits non-zero but leaves conflict
	// markers in the index; distinguish that from a hard backend
	// failure by checking whether any unmerged entries exist.
	entries, enumErr := g.EnumerateConflicts(ctx)
	if enumErr == nil && len(entries) > 0 {
		return nil
	}

	return fmt.Errorf("%w: %v", ErrCherryPickFailed, err)
}
