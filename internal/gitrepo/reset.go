package gitrepo

import (
	"context"
	"fmt"
)

// ResetHard moves HEAD and the working tree to ref, discarding any
// commits or changes made since. Used to undo a finalized commit that
// turns out to carry an empty diff (a no-op cherry-pick).
func (g *Gateway) ResetHard(ctx context.Context, ref string) error {
	if err := g.git(ctx, "reset", "--hard", ref).run(g.exec); err != nil {
		return fmt.Errorf("reset --hard %s: %w", ref, err)
	}
	return nil
}
