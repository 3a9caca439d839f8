package cherry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ealebed/context-cherry-pick/internal/gitexec"
	"github.com/ealebed/context-cherry-pick/internal/gitrepo"
	"github.com/ealebed/context-cherry-pick/internal/orchestrator"
)

type GitActor struct {
	Name  string
	Email string
}

// --- test seam: minimal interface our code needs for remote I/O ---
// Cherry-pick mechanics themselves run against the gateway/orchestrator
// stack via runEngine below, not through this interface.
type gitRunner interface {
	Clean() // NOTE: no error return to match gitexec.Runner
	Dir() string
	CloneWithToken(ctx context.Context, owner, repo, token string) error
	ConfigUser(ctx context.Context, name, email string) error
	Fetch(ctx context.Context, refs ...string) error
	CheckoutBranchFrom(ctx context.Context, newBranch, fromRef string) error
	Push(ctx context.Context, branch string) error
}

// injectable constructor (overridden in tests)
var newGitRunner = func(cwd string, env ...string) (gitRunner, error) {
	return gitexec.NewRunner(cwd, env...)
}

// ResolutionIndex is the resolution index the engine queries and learns
// from. It is the same narrow interface the orchestrator package
// defines; re-exported here so callers wiring Configure don't need to
// import orchestrator themselves.
type ResolutionIndex = orchestrator.ResolutionIndex

var (
	resolutionIndex ResolutionIndex
	confThreshold   float64
)

// Configure wires the resolution index and confidence threshold used by
// every subsequent DoCherryPick/DoCherryPickWithMainline call. Call once
// at startup, before serving traffic. A nil index means every conflict
// is treated as unmatched (every cherry-pick with conflicts needs
// review) — useful for environments without a resolution backend.
func Configure(index ResolutionIndex, minSuccessRate float64) {
	resolutionIndex = index
	confThreshold = minSuccessRate
}

// ErrNoopCherryPick signals the commit is already present on the target
// branch: the finalized commit's tree is identical to its parent's.
var ErrNoopCherryPick = errors.New("noop cherry-pick")

// engineResult is what runEngine reports back about one cherry-pick
// attempt, including whether it turned out to be a no-op.
type engineResult struct {
	Outcome orchestrator.Outcome
	Noop    bool
}

// engineFunc drives the gateway/orchestrator stack over a working
// directory already checked out onto the work branch. It is a var so
// tests can substitute a fake without standing up a real git repo.
type engineFunc func(ctx context.Context, dir, targetBranch, sha string, mainline int, actor GitActor) (engineResult, error)

var runEngine engineFunc = defaultEngine

// defaultEngine opens a Repository Gateway over dir, runs the
// checkout/attempt/resolve/finalize protocol, and detects a no-op
// cherry-pick by diffing the finalized commit's tree against the
// branch's tree before the attempt — resetting the branch back if they
// match, since nothing would be gained by pushing an empty change.
func defaultEngine(ctx context.Context, dir, targetBranch, sha string, mainline int, actor GitActor) (engineResult, error) {
	gw := gitrepo.Open(dir)

	preHead, err := gw.Head(ctx)
	if err != nil {
		return engineResult{}, fmt.Errorf("resolve work branch head: %w", err)
	}

	orch := orchestrator.New(gw, resolutionIndex, gitrepo.Identity{Name: actor.Name, Email: actor.Email})
	if confThreshold > 0 {
		orch.MinSuccessRate = confThreshold
	}

	var outcome orchestrator.Outcome
	if mainline > 0 {
		outcome, err = orch.ExecuteAndLearnMainline(ctx, sha, targetBranch, mainline)
	} else {
		outcome, err = orch.ExecuteAndLearn(ctx, sha, targetBranch)
	}
	if err != nil {
		return engineResult{}, err
	}
	if !outcome.Success {
		return engineResult{Outcome: outcome}, nil
	}

	changed, err := gw.DiffTrees(ctx, string(preHead), outcome.NewCommitSHA)
	if err != nil {
		return engineResult{}, fmt.Errorf("diff finalized commit against previous head: %w", err)
	}
	if len(changed) == 0 {
		if err := gw.ResetHard(ctx, string(preHead)); err != nil {
			return engineResult{}, fmt.Errorf("reset after detecting noop cherry-pick: %w", err)
		}
		return engineResult{Outcome: outcome, Noop: true}, nil
	}
	return engineResult{Outcome: outcome}, nil
}

// DoCherryPick cherry-picks a single non-merge commit onto target branch and pushes a new work branch.
func DoCherryPick(ctx context.Context, owner, repo, token, targetBranch, sha string, actor GitActor) (string, error) {
	return doCherryPick(ctx, owner, repo, token, targetBranch, sha, actor, 0)
}

// DoCherryPickWithMainline cherry-picks a merge commit with -m <mainline>.
func DoCherryPickWithMainline(ctx context.Context, owner, repo, token, targetBranch, sha string, mainline int, actor GitActor) (string, error) {
	return doCherryPick(ctx, owner, repo, token, targetBranch, sha, actor, mainline)
}

func doCherryPick(ctx context.Context, owner, repo, token, targetBranch, sha string, actor GitActor, mainline int) (string, error) {
	r, err := newGitRunner("", "GIT_ASKPASS=true")
	if err != nil {
		return "", err
	}
	defer r.Clean()

	if err := r.CloneWithToken(ctx, owner, repo, token); err != nil {
		return "", err
	}
	if err := r.ConfigUser(ctx, actor.Name, actor.Email); err != nil {
		return "", err
	}

	// Fetch target branch and the specific commit (and also master as a common case)
	if err := r.Fetch(ctx,
		"master:refs/remotes/origin/master",
		fmt.Sprintf("refs/heads/%s:refs/remotes/origin/%s", targetBranch, targetBranch),
		sha, // ensure the object exists locally
	); err != nil {
		return "", err
	}

	short := sha
	if len(short) > 7 {
		short = sha[:7]
	}
	safeTarget := strings.ReplaceAll(targetBranch, "/", "-")
	workBranch := fmt.Sprintf("autocherry/%s/%s", safeTarget, short)

	// Base new branch on the target branch
	if err := r.CheckoutBranchFrom(ctx, workBranch, "origin/"+targetBranch); err != nil {
		return "", err
	}

	if mainline > 0 {
		slog.Debug("git.cherry_pick_mainline", "sha", sha, "mainline", mainline)
	}

	res, err := runEngine(ctx, r.Dir(), workBranch, sha, mainline, actor)
	if err != nil {
		return "", fmt.Errorf("cherry-picking %s onto %s: %w", sha, targetBranch, err)
	}
	if res.Noop {
		slog.Info("cherry.noop", "target", targetBranch, "sha", sha)
		return "", ErrNoopCherryPick
	}
	if !res.Outcome.Success {
		return "", fmt.Errorf("conflict cherry-picking %s to %s: %s", sha, targetBranch, res.Outcome.Message)
	}

	// Push work branch
	if err := r.Push(ctx, workBranch); err != nil {
		return "", err
	}
	return workBranch, nil
}
