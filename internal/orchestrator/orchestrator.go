// Package orchestrator drives the cherry-pick engine's core protocol:
// checkout, attempt, per-conflict resolution lookup, confidence-gated
// auto-apply, and commit finalization, plus the training walk that
// mines merge commits for new resolution patterns.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ealebed/context-cherry-pick/internal/conflict"
	"github.com/ealebed/context-cherry-pick/internal/gitrepo"
	"github.com/ealebed/context-cherry-pick/internal/resolution"
)

// MinSuccessRate is the confidence gate a queried pattern's success
// rate must clear before its resolution is auto-applied.
const MinSuccessRate = 0.70

const (
	MessageCleanSuccess    = "Cherry-pick completed successfully"
	MessageLearnedPatterns = "All conflicts resolved using learned patterns"
	MessageNeedsReview     = "Some conflicts require human review"
)

// ResolutionIndex is the narrow slice of *resolution.Client the
// orchestrator needs, named at point of use so tests can substitute a
// fake instead of wiring a live Qdrant/OpenAI pair.
type ResolutionIndex interface {
	Query(ctx context.Context, signature string) (resolution.Pattern, bool, error)
	Upsert(ctx context.Context, pattern resolution.Pattern) error
	GetByID(ctx context.Context, id string) (resolution.Pattern, bool, error)
}

// ConflictRecord is one conflict's fate during a cherry-pick, returned
// to the caller regardless of whether it was auto-resolved.
type ConflictRecord struct {
	FilePath          string
	Signature         string
	ResolutionFound   bool
	ResolutionApplied bool
}

// Outcome is the result of one execute-and-learn call.
type Outcome struct {
	Success            bool
	CommitHash         string
	TargetBranch       string
	Conflicts          []ConflictRecord
	ResolutionsApplied int
	NewCommitSHA       string
	Message            string
}

// Orchestrator wires a repository gateway to a resolution index client
// under a bot identity and confidence threshold.
type Orchestrator struct {
	Gateway        *gitrepo.Gateway
	Index          ResolutionIndex
	BotIdentity    gitrepo.Identity
	MinSuccessRate float64
}

// New builds an Orchestrator with the default confidence threshold.
func New(gw *gitrepo.Gateway, index ResolutionIndex, bot gitrepo.Identity) *Orchestrator {
	return &Orchestrator{Gateway: gw, Index: index, BotIdentity: bot, MinSuccessRate: MinSuccessRate}
}

func (o *Orchestrator) threshold() float64 {
	if o.MinSuccessRate == 0 {
		return MinSuccessRate
	}
	return o.MinSuccessRate
}

// ExecuteAndLearn implements spec §4.4's eight-step protocol.
func (o *Orchestrator) ExecuteAndLearn(ctx context.Context, commitRef, targetBranch string) (Outcome, error) {
	return o.executeAndLearn(ctx, commitRef, targetBranch, 0)
}

// ExecuteAndLearnMainline is ExecuteAndLearn for a merge commit,
// selecting mainline as the parent number (1-based) to diff against.
func (o *Orchestrator) ExecuteAndLearnMainline(ctx context.Context, commitRef, targetBranch string, mainline int) (Outcome, error) {
	return o.executeAndLearn(ctx, commitRef, targetBranch, mainline)
}

func (o *Orchestrator) executeAndLearn(ctx context.Context, commitRef, targetBranch string, mainline int) (Outcome, error) {
	if err := o.Gateway.Checkout(ctx, gitrepo.BranchName(targetBranch)); err != nil {
		return Outcome{}, err
	}

	commit, err := o.Gateway.LookupCommit(ctx, commitRef)
	if err != nil {
		return Outcome{}, err
	}

	var attemptErr error
	if mainline > 0 {
		attemptErr = o.Gateway.AttemptCherryPickMainline(ctx, commit, mainline)
	} else {
		attemptErr = o.Gateway.AttemptCherryPick(ctx, commit)
	}
	if attemptErr != nil {
		_ = o.Gateway.CleanupCherryPickState(ctx)
		return Outcome{
			CommitHash:   commitRef,
			TargetBranch: targetBranch,
			Message:      fmt.Sprintf("Git error: %v", attemptErr),
		}, nil
	}

	entries, err := o.Gateway.EnumerateConflicts(ctx)
	if err != nil {
		_ = o.Gateway.CleanupCherryPickState(ctx)
		return Outcome{
			CommitHash:   commitRef,
			TargetBranch: targetBranch,
			Message:      fmt.Sprintf("Git error: %v", err),
		}, nil
	}

	if len(entries) == 0 {
		return o.finalize(ctx, commit, commitRef, targetBranch, nil, 0, MessageCleanSuccess)
	}

	records := make([]ConflictRecord, 0, len(entries))
	applied := 0
	for _, entry := range entries {
		rec := o.resolveOne(ctx, entry)
		if rec.ResolutionApplied {
			applied++
		}
		records = append(records, rec)
	}

	allResolved := true
	for _, rec := range records {
		if !rec.ResolutionApplied {
			allResolved = false
			break
		}
	}

	if !allResolved {
		return Outcome{
			CommitHash:         commitRef,
			TargetBranch:       targetBranch,
			Conflicts:          records,
			ResolutionsApplied: applied,
			Message:            MessageNeedsReview,
		}, nil
	}

	return o.finalize(ctx, commit, commitRef, targetBranch, records, applied, MessageLearnedPatterns)
}

func (o *Orchestrator) resolveOne(ctx context.Context, entry gitrepo.UnmergedEntry) ConflictRecord {
	rec := conflict.Extract(entry, func(ref gitrepo.BlobRef) ([]byte, error) {
		return o.Gateway.ReadBlob(ctx, ref)
	})

	if o.Index == nil {
		return ConflictRecord{FilePath: rec.FilePath, Signature: rec.Signature}
	}
	pattern, found, err := o.Index.Query(ctx, rec.Signature)
	if err != nil {
		slog.Warn("resolution query failed, treating as no match", "file", rec.FilePath, "error", err)
		return ConflictRecord{FilePath: rec.FilePath, Signature: rec.Signature}
	}
	if !found {
		return ConflictRecord{FilePath: rec.FilePath, Signature: rec.Signature}
	}

	if pattern.SuccessRate() < o.threshold() {
		slog.Info("resolution success rate below threshold, skipping",
			"file", rec.FilePath, "success_rate", pattern.SuccessRate())
		return ConflictRecord{FilePath: rec.FilePath, Signature: rec.Signature, ResolutionFound: true}
	}

	if err := o.Gateway.WritePath(rec.FilePath, []byte(pattern.Resolution)); err != nil {
		slog.Warn("failed to write resolution", "file", rec.FilePath, "error", err)
		return ConflictRecord{FilePath: rec.FilePath, Signature: rec.Signature, ResolutionFound: true}
	}
	if err := o.Gateway.Stage(ctx, rec.FilePath); err != nil {
		slog.Warn("failed to stage resolution", "file", rec.FilePath, "error", err)
		return ConflictRecord{FilePath: rec.FilePath, Signature: rec.Signature, ResolutionFound: true}
	}

	return ConflictRecord{
		FilePath:          rec.FilePath,
		Signature:         rec.Signature,
		ResolutionFound:   true,
		ResolutionApplied: true,
	}
}

func (o *Orchestrator) finalize(ctx context.Context, commit gitrepo.CommitRef, commitRef, targetBranch string, records []ConflictRecord, applied int, message string) (Outcome, error) {
	meta, err := o.Gateway.WalkHistory(ctx, string(commit), 1)
	if err != nil || len(meta) == 0 {
		return Outcome{}, fmt.Errorf("resolve original commit message: %w", err)
	}

	finalMessage := meta[0].Message + fmt.Sprintf("\n\n(cherry picked from commit %s)", commit)

	newSHA, err := o.Gateway.FinalizeCommit(ctx, finalMessage, o.BotIdentity, o.BotIdentity)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Success:            true,
		CommitHash:         commitRef,
		TargetBranch:       targetBranch,
		Conflicts:          records,
		ResolutionsApplied: applied,
		NewCommitSHA:       string(newSHA),
		Message:            message,
	}, nil
}

// LearnResolution records a fresh pattern learned from an externally
// supplied resolution (e.g. a human reviewer's fix).
func (o *Orchestrator) LearnResolution(ctx context.Context, signature, filePath, resolutionText, sourceCommit, targetBranch string) error {
	now := time.Now().UTC()
	pattern := resolution.Pattern{
		ID:                uuid.NewString(),
		ConflictSignature: signature,
		FilePath:          filePath,
		Resolution:        resolutionText,
		SuccessCount:      1,
		FailureCount:      0,
		CreatedAt:         now,
		LastUsedAt:        now,
		SourceCommit:      sourceCommit,
		TargetBranch:      targetBranch,
	}
	return o.Index.Upsert(ctx, pattern)
}

// RecordRollback increments the failure counter on a previously learned
// pattern. A pattern that can no longer be found is logged, not failed,
// per spec §4.4.
func (o *Orchestrator) RecordRollback(ctx context.Context, patternID string) error {
	pattern, found, err := o.Index.GetByID(ctx, patternID)
	if err != nil || !found {
		slog.Warn("rollback target pattern not found", "pattern_id", patternID, "error", err)
		return nil
	}

	pattern.FailureCount++
	pattern.LastUsedAt = time.Now().UTC()
	return o.Index.Upsert(ctx, pattern)
}
