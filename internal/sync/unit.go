package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pricorephp/pricore/internal/git"
	"github.com/pricorephp/pricore/internal/manifest"
	"github.com/pricorephp/pricore/internal/queue"
	"github.com/pricorephp/pricore/internal/store"
	"github.com/pricorephp/pricore/internal/telemetry"
)

// Terminal unit outcomes.
const (
	outcomeAdded   = "added"
	outcomeUpdated = "updated"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

// refUnit processes one ref through fetch -> extract -> upsert. Units are
// independent: one unit failing never affects its siblings, and every unit
// retires itself from the batch exactly once.
type refUnit struct {
	repo         store.Repository
	cand         candidate
	provider     git.Provider
	extractor    manifest.Extractor
	versions     store.VersionStore
	manifestPath string
	counters     *runCounters
	batch        *queue.Batch
	schedule     []time.Duration
	metrics      *telemetry.SyncMetrics
	logger       *slog.Logger
}

func (u *refUnit) run(ctx context.Context) {
	defer u.batch.TaskDone()

	// A cancelled batch retires the unit without touching any bucket.
	if u.batch.Cancelled() || ctx.Err() != nil {
		return
	}

	outcome, err := u.process(ctx)
	if err != nil {
		u.counters.failed.Add(1)
		u.metrics.RecordUnitOutcome(ctx, outcomeFailed)
		u.logger.Warn("ref sync failed",
			"org", u.repo.Org,
			"repository", u.repo.Name,
			"ref", u.cand.ref.Name,
			"version", u.cand.version,
			"error", err)
		return
	}

	switch outcome {
	case outcomeAdded:
		u.counters.added.Add(1)
	case outcomeUpdated:
		u.counters.updated.Add(1)
	case outcomeSkipped:
		u.counters.skipped.Add(1)
	}
	u.metrics.RecordUnitOutcome(ctx, outcome)
}

// process runs one attempt with the unit retry schedule. Missing or invalid
// manifests are terminal skips, not failures, and are never retried.
func (u *refUnit) process(ctx context.Context) (string, error) {
	var outcome string
	err := queue.Retry(ctx, u.schedule, func(ctx context.Context) error {
		o, err := u.attempt(ctx)
		if err != nil {
			return err
		}
		outcome = o
		return nil
	})
	return outcome, err
}

func (u *refUnit) attempt(ctx context.Context) (string, error) {
	raw, err := u.provider.GetFileContent(ctx, u.cand.ref, u.manifestPath)
	if err != nil {
		if errors.Is(err, git.ErrFileNotFound) {
			// Refs without a manifest are the normal case, not an error.
			return outcomeSkipped, nil
		}
		return "", err
	}

	meta, err := u.extractor.Extract(raw, u.cand.version)
	if err != nil {
		if errors.Is(err, manifest.ErrInvalid) {
			// A malformed manifest will not become valid on retry.
			u.logger.Info("skipping ref with invalid manifest",
				"org", u.repo.Org,
				"repository", u.repo.Name,
				"ref", u.cand.ref.Name,
				"error", err)
			return outcomeSkipped, nil
		}
		return "", err
	}

	// Re-verify the fingerprint against the store before writing; the
	// coarse filter ran at discovery time and the record may have changed
	// since. This read is live, not the snapshot the filter used.
	current, err := u.versions.GetVersion(ctx, u.repo.OrgID, meta.Name, meta.Version)
	if err == nil && current.CommitHash == u.cand.ref.Hash {
		return outcomeSkipped, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	result, err := u.versions.WriteVersion(ctx, store.WriteVersionParams{
		OrgID:             u.repo.OrgID,
		RepositoryID:      u.repo.ID,
		PackageName:       meta.Name,
		Version:           meta.Version,
		NormalizedVersion: meta.NormalizedVersion,
		Manifest:          meta.Payload,
		CommitHash:        u.cand.ref.Hash,
	})
	if err != nil {
		return "", err
	}
	if result == store.OutcomeAdded {
		return outcomeAdded, nil
	}
	return outcomeUpdated, nil
}
