// Package sync implements the repository synchronization engine: ref
// discovery, change detection, the per-ref worker fan-out, exactly-once
// completion aggregation, and stale version reaping.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pricorephp/pricore/internal/credentials"
	"github.com/pricorephp/pricore/internal/git"
	"github.com/pricorephp/pricore/internal/manifest"
	"github.com/pricorephp/pricore/internal/queue"
	"github.com/pricorephp/pricore/internal/store"
	"github.com/pricorephp/pricore/internal/telemetry"
	"github.com/pricorephp/pricore/internal/versions"
)

const (
	// DefaultRunTimeout is the wall-clock budget for a whole run.
	DefaultRunTimeout = 15 * time.Minute

	// DefaultManifestPath is where the package manifest is looked up in
	// each ref.
	DefaultManifestPath = manifest.DefaultPath
)

// Engine drives repository synchronization runs.
type Engine interface {
	// StartSync opens a run for the repository and executes it in the
	// background. When a run is already active the active run is returned
	// with started == false; this is a no-op, not an error.
	StartSync(ctx context.Context, repositoryID uuid.UUID) (run store.Run, started bool, err error)

	// SyncNow executes a complete run synchronously and returns its final
	// state. Used by the one-shot CLI command and the coordinator loop.
	SyncNow(ctx context.Context, repositoryID uuid.UUID) (store.Run, error)
}

// engineOptions holds construction options for the engine
type engineOptions struct {
	store        store.Store
	providers    git.Factory
	credentials  credentials.Store
	workers      int64
	schedule     []time.Duration
	runTimeout   time.Duration
	manifestPath string
	metrics      *telemetry.SyncMetrics
	logger       *slog.Logger
}

// EngineOption is a functional option for configuring the engine
type EngineOption func(*engineOptions) error

// WithStore sets the persistence backend. Required.
func WithStore(s store.Store) EngineOption {
	return func(o *engineOptions) error {
		if s == nil {
			return fmt.Errorf("store is required")
		}
		o.store = s
		return nil
	}
}

// WithProviderFactory sets the git provider factory. Required.
func WithProviderFactory(f git.Factory) EngineOption {
	return func(o *engineOptions) error {
		if f == nil {
			return fmt.Errorf("provider factory is required")
		}
		o.providers = f
		return nil
	}
}

// WithCredentialStore sets the credential store used to authenticate
// clone URLs.
func WithCredentialStore(c credentials.Store) EngineOption {
	return func(o *engineOptions) error {
		o.credentials = c
		return nil
	}
}

// WithWorkers sets the fan-out width of the per-ref worker pool.
func WithWorkers(workers int64) EngineOption {
	return func(o *engineOptions) error {
		if workers < 1 {
			return fmt.Errorf("workers must be at least 1, got %d", workers)
		}
		o.workers = workers
		return nil
	}
}

// WithRetrySchedule overrides the per-unit retry delays. Tests use this to
// avoid real backoff waits.
func WithRetrySchedule(schedule []time.Duration) EngineOption {
	return func(o *engineOptions) error {
		o.schedule = schedule
		return nil
	}
}

// WithRunTimeout sets the wall-clock budget for a whole run.
func WithRunTimeout(timeout time.Duration) EngineOption {
	return func(o *engineOptions) error {
		if timeout <= 0 {
			return fmt.Errorf("run timeout must be positive, got %s", timeout)
		}
		o.runTimeout = timeout
		return nil
	}
}

// WithManifestPath sets the manifest path looked up at each ref.
func WithManifestPath(path string) EngineOption {
	return func(o *engineOptions) error {
		if path == "" {
			return fmt.Errorf("manifest path must not be empty")
		}
		o.manifestPath = path
		return nil
	}
}

// WithMetrics sets the sync metrics instruments. Nil disables metrics.
func WithMetrics(m *telemetry.SyncMetrics) EngineOption {
	return func(o *engineOptions) error {
		o.metrics = m
		return nil
	}
}

// WithLogger sets the logger used by the engine and its units.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) error {
		o.logger = logger
		return nil
	}
}

// defaultEngine is the default implementation of Engine
type defaultEngine struct {
	store        store.Store
	providers    git.Factory
	credentials  credentials.Store
	extractor    manifest.Extractor
	policy       versions.Policy
	detector     ChangeDetector
	pool         *queue.Pool
	schedule     []time.Duration
	runTimeout   time.Duration
	manifestPath string
	metrics      *telemetry.SyncMetrics
	logger       *slog.Logger
}

var _ Engine = (*defaultEngine)(nil)

// NewEngine creates a new sync engine
func NewEngine(opts ...EngineOption) (Engine, error) {
	o := &engineOptions{
		workers:      8,
		schedule:     queue.DefaultRetrySchedule,
		runTimeout:   DefaultRunTimeout,
		manifestPath: DefaultManifestPath,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if o.providers == nil {
		return nil, fmt.Errorf("provider factory is required")
	}

	policy := versions.NewComposerPolicy()
	return &defaultEngine{
		store:        o.store,
		providers:    o.providers,
		credentials:  o.credentials,
		extractor:    manifest.NewExtractor(policy),
		policy:       policy,
		detector:     NewChangeDetector(),
		pool:         queue.NewPool(o.workers),
		schedule:     o.schedule,
		runTimeout:   o.runTimeout,
		manifestPath: o.manifestPath,
		metrics:      o.metrics,
		logger:       o.logger,
	}, nil
}

func (e *defaultEngine) StartSync(ctx context.Context, repositoryID uuid.UUID) (store.Run, bool, error) {
	repo, run, started, err := e.begin(ctx, repositoryID)
	if err != nil || !started {
		return run, started, err
	}

	// The run outlives the triggering request; detach from its
	// cancellation but keep the wall-clock budget.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.runTimeout)
	go func() {
		defer cancel()
		e.execute(runCtx, repo, run)
	}()
	return run, true, nil
}

func (e *defaultEngine) SyncNow(ctx context.Context, repositoryID uuid.UUID) (store.Run, error) {
	repo, run, started, err := e.begin(ctx, repositoryID)
	if err != nil {
		return store.Run{}, err
	}
	if !started {
		return run, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, e.runTimeout)
	defer cancel()
	e.execute(runCtx, repo, run)

	return e.store.GetRun(ctx, run.ID)
}

// begin loads the repository, fails any run left pending past its budget by
// a crashed process, and opens a new pending run. started == false means a
// run is already active.
func (e *defaultEngine) begin(ctx context.Context, repositoryID uuid.UUID) (store.Repository, store.Run, bool, error) {
	repo, err := e.store.GetRepository(ctx, repositoryID)
	if err != nil {
		return store.Repository{}, store.Run{}, false, err
	}

	recovered, err := e.store.FailOverdueRuns(ctx, repo.ID, time.Now().Add(-e.runTimeout))
	if err != nil {
		return store.Repository{}, store.Run{}, false, err
	}
	if recovered > 0 {
		e.logger.Warn("failed overdue sync runs before starting",
			"org", repo.Org, "repository", repo.Name, "count", recovered)
	}

	run, started, err := e.store.BeginRun(ctx, repo.ID)
	if err != nil {
		return store.Repository{}, store.Run{}, false, err
	}
	if !started {
		e.logger.Info("sync already in progress",
			"org", repo.Org, "repository", repo.Name, "run_id", run.ID)
	}
	return repo, run, started, nil
}

// execute drives one run from validation through completion. Every exit path
// funnels into finish exactly once.
func (e *defaultEngine) execute(ctx context.Context, repo store.Repository, run store.Run) {
	startedAt := time.Now()
	logger := e.logger.With("org", repo.Org, "repository", repo.Name, "run_id", run.ID)
	logger.Info("sync run started")

	provider, syncErr := e.buildProvider(repo)
	if syncErr != nil {
		e.finish(ctx, repo, run, &runCounters{}, startedAt, syncErr)
		return
	}

	if syncErr := e.validateAccess(ctx, provider); syncErr != nil {
		e.finish(ctx, repo, run, &runCounters{}, startedAt, syncErr)
		return
	}

	tags, branches, syncErr := e.listRefs(ctx, provider)
	if syncErr != nil {
		e.finish(ctx, repo, run, &runCounters{}, startedAt, syncErr)
		return
	}

	candidates, filtered := refCandidates(e.policy, tags, branches)
	discovered := int64(len(tags) + len(branches))
	if err := e.store.RecordDiscovery(ctx, run.ID, discovered, filtered); err != nil {
		logger.Warn("failed to record ref discovery", "error", err)
	}
	e.metrics.RecordRefsDiscovered(ctx, repo.Name, discovered)

	// A repository with no refs at all is not an error. Refs that were all
	// filtered by the version policy do NOT short-circuit: the reaper still
	// has to run against the (empty) candidate set below.
	if discovered == 0 {
		logger.Info("no refs discovered, completing empty")
		e.finish(ctx, repo, run, &runCounters{}, startedAt, nil)
		return
	}

	// Generic URL repositories read manifests out of a local bare clone;
	// materialize it before any unit runs.
	materializer, _ := provider.(git.Materializer)
	if materializer != nil {
		if err := materializer.Materialize(ctx); err != nil {
			e.finish(ctx, repo, run, &runCounters{}, startedAt,
				newError(ReasonCloneFailed, "failed to materialize local clone", err))
			return
		}
	}

	fingerprints, err := e.store.VersionFingerprints(ctx, repo.ID)
	if err != nil {
		e.finish(ctx, repo, run, &runCounters{}, startedAt,
			newError(ReasonProviderUnavailable, "failed to load version fingerprints", err))
		return
	}

	counters := &runCounters{}
	changed, unchanged := e.detector.Filter(fingerprints, candidates)
	counters.skipped.Add(int64(len(unchanged)))

	// The reaper works off the full candidate set: an unchanged ref still
	// counts as present, and a ref that is gone is removed regardless of
	// how its last fetch went.
	keep := make([]string, 0, len(candidates))
	for _, c := range candidates {
		keep = append(keep, c.version)
	}
	removed, err := e.store.RemoveVersionsNotIn(ctx, repo.ID, keep)
	if err != nil {
		logger.Warn("failed to remove stale versions", "error", err)
	} else {
		counters.removed.Add(removed)
		e.metrics.RecordVersionsRemoved(ctx, repo.Name, removed)
	}

	done := make(chan struct{})
	batch := queue.NewBatch(int64(len(changed)), func() { close(done) })
	if err := e.store.AttachBatch(ctx, run.ID, batch.ID()); err != nil {
		logger.Warn("failed to persist batch id", "error", err)
	}

	for _, c := range changed {
		unit := &refUnit{
			repo:         repo,
			cand:         c,
			provider:     provider,
			extractor:    e.extractor,
			versions:     e.store,
			manifestPath: e.manifestPath,
			counters:     counters,
			batch:        batch,
			schedule:     e.schedule,
			metrics:      e.metrics,
			logger:       logger,
		}
		if err := e.pool.Go(ctx, unit.run); err != nil {
			// The run context expired while waiting for a worker slot;
			// flag the batch and retire the unit ourselves.
			batch.Cancel()
			batch.TaskDone()
		}
	}

	select {
	case <-done:
	case <-ctx.Done():
		// The budget expired with units still in flight. Cancel the
		// batch and wait for the barrier: in-flight units finish their
		// current step, pending ones no-op.
		batch.Cancel()
		<-done
	}

	if materializer != nil {
		materializer.Release()
	}

	var timeoutErr *Error
	if ctx.Err() != nil {
		timeoutErr = newError(ReasonRunTimeout, "run exceeded time budget", ctx.Err())
	}
	e.finish(ctx, repo, run, counters, startedAt, timeoutErr)
}

// finish is the completion aggregator: it computes the final status, persists
// the run record, and updates the repository's sync health. A run failed with
// unit errors still counts as success when it made any usable progress.
func (e *defaultEngine) finish(
	ctx context.Context,
	repo store.Repository,
	run store.Run,
	counters *runCounters,
	startedAt time.Time,
	syncErr *Error,
) {
	// The run context may already be expired; completion bookkeeping still
	// has to land.
	ctx = context.WithoutCancel(ctx)

	snapshot := counters.snapshot()
	status := store.RunStatusSuccess
	errorMsg := ""

	switch {
	case syncErr != nil:
		status = store.RunStatusFailed
		errorMsg = fmt.Sprintf("%s: %s", syncErr.Reason, syncErr.Message)
	case snapshot.Failed > 0 && snapshot.Added == 0 && snapshot.Updated == 0:
		status = store.RunStatusFailed
		errorMsg = fmt.Sprintf("%s: %d units failed, none succeeded", ReasonNoProgress, snapshot.Failed)
	}

	if err := e.store.CompleteRun(ctx, store.CompleteRunParams{
		RunID:    run.ID,
		Status:   status,
		Counters: snapshot,
		ErrorMsg: errorMsg,
	}); err != nil {
		e.logger.Error("failed to persist sync run completion",
			"org", repo.Org, "repository", repo.Name, "run_id", run.ID, "error", err)
	}

	repoStatus := store.SyncStatusOK
	if status == store.RunStatusFailed {
		repoStatus = store.SyncStatusFailed
	}
	if err := e.store.UpdateRepositorySyncState(ctx, repo.ID, repoStatus, time.Now()); err != nil {
		e.logger.Error("failed to update repository sync state",
			"org", repo.Org, "repository", repo.Name, "error", err)
	}

	duration := time.Since(startedAt)
	e.metrics.RecordRun(ctx, repo.Name, status == store.RunStatusSuccess, duration)
	e.logger.Info("sync run completed",
		"org", repo.Org,
		"repository", repo.Name,
		"run_id", run.ID,
		"status", status,
		"added", snapshot.Added,
		"updated", snapshot.Updated,
		"skipped", snapshot.Skipped,
		"failed", snapshot.Failed,
		"removed", snapshot.Removed,
		"duration", duration)
}

func (e *defaultEngine) buildProvider(repo store.Repository) (git.Provider, *Error) {
	var creds credentials.Credentials
	if e.credentials != nil {
		var err error
		creds, err = e.credentials.Resolve(repo.SourceURL)
		if err != nil {
			return nil, newError(ReasonAccessDenied, "failed to resolve credentials", err)
		}
	}

	provider, err := e.providers.Create(git.Spec{
		Kind:         git.ProviderKind(strings.ToLower(repo.Provider)),
		RepositoryID: repo.ID.String(),
		SourceURL:    repo.SourceURL,
		Username:     creds.Username,
		Password:     creds.Password,
	})
	if err != nil {
		return nil, newError(ReasonProviderUnavailable, "failed to build git provider", err)
	}
	return provider, nil
}

func (e *defaultEngine) validateAccess(ctx context.Context, provider git.Provider) *Error {
	ok, err := provider.ValidateAccess(ctx)
	if err != nil {
		return newError(ReasonProviderUnavailable, "failed to validate repository access", err)
	}
	if !ok {
		return newError(ReasonAccessDenied, "repository access denied", nil)
	}
	return nil
}

func (e *defaultEngine) listRefs(ctx context.Context, provider git.Provider) (tags, branches []git.Ref, syncErr *Error) {
	tags, err := provider.ListTags(ctx)
	if err != nil {
		return nil, nil, newError(ReasonProviderUnavailable, "failed to list tags", err)
	}
	branches, err = provider.ListBranches(ctx)
	if err != nil {
		return nil, nil, newError(ReasonProviderUnavailable, "failed to list branches", err)
	}
	return tags, branches, nil
}
