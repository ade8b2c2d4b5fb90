package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricorephp/pricore/internal/db/sqlc"
)

const pgUniqueViolation = "23505"

// options holds configuration options for the database store
type options struct {
	pool *pgxpool.Pool
}

// Option is a functional option for configuring the database store
type Option func(*options) error

// WithConnectionPool creates the store on top of the given pgx pool. The
// caller is responsible for closing the pool when it is done.
func WithConnectionPool(pool *pgxpool.Pool) Option {
	return func(o *options) error {
		if pool == nil {
			return fmt.Errorf("pgx pool is required")
		}
		o.pool = pool
		return nil
	}
}

// dbStore implements the Store interface using a database backend
type dbStore struct {
	pool    *pgxpool.Pool
	queries *sqlc.Queries
}

var _ Store = (*dbStore)(nil)

// NewDBStore creates a new database-backed store with the given options
func NewDBStore(opts ...Option) (Store, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	return &dbStore{
		pool:    o.pool,
		queries: sqlc.New(o.pool),
	}, nil
}

func (s *dbStore) EnsureRepository(ctx context.Context, params EnsureRepositoryParams) (Repository, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Repository{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	qtx := s.queries.WithTx(tx)

	org, err := qtx.UpsertOrganization(ctx, params.Org)
	if err != nil {
		return Repository{}, fmt.Errorf("failed to upsert organization %q: %w", params.Org, err)
	}

	var defaultBranch *string
	if params.DefaultBranch != "" {
		defaultBranch = &params.DefaultBranch
	}
	row, err := qtx.UpsertRepository(ctx, sqlc.UpsertRepositoryParams{
		OrgID:         org.ID,
		Name:          params.Name,
		Provider:      sqlc.ProviderKind(params.Provider),
		SourceUrl:     params.SourceURL,
		DefaultBranch: defaultBranch,
	})
	if err != nil {
		return Repository{}, fmt.Errorf("failed to upsert repository %q: %w", params.Name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Repository{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return repositoryFromRow(row, org.Name), nil
}

func (s *dbStore) GetRepository(ctx context.Context, id uuid.UUID) (Repository, error) {
	row, err := s.queries.GetRepository(ctx, id)
	if err != nil {
		return Repository{}, mapNoRows(err, "repository")
	}
	return s.withOrgName(ctx, row)
}

func (s *dbStore) GetRepositoryBySourceURL(ctx context.Context, sourceURL string) (Repository, error) {
	row, err := s.queries.GetRepositoryBySourceURL(ctx, sourceURL)
	if err != nil {
		return Repository{}, mapNoRows(err, "repository")
	}
	return s.withOrgName(ctx, row)
}

func (s *dbStore) ListRepositories(ctx context.Context) ([]Repository, error) {
	rows, err := s.queries.ListRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	return s.resolveOrgNames(ctx, rows)
}

func (s *dbStore) ListRepositoriesDueForSync(ctx context.Context, cutoff time.Time) ([]Repository, error) {
	rows, err := s.queries.ListRepositoriesDueForSync(ctx, &cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories due for sync: %w", err)
	}
	return s.resolveOrgNames(ctx, rows)
}

func (s *dbStore) UpdateRepositorySyncState(ctx context.Context, id uuid.UUID, status SyncStatus, syncedAt time.Time) error {
	err := s.queries.UpdateRepositorySyncState(ctx, sqlc.UpdateRepositorySyncStateParams{
		ID:           id,
		SyncStatus:   sqlc.RepoSyncStatus(status),
		LastSyncedAt: &syncedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to update repository sync state: %w", err)
	}
	return nil
}

func (s *dbStore) VersionFingerprints(ctx context.Context, repositoryID uuid.UUID) (map[string]string, error) {
	rows, err := s.queries.ListVersionFingerprintsByRepository(ctx, &repositoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list version fingerprints: %w", err)
	}
	fingerprints := make(map[string]string, len(rows))
	for _, row := range rows {
		fingerprints[row.Version] = row.CommitHash
	}
	return fingerprints, nil
}

func (s *dbStore) WriteVersion(ctx context.Context, params WriteVersionParams) (WriteOutcome, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return OutcomeUpdated, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	qtx := s.queries.WithTx(tx)

	pkg, err := qtx.UpsertPackage(ctx, sqlc.UpsertPackageParams{
		OrgID:        params.OrgID,
		RepositoryID: &params.RepositoryID,
		Name:         params.PackageName,
	})
	if err != nil {
		return OutcomeUpdated, fmt.Errorf("failed to upsert package %q: %w", params.PackageName, err)
	}

	row, err := qtx.UpsertPackageVersion(ctx, sqlc.UpsertPackageVersionParams{
		PackageID:         pkg.ID,
		Version:           params.Version,
		NormalizedVersion: params.NormalizedVersion,
		Manifest:          params.Manifest,
		CommitHash:        params.CommitHash,
	})
	if err != nil {
		return OutcomeUpdated, fmt.Errorf("failed to upsert version %q: %w", params.Version, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return OutcomeUpdated, fmt.Errorf("failed to commit transaction: %w", err)
	}
	if row.Inserted {
		return OutcomeAdded, nil
	}
	return OutcomeUpdated, nil
}

func (s *dbStore) GetVersion(ctx context.Context, orgID uuid.UUID, packageName, version string) (Version, error) {
	pkg, err := s.queries.GetPackageByName(ctx, sqlc.GetPackageByNameParams{
		OrgID: orgID,
		Name:  packageName,
	})
	if err != nil {
		return Version{}, mapNoRows(err, "package")
	}

	row, err := s.queries.GetPackageVersion(ctx, sqlc.GetPackageVersionParams{
		PackageID: pkg.ID,
		Version:   version,
	})
	if err != nil {
		return Version{}, mapNoRows(err, "package version")
	}

	return Version{
		ID:                row.ID,
		PackageName:       pkg.Name,
		Version:           row.Version,
		NormalizedVersion: row.NormalizedVersion,
		Manifest:          row.Manifest,
		CommitHash:        row.CommitHash,
		ReleasedAt:        row.ReleasedAt,
		UpdatedAt:         row.UpdatedAt,
	}, nil
}

func (s *dbStore) ListVersions(ctx context.Context, repositoryID uuid.UUID) ([]Version, error) {
	rows, err := s.queries.ListVersionsByRepository(ctx, &repositoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	versions := make([]Version, 0, len(rows))
	for _, row := range rows {
		versions = append(versions, Version{
			ID:                row.ID,
			PackageName:       row.PackageName,
			Version:           row.Version,
			NormalizedVersion: row.NormalizedVersion,
			Manifest:          row.Manifest,
			CommitHash:        row.CommitHash,
			ReleasedAt:        row.ReleasedAt,
			UpdatedAt:         row.UpdatedAt,
		})
	}
	return versions, nil
}

func (s *dbStore) RemoveVersionsNotIn(ctx context.Context, repositoryID uuid.UUID, keep []string) (int64, error) {
	// An empty array is valid: every version of the repository is stale.
	if keep == nil {
		keep = []string{}
	}
	removed, err := s.queries.DeleteVersionsNotInRefSet(ctx, sqlc.DeleteVersionsNotInRefSetParams{
		RepositoryID: &repositoryID,
		Versions:     keep,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to remove stale versions: %w", err)
	}
	return removed, nil
}

func (s *dbStore) BeginRun(ctx context.Context, repositoryID uuid.UUID) (Run, bool, error) {
	row, err := s.queries.InsertSyncRun(ctx, repositoryID)
	if err != nil {
		// The partial unique index on pending runs rejects a second
		// concurrent start; surface the active run instead.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			active, getErr := s.queries.GetActiveSyncRun(ctx, repositoryID)
			if getErr != nil {
				return Run{}, false, fmt.Errorf("failed to load active sync run: %w", getErr)
			}
			return runFromRow(active), false, nil
		}
		return Run{}, false, fmt.Errorf("failed to insert sync run: %w", err)
	}
	return runFromRow(row), true, nil
}

func (s *dbStore) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	row, err := s.queries.GetSyncRun(ctx, id)
	if err != nil {
		return Run{}, mapNoRows(err, "sync run")
	}
	return runFromRow(row), nil
}

func (s *dbStore) ListRuns(ctx context.Context, repositoryID uuid.UUID, limit int32) ([]Run, error) {
	rows, err := s.queries.ListSyncRunsByRepository(ctx, sqlc.ListSyncRunsByRepositoryParams{
		RepositoryID: repositoryID,
		Limit:        limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	runs := make([]Run, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, runFromRow(row))
	}
	return runs, nil
}

func (s *dbStore) RecordDiscovery(ctx context.Context, runID uuid.UUID, discovered, filtered int64) error {
	err := s.queries.SetSyncRunDiscovered(ctx, sqlc.SetSyncRunDiscoveredParams{
		ID:             runID,
		RefsDiscovered: discovered,
		RefsFiltered:   filtered,
	})
	if err != nil {
		return fmt.Errorf("failed to record ref discovery: %w", err)
	}
	return nil
}

func (s *dbStore) AttachBatch(ctx context.Context, runID, batchID uuid.UUID) error {
	err := s.queries.SetSyncRunBatch(ctx, sqlc.SetSyncRunBatchParams{
		ID:      runID,
		BatchID: &batchID,
	})
	if err != nil {
		return fmt.Errorf("failed to attach batch to sync run: %w", err)
	}
	return nil
}

func (s *dbStore) CompleteRun(ctx context.Context, params CompleteRunParams) error {
	var errorMsg *string
	if params.ErrorMsg != "" {
		errorMsg = &params.ErrorMsg
	}
	err := s.queries.CompleteSyncRun(ctx, sqlc.CompleteSyncRunParams{
		ID:       params.RunID,
		Status:   sqlc.RunStatus(params.Status),
		Added:    params.Counters.Added,
		Updated:  params.Counters.Updated,
		Skipped:  params.Counters.Skipped,
		Failed:   params.Counters.Failed,
		Removed:  params.Counters.Removed,
		ErrorMsg: errorMsg,
	})
	if err != nil {
		return fmt.Errorf("failed to complete sync run: %w", err)
	}
	return nil
}

func (s *dbStore) FailOverdueRuns(ctx context.Context, repositoryID uuid.UUID, cutoff time.Time) (int64, error) {
	failed, err := s.queries.FailOverdueSyncRuns(ctx, sqlc.FailOverdueSyncRunsParams{
		RepositoryID: repositoryID,
		StartedAt:    cutoff,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to fail overdue sync runs: %w", err)
	}
	return failed, nil
}

func (s *dbStore) withOrgName(ctx context.Context, row sqlc.Repository) (Repository, error) {
	org, err := s.queries.GetOrganization(ctx, row.OrgID)
	if err != nil {
		return Repository{}, fmt.Errorf("failed to load organization: %w", err)
	}
	return repositoryFromRow(row, org.Name), nil
}

func (s *dbStore) resolveOrgNames(ctx context.Context, rows []sqlc.Repository) ([]Repository, error) {
	names := make(map[uuid.UUID]string, len(rows))
	repos := make([]Repository, 0, len(rows))
	for _, row := range rows {
		name, ok := names[row.OrgID]
		if !ok {
			org, err := s.queries.GetOrganization(ctx, row.OrgID)
			if err != nil {
				return nil, fmt.Errorf("failed to load organization: %w", err)
			}
			name = org.Name
			names[row.OrgID] = name
		}
		repos = append(repos, repositoryFromRow(row, name))
	}
	return repos, nil
}

func repositoryFromRow(row sqlc.Repository, orgName string) Repository {
	repo := Repository{
		ID:           row.ID,
		OrgID:        row.OrgID,
		Org:          orgName,
		Name:         row.Name,
		Provider:     string(row.Provider),
		SourceURL:    row.SourceUrl,
		SyncStatus:   SyncStatus(row.SyncStatus),
		LastSyncedAt: row.LastSyncedAt,
	}
	if row.DefaultBranch != nil {
		repo.DefaultBranch = *row.DefaultBranch
	}
	return repo
}

func runFromRow(row sqlc.SyncRun) Run {
	run := Run{
		ID:             row.ID,
		RepositoryID:   row.RepositoryID,
		Status:         RunStatus(row.Status),
		BatchID:        row.BatchID,
		StartedAt:      row.StartedAt,
		CompletedAt:    row.CompletedAt,
		RefsDiscovered: row.RefsDiscovered,
		RefsFiltered:   row.RefsFiltered,
		Counters: RunCounters{
			Added:   row.Added,
			Updated: row.Updated,
			Skipped: row.Skipped,
			Failed:  row.Failed,
			Removed: row.Removed,
		},
	}
	if row.ErrorMsg != nil {
		run.ErrorMsg = *row.ErrorMsg
	}
	return run
}

func mapNoRows(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
