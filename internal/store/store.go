// Package store defines the persistence surface used by the sync engine and
// the API read models, together with its database-backed and in-memory
// implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

// SyncStatus is the last known sync outcome of a repository.
type SyncStatus string

const (
	SyncStatusUnknown SyncStatus = "UNKNOWN"
	SyncStatusOK      SyncStatus = "OK"
	SyncStatusFailed  SyncStatus = "FAILED"
)

// RunStatus is the lifecycle state of a sync run.
type RunStatus string

const (
	RunStatusPending RunStatus = "PENDING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// Repository is a tracked source repository.
type Repository struct {
	ID            uuid.UUID
	OrgID         uuid.UUID
	Org           string
	Name          string
	Provider      string
	SourceURL     string
	DefaultBranch string
	SyncStatus    SyncStatus
	LastSyncedAt  *time.Time
}

// Version is a single package version record extracted from a repository ref.
type Version struct {
	ID                uuid.UUID
	PackageName       string
	Version           string
	NormalizedVersion string
	Manifest          []byte
	CommitHash        string
	ReleasedAt        time.Time
	UpdatedAt         time.Time
}

// Run is a single synchronization run for a repository.
type Run struct {
	ID             uuid.UUID
	RepositoryID   uuid.UUID
	Status         RunStatus
	BatchID        *uuid.UUID
	StartedAt      time.Time
	CompletedAt    *time.Time
	RefsDiscovered int64
	RefsFiltered   int64
	Counters       RunCounters
	ErrorMsg       string
}

// RunCounters are the per-run outcome tallies.
type RunCounters struct {
	Added   int64
	Updated int64
	Skipped int64
	Failed  int64
	Removed int64
}

// EnsureRepositoryParams describes a repository to register or refresh.
type EnsureRepositoryParams struct {
	Org           string
	Name          string
	Provider      string
	SourceURL     string
	DefaultBranch string
}

// WriteVersionParams describes a version record to upsert.
type WriteVersionParams struct {
	OrgID             uuid.UUID
	RepositoryID      uuid.UUID
	PackageName       string
	Version           string
	NormalizedVersion string
	Manifest          []byte
	CommitHash        string
}

// WriteOutcome reports whether a version write created a new row or
// refreshed an existing one.
type WriteOutcome int

const (
	OutcomeAdded WriteOutcome = iota
	OutcomeUpdated
)

// CompleteRunParams carries the terminal state of a sync run.
type CompleteRunParams struct {
	RunID    uuid.UUID
	Status   RunStatus
	Counters RunCounters
	ErrorMsg string
}

// RepositoryStore is the repository catalog surface.
type RepositoryStore interface {
	// EnsureRepository registers a repository, creating its organization as
	// needed. Calling it again with the same org and name refreshes the
	// mutable fields and returns the same record.
	EnsureRepository(ctx context.Context, params EnsureRepositoryParams) (Repository, error)
	GetRepository(ctx context.Context, id uuid.UUID) (Repository, error)
	GetRepositoryBySourceURL(ctx context.Context, sourceURL string) (Repository, error)
	ListRepositories(ctx context.Context) ([]Repository, error)
	// ListRepositoriesDueForSync returns repositories never synced or last
	// synced before the cutoff, oldest first.
	ListRepositoriesDueForSync(ctx context.Context, cutoff time.Time) ([]Repository, error)
	UpdateRepositorySyncState(ctx context.Context, id uuid.UUID, status SyncStatus, syncedAt time.Time) error
}

// VersionStore is the package version surface.
type VersionStore interface {
	// VersionFingerprints returns the version -> commit hash map for all
	// versions currently recorded for the repository.
	VersionFingerprints(ctx context.Context, repositoryID uuid.UUID) (map[string]string, error)
	// WriteVersion upserts a version record transactionally, creating the
	// owning package row as needed.
	WriteVersion(ctx context.Context, params WriteVersionParams) (WriteOutcome, error)
	// GetVersion returns the recorded version of one package, or ErrNotFound.
	// Sync units use it to re-check a fingerprint just before writing.
	GetVersion(ctx context.Context, orgID uuid.UUID, packageName, version string) (Version, error)
	ListVersions(ctx context.Context, repositoryID uuid.UUID) ([]Version, error)
	// RemoveVersionsNotIn deletes versions of the repository whose version
	// string is absent from keep, returning the number removed.
	RemoveVersionsNotIn(ctx context.Context, repositoryID uuid.UUID, keep []string) (int64, error)
}

// RunStore is the sync run bookkeeping surface.
type RunStore interface {
	// BeginRun opens a new pending run for the repository. When a run is
	// already active the existing run is returned with started == false.
	BeginRun(ctx context.Context, repositoryID uuid.UUID) (run Run, started bool, err error)
	GetRun(ctx context.Context, id uuid.UUID) (Run, error)
	ListRuns(ctx context.Context, repositoryID uuid.UUID, limit int32) ([]Run, error)
	RecordDiscovery(ctx context.Context, runID uuid.UUID, discovered, filtered int64) error
	AttachBatch(ctx context.Context, runID, batchID uuid.UUID) error
	CompleteRun(ctx context.Context, params CompleteRunParams) error
	// FailOverdueRuns force-fails pending runs of the repository started
	// before the cutoff, returning the number failed.
	FailOverdueRuns(ctx context.Context, repositoryID uuid.UUID, cutoff time.Time) (int64, error)
}

// Store is the full persistence surface.
type Store interface {
	RepositoryStore
	VersionStore
	RunStore
}
