// Package inmemory provides an in-memory implementation of the store
// interfaces, used by tests and by the one-shot sync command when no
// database is configured.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pricorephp/pricore/internal/store"
)

type versionRecord struct {
	store.Version
	orgID        uuid.UUID
	repositoryID uuid.UUID
}

type memStore struct {
	mu       sync.Mutex
	orgs     map[string]uuid.UUID
	repos    map[uuid.UUID]store.Repository
	versions map[uuid.UUID]*versionRecord
	runs     map[uuid.UUID]*store.Run
	now      func() time.Time
}

var _ store.Store = (*memStore)(nil)

// New creates an empty in-memory store.
func New() store.Store {
	return &memStore{
		orgs:     make(map[string]uuid.UUID),
		repos:    make(map[uuid.UUID]store.Repository),
		versions: make(map[uuid.UUID]*versionRecord),
		runs:     make(map[uuid.UUID]*store.Run),
		now:      time.Now,
	}
}

func (s *memStore) EnsureRepository(_ context.Context, params store.EnsureRepositoryParams) (store.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orgID, ok := s.orgs[params.Org]
	if !ok {
		orgID = uuid.New()
		s.orgs[params.Org] = orgID
	}

	for id, repo := range s.repos {
		if repo.OrgID == orgID && repo.Name == params.Name {
			repo.Provider = params.Provider
			repo.SourceURL = params.SourceURL
			repo.DefaultBranch = params.DefaultBranch
			s.repos[id] = repo
			return repo, nil
		}
	}

	repo := store.Repository{
		ID:            uuid.New(),
		OrgID:         orgID,
		Org:           params.Org,
		Name:          params.Name,
		Provider:      params.Provider,
		SourceURL:     params.SourceURL,
		DefaultBranch: params.DefaultBranch,
		SyncStatus:    store.SyncStatusUnknown,
	}
	s.repos[repo.ID] = repo
	return repo, nil
}

func (s *memStore) GetRepository(_ context.Context, id uuid.UUID) (store.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, ok := s.repos[id]
	if !ok {
		return store.Repository{}, fmt.Errorf("repository: %w", store.ErrNotFound)
	}
	return repo, nil
}

func (s *memStore) GetRepositoryBySourceURL(_ context.Context, sourceURL string) (store.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, repo := range s.repos {
		if repo.SourceURL == sourceURL {
			return repo, nil
		}
	}
	return store.Repository{}, fmt.Errorf("repository: %w", store.ErrNotFound)
}

func (s *memStore) ListRepositories(_ context.Context) ([]store.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repos := make([]store.Repository, 0, len(s.repos))
	for _, repo := range s.repos {
		repos = append(repos, repo)
	}
	sort.Slice(repos, func(i, j int) bool {
		return repos[i].Org+"/"+repos[i].Name < repos[j].Org+"/"+repos[j].Name
	})
	return repos, nil
}

func (s *memStore) ListRepositoriesDueForSync(_ context.Context, cutoff time.Time) ([]store.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []store.Repository
	for _, repo := range s.repos {
		if repo.LastSyncedAt == nil || repo.LastSyncedAt.Before(cutoff) {
			due = append(due, repo)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		a, b := due[i].LastSyncedAt, due[j].LastSyncedAt
		switch {
		case a == nil:
			return true
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
	return due, nil
}

func (s *memStore) UpdateRepositorySyncState(_ context.Context, id uuid.UUID, status store.SyncStatus, syncedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, ok := s.repos[id]
	if !ok {
		return fmt.Errorf("repository: %w", store.ErrNotFound)
	}
	repo.SyncStatus = status
	repo.LastSyncedAt = &syncedAt
	s.repos[id] = repo
	return nil
}

func (s *memStore) VersionFingerprints(_ context.Context, repositoryID uuid.UUID) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fingerprints := make(map[string]string)
	for _, rec := range s.versions {
		if rec.repositoryID == repositoryID {
			fingerprints[rec.Version.Version] = rec.CommitHash
		}
	}
	return fingerprints, nil
}

func (s *memStore) WriteVersion(_ context.Context, params store.WriteVersionParams) (store.WriteOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, rec := range s.versions {
		if rec.repositoryID == params.RepositoryID &&
			rec.PackageName == params.PackageName &&
			rec.Version.Version == params.Version {
			rec.NormalizedVersion = params.NormalizedVersion
			rec.Manifest = params.Manifest
			rec.CommitHash = params.CommitHash
			rec.UpdatedAt = now
			return store.OutcomeUpdated, nil
		}
	}

	id := uuid.New()
	s.versions[id] = &versionRecord{
		orgID:        params.OrgID,
		repositoryID: params.RepositoryID,
		Version: store.Version{
			ID:                id,
			PackageName:       params.PackageName,
			Version:           params.Version,
			NormalizedVersion: params.NormalizedVersion,
			Manifest:          params.Manifest,
			CommitHash:        params.CommitHash,
			ReleasedAt:        now,
			UpdatedAt:         now,
		},
	}
	return store.OutcomeAdded, nil
}

func (s *memStore) GetVersion(_ context.Context, orgID uuid.UUID, packageName, version string) (store.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.versions {
		if rec.orgID == orgID && rec.PackageName == packageName && rec.Version.Version == version {
			return rec.Version, nil
		}
	}
	return store.Version{}, fmt.Errorf("package version: %w", store.ErrNotFound)
}

func (s *memStore) ListVersions(_ context.Context, repositoryID uuid.UUID) ([]store.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var versions []store.Version
	for _, rec := range s.versions {
		if rec.repositoryID == repositoryID {
			versions = append(versions, rec.Version)
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].NormalizedVersion > versions[j].NormalizedVersion
	})
	return versions, nil
}

func (s *memStore) RemoveVersionsNotIn(_ context.Context, repositoryID uuid.UUID, keep []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keepSet := make(map[string]struct{}, len(keep))
	for _, v := range keep {
		keepSet[v] = struct{}{}
	}

	var removed int64
	for id, rec := range s.versions {
		if rec.repositoryID != repositoryID {
			continue
		}
		if _, ok := keepSet[rec.Version.Version]; !ok {
			delete(s.versions, id)
			removed++
		}
	}
	return removed, nil
}

func (s *memStore) BeginRun(_ context.Context, repositoryID uuid.UUID) (store.Run, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.repos[repositoryID]; !ok {
		return store.Run{}, false, fmt.Errorf("repository: %w", store.ErrNotFound)
	}
	for _, run := range s.runs {
		if run.RepositoryID == repositoryID && run.Status == store.RunStatusPending {
			return *run, false, nil
		}
	}

	run := &store.Run{
		ID:           uuid.New(),
		RepositoryID: repositoryID,
		Status:       store.RunStatusPending,
		StartedAt:    s.now(),
	}
	s.runs[run.ID] = run
	return *run, true, nil
}

func (s *memStore) GetRun(_ context.Context, id uuid.UUID) (store.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("sync run: %w", store.ErrNotFound)
	}
	return *run, nil
}

func (s *memStore) ListRuns(_ context.Context, repositoryID uuid.UUID, limit int32) ([]store.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var runs []store.Run
	for _, run := range s.runs {
		if run.RepositoryID == repositoryID {
			runs = append(runs, *run)
		}
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && int(limit) < len(runs) {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *memStore) RecordDiscovery(_ context.Context, runID uuid.UUID, discovered, filtered int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("sync run: %w", store.ErrNotFound)
	}
	run.RefsDiscovered = discovered
	run.RefsFiltered = filtered
	return nil
}

func (s *memStore) AttachBatch(_ context.Context, runID, batchID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("sync run: %w", store.ErrNotFound)
	}
	run.BatchID = &batchID
	return nil
}

func (s *memStore) CompleteRun(_ context.Context, params store.CompleteRunParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[params.RunID]
	if !ok {
		return fmt.Errorf("sync run: %w", store.ErrNotFound)
	}
	now := s.now()
	run.Status = params.Status
	run.Counters = params.Counters
	run.ErrorMsg = params.ErrorMsg
	run.CompletedAt = &now
	return nil
}

func (s *memStore) FailOverdueRuns(_ context.Context, repositoryID uuid.UUID, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var failed int64
	for _, run := range s.runs {
		if run.RepositoryID != repositoryID || run.Status != store.RunStatusPending {
			continue
		}
		if run.StartedAt.Before(cutoff) {
			now := s.now()
			run.Status = store.RunStatusFailed
			run.ErrorMsg = "run exceeded time budget"
			run.CompletedAt = &now
			failed++
		}
	}
	return failed, nil
}
