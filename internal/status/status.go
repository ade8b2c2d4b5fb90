// Package status defines the read models exposed by the API for repository
// sync health and run history.
package status

import (
	"time"

	"github.com/google/uuid"

	"github.com/pricorephp/pricore/internal/store"
)

// Repository is the API read model for a tracked repository.
type Repository struct {
	ID            uuid.UUID  `json:"id"`
	Organization  string     `json:"organization"`
	Name          string     `json:"name"`
	Provider      string     `json:"provider"`
	SourceURL     string     `json:"source_url"`
	DefaultBranch string     `json:"default_branch,omitempty"`
	SyncStatus    string     `json:"sync_status"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
}

// SyncRun is the API read model for a single sync run.
type SyncRun struct {
	ID             uuid.UUID  `json:"id"`
	RepositoryID   uuid.UUID  `json:"repository_id"`
	Status         string     `json:"status"`
	BatchID        *uuid.UUID `json:"batch_id,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	RefsDiscovered int64      `json:"refs_discovered"`
	RefsFiltered   int64      `json:"refs_filtered"`
	Added          int64      `json:"added"`
	Updated        int64      `json:"updated"`
	Skipped        int64      `json:"skipped"`
	Failed         int64      `json:"failed"`
	Removed        int64      `json:"removed"`
	ErrorMsg       string     `json:"error,omitempty"`
}

// PackageVersion is the API read model for one synced package version.
type PackageVersion struct {
	PackageName       string    `json:"package_name"`
	Version           string    `json:"version"`
	NormalizedVersion string    `json:"normalized_version"`
	CommitHash        string    `json:"commit_hash"`
	ReleasedAt        time.Time `json:"released_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// FromRepository converts a store repository into its read model.
func FromRepository(repo store.Repository) Repository {
	return Repository{
		ID:            repo.ID,
		Organization:  repo.Org,
		Name:          repo.Name,
		Provider:      repo.Provider,
		SourceURL:     repo.SourceURL,
		DefaultBranch: repo.DefaultBranch,
		SyncStatus:    string(repo.SyncStatus),
		LastSyncedAt:  repo.LastSyncedAt,
	}
}

// FromRun converts a store run into its read model.
func FromRun(run store.Run) SyncRun {
	return SyncRun{
		ID:             run.ID,
		RepositoryID:   run.RepositoryID,
		Status:         string(run.Status),
		BatchID:        run.BatchID,
		StartedAt:      run.StartedAt,
		CompletedAt:    run.CompletedAt,
		RefsDiscovered: run.RefsDiscovered,
		RefsFiltered:   run.RefsFiltered,
		Added:          run.Counters.Added,
		Updated:        run.Counters.Updated,
		Skipped:        run.Counters.Skipped,
		Failed:         run.Counters.Failed,
		Removed:        run.Counters.Removed,
		ErrorMsg:       run.ErrorMsg,
	}
}

// FromVersion converts a store version into its read model.
func FromVersion(v store.Version) PackageVersion {
	return PackageVersion{
		PackageName:       v.PackageName,
		Version:           v.Version,
		NormalizedVersion: v.NormalizedVersion,
		CommitHash:        v.CommitHash,
		ReleasedAt:        v.ReleasedAt,
		UpdatedAt:         v.UpdatedAt,
	}
}
