package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
)

// CloneManager owns the directory of local bare clones used by generic-URL
// repositories. Clones are working state: kept between runs so syncs can
// fast-forward, but safe to delete at any time.
type CloneManager struct {
	root string
}

// NewCloneManager returns a CloneManager rooted at dir, creating it if
// needed.
func NewCloneManager(dir string) (*CloneManager, error) {
	if dir == "" {
		return nil, fmt.Errorf("clone directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create clone directory: %w", err)
	}
	return &CloneManager{root: dir}, nil
}

// Materialize opens the bare mirror clone for id, creating it from cloneURL
// on first use and fetching (with prune) on subsequent calls so deleted
// remote refs disappear locally too.
func (m *CloneManager) Materialize(ctx context.Context, id, cloneURL string) (*gogit.Repository, error) {
	path := m.path(id)

	if _, err := os.Stat(path); err == nil {
		repo, err := gogit.PlainOpen(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open clone %s: %w", path, err)
		}
		err = repo.FetchContext(ctx, &gogit.FetchOptions{
			RemoteName: "origin",
			Prune:      true,
			Force:      true,
			Tags:       gogit.AllTags,
		})
		if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
			return nil, fmt.Errorf("failed to fetch clone %s: %w", path, err)
		}
		return repo, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat clone path %s: %w", path, err)
	}

	repo, err := gogit.PlainCloneContext(ctx, path, true, &gogit.CloneOptions{
		URL:    cloneURL,
		Mirror: true,
	})
	if err != nil {
		// A failed first clone can leave a partial directory behind.
		_ = os.RemoveAll(path)
		return nil, fmt.Errorf("failed to clone %s: %w", cloneURL, err)
	}
	return repo, nil
}

// Remove deletes the clone directory for id. Missing directories are not an
// error.
func (m *CloneManager) Remove(id string) error {
	return os.RemoveAll(m.path(id))
}

func (m *CloneManager) path(id string) string {
	return filepath.Join(m.root, id+".git")
}
