package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/memory"
)

// urlProvider serves generic git URLs. Ref listings and credential checks go
// straight to the remote (ls-remote); file reads require a local bare clone
// materialized by the orchestrator before per-ref work is dispatched.
type urlProvider struct {
	id       string
	cloneURL string
	clones   *CloneManager

	mu   sync.Mutex
	repo *gogit.Repository
}

var (
	_ Provider     = (*urlProvider)(nil)
	_ Materializer = (*urlProvider)(nil)
)

// NewURLProvider returns the provider adapter for a generic git URL. cloneURL
// must already carry credentials (see InjectCredentials).
func NewURLProvider(clones *CloneManager, id, cloneURL string) Provider {
	return &urlProvider{
		id:       id,
		cloneURL: cloneURL,
		clones:   clones,
	}
}

func (p *urlProvider) ListTags(ctx context.Context) ([]Ref, error) {
	return p.listRefs(ctx, RefTag)
}

func (p *urlProvider) ListBranches(ctx context.Context) ([]Ref, error) {
	return p.listRefs(ctx, RefBranch)
}

// listRefs queries the remote's advertised refs without touching the local
// clone. Annotated tags are resolved to their target commit via the peeled
// entries the remote advertises alongside them.
func (p *urlProvider) listRefs(ctx context.Context, kind RefKind) ([]Ref, error) {
	refs, err := p.lsRemote(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	byName := make(map[string]string)
	for _, ref := range refs {
		name := ref.Name().String()
		peeled := strings.HasSuffix(name, "^{}")
		name = strings.TrimSuffix(name, "^{}")

		var short string
		switch kind {
		case RefTag:
			if !strings.HasPrefix(name, "refs/tags/") {
				continue
			}
			short = strings.TrimPrefix(name, "refs/tags/")
		case RefBranch:
			if !strings.HasPrefix(name, "refs/heads/") {
				continue
			}
			short = strings.TrimPrefix(name, "refs/heads/")
		}

		// Peeled entries point at the commit behind an annotated tag
		// and take precedence over the tag object's own hash.
		if _, seen := byName[short]; !seen || peeled {
			byName[short] = ref.Hash().String()
		}
	}

	out := make([]Ref, 0, len(byName))
	for name, hash := range byName {
		out = append(out, Ref{Name: name, Hash: hash, Kind: kind})
	}
	return out, nil
}

func (p *urlProvider) ValidateAccess(ctx context.Context) (bool, error) {
	_, err := p.lsRemote(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
}

func (p *urlProvider) lsRemote(ctx context.Context) ([]*plumbing.Reference, error) {
	remote := gogit.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{p.cloneURL},
	})
	return remote.ListContext(ctx, &gogit.ListOptions{
		PeelingOption: gogit.AppendPeeled,
	})
}

// Materialize creates or fast-forwards the local bare clone.
func (p *urlProvider) Materialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	repo, err := p.clones.Materialize(ctx, p.id, p.cloneURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	p.repo = repo
	return nil
}

// Release drops the in-memory repository handle. The on-disk clone stays for
// fast-forward reuse by the next run.
func (p *urlProvider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.repo != nil {
		slog.Debug("Releasing clone handle", "repository", p.id)
		p.repo = nil
	}
}

func (p *urlProvider) GetFileContent(_ context.Context, ref Ref, path string) ([]byte, error) {
	p.mu.Lock()
	repo := p.repo
	p.mu.Unlock()

	if repo == nil {
		return nil, fmt.Errorf("%w: clone not materialized", ErrProviderUnavailable)
	}

	commit, err := repo.CommitObject(plumbing.NewHash(ref.Hash))
	if err != nil {
		return nil, fmt.Errorf("%w: commit %s: %v", ErrProviderUnavailable, ref.Hash, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("%w: tree for %s: %v", ErrProviderUnavailable, ref.Hash, err)
	}

	file, err := tree.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s at %s", ErrFileNotFound, path, ref.Name)
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return []byte(content), nil
}
