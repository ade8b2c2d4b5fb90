package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRepo is a local source repository the provider under test syncs from.
type testRepo struct {
	t    *testing.T
	path string
	repo *gogit.Repository
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()

	path := t.TempDir()
	repo, err := gogit.PlainInit(path, false)
	require.NoError(t, err)

	return &testRepo{t: t, path: path, repo: repo}
}

func (r *testRepo) commitFile(name, content, message string) string {
	r.t.Helper()

	require.NoError(r.t, os.WriteFile(filepath.Join(r.path, name), []byte(content), 0o600))

	wt, err := r.repo.Worktree()
	require.NoError(r.t, err)
	_, err = wt.Add(name)
	require.NoError(r.t, err)

	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(r.t, err)
	return hash.String()
}

func (r *testRepo) tag(name, hash string) {
	r.t.Helper()

	_, err := r.repo.CreateTag(name, plumbing.NewHash(hash), nil)
	require.NoError(r.t, err)
}

func (r *testRepo) branch(name, hash string) {
	r.t.Helper()

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), plumbing.NewHash(hash))
	require.NoError(r.t, r.repo.Storer.SetReference(ref))
}

func newTestProvider(t *testing.T, src *testRepo) Provider {
	t.Helper()

	clones, err := NewCloneManager(t.TempDir())
	require.NoError(t, err)
	return NewURLProvider(clones, "test-repo", src.path)
}

func TestURLProviderListRefs(t *testing.T) {
	t.Parallel()

	src := newTestRepo(t)
	first := src.commitFile("composer.json", `{"name": "acme/widget"}`, "initial")
	src.tag("1.0.0", first)
	second := src.commitFile("README.md", "# widget", "docs")
	src.tag("1.1.0", second)
	src.branch("develop", second)

	provider := newTestProvider(t, src)
	ctx := context.Background()

	tags, err := provider.ListTags(ctx)
	require.NoError(t, err)
	byName := make(map[string]Ref)
	for _, ref := range tags {
		byName[ref.Name] = ref
	}
	require.Len(t, tags, 2)
	assert.Equal(t, first, byName["1.0.0"].Hash)
	assert.Equal(t, second, byName["1.1.0"].Hash)
	assert.Equal(t, RefTag, byName["1.0.0"].Kind)

	branches, err := provider.ListBranches(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(branches))
	for _, ref := range branches {
		names = append(names, ref.Name)
	}
	assert.Contains(t, names, "develop")
}

func TestURLProviderValidateAccess(t *testing.T) {
	t.Parallel()

	src := newTestRepo(t)
	src.commitFile("composer.json", `{"name": "acme/widget"}`, "initial")

	provider := newTestProvider(t, src)
	ok, err := provider.ValidateAccess(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestURLProviderValidateAccessUnreachable(t *testing.T) {
	t.Parallel()

	clones, err := NewCloneManager(t.TempDir())
	require.NoError(t, err)
	provider := NewURLProvider(clones, "missing", filepath.Join(t.TempDir(), "does-not-exist"))

	ok, err := provider.ValidateAccess(context.Background())
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestURLProviderGetFileContent(t *testing.T) {
	t.Parallel()

	src := newTestRepo(t)
	hash := src.commitFile("composer.json", `{"name": "acme/widget"}`, "initial")
	src.tag("1.0.0", hash)

	provider := newTestProvider(t, src)
	ctx := context.Background()
	ref := Ref{Name: "1.0.0", Hash: hash, Kind: RefTag}

	// File reads need the local clone first.
	_, err := provider.GetFileContent(ctx, ref, "composer.json")
	require.ErrorIs(t, err, ErrProviderUnavailable)

	materializer, ok := provider.(Materializer)
	require.True(t, ok)
	require.NoError(t, materializer.Materialize(ctx))

	content, err := provider.GetFileContent(ctx, ref, "composer.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "acme/widget"}`, string(content))

	_, err = provider.GetFileContent(ctx, ref, "missing.json")
	require.ErrorIs(t, err, ErrFileNotFound)

	materializer.Release()
}

func TestURLProviderFastForward(t *testing.T) {
	t.Parallel()

	src := newTestRepo(t)
	first := src.commitFile("composer.json", `{"name": "acme/widget"}`, "initial")
	src.tag("1.0.0", first)

	provider := newTestProvider(t, src)
	ctx := context.Background()

	materializer := provider.(Materializer)
	require.NoError(t, materializer.Materialize(ctx))

	// New work appears on the source after the first materialization.
	second := src.commitFile("composer.json", `{"name": "acme/widget", "license": "MIT"}`, "license")
	src.tag("1.1.0", second)

	require.NoError(t, materializer.Materialize(ctx))

	content, err := provider.GetFileContent(ctx, Ref{Name: "1.1.0", Hash: second, Kind: RefTag}, "composer.json")
	require.NoError(t, err)
	assert.Contains(t, string(content), "MIT")
}

func TestFactory(t *testing.T) {
	t.Parallel()

	clones, err := NewCloneManager(t.TempDir())
	require.NoError(t, err)
	factory := NewFactory(clones)

	provider, err := factory.Create(Spec{Kind: KindURL, RepositoryID: "r1", SourceURL: "https://example.com/r.git"})
	require.NoError(t, err)
	assert.NotNil(t, provider)

	_, err = factory.Create(Spec{Kind: KindGitHub, RepositoryID: "r2", SourceURL: "https://github.com/a/b.git"})
	require.Error(t, err)

	factory.Register(KindGitHub, func(Spec) (Provider, error) { return provider, nil })
	got, err := factory.Create(Spec{Kind: KindGitHub})
	require.NoError(t, err)
	assert.Same(t, provider, got)
}
