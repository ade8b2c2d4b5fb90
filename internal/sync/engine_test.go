package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricorephp/pricore/internal/git"
	"github.com/pricorephp/pricore/internal/manifest"
	"github.com/pricorephp/pricore/internal/queue"
	"github.com/pricorephp/pricore/internal/store"
	"github.com/pricorephp/pricore/internal/store/inmemory"
	"github.com/pricorephp/pricore/internal/versions"
)

// fakeProvider serves refs and manifests from memory.
type fakeProvider struct {
	tags        []git.Ref
	branches    []git.Ref
	files       map[string][]byte // manifest bytes keyed by ref name
	accessOK    bool
	accessErr   error
	listErr     error
	fetchErr    error
	fetchErrFor map[string]error // per-ref fetch failures
	fetches     atomic.Int64
	release     chan struct{} // when set, fetches block until closed
}

func (p *fakeProvider) ListTags(_ context.Context) ([]git.Ref, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.tags, nil
}

func (p *fakeProvider) ListBranches(_ context.Context) ([]git.Ref, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.branches, nil
}

func (p *fakeProvider) ValidateAccess(_ context.Context) (bool, error) {
	return p.accessOK, p.accessErr
}

func (p *fakeProvider) GetFileContent(ctx context.Context, ref git.Ref, _ string) ([]byte, error) {
	p.fetches.Add(1)
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	if err, ok := p.fetchErrFor[ref.Name]; ok {
		return nil, err
	}
	raw, ok := p.files[ref.Name]
	if !ok {
		return nil, git.ErrFileNotFound
	}
	return raw, nil
}

// fakeFactory hands out a fixed provider for every spec.
type fakeFactory struct {
	provider git.Provider
	err      error
}

func (f *fakeFactory) Create(_ git.Spec) (git.Provider, error) {
	return f.provider, f.err
}

func tag(name, hash string) git.Ref {
	return git.Ref{Name: name, Hash: hash, Kind: git.RefTag}
}

func branch(name, hash string) git.Ref {
	return git.Ref{Name: name, Hash: hash, Kind: git.RefBranch}
}

func newTestEngine(t *testing.T, s store.Store, provider git.Provider) Engine {
	t.Helper()
	engine, err := NewEngine(
		WithStore(s),
		WithProviderFactory(&fakeFactory{provider: provider}),
		WithWorkers(4),
		WithRetrySchedule([]time.Duration{time.Millisecond}),
		WithRunTimeout(30*time.Second),
	)
	require.NoError(t, err)
	return engine
}

func setupRepo(t *testing.T, s store.Store) store.Repository {
	t.Helper()
	repo, err := s.EnsureRepository(context.Background(), store.EnsureRepositoryParams{
		Org:       "acme",
		Name:      "billing",
		Provider:  "URL",
		SourceURL: "https://git.example.com/acme/billing.git",
	})
	require.NoError(t, err)
	return repo
}

const billingManifest = `{"name":"acme/billing","require":{"php":">=8.1"}}`

func TestSyncAddsVersions(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	repo := setupRepo(t, s)
	provider := &fakeProvider{
		accessOK: true,
		tags:     []git.Ref{tag("1.0.0", "abc"), tag("1.1.0", "def")},
		branches: []git.Ref{branch("main", "fff")},
		files: map[string][]byte{
			"1.0.0": []byte(billingManifest),
			"1.1.0": []byte(billingManifest),
			"main":  []byte(billingManifest),
		},
	}

	run, err := newTestEngine(t, s, provider).SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)

	assert.Equal(t, store.RunStatusSuccess, run.Status)
	assert.Equal(t, int64(3), run.Counters.Added)
	assert.Zero(t, run.Counters.Updated)
	assert.Zero(t, run.Counters.Failed)
	assert.Equal(t, int64(3), run.RefsDiscovered)
	require.NotNil(t, run.CompletedAt)
	require.NotNil(t, run.BatchID)

	versions, err := s.ListVersions(context.Background(), repo.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)

	got, err := s.GetRepository(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SyncStatusOK, got.SyncStatus)
	assert.NotNil(t, got.LastSyncedAt)
}

func TestSyncIsIdempotent(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	repo := setupRepo(t, s)
	provider := &fakeProvider{
		accessOK: true,
		tags:     []git.Ref{tag("1.0.0", "abc"), tag("2.0.0", "def")},
		files: map[string][]byte{
			"1.0.0": []byte(billingManifest),
			"2.0.0": []byte(billingManifest),
		},
	}
	engine := newTestEngine(t, s, provider)

	first, err := engine.SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.Counters.Added)

	// Nothing changed on the source side: the second pass writes nothing.
	second, err := engine.SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusSuccess, second.Status)
	assert.Zero(t, second.Counters.Added)
	assert.Zero(t, second.Counters.Updated)
	assert.Zero(t, second.Counters.Removed)
	assert.Equal(t, int64(2), second.Counters.Skipped)
}

func TestSyncSkipsUnchangedAddsNew(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	repo := setupRepo(t, s)
	provider := &fakeProvider{
		accessOK: true,
		tags:     []git.Ref{tag("1.0.0", "abc")},
		files:    map[string][]byte{"1.0.0": []byte(billingManifest)},
	}
	engine := newTestEngine(t, s, provider)

	_, err := engine.SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)

	provider.tags = []git.Ref{tag("1.0.0", "abc"), tag("1.1.0", "def")}
	provider.files["1.1.0"] = []byte(billingManifest)

	run, err := engine.SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), run.Counters.Skipped)
	assert.Equal(t, int64(1), run.Counters.Added)
	assert.Zero(t, run.Counters.Updated)
	assert.Zero(t, run.Counters.Removed)
}

func TestSyncRemovesStaleVersions(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	repo := setupRepo(t, s)
	provider := &fakeProvider{
		accessOK: true,
		tags:     []git.Ref{tag("1.0.0", "abc"), tag("2.0.0", "xyz")},
		files: map[string][]byte{
			"1.0.0": []byte(billingManifest),
			"2.0.0": []byte(billingManifest),
		},
	}
	engine := newTestEngine(t, s, provider)

	_, err := engine.SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)

	// The 1.0.0 tag is deleted upstream.
	provider.tags = []git.Ref{tag("2.0.0", "xyz")}

	run, err := engine.SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), run.Counters.Skipped)
	assert.Equal(t, int64(1), run.Counters.Removed)
	assert.Zero(t, run.Counters.Added)

	versions, err := s.ListVersions(context.Background(), repo.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "2.0.0", versions[0].Version)
}

func TestSyncReapsWhenAllRefsFiltered(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	repo := setupRepo(t, s)
	provider := &fakeProvider{
		accessOK: true,
		tags:     []git.Ref{tag("1.0.0", "abc")},
		files: map[string][]byte{
			"1.0.0": []byte(billingManifest),
		},
	}
	engine := newTestEngine(t, s, provider)

	_, err := engine.SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)

	// Every release tag is deleted upstream; the surviving ref carries no
	// version, so the candidate set is empty but the ref set is not.
	provider.tags = []git.Ref{tag("release-candidate", "def")}

	run, err := engine.SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusSuccess, run.Status)
	assert.Equal(t, int64(1), run.RefsDiscovered)
	assert.Equal(t, int64(1), run.RefsFiltered)
	assert.Equal(t, int64(1), run.Counters.Removed)
	assert.Zero(t, run.Counters.Added)
	assert.Zero(t, run.Counters.Skipped)

	versions, err := s.ListVersions(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestSyncUpdatesMovedBranch(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	repo := setupRepo(t, s)
	provider := &fakeProvider{
		accessOK: true,
		branches: []git.Ref{branch("main", "abc")},
		files:    map[string][]byte{"main": []byte(billingManifest)},
	}
	engine := newTestEngine(t, s, provider)

	_, err := engine.SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)

	// main moves to a new commit: same dev-main version string, new hash.
	provider.branches = []git.Ref{branch("main", "def")}

	run, err := engine.SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), run.Counters.Updated)
	assert.Zero(t, run.Counters.Added)

	versions, err := s.ListVersions(context.Background(), repo.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "dev-main", versions[0].Version)
	assert.Equal(t, "def", versions[0].CommitHash)
}

func TestSyncSkipsRefWithoutManifest(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	repo := setupRepo(t, s)
	provider := &fakeProvider{
		accessOK: true,
		tags:     []git.Ref{tag("1.0.0", "abc")},
		files:    map[string][]byte{}, // no manifest anywhere
	}

	run, err := newTestEngine(t, s, provider).SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusSuccess, run.Status)
	assert.Equal(t, int64(1), run.Counters.Skipped)
	assert.Zero(t, run.Counters.Failed)

	versions, err := s.ListVersions(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestSyncSkipsInvalidManifest(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	repo := setupRepo(t, s)
	provider := &fakeProvider{
		accessOK: true,
		tags:     []git.Ref{tag("1.0.0", "abc")},
		files:    map[string][]byte{"1.0.0": []byte(`{not json`)},
	}

	run, err := newTestEngine(t, s, provider).SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), run.Counters.Skipped)
	assert.Zero(t, run.Counters.Failed)
	// Invalid manifests are terminal, never retried.
	assert.Equal(t, int64(1), provider.fetches.Load())
}

func TestSyncFailsOnAccessDenied(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	repo := setupRepo(t, s)
	provider := &fakeProvider{
		accessOK: false,
		tags:     []git.Ref{tag("1.0.0", "abc")},
		files:    map[string][]byte{"1.0.0": []byte(billingManifest)},
	}

	run, err := newTestEngine(t, s, provider).SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMsg, ReasonAccessDenied)
	// No units dispatched, no counters touched.
	assert.Zero(t, run.Counters.Added+run.Counters.Updated+run.Counters.Skipped+run.Counters.Failed)
	assert.Zero(t, provider.fetches.Load())

	got, err := s.GetRepository(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SyncStatusFailed, got.SyncStatus)
}

func TestSyncFailsOnRefListingFailure(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	repo := setupRepo(t, s)
	provider := &fakeProvider{
		accessOK: true,
		listErr:  errors.New("connection reset"),
	}

	run, err := newTestEngine(t, s, provider).SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMsg, ReasonProviderUnavailable)
}

func TestSyncEmptyRefSetCompletesSuccessfully(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	repo := setupRepo(t, s)
	provider := &fakeProvider{accessOK: true}

	run, err := newTestEngine(t, s, provider).SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusSuccess, run.Status)
	assert.Zero(t, run.Counters.Added+run.Counters.Updated+run.Counters.Skipped+run.Counters.Failed+run.Counters.Removed)
}

func TestSyncNoProgressRule(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		tags       []git.Ref
		files      map[string][]byte
		fetchErrs  map[string]error
		wantStatus store.RunStatus
		wantAdded  int64
		wantFailed int64
	}{
		{
			name:       "all units fail",
			tags:       []git.Ref{tag("1.0.0", "abc"), tag("1.1.0", "def")},
			fetchErrs:  map[string]error{"1.0.0": errors.New("timeout"), "1.1.0": errors.New("timeout")},
			wantStatus: store.RunStatusFailed,
			wantFailed: 2,
		},
		{
			name:       "partial progress is success",
			tags:       []git.Ref{tag("1.0.0", "abc"), tag("1.1.0", "def")},
			files:      map[string][]byte{"1.0.0": []byte(billingManifest)},
			fetchErrs:  map[string]error{"1.1.0": errors.New("timeout")},
			wantStatus: store.RunStatusSuccess,
			wantAdded:  1,
			wantFailed: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := inmemory.New()
			repo := setupRepo(t, s)
			provider := &fakeProvider{
				accessOK:    true,
				tags:        tc.tags,
				files:       tc.files,
				fetchErrFor: tc.fetchErrs,
			}

			run, err := newTestEngine(t, s, provider).SyncNow(context.Background(), repo.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, run.Status)
			assert.Equal(t, tc.wantAdded, run.Counters.Added)
			assert.Equal(t, tc.wantFailed, run.Counters.Failed)
			if tc.wantStatus == store.RunStatusFailed {
				assert.Contains(t, run.ErrorMsg, ReasonNoProgress)
			}
		})
	}
}

func TestSyncNonSemverTagsAreFiltered(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	repo := setupRepo(t, s)
	provider := &fakeProvider{
		accessOK: true,
		tags:     []git.Ref{tag("1.0.0", "abc"), tag("release-candidate", "def")},
		files: map[string][]byte{
			"1.0.0":             []byte(billingManifest),
			"release-candidate": []byte(billingManifest),
		},
	}

	run, err := newTestEngine(t, s, provider).SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), run.RefsDiscovered)
	assert.Equal(t, int64(1), run.RefsFiltered)
	assert.Equal(t, int64(1), run.Counters.Added)
}

func TestSyncVersionCollisionLeavesSingleRow(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	repo := setupRepo(t, s)
	// Two distinct refs computing the same version string: v1.0.0 and 1.0.0.
	provider := &fakeProvider{
		accessOK: true,
		tags:     []git.Ref{tag("1.0.0", "abc"), tag("v1.0.0", "abc")},
		files: map[string][]byte{
			"1.0.0":  []byte(billingManifest),
			"v1.0.0": []byte(billingManifest),
		},
	}

	run, err := newTestEngine(t, s, provider).SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusSuccess, run.Status)
	assert.Equal(t, int64(2), run.Counters.Added+run.Counters.Updated)

	versions, err := s.ListVersions(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestStartSyncSecondRequestIsNoOp(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	repo := setupRepo(t, s)
	release := make(chan struct{})
	provider := &fakeProvider{
		accessOK: true,
		tags:     []git.Ref{tag("1.0.0", "abc")},
		files:    map[string][]byte{"1.0.0": []byte(billingManifest)},
		release:  release,
	}
	engine := newTestEngine(t, s, provider)

	first, started, err := engine.StartSync(context.Background(), repo.ID)
	require.NoError(t, err)
	require.True(t, started)

	// Wait until the background run is actually fetching.
	require.Eventually(t, func() bool {
		return provider.fetches.Load() > 0
	}, 5*time.Second, 5*time.Millisecond)

	second, started, err := engine.StartSync(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, first.ID, second.ID)

	close(release)
	require.Eventually(t, func() bool {
		run, err := s.GetRun(context.Background(), first.ID)
		return err == nil && run.Status != store.RunStatusPending
	}, 5*time.Second, 5*time.Millisecond)
}

func TestSyncRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	repo := setupRepo(t, s)

	var calls atomic.Int64
	provider := &flakyProvider{
		fakeProvider: fakeProvider{
			accessOK: true,
			tags:     []git.Ref{tag("1.0.0", "abc")},
			files:    map[string][]byte{"1.0.0": []byte(billingManifest)},
		},
		failures: 2,
		calls:    &calls,
	}

	engine, err := NewEngine(
		WithStore(s),
		WithProviderFactory(&fakeFactory{provider: provider}),
		WithRetrySchedule([]time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}),
	)
	require.NoError(t, err)

	run, err := engine.SyncNow(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusSuccess, run.Status)
	assert.Equal(t, int64(1), run.Counters.Added)
	assert.Equal(t, int64(3), calls.Load())
}

// flakyProvider fails the first N manifest fetches, then recovers.
type flakyProvider struct {
	fakeProvider
	failures int64
	calls    *atomic.Int64
}

func (p *flakyProvider) GetFileContent(ctx context.Context, ref git.Ref, path string) ([]byte, error) {
	if p.calls.Add(1) <= p.failures {
		return nil, errors.New("transient transport error")
	}
	return p.fakeProvider.GetFileContent(ctx, ref, path)
}

func TestUnitRechecksStoreBeforeWriting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		storedHash  string
		wantSkipped int64
		wantUpdated int64
	}{
		{
			name:        "record already at candidate hash",
			storedHash:  "abc",
			wantSkipped: 1,
		},
		{
			name:        "record behind candidate hash",
			storedHash:  "old",
			wantUpdated: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := inmemory.New()
			repo := setupRepo(t, s)

			// Simulate a write that landed after discovery: the store has
			// the record, but no fingerprint snapshot knows about it.
			_, err := s.WriteVersion(context.Background(), store.WriteVersionParams{
				OrgID:             repo.OrgID,
				RepositoryID:      repo.ID,
				PackageName:       "acme/billing",
				Version:           "1.0.0",
				NormalizedVersion: "0000000001.0000000000.0000000000~",
				Manifest:          []byte(billingManifest),
				CommitHash:        tc.storedHash,
			})
			require.NoError(t, err)

			provider := &fakeProvider{
				files: map[string][]byte{
					"1.0.0": []byte(billingManifest),
				},
			}
			counters := &runCounters{}
			done := make(chan struct{})
			batch := queue.NewBatch(1, func() { close(done) })
			unit := &refUnit{
				repo:         repo,
				cand:         candidate{ref: tag("1.0.0", "abc"), version: "1.0.0"},
				provider:     provider,
				extractor:    manifest.NewExtractor(versions.NewComposerPolicy()),
				versions:     s,
				manifestPath: manifest.DefaultPath,
				counters:     counters,
				batch:        batch,
				schedule:     []time.Duration{time.Millisecond},
				logger:       slog.Default(),
			}

			unit.run(context.Background())
			<-done

			snap := counters.snapshot()
			assert.Equal(t, tc.wantSkipped, snap.Skipped)
			assert.Equal(t, tc.wantUpdated, snap.Updated)
			assert.Zero(t, snap.Added)
			assert.Zero(t, snap.Failed)
		})
	}
}
