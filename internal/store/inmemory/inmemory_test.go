package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricorephp/pricore/internal/store"
)

func setupRepository(t *testing.T, s store.Store) store.Repository {
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

func TestEnsureRepository(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		scenarioFunc func(t *testing.T, s store.Store)
	}{
		{
			name: "same org and name returns same record",
			scenarioFunc: func(t *testing.T, s store.Store) {
				first := setupRepository(t, s)
				second, err := s.EnsureRepository(context.Background(), store.EnsureRepositoryParams{
					Org:       "acme",
					Name:      "billing",
					Provider:  "URL",
					SourceURL: "https://git.example.com/acme/billing-moved.git",
				})
				require.NoError(t, err)
				assert.Equal(t, first.ID, second.ID)
				assert.Equal(t, "https://git.example.com/acme/billing-moved.git", second.SourceURL)
			},
		},
		{
			name: "different name in same org creates new record",
			scenarioFunc: func(t *testing.T, s store.Store) {
				first := setupRepository(t, s)
				second, err := s.EnsureRepository(context.Background(), store.EnsureRepositoryParams{
					Org:       "acme",
					Name:      "invoicing",
					Provider:  "URL",
					SourceURL: "https://git.example.com/acme/invoicing.git",
				})
				require.NoError(t, err)
				assert.NotEqual(t, first.ID, second.ID)
				assert.Equal(t, first.OrgID, second.OrgID)
			},
		},
		{
			name: "lookup by source url",
			scenarioFunc: func(t *testing.T, s store.Store) {
				repo := setupRepository(t, s)
				found, err := s.GetRepositoryBySourceURL(context.Background(), repo.SourceURL)
				require.NoError(t, err)
				assert.Equal(t, repo.ID, found.ID)

				_, err = s.GetRepositoryBySourceURL(context.Background(), "https://git.example.com/nope.git")
				assert.ErrorIs(t, err, store.ErrNotFound)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tc.scenarioFunc(t, New())
		})
	}
}

func TestWriteVersion(t *testing.T) {
	t.Parallel()

	s := New()
	repo := setupRepository(t, s)

	params := store.WriteVersionParams{
		OrgID:             repo.OrgID,
		RepositoryID:      repo.ID,
		PackageName:       "acme/billing",
		Version:           "1.0.0",
		NormalizedVersion: "0000000001.0000000000.0000000000",
		Manifest:          []byte(`{"name":"acme/billing"}`),
		CommitHash:        "aaa",
	}

	outcome, err := s.WriteVersion(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, store.OutcomeAdded, outcome)

	params.CommitHash = "bbb"
	outcome, err = s.WriteVersion(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, store.OutcomeUpdated, outcome)

	fingerprints, err := s.VersionFingerprints(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1.0.0": "bbb"}, fingerprints)

	versions, err := s.ListVersions(context.Background(), repo.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "acme/billing", versions[0].PackageName)
}

func TestGetVersion(t *testing.T) {
	t.Parallel()

	s := New()
	repo := setupRepository(t, s)

	_, err := s.WriteVersion(context.Background(), store.WriteVersionParams{
		OrgID:             repo.OrgID,
		RepositoryID:      repo.ID,
		PackageName:       "acme/billing",
		Version:           "1.0.0",
		NormalizedVersion: "0000000001.0000000000.0000000000",
		Manifest:          []byte(`{"name":"acme/billing"}`),
		CommitHash:        "aaa",
	})
	require.NoError(t, err)

	got, err := s.GetVersion(context.Background(), repo.OrgID, "acme/billing", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "aaa", got.CommitHash)

	_, err = s.GetVersion(context.Background(), repo.OrgID, "acme/billing", "2.0.0")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetVersion(context.Background(), repo.OrgID, "acme/other", "1.0.0")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRemoveVersionsNotIn(t *testing.T) {
	t.Parallel()

	s := New()
	repo := setupRepository(t, s)

	for _, v := range []string{"1.0.0", "1.1.0", "dev-main"} {
		_, err := s.WriteVersion(context.Background(), store.WriteVersionParams{
			OrgID:             repo.OrgID,
			RepositoryID:      repo.ID,
			PackageName:       "acme/billing",
			Version:           v,
			NormalizedVersion: v,
			Manifest:          []byte(`{}`),
			CommitHash:        "aaa",
		})
		require.NoError(t, err)
	}

	removed, err := s.RemoveVersionsNotIn(context.Background(), repo.ID, []string{"1.1.0", "dev-main"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	fingerprints, err := s.VersionFingerprints(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.NotContains(t, fingerprints, "1.0.0")
	assert.Len(t, fingerprints, 2)
}

func TestBeginRun(t *testing.T) {
	t.Parallel()

	s := New()
	repo := setupRepository(t, s)

	first, started, err := s.BeginRun(context.Background(), repo.ID)
	require.NoError(t, err)
	require.True(t, started)
	assert.Equal(t, store.RunStatusPending, first.Status)

	// A second start while the first run is pending is a no-op and
	// surfaces the active run.
	second, started, err := s.BeginRun(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, first.ID, second.ID)

	err = s.CompleteRun(context.Background(), store.CompleteRunParams{
		RunID:    first.ID,
		Status:   store.RunStatusSuccess,
		Counters: store.RunCounters{Added: 3},
	})
	require.NoError(t, err)

	third, started, err := s.BeginRun(context.Background(), repo.ID)
	require.NoError(t, err)
	assert.True(t, started)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestFailOverdueRuns(t *testing.T) {
	t.Parallel()

	s := New()
	repo := setupRepository(t, s)

	run, started, err := s.BeginRun(context.Background(), repo.ID)
	require.NoError(t, err)
	require.True(t, started)

	// A cutoff before the run started leaves it alone.
	failed, err := s.FailOverdueRuns(context.Background(), repo.ID, run.StartedAt.Add(-time.Minute))
	require.NoError(t, err)
	assert.Zero(t, failed)

	failed, err = s.FailOverdueRuns(context.Background(), repo.ID, run.StartedAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), failed)

	got, err := s.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusFailed, got.Status)
	assert.NotNil(t, got.CompletedAt)
}
