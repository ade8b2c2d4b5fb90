package coordinator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricorephp/pricore/internal/config"
	"github.com/pricorephp/pricore/internal/store"
	"github.com/pricorephp/pricore/internal/store/inmemory"
)

// fakeEngine records sync requests without doing any work.
type fakeEngine struct {
	synced atomic.Int64
}

func (e *fakeEngine) StartSync(_ context.Context, _ uuid.UUID) (store.Run, bool, error) {
	e.synced.Add(1)
	return store.Run{ID: uuid.New()}, true, nil
}

func (e *fakeEngine) SyncNow(_ context.Context, _ uuid.UUID) (store.Run, error) {
	e.synced.Add(1)
	return store.Run{ID: uuid.New(), Status: store.RunStatusSuccess}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Sync: config.SyncConfig{Interval: "1h"},
		Repositories: []config.RepositoryConfig{
			{
				Name:         "billing",
				Organization: "acme",
				Provider:     "url",
				URL:          "https://git.example.com/acme/billing.git",
			},
			{
				Name:         "invoicing",
				Organization: "acme",
				Provider:     "url",
				URL:          "https://git.example.com/acme/invoicing.git",
			},
		},
	}
}

func TestCoordinatorRegistersAndSyncsOnStartup(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	engine := &fakeEngine{}
	c := New(engine, s, testConfig(), WithPollingInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan error, 1)
	go func() { started <- c.Start(ctx) }()

	// Both repositories are registered and synced by the startup pass.
	require.Eventually(t, func() bool {
		return engine.synced.Load() == 2
	}, 5*time.Second, 5*time.Millisecond)

	repos, err := s.ListRepositories(context.Background())
	require.NoError(t, err)
	assert.Len(t, repos, 2)

	cancel()
	require.NoError(t, <-started)
}

func TestCoordinatorSkipsRecentlySynced(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	repo, err := s.EnsureRepository(context.Background(), store.EnsureRepositoryParams{
		Org:       "acme",
		Name:      "billing",
		Provider:  "URL",
		SourceURL: "https://git.example.com/acme/billing.git",
	})
	require.NoError(t, err)
	// Mark it freshly synced; the startup pass must leave it alone.
	require.NoError(t, s.UpdateRepositorySyncState(
		context.Background(), repo.ID, store.SyncStatusOK, time.Now()))

	cfg := testConfig()
	cfg.Repositories = cfg.Repositories[:1]

	engine := &fakeEngine{}
	c := New(engine, s, cfg, WithPollingInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, engine.synced.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestCoordinatorStop(t *testing.T) {
	t.Parallel()

	s := inmemory.New()
	c := New(&fakeEngine{}, s, &config.Config{Sync: config.SyncConfig{Interval: "1h"}})

	go func() { _ = c.Start(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, c.Stop())
}
