package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/pricorephp/pricore/internal/config"
	"github.com/pricorephp/pricore/internal/store"
	pkgsync "github.com/pricorephp/pricore/internal/sync"
)

const (
	// defaultPollingInterval is the base interval between due-repository checks
	defaultPollingInterval = 2 * time.Minute
	// pollingJitter is the maximum random offset applied to the polling interval
	pollingJitter = 30 * time.Second
)

// Coordinator schedules background sync runs for all tracked repositories.
type Coordinator interface {
	// Start begins the background sync loop. Blocks until the context is
	// cancelled.
	Start(ctx context.Context) error

	// Stop gracefully stops the coordinator.
	Stop() error
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	engine   pkgsync.Engine
	store    store.Store
	config   *config.Config
	interval time.Duration
	logger   *slog.Logger

	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithPollingInterval overrides the base polling interval.
func WithPollingInterval(interval time.Duration) Option {
	return func(c *defaultCoordinator) {
		c.interval = interval
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *defaultCoordinator) {
		c.logger = logger
	}
}

// New creates a new coordinator with injected dependencies
func New(engine pkgsync.Engine, s store.Store, cfg *config.Config, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		engine:   engine,
		store:    s,
		config:   cfg,
		interval: defaultPollingInterval,
		logger:   slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// calculatePollingInterval returns the base interval with a random jitter so
// that multiple instances do not hit the database simultaneously.
func (c *defaultCoordinator) calculatePollingInterval() time.Duration {
	//nolint:gosec // G404: non-cryptographic randomness is fine for jitter
	jitterOffset := time.Duration(rand.Int64N(int64(2*pollingJitter))) - pollingJitter
	if c.interval <= pollingJitter {
		return c.interval
	}
	return c.interval + jitterOffset
}

// Start begins the background sync loop
func (c *defaultCoordinator) Start(ctx context.Context) error {
	c.logger.Info("starting sync coordinator", "repository_count", len(c.config.Repositories))

	coordCtx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel
	defer func() {
		close(c.done)
		c.logger.Info("sync coordinator shut down")
	}()

	// Register configured repositories up front so the first tick already
	// sees them as due.
	if err := c.registerRepositories(coordCtx); err != nil {
		return fmt.Errorf("failed to register repositories: %w", err)
	}

	// Sync everything once at startup rather than waiting a full interval.
	c.syncDueRepositories(coordCtx)

	ticker := time.NewTicker(c.calculatePollingInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.syncDueRepositories(coordCtx)
			ticker.Reset(c.calculatePollingInterval())
		case <-coordCtx.Done():
			c.logger.Info("sync coordinator stopping")
			return nil
		}
	}
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	if c.cancelFunc != nil {
		c.logger.Info("stopping sync coordinator")
		c.cancelFunc()
		<-c.done
	}
	return nil
}

// registerRepositories upserts every configured repository into the catalog.
func (c *defaultCoordinator) registerRepositories(ctx context.Context) error {
	for _, repoCfg := range c.config.Repositories {
		_, err := c.store.EnsureRepository(ctx, store.EnsureRepositoryParams{
			Org:           repoCfg.Organization,
			Name:          repoCfg.Name,
			Provider:      providerEnum(repoCfg.Provider),
			SourceURL:     repoCfg.URL,
			DefaultBranch: repoCfg.DefaultBranch,
		})
		if err != nil {
			return fmt.Errorf("repository %s/%s: %w", repoCfg.Organization, repoCfg.Name, err)
		}
	}
	return nil
}

// syncDueRepositories runs the engine for every repository whose last sync is
// older than the configured sync interval.
func (c *defaultCoordinator) syncDueRepositories(ctx context.Context) {
	cutoff := time.Now().Add(-c.config.Sync.IntervalDuration())
	due, err := c.store.ListRepositoriesDueForSync(ctx, cutoff)
	if err != nil {
		c.logger.Error("failed to list repositories due for sync", "error", err)
		return
	}

	for _, repo := range due {
		if ctx.Err() != nil {
			return
		}
		run, err := c.engine.SyncNow(ctx, repo.ID)
		if err != nil {
			c.logger.Error("sync failed",
				"org", repo.Org, "repository", repo.Name, "error", err)
			continue
		}
		c.logger.Debug("scheduled sync finished",
			"org", repo.Org, "repository", repo.Name, "run_id", run.ID, "status", run.Status)
	}
}
