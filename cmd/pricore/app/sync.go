package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pricorephp/pricore/internal/config"
	"github.com/pricorephp/pricore/internal/credentials"
	"github.com/pricorephp/pricore/internal/db"
	"github.com/pricorephp/pricore/internal/git"
	"github.com/pricorephp/pricore/internal/store"
	pkgsync "github.com/pricorephp/pricore/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync <organization>/<name>",
	Short: "Synchronize a single repository and wait for the result",
	Long: `Run one complete synchronization for a tracked repository and print the
outcome. The repository is addressed as <organization>/<name> from the
configuration file, by id with --repository, or by clone URL with --url.

Examples:
  pricore sync acme/billing --config config.yaml
  pricore sync --repository 6b911bf1-d6b7-49e6-9a45-37b2e01dd87e --config config.yaml
  pricore sync --url https://github.com/acme/billing.git --config config.yaml`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	syncCmd.Flags().String("repository", "", "Resolve the repository by id instead of organization/name")
	syncCmd.Flags().String("url", "", "Resolve the repository by clone URL instead of organization/name")

	if err := syncCmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	repositoryID, err := cmd.Flags().GetString("repository")
	if err != nil {
		return fmt.Errorf("failed to get repository flag: %w", err)
	}
	sourceURL, err := cmd.Flags().GetString("url")
	if err != nil {
		return fmt.Errorf("failed to get url flag: %w", err)
	}
	if repositoryID == "" && sourceURL == "" && len(args) != 1 {
		return fmt.Errorf("expected <organization>/<name> argument, --repository or --url")
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	s, err := store.NewDBStore(store.WithConnectionPool(pool))
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	clones, err := git.NewCloneManager(cfg.Sync.CloneDir)
	if err != nil {
		return fmt.Errorf("failed to create clone manager: %w", err)
	}

	engine, err := pkgsync.NewEngine(
		pkgsync.WithStore(s),
		pkgsync.WithProviderFactory(git.NewFactory(clones)),
		pkgsync.WithCredentialStore(credentials.NewConfigStore(cfg)),
		pkgsync.WithWorkers(int64(cfg.Sync.Workers)),
		pkgsync.WithRunTimeout(cfg.Sync.RunTimeoutDuration()),
		pkgsync.WithManifestPath(cfg.Sync.ManifestPath),
	)
	if err != nil {
		return fmt.Errorf("failed to create sync engine: %w", err)
	}

	if err := registerRepositories(ctx, s, cfg); err != nil {
		return fmt.Errorf("failed to register repositories: %w", err)
	}

	repo, err := resolveRepository(ctx, s, cfg, repositoryID, sourceURL, args)
	if err != nil {
		return err
	}

	slog.Info("Starting sync", "organization", repo.Org, "repository", repo.Name)
	run, err := engine.SyncNow(ctx, repo.ID)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	slog.Info("Sync finished",
		"run_id", run.ID,
		"status", string(run.Status),
		"refs_discovered", run.RefsDiscovered,
		"added", run.Counters.Added,
		"updated", run.Counters.Updated,
		"skipped", run.Counters.Skipped,
		"failed", run.Counters.Failed,
		"removed", run.Counters.Removed)

	if run.Status == store.RunStatusFailed {
		return fmt.Errorf("sync run %s failed: %s", run.ID, run.ErrorMsg)
	}
	return nil
}

// resolveRepository finds the target repository by id, by clone URL, or by
// the organization/name pair from the configuration.
func resolveRepository(
	ctx context.Context, s store.Store, cfg *config.Config, repositoryID, sourceURL string, args []string,
) (store.Repository, error) {
	if repositoryID != "" {
		id, err := uuid.Parse(repositoryID)
		if err != nil {
			return store.Repository{}, fmt.Errorf("invalid repository id %q: %w", repositoryID, err)
		}
		repo, err := s.GetRepository(ctx, id)
		if err != nil {
			return store.Repository{}, fmt.Errorf("repository %s is not tracked: %w", repositoryID, err)
		}
		return repo, nil
	}

	if sourceURL != "" {
		repo, err := s.GetRepositoryBySourceURL(ctx, sourceURL)
		if err != nil {
			return store.Repository{}, fmt.Errorf("repository with url %s is not tracked: %w", sourceURL, err)
		}
		return repo, nil
	}

	org, name, ok := strings.Cut(args[0], "/")
	if !ok || org == "" || name == "" {
		return store.Repository{}, fmt.Errorf("invalid repository %q, expected <organization>/<name>", args[0])
	}

	for _, repoCfg := range cfg.Repositories {
		if repoCfg.Organization == org && repoCfg.Name == name {
			return s.GetRepositoryBySourceURL(ctx, repoCfg.URL)
		}
	}
	return store.Repository{}, fmt.Errorf("repository %s/%s is not in the configuration", org, name)
}
