package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pricorephp/pricore/internal/api"
	"github.com/pricorephp/pricore/internal/config"
	"github.com/pricorephp/pricore/internal/credentials"
	"github.com/pricorephp/pricore/internal/db"
	"github.com/pricorephp/pricore/internal/git"
	"github.com/pricorephp/pricore/internal/store"
	pkgsync "github.com/pricorephp/pricore/internal/sync"
	"github.com/pricorephp/pricore/internal/sync/coordinator"
	"github.com/pricorephp/pricore/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the registry server",
	Long: `Start the registry server. The server tracks the repositories declared in
the configuration file, keeps their package versions synchronized, and serves
registry data plus sync-trigger endpoints over HTTP.

The configuration file (--config) specifies the database connection, the sync
policy, and the tracked repositories.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 15 * time.Second
	serverIdleTimeout      = 60 * time.Second
)

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		panic(err)
	}

	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	address := viper.GetString("address")
	configPath := viper.GetString("config")

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	slog.Info("Loaded configuration",
		"path", configPath,
		"repositories", len(cfg.Repositories),
		"workers", cfg.Sync.Workers)

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
	providers := git.NewFactory(clones)
	creds := credentials.NewConfigStore(cfg)

	registry := prometheus.NewRegistry()
	meterProvider, err := telemetry.NewMeterProvider(
		telemetry.WithPrometheusRegistry(registry),
		telemetry.WithMetricsEnabled(true),
	)
	if err != nil {
		return fmt.Errorf("failed to create meter provider: %w", err)
	}
	syncMetrics, err := telemetry.NewSyncMetrics(meterProvider)
	if err != nil {
		return fmt.Errorf("failed to create sync metrics: %w", err)
	}
	httpMetrics, err := telemetry.NewHTTPMetrics(meterProvider)
	if err != nil {
		return fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	engine, err := pkgsync.NewEngine(
		pkgsync.WithStore(s),
		pkgsync.WithProviderFactory(providers),
		pkgsync.WithCredentialStore(creds),
		pkgsync.WithWorkers(int64(cfg.Sync.Workers)),
		pkgsync.WithRunTimeout(cfg.Sync.RunTimeoutDuration()),
		pkgsync.WithManifestPath(cfg.Sync.ManifestPath),
		pkgsync.WithMetrics(syncMetrics),
	)
	if err != nil {
		return fmt.Errorf("failed to create sync engine: %w", err)
	}

	if err := registerRepositories(ctx, s, cfg); err != nil {
		return fmt.Errorf("failed to register repositories: %w", err)
	}

	if interval := cfg.Sync.IntervalDuration(); interval > 0 {
		coord := coordinator.New(engine, s, cfg)
		go func() {
			if err := coord.Start(ctx); err != nil {
				slog.Error("Sync coordinator stopped", "error", err)
			}
		}()
		defer func() {
			if err := coord.Stop(); err != nil {
				slog.Error("Error stopping sync coordinator", "error", err)
			}
		}()
		slog.Info("Background sync coordinator enabled", "interval", interval.String())
	} else {
		slog.Info("Background sync coordinator disabled; syncs run on demand only")
	}

	handler := api.NewServer(engine, s,
		api.WithMetricsRegistry(registry),
		api.WithMiddlewares(httpMetrics.Middleware),
	)

	server := &http.Server{
		Addr:         address,
		Handler:      handler,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting registry server", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("Shutting down registry server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}

// registerRepositories upserts the configured repositories so that webhook and
// manual triggers work even when the background coordinator is disabled.
func registerRepositories(ctx context.Context, s store.Store, cfg *config.Config) error {
	for _, repo := range cfg.Repositories {
		_, err := s.EnsureRepository(ctx, store.EnsureRepositoryParams{
			Org:           repo.Organization,
			Name:          repo.Name,
			Provider:      strings.ToUpper(repo.Provider),
			SourceURL:     repo.URL,
			DefaultBranch: repo.DefaultBranch,
		})
		if err != nil {
			return fmt.Errorf("repository %s/%s: %w", repo.Organization, repo.Name, err)
		}
		slog.Debug("Registered repository",
			"organization", repo.Organization,
			"name", repo.Name,
			"provider", repo.Provider)
	}
	return nil
}
