// Package config provides configuration loading and management for the
// registry sync backend.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ProviderGitHub marks a repository hosted on GitHub.
	ProviderGitHub = "github"

	// ProviderGitLab marks a repository hosted on GitLab.
	ProviderGitLab = "gitlab"

	// ProviderBitbucket marks a repository hosted on Bitbucket.
	ProviderBitbucket = "bitbucket"

	// ProviderURL marks a generic git URL synced through a local clone.
	ProviderURL = "url"
)

// Environment variables used as fallbacks for secrets.
const (
	envDatabasePassword = "PRICORE_DATABASE_PASSWORD"
	envGitPassword      = "PRICORE_GIT_PASSWORD"
)

// Option configures the loader.
type Option func(*loaderConfig) error

type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file.
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config is the root configuration structure.
type Config struct {
	Database     *DatabaseConfig    `yaml:"database"`
	Sync         SyncConfig         `yaml:"sync,omitempty"`
	Repositories []RepositoryConfig `yaml:"repositories,omitempty"`
}

// SyncConfig controls the synchronization engine.
type SyncConfig struct {
	// Workers is the size of the per-ref worker pool.
	Workers int `yaml:"workers,omitempty"`

	// CloneDir is the directory holding local bare clones for url-kind
	// repositories.
	CloneDir string `yaml:"cloneDir,omitempty"`

	// RunTimeout is the wall-clock budget for one orchestration run
	// (e.g. "15m").
	RunTimeout string `yaml:"runTimeout,omitempty"`

	// Interval is how often the background coordinator looks for
	// repositories due for sync (e.g. "10m"). Empty disables the
	// coordinator; webhooks and manual triggers still work.
	Interval string `yaml:"interval,omitempty"`

	// ManifestPath is the manifest file looked up at each ref.
	// Defaults to composer.json.
	ManifestPath string `yaml:"manifestPath,omitempty"`
}

// RepositoryConfig declares a tracked source repository. Rows are upserted
// into the database at startup; credentials stay in configuration and are
// resolved through the credential store.
type RepositoryConfig struct {
	// Name identifies the repository within its organization.
	Name string `yaml:"name"`

	// Organization is the owning organization name.
	Organization string `yaml:"organization"`

	// Provider is one of github, gitlab, bitbucket, url.
	Provider string `yaml:"provider"`

	// URL is the clone URL or provider-specific source identifier.
	URL string `yaml:"url"`

	// DefaultBranch overrides the provider's default branch.
	DefaultBranch string `yaml:"defaultBranch,omitempty"`

	// Auth holds credentials for private sources.
	Auth *AuthConfig `yaml:"auth,omitempty"`
}

// AuthConfig holds git credentials. Tokens go in the password field with the
// provider's conventional username.
type AuthConfig struct {
	Username string `yaml:"username"`

	// Password is the inline password. Prefer PasswordFile in production.
	Password string `yaml:"password,omitempty"`

	// PasswordFile is the path to a file containing the password.
	PasswordFile string `yaml:"passwordFile,omitempty"`
}

// GetPassword resolves the git password with priority:
// file, then PRICORE_GIT_PASSWORD, then the inline value.
func (a *AuthConfig) GetPassword() (string, error) {
	if a.PasswordFile != "" {
		data, err := os.ReadFile(filepath.Clean(a.PasswordFile))
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", a.PasswordFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(envGitPassword); envPassword != "" {
		return envPassword, nil
	}

	return a.Password, nil
}

// DatabaseConfig defines database connection settings.
type DatabaseConfig struct {
	// Host is the database server hostname or IP address.
	Host string `yaml:"host"`

	// Port is the database server port.
	Port int `yaml:"port"`

	// User is the database username.
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password.
	// This is the recommended approach for production deployments.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name.
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection
	// (disable, require, verify-ca, verify-full).
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxConns is the maximum number of pooled connections.
	MaxConns int32 `yaml:"maxConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection
	// (e.g. "1h", "30m").
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from the PRICORE_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		data, err := os.ReadFile(filepath.Clean(d.PasswordFile))
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(envDatabasePassword); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s", envDatabasePassword,
	)
}

// GetConnectionString builds a PostgreSQL connection string. The password is
// URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	), nil
}

// Sync defaults applied by Validate.
const (
	DefaultWorkers      = 8
	DefaultRunTimeout   = 15 * time.Minute
	DefaultManifestPath = "composer.json"
	DefaultCloneDir     = "./data/clones"
)

// LoadConfig loads and parses configuration from a YAML file.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration and fills in sync defaults.
func (c *Config) Validate() error {
	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database port is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Sync.Workers <= 0 {
		c.Sync.Workers = DefaultWorkers
	}
	if c.Sync.CloneDir == "" {
		c.Sync.CloneDir = DefaultCloneDir
	}
	if c.Sync.ManifestPath == "" {
		c.Sync.ManifestPath = DefaultManifestPath
	}
	if c.Sync.RunTimeout != "" {
		if _, err := time.ParseDuration(c.Sync.RunTimeout); err != nil {
			return fmt.Errorf("invalid sync runTimeout: %w", err)
		}
	}
	if c.Sync.Interval != "" {
		if _, err := time.ParseDuration(c.Sync.Interval); err != nil {
			return fmt.Errorf("invalid sync interval: %w", err)
		}
	}

	seen := make(map[string]struct{}, len(c.Repositories))
	for i := range c.Repositories {
		repo := &c.Repositories[i]
		if repo.Name == "" {
			return fmt.Errorf("repository at index %d has no name", i)
		}
		if repo.Organization == "" {
			return fmt.Errorf("repository %s has no organization", repo.Name)
		}
		if repo.URL == "" {
			return fmt.Errorf("repository %s has no url", repo.Name)
		}
		switch repo.Provider {
		case ProviderGitHub, ProviderGitLab, ProviderBitbucket, ProviderURL:
		default:
			return fmt.Errorf("repository %s has unsupported provider %q", repo.Name, repo.Provider)
		}
		key := repo.Organization + "/" + repo.Name
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate repository %s", key)
		}
		seen[key] = struct{}{}
	}

	return nil
}

// RunTimeoutDuration returns the parsed run timeout or the default.
func (s *SyncConfig) RunTimeoutDuration() time.Duration {
	if s.RunTimeout == "" {
		return DefaultRunTimeout
	}
	d, err := time.ParseDuration(s.RunTimeout)
	if err != nil {
		return DefaultRunTimeout
	}
	return d
}

// IntervalDuration returns the parsed coordinator interval; zero disables the
// coordinator.
func (s *SyncConfig) IntervalDuration() time.Duration {
	if s.Interval == "" {
		return 0
	}
	d, err := time.ParseDuration(s.Interval)
	if err != nil {
		return 0
	}
	return d
}
