// Package credentials resolves git credentials for configured repositories.
package credentials

import (
	"fmt"

	"github.com/pricorephp/pricore/internal/config"
)

// Credentials is a username and password pair for git over HTTP.
type Credentials struct {
	Username string
	Password string
}

// Store resolves credentials for a repository by its source URL. An empty
// Credentials value means the repository is accessed anonymously.
type Store interface {
	Resolve(sourceURL string) (Credentials, error)
}

// configStore resolves credentials from the loaded configuration file.
type configStore struct {
	byURL map[string]*config.AuthConfig
}

// NewConfigStore builds a credential store from the configured repositories.
func NewConfigStore(cfg *config.Config) Store {
	byURL := make(map[string]*config.AuthConfig, len(cfg.Repositories))
	for i := range cfg.Repositories {
		repo := &cfg.Repositories[i]
		if repo.Auth != nil {
			byURL[repo.URL] = repo.Auth
		}
	}
	return &configStore{byURL: byURL}
}

func (s *configStore) Resolve(sourceURL string) (Credentials, error) {
	auth, ok := s.byURL[sourceURL]
	if !ok {
		return Credentials{}, nil
	}
	password, err := auth.GetPassword()
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to resolve password for %s: %w", sourceURL, err)
	}
	return Credentials{Username: auth.Username, Password: password}, nil
}
