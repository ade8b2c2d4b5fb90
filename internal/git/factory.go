package git

import (
	"fmt"
)

// Spec carries everything the factory needs to build a provider adapter for
// one repository.
type Spec struct {
	Kind         ProviderKind
	RepositoryID string
	SourceURL    string
	Username     string
	Password     string
}

// Constructor builds a Provider for one provider kind.
type Constructor func(spec Spec) (Provider, error)

// Factory selects the provider adapter implementation from a repository's
// declared provider kind.
type Factory interface {
	Create(spec Spec) (Provider, error)
}

type defaultFactory struct {
	ctors map[ProviderKind]Constructor
}

// NewFactory returns a factory with the generic-URL adapter built in. Hosted
// provider adapters (github, gitlab, bitbucket) are registered by the caller;
// they wrap provider-specific API clients that live outside this package.
func NewFactory(clones *CloneManager) *defaultFactory {
	f := &defaultFactory{ctors: make(map[ProviderKind]Constructor)}
	f.Register(KindURL, func(spec Spec) (Provider, error) {
		authURL, err := InjectCredentials(spec.SourceURL, spec.Username, spec.Password)
		if err != nil {
			return nil, err
		}
		return NewURLProvider(clones, spec.RepositoryID, authURL), nil
	})
	return f
}

// Register installs the constructor for a provider kind, replacing any
// previous registration.
func (f *defaultFactory) Register(kind ProviderKind, ctor Constructor) {
	f.ctors[kind] = ctor
}

// Create builds the adapter for the spec's provider kind.
func (f *defaultFactory) Create(spec Spec) (Provider, error) {
	ctor, ok := f.ctors[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("unsupported provider kind: %s", spec.Kind)
	}
	return ctor(spec)
}
