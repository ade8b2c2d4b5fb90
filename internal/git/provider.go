// Package git contains the provider adapter contract the sync engine uses to
// talk to source-control hosts, plus the generic-URL implementation backed by
// a local bare clone.
package git

import (
	"context"
	"errors"
)

// ProviderKind identifies which adapter implementation serves a repository.
type ProviderKind string

const (
	// KindGitHub is a repository hosted on GitHub.
	KindGitHub ProviderKind = "github"

	// KindGitLab is a repository hosted on GitLab.
	KindGitLab ProviderKind = "gitlab"

	// KindBitbucket is a repository hosted on Bitbucket.
	KindBitbucket ProviderKind = "bitbucket"

	// KindURL is a generic git URL synced through a local bare clone.
	KindURL ProviderKind = "url"
)

// RefKind distinguishes tags from branches.
type RefKind string

const (
	// RefTag is a tag ref.
	RefTag RefKind = "tag"

	// RefBranch is a branch ref.
	RefBranch RefKind = "branch"
)

// Ref is a named pointer in the source repository and the commit it currently
// resolves to. Refs are discovered fresh on every sync pass.
type Ref struct {
	Name string
	Hash string
	Kind RefKind
}

// ErrProviderUnavailable indicates a transport or host failure while talking
// to the provider. Ref listings must never be partial: callers get either the
// full list or this error.
var ErrProviderUnavailable = errors.New("git provider unavailable")

// ErrFileNotFound indicates the requested path does not exist at the ref.
// This is the normal outcome for refs without a manifest, not a failure.
var ErrFileNotFound = errors.New("file not found at ref")

// Provider is the capability surface the sync engine needs from a source
// host, regardless of the concrete provider.
type Provider interface {
	// ListTags returns every tag ref. Fails with ErrProviderUnavailable on
	// transport or auth failure.
	ListTags(ctx context.Context) ([]Ref, error)

	// ListBranches returns every branch ref. Same failure contract as
	// ListTags.
	ListBranches(ctx context.Context) ([]Ref, error)

	// ValidateAccess checks that the stored credentials still grant access.
	// A false result is fatal for the run; err reports transport failure.
	ValidateAccess(ctx context.Context) (bool, error)

	// GetFileContent returns the raw content of path at ref, or
	// ErrFileNotFound when the path does not exist at that ref.
	GetFileContent(ctx context.Context, ref Ref, path string) ([]byte, error)
}

// Materializer is implemented by providers that stage a local clone before
// file content can be read. The orchestrator materializes before dispatching
// per-ref work and releases in the completion step.
type Materializer interface {
	// Materialize creates or fast-forwards the local clone.
	Materialize(ctx context.Context) error

	// Release drops the in-memory handle on the clone. The on-disk
	// directory is kept so the next run can fast-forward instead of
	// re-cloning; it is disposable and recreated if lost.
	Release()
}
