// Package manifest extracts package metadata from manifest files found at
// source refs.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pricorephp/pricore/internal/versions"
)

// DefaultPath is the manifest file looked up at each ref.
const DefaultPath = "composer.json"

// ErrInvalid indicates the manifest could not be parsed or lacks required
// fields. It is terminal for the ref being processed, never retried: a
// malformed manifest will not become valid on retry.
var ErrInvalid = errors.New("invalid manifest")

// Metadata is the normalized package identity extracted from one manifest.
type Metadata struct {
	// Name is the package name as declared in the manifest.
	Name string

	// Version is the version string derived from the ref the manifest was
	// found at (tag name, or dev-<branch> for branches).
	Version string

	// NormalizedVersion is the sortable form of Version.
	NormalizedVersion string

	// Payload is the full manifest document.
	Payload json.RawMessage
}

// Extractor parses manifest bytes into Metadata.
type Extractor interface {
	Extract(raw []byte, version string) (*Metadata, error)
}

type composerExtractor struct {
	policy versions.Policy
}

// NewExtractor returns an Extractor for composer-style JSON manifests using
// the given version policy.
func NewExtractor(policy versions.Policy) Extractor {
	return &composerExtractor{policy: policy}
}

// Extract parses the manifest and returns the package identity for the given
// version string. Parse failures and missing package names wrap ErrInvalid.
func (e *composerExtractor) Extract(raw []byte, version string) (*Metadata, error) {
	var doc struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("%w: missing package name", ErrInvalid)
	}

	normalized, err := e.policy.Normalize(version)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	return &Metadata{
		Name:              doc.Name,
		Version:           version,
		NormalizedVersion: normalized,
		Payload:           json.RawMessage(raw),
	}, nil
}
