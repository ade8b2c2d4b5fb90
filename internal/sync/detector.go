package sync

import (
	"github.com/pricorephp/pricore/internal/git"
	"github.com/pricorephp/pricore/internal/versions"
)

// candidate is one version-bearing ref discovered during a sync pass.
type candidate struct {
	ref     git.Ref
	version string
}

// ChangeDetector decides which discovered refs need processing, given the
// repository's recorded version fingerprints.
type ChangeDetector interface {
	// Filter splits the candidates into those that changed since the last
	// pass and those that provably did not. A candidate is changed when no
	// recorded version carries its version string, or when the recorded
	// commit hash differs from the ref's current hash. A repository with no
	// recorded versions at all treats every candidate as changed.
	Filter(fingerprints map[string]string, candidates []candidate) (changed, unchanged []candidate)
}

// defaultChangeDetector is the default implementation of ChangeDetector
type defaultChangeDetector struct{}

// NewChangeDetector creates a new defaultChangeDetector
func NewChangeDetector() ChangeDetector {
	return &defaultChangeDetector{}
}

func (*defaultChangeDetector) Filter(
	fingerprints map[string]string, candidates []candidate,
) (changed, unchanged []candidate) {
	if len(fingerprints) == 0 {
		return candidates, nil
	}
	for _, c := range candidates {
		if hash, ok := fingerprints[c.version]; ok && hash == c.ref.Hash {
			unchanged = append(unchanged, c)
			continue
		}
		changed = append(changed, c)
	}
	return changed, unchanged
}

// refCandidates maps discovered refs to the version strings they imply.
// Tags that do not carry a valid version are dropped and counted as filtered.
func refCandidates(policy versions.Policy, tags, branches []git.Ref) (candidates []candidate, filtered int64) {
	for _, tag := range tags {
		version, ok := policy.VersionForTag(tag.Name)
		if !ok {
			filtered++
			continue
		}
		candidates = append(candidates, candidate{ref: tag, version: version})
	}
	for _, branch := range branches {
		candidates = append(candidates, candidate{ref: branch, version: policy.VersionForBranch(branch.Name)})
	}
	return candidates, filtered
}
