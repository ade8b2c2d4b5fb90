// Package versions implements the version-string conventions used to map
// source refs onto package versions.
package versions

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DevPrefix marks a version string as tracking a branch rather than a tag.
const DevPrefix = "dev-"

// Policy maps ref names to version strings and version strings to a
// normalized, lexicographically sortable form. The composer convention is the
// default; other package ecosystems plug in their own implementation.
type Policy interface {
	// VersionForTag returns the version string implied by a tag name.
	// ok is false when the tag does not carry a version (e.g. "latest").
	VersionForTag(tag string) (version string, ok bool)

	// VersionForBranch returns the synthetic version string for a branch.
	VersionForBranch(branch string) string

	// Normalize returns the sortable normalized form of a version string
	// produced by this policy. Dev versions sort after every release.
	Normalize(version string) (string, error)

	// IsDev reports whether the version string tracks a branch.
	IsDev(version string) bool
}

// composerPolicy implements the composer ecosystem convention: tags are
// semantic versions (optionally "v"-prefixed), branches become "dev-<branch>".
type composerPolicy struct{}

// NewComposerPolicy returns the default composer version policy.
func NewComposerPolicy() Policy {
	return composerPolicy{}
}

func (composerPolicy) VersionForTag(tag string) (string, bool) {
	if tag == "" {
		return "", false
	}
	trimmed := strings.TrimPrefix(tag, "v")
	if _, err := semver.NewVersion(trimmed); err != nil {
		return "", false
	}
	// The "v" prefix is presentation, not identity: v1.0.0 and 1.0.0 are
	// the same version and must map to the same record.
	return trimmed, true
}

func (composerPolicy) VersionForBranch(branch string) string {
	return DevPrefix + branch
}

func (composerPolicy) IsDev(version string) bool {
	return strings.HasPrefix(version, DevPrefix)
}

// Normalize produces a fixed-width dotted form so that normalized versions
// compare correctly as plain strings. Dev versions use an all-nines core so
// they order after every release version, matching composer's precedence for
// branch snapshots.
func (p composerPolicy) Normalize(version string) (string, error) {
	if p.IsDev(version) {
		return fmt.Sprintf("%s-%s", devNormalizedCore, version), nil
	}

	v, err := semver.NewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		return "", fmt.Errorf("not a valid version string %q: %w", version, err)
	}

	core := fmt.Sprintf("%010d.%010d.%010d", v.Major(), v.Minor(), v.Patch())
	if pre := v.Prerelease(); pre != "" {
		// '-' sorts below '~', so prereleases order before the release.
		return core + "-" + pre, nil
	}
	return core + "~", nil
}

const devNormalizedCore = "9999999999.9999999999.9999999999"
