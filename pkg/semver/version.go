// Package semver parses the service version that versions the NATS gateway subject.
package semver

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const logPrefix = "semver:version"

// Parse parses a strict semantic version, with or without a leading "v".
func Parse(version string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(strings.TrimPrefix(strings.TrimSpace(version), "v"))
	if err != nil {
		return nil, fmt.Errorf("%s - invalid version %q: %w", logPrefix, version, err)
	}
	return v, nil
}

// Major returns the major component of version.
func Major(version string) (int, error) {
	v, err := Parse(version)
	if err != nil {
		return 0, err
	}
	return int(v.Major()), nil
}

// Satisfies reports whether version matches the constraint (e.g. "^1.2").
// Invalid input never satisfies.
func Satisfies(version, constraint string) bool {
	v, err := Parse(version)
	if err != nil {
		return false
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false
	}
	return c.Check(v)
}
