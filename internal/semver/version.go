// Package semver parses and orders the MAJOR.MINOR.PATCH version strings
// used to tag releases of the host application.
package semver

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed MAJOR.MINOR.PATCH triple. Pre-release and build
// suffixes are rejected at parse time (spec.md §4.2): this engine does not
// order pre-release versions.
type Version struct {
	Major, Minor, Patch int
}

// ParseError is returned by Parse when the input text is not a valid
// MAJOR.MINOR.PATCH version string.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse version %q: %s", e.Input, e.Reason)
}

// Parse accepts one optional leading "v"/"V", then three non-negative
// decimal integers separated by ".". Empty components, non-numeric
// components, and extra segments are rejected.
func Parse(text string) (Version, error) {
	trimmed := text
	if len(trimmed) > 0 && (trimmed[0] == 'v' || trimmed[0] == 'V') {
		trimmed = trimmed[1:]
	}

	parts := strings.Split(trimmed, ".")
	if len(parts) != 3 {
		return Version{}, &ParseError{Input: text, Reason: fmt.Sprintf("expected 3 dot-separated components, got %d", len(parts))}
	}

	var nums [3]int
	for i, p := range parts {
		if p == "" {
			return Version{}, &ParseError{Input: text, Reason: "empty version component"}
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, &ParseError{Input: text, Reason: fmt.Sprintf("component %q is not a non-negative integer", p)}
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// String renders the version as "MAJOR.MINOR.PATCH" (no leading "v"). Parse
// of this output always round-trips: Parse(v.String()) == v.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other, ordering lexicographically on the (major, minor, patch) triple.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		return cmpInt(v.Major, other.Major)
	case v.Minor != other.Minor:
		return cmpInt(v.Minor, other.Minor)
	default:
		return cmpInt(v.Patch, other.Patch)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsNewer reports whether remote orders strictly after local, i.e. whether
// remote should be offered as an update over local.
func IsNewer(remote, local Version) bool {
	return remote.Compare(local) > 0
}
