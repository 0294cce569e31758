// Package version implements the semantic version triple used to tag
// serialized IR graphs and plugin compatibility declarations.
//
// Versions are compared lexicographically by (major, minor, patch).
// Compatibility follows the major component only: two versions are
// compatible when their major components match, regardless of minor and
// patch. Pre-release suffixes are tolerated on input and ignored for
// comparison.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/recastops/recast/pkg/errors"
)

// Version is a comparable semantic version triple.
// All components are non-negative. The zero value is "0.0.0".
type Version struct {
	Major int `json:"major" bson:"major"`
	Minor int `json:"minor" bson:"minor"`
	Patch int `json:"patch" bson:"patch"`
}

// Parse converts a version string into a Version.
//
// The string is split on '.'. The first two components must parse as
// non-negative integers or Parse fails with a FORMAT_ERROR. The third
// component is optional; its leading digit run becomes the patch level,
// so pre-release suffixes like "1.2.3-beta" are accepted and ignored.
// Components beyond the third are ignored entirely.
func Parse(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Version{}, errors.New(errors.ErrCodeFormat, "empty version string")
	}

	parts := strings.Split(raw, ".")
	if len(parts) < 2 {
		return Version{}, errors.New(errors.ErrCodeFormat, "invalid version %q: need at least major.minor", s)
	}

	major, err := parseComponent(parts[0])
	if err != nil {
		return Version{}, errors.New(errors.ErrCodeFormat, "invalid version %q: bad major component %q", s, parts[0])
	}

	minor, err := parseComponent(parts[1])
	if err != nil {
		return Version{}, errors.New(errors.ErrCodeFormat, "invalid version %q: bad minor component %q", s, parts[1])
	}

	patch := 0
	if len(parts) >= 3 {
		patch = leadingDigits(parts[2])
	}

	return Version{Major: major, Minor: minor, Patch: patch}, nil
}

// MustParse is like Parse but panics on malformed input.
// Intended for package-level constants and test fixtures.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// parseComponent parses a strictly numeric, non-negative version component.
func parseComponent(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative component %d", n)
	}
	return n, nil
}

// leadingDigits returns the integer value of the leading digit run of s,
// or 0 if s does not start with a digit. "3-beta" yields 3, "beta" yields 0.
func leadingDigits(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// String returns the canonical "major.minor.patch" form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0, or +1 if v is less than, equal to, or greater
// than other, ordering lexicographically by (major, minor, patch).
func (v Version) Compare(other Version) int {
	if c := cmpInt(v.Major, other.Major); c != 0 {
		return c
	}
	if c := cmpInt(v.Minor, other.Minor); c != 0 {
		return c
	}
	return cmpInt(v.Patch, other.Patch)
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

// Less reports whether v orders strictly before other.
func (v Version) Less(other Version) bool { return v.Compare(other) < 0 }

// Equal reports whether v and other are the same triple.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

// IsCompatibleWith reports whether v and other share a major component.
// Minor and patch differences are assumed backward compatible by
// convention; this is not verified structurally.
func (v Version) IsCompatibleWith(other Version) bool {
	return v.Major == other.Major
}
