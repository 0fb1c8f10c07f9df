// Package semver provides version parsing, bumping, and Cargo-style version
// requirement handling.
//
// Version parsing, comparison, and requirement matching are delegated to
// github.com/Masterminds/semver/v3. Requirements are additionally parsed into
// their comparators here so they can be rewritten without losing their
// operator style.
package semver

import (
	"fmt"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a semantic version.
//
// This is a thin wrapper around github.com/Masterminds/semver/v3.
type Version struct {
	v *mm.Version
}

// ParseVersion parses a full MAJOR.MINOR.PATCH[-PRE][+BUILD] version.
func ParseVersion(raw string) (Version, error) {
	v, err := mm.StrictNewVersion(raw)
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
	}
	return Version{v: v}, nil
}

// MustParseVersion is like ParseVersion but panics on error.
func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether v was never set.
func (v Version) IsZero() bool { return v.v == nil }

func (v Version) Major() uint64 {
	if v.v == nil {
		return 0
	}
	return v.v.Major()
}

func (v Version) Minor() uint64 {
	if v.v == nil {
		return 0
	}
	return v.v.Minor()
}

func (v Version) Patch() uint64 {
	if v.v == nil {
		return 0
	}
	return v.v.Patch()
}

// Prerelease returns the pre-release identifiers without the leading "-".
func (v Version) Prerelease() string {
	if v.v == nil {
		return ""
	}
	return v.v.Prerelease()
}

// Metadata returns the build metadata without the leading "+".
func (v Version) Metadata() string {
	if v.v == nil {
		return ""
	}
	return v.v.Metadata()
}

// IsPrerelease reports whether v carries pre-release identifiers.
func (v Version) IsPrerelease() bool {
	return v.Prerelease() != ""
}

func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

// Bare returns v without its build metadata.
func (v Version) Bare() string {
	if v.v == nil {
		return ""
	}
	s := fmt.Sprintf("%d.%d.%d", v.v.Major(), v.v.Minor(), v.v.Patch())
	if pre := v.v.Prerelease(); pre != "" {
		s += "-" + pre
	}
	return s
}

// WithMetadata returns a copy of v with its build metadata replaced.
func (v Version) WithMetadata(metadata string) (Version, error) {
	if v.v == nil {
		return v, fmt.Errorf("semver: set metadata on empty version")
	}
	nv, err := v.v.SetMetadata(metadata)
	if err != nil {
		return Version{}, fmt.Errorf("semver: set metadata %q: %w", metadata, err)
	}
	return Version{v: &nv}, nil
}

// Compare compares a and b, returning:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}
