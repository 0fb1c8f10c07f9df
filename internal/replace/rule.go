package replace

import (
	"errors"
	"fmt"
	"math"
)

// Error codes reported for replacement failures.
const (
	CodeFileMissing    = "RPE001"
	CodeInvalidPattern = "RPE002"
	CodeTooFewMatches  = "RPE003"
	CodeTooManyMatches = "RPE004"
)

// Rule is one search/replace entry, as read from pre-release-replacements.
type Rule struct {
	File       string `toml:"file" yaml:"file" json:"file"`
	Search     string `toml:"search" yaml:"search" json:"search"`
	Replace    string `toml:"replace" yaml:"replace" json:"replace"`
	Min        *int   `toml:"min,omitempty" yaml:"min,omitempty" json:"min,omitempty"`
	Max        *int   `toml:"max,omitempty" yaml:"max,omitempty" json:"max,omitempty"`
	Exactly    *int   `toml:"exactly,omitempty" yaml:"exactly,omitempty" json:"exactly,omitempty"`
	Prerelease bool   `toml:"prerelease" yaml:"prerelease" json:"prerelease"`
}

// Bounds returns the inclusive match-count range. Without any bound the
// rule expects exactly one match. Exactly sets both ends; an explicit Min or
// Max overrides that end. A rule that only sets Min has no upper bound.
func (r Rule) Bounds() (lo, hi int) {
	lo, hi = 1, 1
	if r.Exactly != nil {
		lo, hi = *r.Exactly, *r.Exactly
	} else if r.Min != nil {
		hi = math.MaxInt
	}
	if r.Min != nil {
		lo = *r.Min
	}
	if r.Max != nil {
		hi = *r.Max
	}
	return lo, hi
}

// BoundsError reports a match count outside a rule's bounds.
type BoundsError struct {
	Pattern string
	File    string
	AtLeast bool // true if below the minimum, false if above the maximum
	Bound   int
	Found   int
}

func (e *BoundsError) Error() string {
	which := "at most"
	if e.AtLeast {
		which = "at least"
	}
	return fmt.Sprintf("for `%s` in '%s', %s %d replacements expected, found %d", e.Pattern, e.File, which, e.Bound, e.Found)
}

// FileError wraps a failure that aborted all rules for one file.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string { return e.File + ": " + e.Err.Error() }

func (e *FileError) Unwrap() error { return e.Err }

// Code returns the error code for a replacement failure, or "" when err is
// not one.
func Code(err error) string {
	var be *BoundsError
	switch {
	case errors.As(err, &be) && be.AtLeast:
		return CodeTooFewMatches
	case be != nil:
		return CodeTooManyMatches
	case errors.Is(err, ErrFileNotFound):
		return CodeFileMissing
	case errors.Is(err, ErrInvalidPattern):
		return CodeInvalidPattern
	}
	return ""
}
