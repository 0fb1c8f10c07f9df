package semver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedRequirement is returned for requirements whose operators
// cannot be moved to a new version (>, >=, <, <=).
var ErrUnsupportedRequirement = errors.New("unsupported version requirement")

// ErrUnmatchedRequirement is returned when no rewrite of a requirement in its
// own style matches the new version, e.g. "1.*" for a pre-release.
var ErrUnmatchedRequirement = errors.New("requirement cannot be moved to match version")

// Policy decides when a dependent's requirement is rewritten.
type Policy string

const (
	// PolicyFix rewrites a requirement only when the new version no longer
	// satisfies it.
	PolicyFix Policy = "fix"
	// PolicyUpgrade rewrites a requirement to reflect the new version even
	// when it already matches.
	PolicyUpgrade Policy = "upgrade"
)

// ParsePolicy parses a policy name. The empty string selects PolicyFix.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyFix:
		return PolicyFix, nil
	case PolicyUpgrade:
		return PolicyUpgrade, nil
	}
	return "", fmt.Errorf("unknown dependent-version policy %q (expected %q or %q)", s, PolicyFix, PolicyUpgrade)
}

// Decide returns the requirement that should replace existing once the
// dependency is released as v. changed is false when existing should be left
// untouched.
func Decide(existing string, v Version, policy Policy) (newReq string, changed bool, err error) {
	req, err := ParseRequirement(existing)
	if err != nil {
		return "", false, err
	}
	if policy != PolicyUpgrade && req.Matches(v) {
		return "", false, nil
	}
	newReq, changed, err = UpgradeRequirement(existing, v)
	if err != nil {
		return "", false, err
	}
	final := req
	if changed {
		if final, err = ParseRequirement(newReq); err != nil {
			return "", false, err
		}
	}
	if !final.Matches(v) {
		return "", false, fmt.Errorf("%w: %q does not match %s", ErrUnmatchedRequirement, final, v)
	}
	return newReq, changed, nil
}

// UpgradeRequirement moves every comparator of raw onto v while keeping the
// precision and operator style of each one: "1.2" becomes "1.3", "^0.4.1"
// becomes "^0.5.0", "1.*" becomes "2.*". changed is false when the result is
// textually identical to raw or raw is "*".
func UpgradeRequirement(raw string, v Version) (newReq string, changed bool, err error) {
	req, err := ParseRequirement(raw)
	if err != nil {
		return "", false, err
	}
	if len(req.Comparators) == 0 {
		return "", false, nil
	}
	for i := range req.Comparators {
		c := &req.Comparators[i]
		switch c.Op {
		case OpWildcard:
			assignPartial(c, v)
		case OpExact, OpTilde, OpCaret:
			assignPartial(c, v)
			if v.IsPrerelease() {
				// A pre-release is only matched at full precision.
				minor, patch := v.Minor(), v.Patch()
				c.Minor, c.Patch = &minor, &patch
			}
			c.Pre = v.Prerelease()
		default:
			return "", false, fmt.Errorf("%w %q", ErrUnsupportedRequirement, c.String())
		}
	}
	text := req.String()
	if text == raw {
		return "", false, nil
	}
	return text, true, nil
}

func assignPartial(c *Comparator, v Version) {
	c.Major = v.Major()
	if c.Minor != nil {
		minor := v.Minor()
		c.Minor = &minor
	}
	if c.Patch != nil {
		patch := v.Patch()
		c.Patch = &patch
	}
}
