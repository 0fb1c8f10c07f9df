package semver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// ErrInvalidRequirement is returned when a requirement string cannot be parsed.
var ErrInvalidRequirement = errors.New("invalid version requirement")

// Op is a comparator operator.
type Op int

const (
	OpCaret Op = iota
	OpExact
	OpGreater
	OpGreaterEq
	OpLess
	OpLessEq
	OpTilde
	OpWildcard
)

var opText = map[Op]string{
	OpCaret:     "^",
	OpExact:     "=",
	OpGreater:   ">",
	OpGreaterEq: ">=",
	OpLess:      "<",
	OpLessEq:    "<=",
	OpTilde:     "~",
	OpWildcard:  "",
}

// Comparator is one comma-separated clause of a requirement, e.g. "^1.2" or "<2".
type Comparator struct {
	Op Op
	// Bare is set when no operator was written. Bare comparators have caret
	// semantics and are rendered without an operator.
	Bare  bool
	Major uint64
	Minor *uint64
	Patch *uint64
	Pre   string
}

// Requirement is a parsed Cargo version requirement. A requirement with no
// comparators is the wildcard "*".
type Requirement struct {
	Comparators []Comparator
}

// ParseRequirement parses a Cargo version requirement such as "1.2",
// "^0.3.1", "~1", "=1.0.0-rc.1", "1.*" or ">=1.2, <1.5".
func ParseRequirement(raw string) (Requirement, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Requirement{}, fmt.Errorf("%w %q: empty requirement", ErrInvalidRequirement, raw)
	}
	if isWildcard(s) {
		return Requirement{}, nil
	}
	var req Requirement
	for _, part := range strings.Split(s, ",") {
		c, err := parseComparator(strings.TrimSpace(part))
		if err != nil {
			return Requirement{}, fmt.Errorf("%w %q: %v", ErrInvalidRequirement, raw, err)
		}
		req.Comparators = append(req.Comparators, c)
	}
	return req, nil
}

func parseComparator(s string) (Comparator, error) {
	if s == "" {
		return Comparator{}, errors.New("empty comparator")
	}

	var c Comparator
	switch {
	case strings.HasPrefix(s, ">="):
		c.Op, s = OpGreaterEq, s[2:]
	case strings.HasPrefix(s, "<="):
		c.Op, s = OpLessEq, s[2:]
	case strings.HasPrefix(s, ">"):
		c.Op, s = OpGreater, s[1:]
	case strings.HasPrefix(s, "<"):
		c.Op, s = OpLess, s[1:]
	case strings.HasPrefix(s, "="):
		c.Op, s = OpExact, s[1:]
	case strings.HasPrefix(s, "~"):
		c.Op, s = OpTilde, s[1:]
	case strings.HasPrefix(s, "^"):
		c.Op, s = OpCaret, s[1:]
	default:
		c.Op, c.Bare = OpCaret, true
	}
	s = strings.TrimSpace(s)

	// Build metadata never participates in matching.
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}
	core, pre, hasPre := strings.Cut(s, "-")

	parts := strings.Split(core, ".")
	if len(parts) > 3 {
		return Comparator{}, fmt.Errorf("too many version components in %q", s)
	}
	if isWildcard(parts[0]) {
		return Comparator{}, fmt.Errorf("unexpected wildcard in major version of %q", s)
	}
	major, err := parseNumber(parts[0])
	if err != nil {
		return Comparator{}, err
	}
	c.Major = major

	wildcard := false
	for i, part := range parts[1:] {
		if isWildcard(part) {
			wildcard = true
			continue
		}
		if wildcard {
			return Comparator{}, fmt.Errorf("unexpected version after wildcard in %q", s)
		}
		n, err := parseNumber(part)
		if err != nil {
			return Comparator{}, err
		}
		if i == 0 {
			c.Minor = &n
		} else {
			c.Patch = &n
		}
	}
	if wildcard {
		if !c.Bare {
			return Comparator{}, fmt.Errorf("wildcard cannot follow an operator in %q", s)
		}
		c.Op, c.Bare = OpWildcard, false
	}

	if hasPre {
		if c.Patch == nil {
			return Comparator{}, fmt.Errorf("pre-release requires a full version in %q", s)
		}
		if err := validatePrerelease(pre); err != nil {
			return Comparator{}, err
		}
		c.Pre = pre
	}
	return c, nil
}

func isWildcard(s string) bool {
	return s == "*" || s == "x" || s == "X"
}

func parseNumber(s string) (uint64, error) {
	if s == "" {
		return 0, errors.New("empty version component")
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, fmt.Errorf("leading zero in version component %q", s)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version component %q", s)
	}
	return n, nil
}

func validatePrerelease(pre string) error {
	for _, ident := range strings.Split(pre, ".") {
		if ident == "" {
			return fmt.Errorf("empty pre-release identifier in %q", pre)
		}
		for _, r := range ident {
			if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '-') {
				return fmt.Errorf("invalid pre-release identifier %q", ident)
			}
		}
	}
	return nil
}

// String renders c, omitting the operator when it was not written.
func (c Comparator) String() string {
	var b strings.Builder
	if !c.Bare {
		b.WriteString(opText[c.Op])
	}
	b.WriteString(strconv.FormatUint(c.Major, 10))
	if c.Minor != nil {
		b.WriteString("." + strconv.FormatUint(*c.Minor, 10))
		if c.Patch != nil {
			b.WriteString("." + strconv.FormatUint(*c.Patch, 10))
			if c.Pre != "" {
				b.WriteString("-" + c.Pre)
			}
		} else if c.Op == OpWildcard {
			b.WriteString(".*")
		}
	} else if c.Op == OpWildcard {
		b.WriteString(".*")
	}
	return b.String()
}

// String renders r with comparators joined by ", ".
func (r Requirement) String() string {
	if len(r.Comparators) == 0 {
		return "*"
	}
	parts := make([]string, len(r.Comparators))
	for i, c := range r.Comparators {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// constraint renders r in the syntax accepted by Masterminds. Bare
// comparators get an explicit caret since Masterminds treats a missing
// operator as "=".
func (r Requirement) constraint() string {
	if len(r.Comparators) == 0 {
		return "*"
	}
	parts := make([]string, len(r.Comparators))
	for i, c := range r.Comparators {
		s := c.String()
		if c.Bare {
			s = "^" + s
		}
		parts[i] = s
	}
	return strings.Join(parts, ", ")
}

// Matches reports whether v satisfies every comparator of r. A pre-release
// version only matches when some comparator names a pre-release of the same
// MAJOR.MINOR.PATCH, as in Cargo.
func (r Requirement) Matches(v Version) bool {
	if v.v == nil {
		return false
	}
	if v.IsPrerelease() && !r.admitsPrerelease(v) {
		return false
	}
	cs, err := mm.NewConstraint(r.constraint())
	if err != nil {
		return false
	}
	return cs.Check(v.v)
}

func (r Requirement) admitsPrerelease(v Version) bool {
	for _, c := range r.Comparators {
		if c.Pre == "" || c.Minor == nil || c.Patch == nil {
			continue
		}
		if c.Major == v.Major() && *c.Minor == v.Minor() && *c.Patch == v.Patch() {
			return true
		}
	}
	return false
}
