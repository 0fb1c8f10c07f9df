package semver

import (
	"fmt"
	"strconv"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Level names a version bump.
type Level string

const (
	LevelMajor   Level = "major"
	LevelMinor   Level = "minor"
	LevelPatch   Level = "patch"
	LevelRelease Level = "release"
	LevelRC      Level = "rc"
	LevelBeta    Level = "beta"
	LevelAlpha   Level = "alpha"
)

// prereleaseRank orders pre-release labels; a bump may only move forward.
var prereleaseRank = map[string]int{
	string(LevelAlpha): 1,
	string(LevelBeta):  2,
	string(LevelRC):    3,
}

// IsLevel reports whether s names a bump level.
func IsLevel(s string) bool {
	switch Level(s) {
	case LevelMajor, LevelMinor, LevelPatch, LevelRelease, LevelRC, LevelBeta, LevelAlpha:
		return true
	}
	return false
}

// Bump returns v bumped by level. Bumping a pre-release to the release it
// precedes drops the pre-release instead of incrementing, so 2.0.0-rc.1
// bumped by major is 2.0.0.
func Bump(v Version, level Level) (Version, error) {
	if v.v == nil {
		return Version{}, fmt.Errorf("semver: bump empty version")
	}
	pre := v.IsPrerelease()
	switch level {
	case LevelMajor:
		if pre && v.Minor() == 0 && v.Patch() == 0 {
			return dropPrerelease(v)
		}
		nv := v.v.IncMajor()
		return Version{v: &nv}, nil
	case LevelMinor:
		if pre && v.Patch() == 0 {
			return dropPrerelease(v)
		}
		nv := v.v.IncMinor()
		return Version{v: &nv}, nil
	case LevelPatch:
		// Masterminds already drops the pre-release without incrementing.
		nv := v.v.IncPatch()
		return Version{v: &nv}, nil
	case LevelRelease:
		if !pre {
			return Version{}, fmt.Errorf("semver: %s is already a release version", v)
		}
		return dropPrerelease(v)
	case LevelRC, LevelBeta, LevelAlpha:
		return bumpPrerelease(v, string(level))
	}
	return Version{}, fmt.Errorf("semver: unknown bump level %q", level)
}

func dropPrerelease(v Version) (Version, error) {
	nv, err := v.v.SetPrerelease("")
	if err != nil {
		return Version{}, fmt.Errorf("semver: drop pre-release of %s: %w", v, err)
	}
	nv, err = nv.SetMetadata("")
	if err != nil {
		return Version{}, fmt.Errorf("semver: drop metadata of %s: %w", v, err)
	}
	return Version{v: &nv}, nil
}

func bumpPrerelease(v Version, label string) (Version, error) {
	major, minor, patch := v.Major(), v.Minor(), v.Patch()
	next := 1
	if !v.IsPrerelease() {
		patch++
	} else {
		curLabel, curN, err := splitPrerelease(v.Prerelease())
		if err != nil {
			return Version{}, err
		}
		switch {
		case curLabel == label:
			next = curN + 1
		case prereleaseRank[curLabel] < prereleaseRank[label]:
			next = 1
		default:
			return Version{}, fmt.Errorf("semver: cannot bump %s to earlier pre-release %q", v, label)
		}
	}
	raw := fmt.Sprintf("%d.%d.%d-%s.%d", major, minor, patch, label, next)
	nv, err := mm.StrictNewVersion(raw)
	if err != nil {
		return Version{}, fmt.Errorf("semver: bump %s: %w", v, err)
	}
	return Version{v: nv}, nil
}

// splitPrerelease splits "rc.3" into ("rc", 3).
func splitPrerelease(pre string) (string, int, error) {
	label, num, ok := strings.Cut(pre, ".")
	if !ok {
		return "", 0, fmt.Errorf("semver: pre-release %q is not of the form LABEL.N", pre)
	}
	if _, known := prereleaseRank[label]; !known {
		return "", 0, fmt.Errorf("semver: unknown pre-release label %q", label)
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 0 {
		return "", 0, fmt.Errorf("semver: pre-release %q is not of the form LABEL.N", pre)
	}
	return label, n, nil
}

// Next resolves a bump argument against current: either a Level or an
// explicit version. A non-empty metadata replaces the build metadata.
func Next(current Version, arg, metadata string) (Version, error) {
	var (
		v   Version
		err error
	)
	if IsLevel(arg) {
		v, err = Bump(current, Level(arg))
	} else {
		v, err = ParseVersion(arg)
	}
	if err != nil {
		return Version{}, err
	}
	if metadata != "" {
		return v.WithMetadata(metadata)
	}
	return v, nil
}
