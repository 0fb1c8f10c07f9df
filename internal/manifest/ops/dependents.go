package ops

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/eykd/shipcrate/internal/manifest"
	"github.com/eykd/shipcrate/internal/semver"
)

// canonicalizeFn resolves a path for crate-root comparison. It may be
// replaced in tests.
var canonicalizeFn = CanonicalPath

// CanonicalPath returns the absolute, symlink-free form of path. The path
// must exist.
func CanonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// UpgradeParams are the parameters for UpgradeDependents.
type UpgradeParams struct {
	ManifestName string         // package owning the manifest, for messages
	ManifestDir  string         // directory of the manifest; relative dependency paths resolve against it
	Name         string         // package being released
	CrateRoot    string         // directory of the package being released
	Version      semver.Version // its new version
	Policy       semver.Policy
}

// Update records one rewritten requirement.
type Update struct {
	Table string `json:"table"`
	Name  string `json:"name"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Message renders the update the way it is announced on the status channel.
func (u Update) Message(manifestName string) string {
	return fmt.Sprintf("%s's dependency from %s to %s", manifestName, u.Old, u.New)
}

// UpgradeDependents rewrites the version requirement of every dependency
// entry whose path resolves to params.CrateRoot. Entries reached through
// top-level, per-target and [workspace.dependencies] tables are all
// considered. An entry that cannot be rewritten is skipped with a
// diagnostic; its siblings are still processed.
func UpgradeDependents(ctx context.Context, src []byte, params UpgradeParams) ([]byte, []Update, []manifest.Diagnostic, error) {
	doc, diags, err := parseManifestFn(ctx, src)
	if err != nil {
		return src, nil, diags, err
	}
	if manifest.HasErrors(diags) {
		return src, nil, diags, nil
	}

	root, err := canonicalizeFn(params.CrateRoot)
	if err != nil {
		return src, nil, diags, fmt.Errorf("resolving crate root %s: %w", params.CrateRoot, err)
	}

	var updates []Update
	for _, dep := range doc.Dependencies() {
		if !resolvesTo(dep, params.ManifestDir, root) {
			if dep.Package() == params.Name && !dep.Workspace() {
				diags = append(diags, manifest.Diagnostic{
					Severity: manifest.SeverityInfo,
					Code:     manifest.CodeForeignCrateRoot,
					Message:  fmt.Sprintf("%s.%s does not point at %s; leaving it alone", dep.TableName(), dep.Name, params.CrateRoot),
				})
			}
			continue
		}

		field := dep.Version()
		if field == nil {
			diags = append(diags, manifest.Diagnostic{
				Severity: manifest.SeverityInfo,
				Code:     manifest.CodePathOnly,
				Message:  fmt.Sprintf("not updating path-only dependency on %s", params.Name),
			})
			continue
		}
		if field.Kind != manifest.KindString {
			diags = append(diags, manifest.Diagnostic{
				Severity: manifest.SeverityWarning,
				Code:     manifest.CodeVersionNotString,
				Message:  fmt.Sprintf("unsupported dependency %s: version is %s", dep.Name, field.Raw),
				Location: field.Position(),
			})
			continue
		}

		existing := field.Str
		newReq, changed, err := semver.Decide(existing, params.Version, params.Policy)
		switch {
		case errors.Is(err, semver.ErrInvalidRequirement):
			diags = append(diags, manifest.Diagnostic{
				Severity: manifest.SeverityWarning,
				Code:     manifest.CodeInvalidRequirement,
				Message:  fmt.Sprintf("unsupported dependency req %s=%s", dep.Name, existing),
				Location: field.Position(),
			})
			continue
		case errors.Is(err, semver.ErrUnsupportedRequirement):
			diags = append(diags, manifest.Diagnostic{
				Severity: manifest.SeverityWarning,
				Code:     manifest.CodeUnsupportedRequirement,
				Message:  fmt.Sprintf("cannot move %s=%s to %s", dep.Name, existing, params.Version),
				Location: field.Position(),
			})
			continue
		case errors.Is(err, semver.ErrUnmatchedRequirement):
			diags = append(diags, manifest.Diagnostic{
				Severity: manifest.SeverityWarning,
				Code:     manifest.CodeUnmatchedRequirement,
				Message:  fmt.Sprintf("cannot move %s=%s to %s; update it by hand", dep.Name, existing, params.Version),
				Location: field.Position(),
			})
			continue
		case err != nil:
			return src, nil, diags, err
		}
		if !changed {
			continue
		}

		if err := doc.SetString(field, newReq); err != nil {
			diags = append(diags, manifest.Diagnostic{
				Severity: manifest.SeverityWarning,
				Code:     manifest.CodeVersionNotString,
				Message:  fmt.Sprintf("unsupported dependency %s: %v", dep.Name, err),
				Location: field.Position(),
			})
			continue
		}
		updates = append(updates, Update{Table: dep.TableName(), Name: dep.Name, Old: existing, New: newReq})
	}

	if len(updates) == 0 {
		return src, nil, diags, nil
	}
	return manifest.Serialize(doc), updates, diags, nil
}

// resolvesTo reports whether dep is a path dependency whose directory is
// root. Paths that do not exist never match.
func resolvesTo(dep *manifest.DependencyEntry, manifestDir, root string) bool {
	rel := dep.Path()
	if rel == "" {
		return false
	}
	p := rel
	if !filepath.IsAbs(p) {
		p = filepath.Join(manifestDir, rel)
	}
	canon, err := canonicalizeFn(p)
	if err != nil {
		return false
	}
	return canon == root
}
