package release

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/eykd/shipcrate/internal/manifest"
	"github.com/eykd/shipcrate/internal/manifest/ops"
	"github.com/eykd/shipcrate/internal/semver"
	"github.com/eykd/shipcrate/internal/writegate"
)

// CodeIOFailure marks a file that could not be read or written.
const CodeIOFailure = "RLE001"

// VirtualManifestName names the root manifest of a virtual workspace in
// status messages.
const VirtualManifestName = "workspace"

// DependentUpdate is a requirement rewritten in another manifest.
type DependentUpdate struct {
	Manifest string `json:"manifest"`
	Owner    string `json:"owner"`
	ops.Update
}

// Plan sets the planned version of every package from a bump level or an
// explicit version. Nothing is changed when any package fails to plan.
func Plan(pkgs []*Package, arg, metadata string) error {
	planned := make([]semver.Version, len(pkgs))
	for i, p := range pkgs {
		v, err := semver.Next(p.Initial, arg, metadata)
		if err != nil {
			return fmt.Errorf("package %s: %w", p.Name(), err)
		}
		if semver.Compare(v, p.Initial) < 0 {
			return fmt.Errorf("package %s: cannot release %s, it is older than %s", p.Name(), v, p.Initial)
		}
		planned[i] = v
	}
	for i, p := range pkgs {
		p.Planned = planned[i]
	}
	return nil
}

// Version writes the planned version of each package, in the order given,
// and moves the requirements of every manifest that depends on it by path.
// A package whose own manifest cannot be updated is reported and its
// dependents are left alone; the remaining packages are still processed.
// The returned error is only set when ctx is done.
func (r *Runner) Version(ctx context.Context, pkgs []*Package) (*Outcome, error) {
	out := newOutcome()
	for _, p := range pkgs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if p.Planned.String() == p.Initial.String() {
			r.logger().InfoContext(ctx, "version unchanged", "package", p.Name(), "version", p.Initial.String())
			continue
		}

		r.Report.Status("Upgrading", fmt.Sprintf("%s from %s to %s", p.Name(), p.Initial, p.Planned))
		if !r.setVersion(ctx, out, p) {
			continue
		}
		p.Member.Version = p.Planned.String()
		r.upgradeDependents(ctx, out, p)
	}
	return out, nil
}

// setVersion writes p.Planned to the package manifest, or to the workspace
// manifest when the package inherits its version.
func (r *Runner) setVersion(ctx context.Context, out *Outcome, p *Package) bool {
	path := p.Member.ManifestPath
	src, err := r.Gate.ReadFile(ctx, path)
	if err != nil {
		out.fail(r, path, CodeIOFailure, fmt.Errorf("reading %s: %w", path, err))
		return false
	}

	inherits, diags, err := ops.InheritsWorkspaceVersion(ctx, src)
	if err != nil || manifest.HasErrors(diags) {
		r.report(ctx, out, path, diags)
		if err != nil {
			out.fail(r, path, manifest.CodeParseFailure, err)
		}
		return false
	}

	set := ops.SetPackageVersion
	if inherits {
		path = r.Workspace.RootManifest()
		set = ops.SetWorkspaceVersion
		if src, err = r.Gate.ReadFile(ctx, path); err != nil {
			out.fail(r, path, CodeIOFailure, fmt.Errorf("reading %s: %w", path, err))
			return false
		}
		r.logger().DebugContext(ctx, "version inherited from workspace", "package", p.Name(), "manifest", path)
	}

	edited, diags, err := set(ctx, src, p.Planned.String())
	r.report(ctx, out, path, diags)
	if err != nil {
		out.fail(r, path, manifest.CodeParseFailure, err)
		return false
	}
	if manifest.HasErrors(diags) {
		return false
	}
	return r.commit(ctx, out, path, src, edited)
}

// upgradeDependents moves every path dependency on p to p.Planned.
func (r *Runner) upgradeDependents(ctx context.Context, out *Outcome, p *Package) {
	policy, err := p.Config.Policy()
	if err != nil {
		out.fail(r, p.Config.Path, "", err)
		return
	}

	for _, path := range r.Workspace.Manifests() {
		src, err := r.Gate.ReadFile(ctx, path)
		if err != nil {
			out.fail(r, path, CodeIOFailure, fmt.Errorf("reading %s: %w", path, err))
			continue
		}

		owner := r.manifestOwner(path)
		edited, updates, diags, err := ops.UpgradeDependents(ctx, src, ops.UpgradeParams{
			ManifestName: owner,
			ManifestDir:  filepath.Dir(path),
			Name:         p.Name(),
			CrateRoot:    p.Member.Root(),
			Version:      p.Planned,
			Policy:       policy,
		})
		r.report(ctx, out, path, diags)
		if err != nil {
			out.fail(r, path, CodeIOFailure, err)
			continue
		}

		for _, u := range updates {
			r.Report.Status("Updating", u.Message(owner))
			out.Updates = append(out.Updates, DependentUpdate{Manifest: path, Owner: owner, Update: u})
		}
		r.commit(ctx, out, path, src, edited)
	}
}

func (r *Runner) commit(ctx context.Context, out *Outcome, path string, before, after []byte) bool {
	res, err := r.Gate.Commit(ctx, writegate.Change{
		Path:   path,
		Action: "Editing",
		Detail: path,
		Label:  "updated",
		Before: before,
		After:  after,
	})
	if err != nil {
		out.fail(r, path, CodeIOFailure, err)
		return false
	}
	out.addResult(res)
	return true
}

// manifestOwner returns the name of the member owning path.
func (r *Runner) manifestOwner(path string) string {
	for _, m := range r.Workspace.Members {
		if filepath.Clean(m.ManifestPath) == filepath.Clean(path) {
			return m.Name
		}
	}
	return VirtualManifestName
}
