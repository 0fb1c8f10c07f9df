package release

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/eykd/shipcrate/internal/replace"
)

// Template returns the replacement template for p. The tag prefix is
// rendered with the crate name only; the tag name sees every other token.
func (r *Runner) Template(p *Package) replace.Template {
	shared := len(r.Workspace.Members) == 1 || r.Workspace.IsRootPackage(p.Member)
	name := replace.Value(p.Name())

	prefix := replace.Template{CrateName: name}.Render(p.Config.TagPrefixTemplate(shared))
	tmpl := replace.Template{
		PrevVersion:  replace.Value(p.Initial.Bare()),
		PrevMetadata: replace.Value(p.Initial.Metadata()),
		Version:      replace.Value(p.Planned.Bare()),
		Metadata:     replace.Value(p.Planned.Metadata()),
		CrateName:    name,
		Date:         replace.Value(r.Date),
		Prefix:       replace.Value(prefix),
	}
	tmpl.TagName = replace.Value(tmpl.Render(p.Config.TagNameTemplate()))
	return tmpl
}

// Replace applies each package's pre-release-replacements with the package
// root as working directory. A failing file is reported and skipped; other
// files and packages are still processed. The returned error is only set
// when ctx is done.
func (r *Runner) Replace(ctx context.Context, pkgs []*Package) (*Outcome, error) {
	out := newOutcome()
	engine := &replace.Engine{Gate: r.Gate, Logger: r.logger()}
	for _, p := range pkgs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		rules := p.Config.PreReleaseReplacements
		if len(rules) == 0 {
			r.logger().DebugContext(ctx, "no replacements configured", "package", p.Name())
			continue
		}

		root := p.Member.Root()
		_, results, err := engine.Apply(ctx, rules, r.Template(p), root, p.Planned.IsPrerelease())
		for _, res := range results {
			out.addResult(res)
		}
		for _, e := range unjoin(err) {
			path := root
			var fe *replace.FileError
			if errors.As(e, &fe) {
				path = fe.File
				if !filepath.IsAbs(path) {
					path = filepath.Join(root, path)
				}
			}
			out.fail(r, path, replace.Code(e), e)
		}
	}
	return out, nil
}

// unjoin splits an errors.Join result into its parts.
func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
