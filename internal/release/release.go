// Package release sequences the steps of a release run over a workspace:
// package selection in publish order, the version step and the replace step.
//
// Each step reads and writes through a single writegate.Gate, so a dry run
// sees its own earlier edits and reports exactly what an execute run writes.
package release

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/eykd/shipcrate/internal/config"
	"github.com/eykd/shipcrate/internal/manifest"
	"github.com/eykd/shipcrate/internal/semver"
	"github.com/eykd/shipcrate/internal/workspace"
	"github.com/eykd/shipcrate/internal/writegate"
)

// ErrNoPackages is returned when selection leaves nothing to release.
var ErrNoPackages = errors.New("no packages selected")

// Reporter is the user-facing status channel.
type Reporter interface {
	Status(action, detail string)
	Warn(msg string)
	Error(msg string)
	Note(msg string)
}

// Runner carries the state shared by the steps of one run.
type Runner struct {
	Workspace *workspace.Workspace
	Config    *config.Config // workspace-level configuration
	Gate      *writegate.Gate
	Report    Reporter
	Logger    *slog.Logger // may be nil
	Date      string       // value of the {{date}} token, fixed for the run
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Package is a selected workspace member.
type Package struct {
	Member  *workspace.Member
	Config  *config.Config
	Initial semver.Version // version when the run started
	Planned semver.Version // version after the version step; equals Initial until planned
}

// Name returns the package name.
func (p *Package) Name() string { return p.Member.Name }

// Selection picks members by name. An empty Packages list selects the whole
// workspace.
type Selection struct {
	Packages []string
	Exclude  []string
}

// Select returns the selected members in publish order, each with its
// layered configuration. Members configured with release = false are never
// selected; naming one explicitly produces a warning.
func (r *Runner) Select(sel Selection) ([]*Package, error) {
	for _, name := range append(slices.Clone(sel.Packages), sel.Exclude...) {
		if _, ok := r.Workspace.MemberByName(name); !ok {
			return nil, fmt.Errorf("package %q not found in workspace", name)
		}
	}

	var pkgs []*Package
	for _, id := range workspace.Order(r.Workspace.Members) {
		m, _ := r.Workspace.Member(id)
		explicit := slices.Contains(sel.Packages, m.Name)
		if len(sel.Packages) > 0 && !explicit {
			continue
		}
		if slices.Contains(sel.Exclude, m.Name) {
			r.logger().Debug("excluded", "package", m.Name)
			continue
		}

		cfg, err := config.ForPackage(r.Config, r.Workspace.Root, m.Root())
		if err != nil {
			return nil, err
		}
		if !cfg.IsRelease() {
			if explicit {
				r.Report.Warn(fmt.Sprintf("disabled by user, skipping %s", m.Name))
			}
			continue
		}

		v, err := semver.ParseVersion(m.Version)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", m.Name, err)
		}
		pkgs = append(pkgs, &Package{Member: m, Config: cfg, Initial: v, Planned: v})
	}
	if len(pkgs) == 0 {
		return nil, ErrNoPackages
	}
	return pkgs, nil
}

// Outcome aggregates what a step did. Failed is set when any package or
// file failed; soft skips are reported as diagnostics and do not fail the
// step.
type Outcome struct {
	Changed     bool                  `json:"changed"`
	Files       []writegate.Result    `json:"files"`
	Updates     []DependentUpdate     `json:"updates,omitempty"`
	Diagnostics []manifest.Diagnostic `json:"diagnostics"`
	Failed      bool                  `json:"failed"`
}

func newOutcome() *Outcome {
	return &Outcome{Files: []writegate.Result{}, Diagnostics: []manifest.Diagnostic{}}
}

func (o *Outcome) addResult(res writegate.Result) {
	if res.Changed {
		o.Changed = true
		o.Files = append(o.Files, res)
	}
}

// fail records err as an error diagnostic for path.
func (o *Outcome) fail(r *Runner, path, code string, err error) {
	o.Failed = true
	o.Diagnostics = append(o.Diagnostics, manifest.Diagnostic{
		Severity: manifest.SeverityError,
		Code:     code,
		Message:  err.Error(),
		Path:     path,
	})
	r.Report.Error(err.Error())
}

// report forwards manifest diagnostics to the status channel and the log.
func (r *Runner) report(ctx context.Context, o *Outcome, path string, diags []manifest.Diagnostic) {
	for _, d := range diags {
		d.Path = path
		o.Diagnostics = append(o.Diagnostics, d)
		switch d.Severity {
		case manifest.SeverityError:
			o.Failed = true
			r.Report.Error(fmt.Sprintf("%s: %s (%s)", path, d.Message, d.Code))
		case manifest.SeverityWarning:
			r.Report.Warn(fmt.Sprintf("%s: %s (%s)", path, d.Message, d.Code))
		default:
			r.logger().DebugContext(ctx, d.Message, "path", path, "code", d.Code)
		}
	}
}
