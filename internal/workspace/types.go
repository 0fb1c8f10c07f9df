// Package workspace models the members of a Cargo workspace and the order in
// which they can be published.
package workspace

import "path/filepath"

// DependencyKind classifies a resolved dependency edge.
type DependencyKind string

const (
	KindNormal      DependencyKind = "normal"
	KindDevelopment DependencyKind = "dev"
	KindBuild       DependencyKind = "build"
)

// Dependency is a resolved edge from a member to another package.
type Dependency struct {
	ID    string           // package id of the dependency
	Name  string           // package name of the dependency
	Kinds []DependencyKind // one entry per declaration (normal, dev, build, per target)
}

// DevOnly reports whether every declaration of the edge is a dev-dependency.
// An edge with no recorded kinds counts as dev-only.
func (d Dependency) DevOnly() bool {
	for _, k := range d.Kinds {
		if k != KindDevelopment {
			return false
		}
	}
	return true
}

// Member is a workspace package. Identity is fixed; Version is updated in
// place as a release run sets new versions.
type Member struct {
	ID           string
	Name         string
	Version      string
	ManifestPath string
	Dependencies []Dependency
}

// Root returns the directory containing the member's manifest.
func (m *Member) Root() string {
	return filepath.Dir(m.ManifestPath)
}

// Workspace is the set of members in caller-supplied order.
type Workspace struct {
	Root    string // directory of the workspace manifest
	Members []*Member
}

// RootManifest returns the path of the workspace-level Cargo.toml.
func (w *Workspace) RootManifest() string {
	return filepath.Join(w.Root, "Cargo.toml")
}

// Member returns the member with the given id.
func (w *Workspace) Member(id string) (*Member, bool) {
	for _, m := range w.Members {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// MemberByName returns the member with the given package name.
func (w *Workspace) MemberByName(name string) (*Member, bool) {
	for _, m := range w.Members {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// IsRootPackage reports whether m's manifest is the workspace manifest.
func (w *Workspace) IsRootPackage(m *Member) bool {
	return filepath.Clean(m.ManifestPath) == filepath.Clean(w.RootManifest())
}

// Manifests returns every member manifest followed by the workspace manifest
// when it is not itself a member (a virtual workspace), without duplicates.
func (w *Workspace) Manifests() []string {
	seen := make(map[string]bool, len(w.Members)+1)
	out := make([]string, 0, len(w.Members)+1)
	for _, m := range w.Members {
		p := filepath.Clean(m.ManifestPath)
		if !seen[p] {
			seen[p] = true
			out = append(out, m.ManifestPath)
		}
	}
	if root := filepath.Clean(w.RootManifest()); !seen[root] {
		out = append(out, w.RootManifest())
	}
	return out
}
