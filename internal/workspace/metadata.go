package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
)

// metadataJSON is the subset of `cargo metadata --format-version 1` output
// that a release run needs.
type metadataJSON struct {
	Packages []struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Version      string `json:"version"`
		ManifestPath string `json:"manifest_path"`
	} `json:"packages"`
	WorkspaceMembers []string `json:"workspace_members"`
	WorkspaceRoot    string   `json:"workspace_root"`
	Resolve          *struct {
		Nodes []struct {
			ID   string `json:"id"`
			Deps []struct {
				Name     string `json:"name"`
				Pkg      string `json:"pkg"`
				DepKinds []struct {
					Kind   *string `json:"kind"`
					Target *string `json:"target"`
				} `json:"dep_kinds"`
			} `json:"deps"`
		} `json:"nodes"`
	} `json:"resolve"`
}

// ErrNoResolve is returned for metadata produced with --no-deps.
var ErrNoResolve = errors.New("metadata has no resolved dependency graph")

// DecodeMetadata reads cargo metadata JSON. Relative paths in the document
// are resolved against baseDir. Members keep the order of
// workspace_members.
func DecodeMetadata(r io.Reader, baseDir string) (*Workspace, error) {
	var meta metadataJSON
	if err := json.NewDecoder(r).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	if meta.Resolve == nil {
		return nil, ErrNoResolve
	}

	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	names := make(map[string]string, len(meta.Packages))
	byID := make(map[string]*Member, len(meta.Packages))
	for _, p := range meta.Packages {
		names[p.ID] = p.Name
		byID[p.ID] = &Member{
			ID:           p.ID,
			Name:         p.Name,
			Version:      p.Version,
			ManifestPath: abs(p.ManifestPath),
		}
	}

	ws := &Workspace{Root: abs(meta.WorkspaceRoot)}
	isMember := make(map[string]bool, len(meta.WorkspaceMembers))
	for _, id := range meta.WorkspaceMembers {
		m, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("workspace member %s missing from packages", id)
		}
		isMember[id] = true
		ws.Members = append(ws.Members, m)
	}

	for _, node := range meta.Resolve.Nodes {
		if !isMember[node.ID] {
			continue
		}
		m := byID[node.ID]
		for _, dep := range node.Deps {
			d := Dependency{ID: dep.Pkg, Name: names[dep.Pkg]}
			if d.Name == "" {
				d.Name = dep.Name
			}
			for _, k := range dep.DepKinds {
				d.Kinds = append(d.Kinds, parseKind(k.Kind))
			}
			m.Dependencies = append(m.Dependencies, d)
		}
	}

	if ws.Root == "" && len(ws.Members) > 0 {
		ws.Root = ws.Members[0].Root()
	}
	return ws, nil
}

func parseKind(kind *string) DependencyKind {
	if kind == nil {
		return KindNormal
	}
	switch *kind {
	case "dev":
		return KindDevelopment
	case "build":
		return KindBuild
	}
	return KindNormal
}
