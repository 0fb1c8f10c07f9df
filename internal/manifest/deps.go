package manifest

import "strings"

// DependencyTables lists the three dependency table kinds.
var DependencyTables = []string{"dependencies", "dev-dependencies", "build-dependencies"}

// DependencyEntry is one dependency declaration. The same dependency may be
// spelled as `name = "1.0"`, `name = { version = "1.0" }`, with dotted keys
// (`name.version = "1.0"`) or as its own `[dependencies.name]` table; all
// forms fold into a single entry.
type DependencyEntry struct {
	Table  []string          // key path of the owning dependency table
	Name   string            // key under the dependency table
	Value  *Value            // the plain `name = "req"` string form, or nil
	Fields map[string]*Value // first-level fields of the table forms
}

// Version returns the value holding the version requirement, or nil.
func (e *DependencyEntry) Version() *Value {
	if e.Value != nil {
		return e.Value
	}
	return e.Fields["version"]
}

// Path returns the path field, or "" if the entry has none.
func (e *DependencyEntry) Path() string {
	if v := e.Fields["path"]; v != nil && v.Kind == KindString {
		return v.Str
	}
	return ""
}

// Package returns the name of the package the entry refers to, which
// differs from Name for renamed dependencies.
func (e *DependencyEntry) Package() string {
	if v := e.Fields["package"]; v != nil && v.Kind == KindString {
		return v.Str
	}
	return e.Name
}

// Workspace reports whether the entry inherits from workspace.dependencies.
func (e *DependencyEntry) Workspace() bool {
	return e.Fields["workspace"].IsTrue()
}

// TableName renders the owning table path, e.g. "target.'cfg(unix)'.dependencies".
func (e *DependencyEntry) TableName() string {
	parts := make([]string, len(e.Table))
	for i, k := range e.Table {
		parts[i] = formatKey(k)
		if parts[i][0] == '"' {
			parts[i] = "'" + k + "'"
		}
	}
	return strings.Join(parts, ".")
}

func isDependencyName(k string) bool {
	for _, name := range DependencyTables {
		if k == name {
			return true
		}
	}
	return false
}

// isDependencyTable matches [dependencies] and friends at the top level,
// under [target.<cfg>], and [workspace.dependencies].
func isDependencyTable(key []string) bool {
	switch len(key) {
	case 1:
		return isDependencyName(key[0])
	case 2:
		return key[0] == "workspace" && key[1] == "dependencies"
	case 3:
		return key[0] == "target" && isDependencyName(key[2])
	}
	return false
}

// Dependencies returns every dependency entry in the document in the order
// it is first declared. A dependency table may be opened by a header, spelled
// with dotted keys (`dependencies.b = ...` at the root, or under [workspace]
// or [target.<cfg>]), or written as an inline table.
func (d *Document) Dependencies() []*DependencyEntry {
	var out []*DependencyEntry
	index := map[string]*DependencyEntry{}
	get := func(table []string, name string) *DependencyEntry {
		k := strings.Join(table, "\x00") + "\x00\x00" + name
		if e, ok := index[k]; ok {
			return e
		}
		e := &DependencyEntry{Table: append([]string(nil), table...), Name: name, Fields: map[string]*Value{}}
		index[k] = e
		out = append(out, e)
		return e
	}

	var visit func(key []string, v *Value)
	visit = func(key []string, v *Value) {
		p := dependencyTablePrefix(key)
		if p < 0 || p == len(key) {
			// Not inside a dependency table yet, or the value is the
			// dependency table itself.
			if v.Kind == KindInlineTable {
				for _, f := range v.Entries {
					visit(joinKey(key, f.Key), f.Value)
				}
			}
			return
		}
		rest := key[p:]
		dep := get(key[:p], rest[0])
		switch len(rest) {
		case 1:
			if v.Kind != KindInlineTable {
				dep.Value = v
				return
			}
			for _, f := range v.Entries {
				if len(f.Key) == 1 {
					dep.Fields[f.Key[0]] = f.Value
				}
			}
		case 2:
			dep.Fields[rest[1]] = v
		}
	}

	for _, t := range d.Tables {
		if t.Array {
			continue
		}
		for _, entry := range t.Entries {
			visit(joinKey(t.Key, entry.Key), entry.Value)
		}
	}
	return out
}

// dependencyTablePrefix returns the length of the shortest prefix of key
// naming a dependency table, or -1.
func dependencyTablePrefix(key []string) int {
	for n := 1; n <= len(key); n++ {
		if isDependencyTable(key[:n]) {
			return n
		}
	}
	return -1
}

func joinKey(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	return append(append(out, a...), b...)
}
