package workspace

// Graph maps each member id to the ids of the workspace members it depends
// on through at least one non-dev declaration. Dev-only edges are dropped:
// tests depending on a sibling that depends back on the package would
// otherwise make publishing dependencies first impossible.
//
// A Graph is read-only once built.
type Graph struct {
	ids   []string
	edges map[string][]string
}

// NewGraph builds the publish graph for members, keeping their order.
// Dependencies on packages outside the workspace are not nodes and are
// dropped; they are assumed to be published already.
func NewGraph(members []*Member) *Graph {
	g := &Graph{
		ids:   make([]string, 0, len(members)),
		edges: make(map[string][]string, len(members)),
	}
	for _, m := range members {
		g.ids = append(g.ids, m.ID)
		g.edges[m.ID] = nil
	}
	for _, m := range members {
		deps := make([]string, 0, len(m.Dependencies))
		for _, d := range m.Dependencies {
			if d.DevOnly() {
				continue
			}
			if _, ok := g.edges[d.ID]; !ok {
				continue
			}
			deps = append(deps, d.ID)
		}
		g.edges[m.ID] = deps
	}
	return g
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.edges[id]
	return ok
}

// Dependencies returns the graph edges of id in declaration order.
func (g *Graph) Dependencies(id string) []string {
	return append([]string(nil), g.edges[id]...)
}

// Order returns the member ids with every dependency ahead of its dependents.
//
// Members are visited depth-first in graph order, so unrelated members keep
// their first-encounter order. The traversal uses an explicit stack. A cyclic
// graph still terminates because visited nodes are never re-entered, but the
// relative order of nodes on the cycle is then unspecified.
func (g *Graph) Order() []string {
	type frame struct {
		id   string
		next int
	}

	sorted := make([]string, 0, len(g.ids))
	visited := make(map[string]bool, len(g.ids))
	for _, root := range g.ids {
		if visited[root] {
			continue
		}
		visited[root] = true
		stack := []frame{{id: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := g.edges[top.id]
			if top.next < len(deps) {
				dep := deps[top.next]
				top.next++
				if visited[dep] {
					continue
				}
				visited[dep] = true
				stack = append(stack, frame{id: dep})
				continue
			}
			sorted = append(sorted, top.id)
			stack = stack[:len(stack)-1]
		}
	}
	return sorted
}

// Order builds the graph for members and returns their publish order.
func Order(members []*Member) []string {
	return NewGraph(members).Order()
}
