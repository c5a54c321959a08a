package netlist

import (
	"sort"

	"schem-tracer/internal/vector"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ForkSuspect is a set of nets whose wires come within connection tolerance
// of each other. A branching wire can be split into several structural
// groups by the extractor; these nets may be one net on the drawing.
type ForkSuspect struct {
	Nets []string `json:"nets"`
}

// findForkSuspects links nets where a wire endpoint of one lies within tol
// of any primitive of another, and returns the connected clusters of two
// or more nets. prims[i] holds the geometry of nets[i].
func findForkSuspects(nets []Net, prims [][]vector.Primitive, tol float64) []ForkSuspect {
	out := []ForkSuspect{}
	if len(nets) < 2 {
		return out
	}

	g := simple.NewUndirectedGraph()
	for i := range nets {
		g.AddNode(simple.Node(i))
	}

	for a := range nets {
		ends := wirePaths(prims[a])
		for b := range nets {
			if a == b || g.HasEdgeBetween(int64(a), int64(b)) {
				continue
			}
			if anyNear(ends, prims[b], tol) {
				g.SetEdge(g.NewEdge(simple.Node(a), simple.Node(b)))
			}
		}
	}

	var clusters [][]int
	for _, comp := range topo.ConnectedComponents(g) {
		if len(comp) < 2 {
			continue
		}
		idx := make([]int, len(comp))
		for i, n := range comp {
			idx[i] = int(n.ID())
		}
		sort.Ints(idx)
		clusters = append(clusters, idx)
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i][0] < clusters[j][0] })

	for _, idx := range clusters {
		ids := make([]string, len(idx))
		for i, n := range idx {
			ids[i] = nets[n].ID
		}
		out = append(out, ForkSuspect{Nets: ids})
	}
	return out
}

func wirePaths(prims []vector.Primitive) []vector.Primitive {
	var ends []vector.Primitive
	for _, p := range prims {
		if p.IsPath() {
			ends = append(ends, p)
		}
	}
	return ends
}

// anyNear reports whether an endpoint of paths lies within tol of others.
func anyNear(paths, others []vector.Primitive, tol float64) bool {
	for _, p := range paths {
		start, end := p.Path.Start(), p.Path.End()
		for _, o := range others {
			if o.DistanceTo(start) <= tol || o.DistanceTo(end) <= tol {
				return true
			}
		}
	}
	return false
}
