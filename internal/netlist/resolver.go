package netlist

import (
	"fmt"
	"log"
	"sort"

	"schem-tracer/internal/config"
	"schem-tracer/internal/pins"
	"schem-tracer/internal/terminal"
	"schem-tracer/internal/vector"
	"schem-tracer/pkg/geometry"
)

// Result is the outcome of connectivity resolution.
type Result struct {
	Nets    []Net    `json:"nets"`
	Orphans []Member `json:"orphans"`
	// ForkSuspects lists sets of nets whose wires meet within tolerance.
	// They are reported for review and never merged.
	ForkSuspects []ForkSuspect `json:"fork_suspects"`

	// netPrims holds the wiring of Nets[i], for lookups after resolution.
	netPrims [][]vector.Primitive
}

// SingleEnded returns the nets with exactly one member.
func (r *Result) SingleEnded() []Net {
	var out []Net
	for _, n := range r.Nets {
		if n.SingleEnded {
			out = append(out, n)
		}
	}
	return out
}

// Resolve attaches terminals and pins to the structural groups they touch
// and merges groups sharing an entity into nets.
//
// A terminal touches a group when its source primitive is a member, or
// when its centre lies within ConnectionTolerance of the group's geometry
// plus its own radius. A pin touches a group when its position lies within
// ConnectionTolerance. Groups touching nothing are dropped; entities
// touching nothing become orphans. Label text plays no part in merging.
func Resolve(model *vector.Model, terminals []terminal.Terminal, pinList []pins.Pin, cfg config.DetectionConfig) *Result {
	members := make([]Member, 0, len(terminals)+len(pinList))
	for _, t := range terminals {
		members = append(members, Member{Type: ElementTerminal, ID: t.FullID(), Position: t.Center, Partial: t.Partial()})
	}
	for _, p := range pinList {
		members = append(members, Member{Type: ElementPin, ID: p.ID(), Position: p.Position, Partial: p.Unlabeled()})
	}

	var groups []vector.StructuralGroup
	var groupPrims [][]vector.Primitive
	if model != nil {
		groups = model.Groups
		groupPrims = make([][]vector.Primitive, len(groups))
		for gi := range groups {
			groupPrims[gi] = model.GroupPrimitives(gi)
		}
	}

	// touches[e] lists the groups entity e intersects, in group order.
	touches := make([][]int, len(members))
	for e := range members {
		tol := cfg.ConnectionTolerance
		own := -1
		if e < len(terminals) {
			tol += terminals[e].Radius
			if model != nil {
				if gi, ok := model.GroupOf(terminals[e].PrimitiveID); ok {
					own = gi
				}
			}
		}
		for gi, prims := range groupPrims {
			if gi == own || touchesGroup(prims, members[e].Position, tol) {
				touches[e] = append(touches[e], gi)
			}
		}
	}

	uf := newUnionFind(len(groups))
	for _, gs := range touches {
		for _, gi := range gs[1:] {
			uf.union(gs[0], gi)
		}
	}

	res := &Result{Nets: []Net{}, Orphans: []Member{}, ForkSuspects: []ForkSuspect{}}
	byRoot := make(map[int][]int) // root group -> member entities
	for e, gs := range touches {
		if len(gs) == 0 {
			res.Orphans = append(res.Orphans, members[e])
			continue
		}
		root := uf.find(gs[0])
		byRoot[root] = append(byRoot[root], e)
	}

	// Visit roots in group order so the build itself is deterministic.
	var roots []int
	groupIdx := make(map[int][]int) // root group -> merged group positions
	for gi := range groups {
		root := uf.find(gi)
		if _, ok := byRoot[root]; !ok {
			continue
		}
		if len(groupIdx[root]) == 0 {
			roots = append(roots, root)
		}
		groupIdx[root] = append(groupIdx[root], gi)
	}

	nets := make([]Net, 0, len(roots))
	netPrims := make([][]vector.Primitive, 0, len(roots))
	for _, root := range roots {
		ms := make([]Member, 0, len(byRoot[root]))
		for _, e := range byRoot[root] {
			ms = append(ms, members[e])
		}
		sort.SliceStable(ms, func(i, j int) bool { return memberLess(ms[i], ms[j]) })

		var ids []int
		var prims []vector.Primitive
		for _, gi := range groupIdx[root] {
			ids = append(ids, groups[gi].ID)
			prims = append(prims, groupPrims[gi]...)
		}
		sort.Ints(ids)
		nets = append(nets, Net{Members: ms, Groups: ids, SingleEnded: len(ms) == 1})
		netPrims = append(netPrims, prims)
	}

	order := make([]int, len(nets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := nets[order[i]], nets[order[j]]
		switch {
		case memberLess(a.Members[0], b.Members[0]):
			return true
		case memberLess(b.Members[0], a.Members[0]):
			return false
		}
		return a.Groups[0] < b.Groups[0]
	})

	sortedPrims := make([][]vector.Primitive, len(nets))
	for rank, i := range order {
		n := nets[i]
		n.ID = fmt.Sprintf("NET-%03d", rank+1)
		n.Name = pickName(n.ID, n.Members, "")
		res.Nets = append(res.Nets, n)
		sortedPrims[rank] = netPrims[i]
	}

	sort.SliceStable(res.Orphans, func(i, j int) bool { return memberLess(res.Orphans[i], res.Orphans[j]) })
	res.ForkSuspects = findForkSuspects(res.Nets, sortedPrims, cfg.ConnectionTolerance)
	res.netPrims = sortedPrims

	log.Printf("netlist: %d nets (%d single-ended), %d orphans, %d fork suspects from %d groups",
		len(res.Nets), len(res.SingleEnded()), len(res.Orphans), len(res.ForkSuspects), len(groups))
	return res
}

// touchesGroup reports whether pos lies within tol of any primitive in prims.
func touchesGroup(prims []vector.Primitive, pos geometry.Point2D, tol float64) bool {
	for _, p := range prims {
		if p.DistanceTo(pos) <= tol {
			return true
		}
	}
	return false
}
