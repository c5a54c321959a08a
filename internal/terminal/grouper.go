package terminal

import (
	"context"
	"fmt"
	"log"
	"math"

	"schem-tracer/internal/config"
	"schem-tracer/internal/text"
)

// AssignGroups returns a copy of terminals, in processing order, with group
// names assigned. Terminals are processed row by row (see SortRows), so
// sub-point jitter in a row does not reorder it.
//
// A group marker (e.g. "-X1") strictly to the left within the y band names a
// terminal directly. Otherwise the group is inherited from the nearest
// already processed terminal to the left in the same y band, then from the
// nearest one straight above. With neither, the group stays empty.
//
// Existing groups on the input are ignored, so running it again on its own
// output gives the same result.
func AssignGroups(ctx context.Context, terminals []Terminal, markers text.Source, cfg config.DetectionConfig) ([]Terminal, error) {
	patterns, err := cfg.Compile()
	if err != nil {
		return nil, err
	}

	out := make([]Terminal, len(terminals))
	copy(out, terminals)
	SortRows(out, cfg.YTolerance)
	for i := range out {
		out[i].Group, out[i].GroupSource = "", GroupNone
	}

	var direct []text.Result
	if markers != nil {
		queries := make([]text.Query, len(out))
		for i, t := range out {
			queries[i] = text.Query{
				Anchor:          t.Center,
				Radius:          cfg.GroupSearchRadius,
				Direction:       text.DirLeft,
				StrictDirection: true,
				Pattern:         patterns.Group,
				YTolerance:      cfg.YTolerance,
				AnchorRadius:    t.Radius,
			}
		}
		direct, err = text.FindAll(ctx, markers, queries, cfg.Workers(), false)
		if err != nil {
			return nil, fmt.Errorf("failed to find group markers: %w", err)
		}
	}

	var nDirect, nInherited int
	for i := range out {
		if direct != nil && direct[i].OK {
			out[i].Group = direct[i].Match.Text
			out[i].GroupSource = GroupDirect
			nDirect++
			continue
		}
		if j := leftParent(out, i, cfg.YTolerance); j >= 0 {
			out[i].Group = out[j].Group
			out[i].GroupSource = GroupInheritedLeft
			nInherited++
			continue
		}
		if j := aboveParent(out, i, cfg.VerticalXTolerance, cfg.VerticalMaxDistance); j >= 0 {
			out[i].Group = out[j].Group
			out[i].GroupSource = GroupInheritedAbove
			nInherited++
		}
	}

	log.Printf("terminal: grouped %d/%d terminals (%d direct, %d inherited)",
		nDirect+nInherited, len(out), nDirect, nInherited)
	return out, nil
}

// leftParent finds the closest grouped terminal before i that sits in the
// same y band and not to the right of it. Closer in x wins, then smaller
// vertical offset, then later in processing order.
func leftParent(ts []Terminal, i int, yTol float64) int {
	cur := ts[i].Center
	best := -1
	var bestDX, bestDY float64
	for j := i - 1; j >= 0; j-- {
		t := ts[j]
		if t.Group == "" {
			continue
		}
		dy := math.Abs(t.Center.Y - cur.Y)
		if dy > yTol || t.Center.X > cur.X {
			continue
		}
		dx := cur.X - t.Center.X
		if best < 0 || dx < bestDX || (dx == bestDX && dy < bestDY) {
			best, bestDX, bestDY = j, dx, dy
		}
	}
	return best
}

// aboveParent finds the closest grouped terminal before i that sits above it
// within xTol horizontally and maxDist vertically.
func aboveParent(ts []Terminal, i int, xTol, maxDist float64) int {
	cur := ts[i].Center
	best := -1
	var bestDY float64
	for j := i - 1; j >= 0; j-- {
		t := ts[j]
		if t.Group == "" || t.Center.Y >= cur.Y {
			continue
		}
		dy := cur.Y - t.Center.Y
		if math.Abs(t.Center.X-cur.X) > xTol || dy > maxDist {
			continue
		}
		if best < 0 || dy < bestDY {
			best, bestDY = j, dy
		}
	}
	return best
}
