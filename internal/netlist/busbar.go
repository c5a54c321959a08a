package netlist

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"schem-tracer/internal/config"
	"schem-tracer/internal/pins"
	"schem-tracer/internal/text"
	"schem-tracer/internal/vector"
	"schem-tracer/pkg/geometry"
)

// Busbar lookup geometry, in page units.
const (
	busbarFlatness = 2.0  // max rise of a horizontal segment
	busbarMinSpan  = 0.05 // fraction of the page width a net must cover
	busbarFrameGap = 5.0  // lines this close to a region's top or bottom are its frame
	busbarBehind   = 5.0
	busbarAhead    = 150.0
	busbarAbove    = 30.0
	busbarBelow    = 2.0
)

var (
	railPrefixes = []string{"P", "N", "L", "M", "+", "-"}
	railMarks    = []string{"24V", "0V", "GND", "VCC", "DC"}
)

// railLabel returns the rail name written in s. Only the part after the
// last '/' counts ("=A1/+24V" names "+24V"); page cross references such
// as "/12.3" never do.
func railLabel(s string) (string, bool) {
	if strings.HasPrefix(s, "/") && strings.ContainsAny(s, "0123456789") {
		return "", false
	}
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return "", false
	}
	for _, p := range railPrefixes {
		if strings.HasPrefix(s, p) {
			return s, true
		}
	}
	for _, m := range railMarks {
		if strings.Contains(s, m) {
			return s, true
		}
	}
	return "", false
}

// railLine returns the left end of the leftmost horizontal segment in prims,
// at the segment's mean height.
func railLine(prims []vector.Primitive) (geometry.Point2D, bool) {
	var best geometry.Point2D
	found := false
	for _, p := range prims {
		if !p.IsPath() {
			continue
		}
		for _, s := range p.Path.Segments() {
			if s.A == s.B || math.Abs(s.A.Y-s.B.Y) >= busbarFlatness {
				continue
			}
			start := geometry.Point2D{X: math.Min(s.A.X, s.B.X), Y: (s.A.Y + s.B.Y) / 2}
			if !found || start.X < best.X || (start.X == best.X && start.Y < best.Y) {
				best, found = start, true
			}
		}
	}
	return best, found
}

func wiringWidth(prims []vector.Primitive) float64 {
	var pts []geometry.Point2D
	for _, p := range prims {
		if p.IsPath() {
			pts = append(pts, p.Path.Points...)
		}
	}
	return geometry.BoundingBox(pts).Width
}

func onFrame(y float64, frames []geometry.Rect) bool {
	for _, f := range frames {
		if math.Abs(y-f.Y) < busbarFrameGap || math.Abs(y-(f.Y+f.Height)) < busbarFrameGap {
			return true
		}
	}
	return false
}

// NameBusbars looks for a supply rail label ("+24V", "L1", "GND") written
// just above the left end of each net's leftmost horizontal wire, stores it
// on the net, and uses it as the net's name when no member is fully named.
//
// Nets narrower than a twentieth of pageWidth are skipped, as are lines
// running along a region's top or bottom edge. Text inside a region and
// group markers never name a rail. Among candidates the one closest to the
// line's height wins.
func NameBusbars(ctx context.Context, res *Result, pageWidth float64, regions []pins.Region, src text.Source, cfg config.DetectionConfig) error {
	if res == nil || src == nil || !cfg.BusbarLabels {
		return nil
	}
	patterns, err := cfg.Compile()
	if err != nil {
		return err
	}

	frames := make([]geometry.Rect, len(regions))
	for i, r := range regions {
		frames[i] = r.Box.Bounds()
	}
	inRegion := func(p geometry.Point2D) bool {
		for _, r := range regions {
			if r.Box.Contains(p) {
				return true
			}
		}
		return false
	}

	var nets []int
	var queries []text.Query
	for i, prims := range res.netPrims {
		line, ok := railLine(prims)
		if !ok || wiringWidth(prims) < pageWidth*busbarMinSpan || onFrame(line.Y, frames) {
			continue
		}
		window := geometry.NewRect(line.X-busbarBehind, line.Y-busbarAbove,
			busbarBehind+busbarAhead, busbarAbove+busbarBelow)
		queries = append(queries, text.Query{
			Anchor:    geometry.Point2D{X: window.X + window.Width/2, Y: line.Y},
			Radius:    math.Hypot(window.Width/2, busbarAbove),
			Direction: text.DirAny,
			Exclude:   patterns.Group,
			RowFirst:  true,
			Accept: func(m text.Match) bool {
				if !window.Contains(m.Center) || inRegion(m.Center) {
					return false
				}
				_, ok := railLabel(m.Text)
				return ok
			},
		})
		nets = append(nets, i)
	}

	results, err := text.FindAll(ctx, src, queries, cfg.Workers(), false)
	if err != nil {
		return fmt.Errorf("failed to read busbar labels: %w", err)
	}

	var named int
	for k, r := range results {
		if !r.OK {
			continue
		}
		label, _ := railLabel(r.Match.Text)
		n := &res.Nets[nets[k]]
		n.Busbar = label
		n.Name = pickName(n.ID, n.Members, label)
		named++
	}
	log.Printf("netlist: %d busbar labels on %d candidate nets", named, len(queries))
	return nil
}
