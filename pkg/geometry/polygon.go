package geometry

import "math"

// PolylineSegments splits a point sequence into consecutive segments.
// A single point yields one degenerate segment so that it still participates
// in distance queries.
func PolylineSegments(points []Point2D) []Segment {
	switch len(points) {
	case 0:
		return nil
	case 1:
		return []Segment{{A: points[0], B: points[0]}}
	}
	segs := make([]Segment, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		segs = append(segs, Segment{A: points[i-1], B: points[i]})
	}
	return segs
}

// DistanceToPolyline returns the shortest distance from p to any segment.
func DistanceToPolyline(p Point2D, segs []Segment) float64 {
	best := math.Inf(1)
	for _, s := range segs {
		if d := s.DistanceToPoint(p); d < best {
			best = d
		}
	}
	return best
}
