// Package geometry provides the page-space geometric types shared by the
// detection and connectivity stages. Page coordinates grow downward in Y.
package geometry

import (
	"math"
)

// Point2D is a position on the page in PDF units.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// Less orders points top-to-bottom, then left-to-right.
func (p Point2D) Less(other Point2D) bool {
	if p.Y != other.Y {
		return p.Y < other.Y
	}
	return p.X < other.X
}

// Rect is an axis-aligned rectangle. X/Y is the top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewRect creates a new Rect.
func NewRect(x, y, width, height float64) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// RectAround returns the square of half-size r centred on p.
func RectAround(p Point2D, r float64) Rect {
	return Rect{X: p.X - r, Y: p.Y - r, Width: 2 * r, Height: 2 * r}
}

// Contains returns true if the point is inside the rectangle or on its edge.
func (r Rect) Contains(p Point2D) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// ContainsStrict returns true if the point is inside the rectangle and not on its edge.
func (r Rect) ContainsStrict(p Point2D) bool {
	return p.X > r.X && p.X < r.X+r.Width &&
		p.Y > r.Y && p.Y < r.Y+r.Height
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point2D {
	return Point2D{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Intersect returns the overlap of two rectangles; the result is empty
// (zero width or height) when they do not overlap.
func (r Rect) Intersect(other Rect) Rect {
	x0 := math.Max(r.X, other.X)
	y0 := math.Max(r.Y, other.Y)
	x1 := math.Min(r.X+r.Width, other.X+other.Width)
	y1 := math.Min(r.Y+r.Height, other.Y+other.Height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Segment is a straight piece of a wire path.
type Segment struct {
	A Point2D `json:"a"`
	B Point2D `json:"b"`
}

// Length returns the segment length.
func (s Segment) Length() float64 {
	return s.A.Distance(s.B)
}

// DistanceToPoint returns the shortest distance from p to the segment.
func (s Segment) DistanceToPoint(p Point2D) float64 {
	dx := s.B.X - s.A.X
	dy := s.B.Y - s.A.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return p.Distance(s.A)
	}
	t := ((p.X-s.A.X)*dx + (p.Y-s.A.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Distance(Point2D{X: s.A.X + t*dx, Y: s.A.Y + t*dy})
}

// OrientedBox is a rectangle rotated about its centre. Rotation is in degrees,
// clockwise on the page (Y down).
type OrientedBox struct {
	Center   Point2D `json:"center"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation,omitempty"`
}

// BoxFromRect creates an unrotated OrientedBox covering r.
func BoxFromRect(r Rect) OrientedBox {
	return OrientedBox{Center: r.Center(), Width: r.Width, Height: r.Height}
}

// toLocal maps a page point into the box frame, where the box spans
// [-w/2, w/2] x [-h/2, h/2].
func (b OrientedBox) toLocal(p Point2D) Point2D {
	if b.Rotation == 0 {
		return p.Sub(b.Center)
	}
	t := Translation(b.Center.X, b.Center.Y).Compose(Rotation(b.Rotation * math.Pi / 180))
	inv, ok := t.Inverse()
	if !ok {
		return p.Sub(b.Center)
	}
	return inv.Apply(p)
}

// Contains returns true if p is inside the box or on its edge.
func (b OrientedBox) Contains(p Point2D) bool {
	l := b.toLocal(p)
	return math.Abs(l.X) <= b.Width/2 && math.Abs(l.Y) <= b.Height/2
}

// ContainsStrict returns true if p is inside the box and not on its edge.
func (b OrientedBox) ContainsStrict(p Point2D) bool {
	l := b.toLocal(p)
	return math.Abs(l.X) < b.Width/2 && math.Abs(l.Y) < b.Height/2
}

// Polygon returns the four corners of the box in page coordinates.
func (b OrientedBox) Polygon() []Point2D {
	t := Translation(b.Center.X, b.Center.Y).Compose(Rotation(b.Rotation * math.Pi / 180))
	hw, hh := b.Width/2, b.Height/2
	return []Point2D{
		t.Apply(Point2D{X: -hw, Y: -hh}),
		t.Apply(Point2D{X: hw, Y: -hh}),
		t.Apply(Point2D{X: hw, Y: hh}),
		t.Apply(Point2D{X: -hw, Y: hh}),
	}
}

// Bounds returns the axis-aligned bounding rectangle of the box.
func (b OrientedBox) Bounds() Rect {
	return BoundingBox(b.Polygon())
}

// AffineTransform represents a 2x3 affine transformation matrix.
// [a b tx]
// [c d ty]
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

// Translation returns a translation transform.
func Translation(tx, ty float64) AffineTransform {
	return AffineTransform{A: 1, D: 1, TX: tx, TY: ty}
}

// Rotation returns a rotation transform around the origin.
func Rotation(radians float64) AffineTransform {
	cos := math.Cos(radians)
	sin := math.Sin(radians)
	return AffineTransform{A: cos, B: -sin, C: sin, D: cos}
}

// Apply applies the transform to a point.
func (t AffineTransform) Apply(p Point2D) Point2D {
	return Point2D{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// Compose returns this transform composed with another (this * other).
func (t AffineTransform) Compose(other AffineTransform) AffineTransform {
	return AffineTransform{
		A:  t.A*other.A + t.B*other.C,
		B:  t.A*other.B + t.B*other.D,
		TX: t.A*other.TX + t.B*other.TY + t.TX,
		C:  t.C*other.A + t.D*other.C,
		D:  t.C*other.B + t.D*other.D,
		TY: t.C*other.TX + t.D*other.TY + t.TY,
	}
}

// Inverse returns the inverse transform, if it exists.
func (t AffineTransform) Inverse() (AffineTransform, bool) {
	det := t.A*t.D - t.B*t.C
	if math.Abs(det) < 1e-10 {
		return AffineTransform{}, false
	}

	invDet := 1.0 / det
	return AffineTransform{
		A:  t.D * invDet,
		B:  -t.B * invDet,
		TX: (t.B*t.TY - t.D*t.TX) * invDet,
		C:  -t.C * invDet,
		D:  t.A * invDet,
		TY: (t.C*t.TX - t.A*t.TY) * invDet,
	}, true
}

// Centroid computes the centroid (average position) of a set of points.
func Centroid(points []Point2D) Point2D {
	if len(points) == 0 {
		return Point2D{}
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return Point2D{X: sumX / n, Y: sumY / n}
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Point2D) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
