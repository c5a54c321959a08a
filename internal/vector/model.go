// Package vector defines the page geometry snapshot handed over by the
// vector extraction step: primitives, and their partition into structural
// groups (electrically continuous wire runs).
package vector

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"schem-tracer/pkg/geometry"
)

// ErrMalformedModel signals a model that violates the extractor contract.
// It is the only input condition that aborts a run.
var ErrMalformedModel = errors.New("malformed vector model")

// Kind distinguishes primitive payloads.
type Kind string

const (
	KindCircle Kind = "circle"
	KindPath   Kind = "path"
)

// Circle is a closed round shape.
type Circle struct {
	Center geometry.Point2D `json:"center"`
	Radius float64          `json:"radius"`
	// CV is the coefficient of variation of boundary distances from the
	// centroid. Zero for an ideal circle.
	CV     float64 `json:"cv"`
	Filled bool    `json:"filled"`
	// Samples are boundary points; when present and Radius is zero the
	// metrics are derived from them on load.
	Samples []geometry.Point2D `json:"samples,omitempty"`
}

// Path is a polyline.
type Path struct {
	Points []geometry.Point2D `json:"points"`
}

// Start returns the first point.
func (p *Path) Start() geometry.Point2D { return p.Points[0] }

// End returns the last point.
func (p *Path) End() geometry.Point2D { return p.Points[len(p.Points)-1] }

// Segments returns the path's straight pieces.
func (p *Path) Segments() []geometry.Segment {
	return geometry.PolylineSegments(p.Points)
}

// Primitive is one element of the page geometry.
type Primitive struct {
	ID     int     `json:"id"`
	Kind   Kind    `json:"kind"`
	Circle *Circle `json:"circle,omitempty"`
	Path   *Path   `json:"path,omitempty"`
}

// IsCircle reports whether p carries a circle payload.
func (p Primitive) IsCircle() bool { return p.Kind == KindCircle && p.Circle != nil }

// IsPath reports whether p carries a path payload.
func (p Primitive) IsPath() bool { return p.Kind == KindPath && p.Path != nil }

// DistanceTo returns how far pt is from the primitive's drawn outline.
// Circles count as filled discs: a point inside is at distance zero.
func (p Primitive) DistanceTo(pt geometry.Point2D) float64 {
	switch {
	case p.IsCircle():
		return math.Max(0, pt.Distance(p.Circle.Center)-p.Circle.Radius)
	case p.IsPath():
		return geometry.DistanceToPolyline(pt, p.Path.Segments())
	}
	return math.Inf(1)
}

// StructuralGroup is a set of primitives known to be one continuous wire run.
// Members are primitive IDs.
type StructuralGroup struct {
	ID      int   `json:"id"`
	Members []int `json:"members"`
}

// PageInfo identifies the page the model was extracted from.
type PageInfo struct {
	Number int     `json:"number"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Model is an immutable geometry snapshot for one page.
type Model struct {
	Page       PageInfo          `json:"page"`
	Primitives []Primitive       `json:"primitives"`
	Groups     []StructuralGroup `json:"groups"`

	index   map[int]int // primitive ID -> position in Primitives
	groupOf map[int]int // primitive ID -> position in Groups
}

// Validate checks the extractor contract and builds the lookup indexes.
// Every violation wraps ErrMalformedModel.
func (m *Model) Validate() error {
	m.index = make(map[int]int, len(m.Primitives))
	for i, p := range m.Primitives {
		if _, dup := m.index[p.ID]; dup {
			return fmt.Errorf("%w: duplicate primitive id %d", ErrMalformedModel, p.ID)
		}
		m.index[p.ID] = i

		switch p.Kind {
		case KindCircle:
			if p.Circle == nil || p.Path != nil {
				return fmt.Errorf("%w: primitive %d: circle kind without circle payload", ErrMalformedModel, p.ID)
			}
			c := p.Circle
			if math.IsNaN(c.Radius) || c.Radius < 0 || math.IsNaN(c.CV) || c.CV < 0 ||
				math.IsNaN(c.Center.X) || math.IsNaN(c.Center.Y) {
				return fmt.Errorf("%w: primitive %d: invalid circle metrics", ErrMalformedModel, p.ID)
			}
		case KindPath:
			if p.Path == nil || p.Circle != nil {
				return fmt.Errorf("%w: primitive %d: path kind without path payload", ErrMalformedModel, p.ID)
			}
			if len(p.Path.Points) == 0 {
				return fmt.Errorf("%w: primitive %d: path has no points", ErrMalformedModel, p.ID)
			}
		default:
			return fmt.Errorf("%w: primitive %d: unknown kind %q", ErrMalformedModel, p.ID, p.Kind)
		}
	}

	m.groupOf = make(map[int]int)
	seenGroup := make(map[int]bool, len(m.Groups))
	for gi, g := range m.Groups {
		if seenGroup[g.ID] {
			return fmt.Errorf("%w: duplicate group id %d", ErrMalformedModel, g.ID)
		}
		seenGroup[g.ID] = true
		for _, id := range g.Members {
			if _, ok := m.index[id]; !ok {
				return fmt.Errorf("%w: group %d references unknown primitive %d", ErrMalformedModel, g.ID, id)
			}
			if other, ok := m.groupOf[id]; ok {
				return fmt.Errorf("%w: primitive %d is in groups %d and %d", ErrMalformedModel, id, m.Groups[other].ID, g.ID)
			}
			m.groupOf[id] = gi
		}
	}
	return nil
}

// Decode reads a JSON model and validates it.
func Decode(r io.Reader) (*Model, error) {
	var m Model
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedModel, err)
	}
	m.deriveCircleMetrics()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads a JSON model file.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector model: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func (m *Model) deriveCircleMetrics() {
	for i := range m.Primitives {
		c := m.Primitives[i].Circle
		if c == nil || c.Radius != 0 || len(c.Samples) == 0 {
			continue
		}
		fit := CircleFromSamples(c.Samples)
		c.Center, c.Radius, c.CV = fit.Center, fit.Radius, fit.CV
	}
}

// Primitive looks up a primitive by ID.
func (m *Model) Primitive(id int) (Primitive, bool) {
	i, ok := m.index[id]
	if !ok {
		return Primitive{}, false
	}
	return m.Primitives[i], true
}

// GroupOf returns the position in Groups of the group containing a primitive.
func (m *Model) GroupOf(id int) (int, bool) {
	gi, ok := m.groupOf[id]
	return gi, ok
}

// GroupPrimitives returns the primitives of Groups[gi] in member order.
func (m *Model) GroupPrimitives(gi int) []Primitive {
	g := m.Groups[gi]
	out := make([]Primitive, 0, len(g.Members))
	for _, id := range g.Members {
		if p, ok := m.Primitive(id); ok {
			out = append(out, p)
		}
	}
	return out
}

// Circles returns all circle primitives in model order.
func (m *Model) Circles() []Primitive {
	var out []Primitive
	for _, p := range m.Primitives {
		if p.IsCircle() {
			out = append(out, p)
		}
	}
	return out
}

// Paths returns all path primitives in model order.
func (m *Model) Paths() []Primitive {
	var out []Primitive
	for _, p := range m.Primitives {
		if p.IsPath() {
			out = append(out, p)
		}
	}
	return out
}
