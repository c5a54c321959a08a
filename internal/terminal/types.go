// Package terminal finds terminal-block contacts on a schematic page and
// names them: detection from circle geometry, label lookup, and group
// assignment.
package terminal

import (
	"sort"
	"strings"

	"schem-tracer/internal/text"
	"schem-tracer/pkg/geometry"
)

// GroupSource records how a terminal got its group.
type GroupSource int

const (
	GroupNone GroupSource = iota
	GroupDirect
	GroupInheritedLeft
	GroupInheritedAbove
)

func (s GroupSource) String() string {
	switch s {
	case GroupDirect:
		return "direct"
	case GroupInheritedLeft:
		return "inherited_left"
	case GroupInheritedAbove:
		return "inherited_above"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s GroupSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Inherited reports whether the group was copied from a neighbour.
func (s GroupSource) Inherited() bool {
	return s == GroupInheritedLeft || s == GroupInheritedAbove
}

// Terminal is one detected terminal contact.
type Terminal struct {
	PrimitiveID int              `json:"primitive_id"`
	Center      geometry.Point2D `json:"center"`
	Radius      float64          `json:"radius"`
	CV          float64          `json:"cv"`

	Label           string      `json:"label,omitempty"`
	LabelSource     text.Origin `json:"label_source"`
	LabelConfidence float64     `json:"label_confidence,omitempty"`
	// LabelConflict is set when the OCR reading disagreed with the embedded text.
	LabelConflict *text.Disagreement `json:"label_conflict,omitempty"`

	Group       string      `json:"group,omitempty"`
	GroupSource GroupSource `json:"group_source"`
}

// Unlabeled reports whether no label was resolved.
func (t Terminal) Unlabeled() bool { return t.Label == "" }

// Ungrouped reports whether no group was resolved.
func (t Terminal) Ungrouped() bool { return t.Group == "" }

// Partial reports whether the full identifier is missing a part.
func (t Terminal) Partial() bool { return t.Unlabeled() || t.Ungrouped() }

// FullID returns "{group}:{label}". Missing parts are left empty, so a
// terminal with only a label reads ":{label}".
func (t Terminal) FullID() string {
	return t.Group + ":" + t.Label
}

// SplitID splits a full identifier into group and label.
func SplitID(id string) (group, label string, ok bool) {
	i := strings.LastIndex(id, ":")
	if i < 0 {
		return "", "", false
	}
	return id[:i], id[i+1:], true
}

// Less is the processing order: top-down, left-right, then primitive ID.
func Less(a, b Terminal) bool {
	if a.Center.Y != b.Center.Y {
		return a.Center.Y < b.Center.Y
	}
	if a.Center.X != b.Center.X {
		return a.Center.X < b.Center.X
	}
	if a.Radius != b.Radius {
		return a.Radius < b.Radius
	}
	return a.PrimitiveID < b.PrimitiveID
}

// Sort orders terminals in place by Less.
func Sort(ts []Terminal) {
	sort.SliceStable(ts, func(i, j int) bool { return Less(ts[i], ts[j]) })
}

// SortRows orders terminals in place row by row. Terminals are clustered into
// rows whose centres lie within yTol of the row's topmost terminal; rows run
// top to bottom and terminals within a row left to right.
func SortRows(ts []Terminal, yTol float64) {
	Sort(ts)
	type rowed struct {
		row int
		t   Terminal
	}
	keyed := make([]rowed, len(ts))
	r, top := 0, 0.0
	for i, t := range ts {
		if i == 0 {
			top = t.Center.Y
		} else if t.Center.Y-top > yTol {
			r, top = r+1, t.Center.Y
		}
		keyed[i] = rowed{row: r, t: t}
	}
	sort.SliceStable(keyed, func(i, j int) bool {
		a, b := keyed[i], keyed[j]
		if a.row != b.row {
			return a.row < b.row
		}
		if a.t.Center.X != b.t.Center.X {
			return a.t.Center.X < b.t.Center.X
		}
		return Less(a.t, b.t)
	})
	for i, k := range keyed {
		ts[i] = k.t
	}
}
