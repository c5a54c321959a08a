// Package netlist reduces structural groups, terminals, and pins to a list
// of electrically connected nets.
package netlist

import (
	"fmt"
	"regexp"

	"schem-tracer/pkg/geometry"
)

// ElementType identifies what kind of entity is in a net.
type ElementType int

const (
	ElementTerminal ElementType = iota // Terminal block contact
	ElementPin                         // Component pin
)

func (t ElementType) String() string {
	switch t {
	case ElementTerminal:
		return "Terminal"
	case ElementPin:
		return "Pin"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t ElementType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Member is an entity in a net or in the orphan list.
type Member struct {
	Type     ElementType      `json:"type"`
	ID       string           `json:"id"`
	Position geometry.Point2D `json:"position"`
	// Partial is set when the identifier is missing its group or label.
	Partial bool `json:"partial,omitempty"`
}

func (m Member) String() string {
	if m.Partial {
		return fmt.Sprintf("%s (%.1f, %.1f)", m.ID, m.Position.X, m.Position.Y)
	}
	return m.ID
}

// memberLess orders terminals before pins, then by identifier, then position.
func memberLess(a, b Member) bool {
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	return a.Position.Less(b.Position)
}

// Net is one electrically connected set of entities.
type Net struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []Member `json:"members"`
	// Groups lists the structural group IDs merged into this net.
	Groups      []int `json:"groups"`
	SingleEnded bool  `json:"single_ended"`
	// Busbar is the supply rail label found along the net's wiring, if any.
	Busbar string `json:"busbar,omitempty"`
}

// netIDRe matches generated net IDs like "NET-001".
var netIDRe = regexp.MustCompile(`^NET-\d+$`)

// namePriority scores a candidate display name.
// Higher is better: 0=generated, 1=pin, 2=complete terminal ID.
func namePriority(m Member) int {
	switch {
	case m.Partial || netIDRe.MatchString(m.ID):
		return 0
	case m.Type == ElementPin:
		return 1
	default:
		return 2
	}
}

// pickName returns the display name for a net: the best-ranked member
// identifier, else the busbar label, else the net ID. Members are assumed
// sorted so the first at a given rank wins.
func pickName(id string, members []Member, busbar string) string {
	best, bestPri := id, 0
	for _, m := range members {
		if p := namePriority(m); p > bestPri {
			best, bestPri = m.ID, p
		}
	}
	if bestPri == 0 && busbar != "" {
		return busbar
	}
	return best
}
