package text

import (
	"fmt"
	"math"
	"strings"

	"schem-tracer/pkg/geometry"
)

// Direction selects which side of an anchor a label is expected on.
// Page Y grows downward, so "top" means smaller Y.
type Direction int

const (
	DirAny Direction = iota
	DirTop
	DirBottom
	DirLeft
	DirRight
	DirTopRight
	DirTopLeft
	DirBottomRight
	DirBottomLeft
)

var directionNames = map[Direction]string{
	DirAny:         "any",
	DirTop:         "top",
	DirBottom:      "bottom",
	DirLeft:        "left",
	DirRight:       "right",
	DirTopRight:    "top_right",
	DirTopLeft:     "top_left",
	DirBottomRight: "bottom_right",
	DirBottomLeft:  "bottom_left",
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether d is one of the defined directions.
func (d Direction) Valid() bool {
	_, ok := directionNames[d]
	return ok
}

// ParseDirection accepts the names produced by String, with '-' or '_'.
func ParseDirection(s string) (Direction, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for d, name := range directionNames {
		if name == key {
			return d, nil
		}
	}
	return DirAny, fmt.Errorf("unknown search direction %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Accepts reports whether target lies in the direction's sector as seen from anchor.
// Cardinal sectors are 90 degrees wide, centred on the axis; diagonal sectors
// are the quadrant between the two axes.
func (d Direction) Accepts(anchor, target geometry.Point2D) bool {
	if d == DirAny {
		return true
	}
	angle := math.Atan2(target.Y-anchor.Y, target.X-anchor.X) * 180 / math.Pi

	switch d {
	case DirRight:
		return angle >= -45 && angle <= 45
	case DirBottom:
		return angle >= 45 && angle <= 135
	case DirLeft:
		return angle >= 135 || angle <= -135
	case DirTop:
		return angle >= -135 && angle <= -45
	case DirTopRight:
		return angle >= -90 && angle <= 0
	case DirTopLeft:
		return angle <= -90 || angle == 180
	case DirBottomRight:
		return angle >= 0 && angle <= 90
	case DirBottomLeft:
		return angle >= 90
	}
	return false
}
