// Package text resolves label strings near a point on a schematic page. The
// embedded PDF text layer is consulted first and an OCR reading of the
// rasterised neighbourhood is used as a fallback.
package text

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"

	"schem-tracer/pkg/geometry"
)

// ErrOCRUnavailable means the recognition fallback is not installed or configured.
var ErrOCRUnavailable = errors.New("text: OCR fallback unavailable")

// Origin records which layer produced a label.
type Origin int

const (
	OriginNone Origin = iota
	OriginEmbedded
	OriginOCR
)

func (o Origin) String() string {
	switch o {
	case OriginEmbedded:
		return "embedded"
	case OriginOCR:
		return "ocr"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Query describes one label lookup.
type Query struct {
	Anchor    geometry.Point2D
	Radius    float64
	Direction Direction
	// StrictDirection rejects candidates outside the direction's sector.
	// Otherwise the direction is a preference and other sectors are used
	// when the preferred one is empty.
	StrictDirection bool
	Pattern         *regexp.Regexp
	// Exclude rejects candidates it matches, even when Pattern accepts them.
	Exclude *regexp.Regexp
	// Accept, when set, is a last filter on each candidate.
	Accept func(Match) bool
	// YTolerance, when positive, only admits candidates whose centre is
	// within this vertical distance of the anchor.
	YTolerance float64
	// AnchorRadius is the size of the symbol at the anchor; the OCR fallback
	// blanks it out before recognition.
	AnchorRadius float64
	// RowFirst ranks candidates by vertical offset before distance, for
	// labels written along a horizontal line.
	RowFirst bool
}

// Match is a resolved label.
type Match struct {
	Text       string           `json:"text"`
	Center     geometry.Point2D `json:"center"`
	Origin     Origin           `json:"origin"`
	Confidence float64          `json:"confidence"`
}

// Source is one way of finding text near a point. ok is false when nothing
// valid was found, which is not an error.
type Source interface {
	Find(ctx context.Context, q Query) (m Match, ok bool, err error)
	Name() string
}

// candidate is a text item under consideration for a query.
type candidate struct {
	match     Match
	dist      float64
	dy        float64
	preferred bool
}

// equalEps treats distances this close as a tie.
const equalEps = 1e-9

// selectBest applies the radius, band, pattern and direction rules to items
// and returns the winner. Ties on distance go to the smaller vertical offset,
// then to the leftmost item. With RowFirst the first two keys swap.
func selectBest(items []Match, q Query) (Match, bool) {
	var cands []candidate
	for _, m := range items {
		dist := m.Center.Distance(q.Anchor)
		if dist > q.Radius {
			continue
		}
		dy := math.Abs(m.Center.Y - q.Anchor.Y)
		if q.YTolerance > 0 && dy > q.YTolerance {
			continue
		}
		if q.Pattern != nil && !q.Pattern.MatchString(m.Text) {
			continue
		}
		if q.Exclude != nil && q.Exclude.MatchString(m.Text) {
			continue
		}
		preferred := q.Direction.Accepts(q.Anchor, m.Center)
		if q.StrictDirection && !preferred {
			continue
		}
		if q.Accept != nil && !q.Accept(m) {
			continue
		}
		cands = append(cands, candidate{match: m, dist: dist, dy: dy, preferred: preferred})
	}
	if len(cands) == 0 {
		return Match{}, false
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.preferred != b.preferred {
			return a.preferred
		}
		first, second := a.dist-b.dist, a.dy-b.dy
		if q.RowFirst {
			first, second = second, first
		}
		if math.Abs(first) > equalEps {
			return first < 0
		}
		if math.Abs(second) > equalEps {
			return second < 0
		}
		if a.match.Center.X != b.match.Center.X {
			return a.match.Center.X < b.match.Center.X
		}
		return a.match.Text < b.match.Text
	})
	return cands[0].match, true
}
