package text

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"schem-tracer/pkg/geometry"
)

// Run is a piece of embedded text with its bounding box in page units
// (top-down Y).
type Run struct {
	Text string        `json:"text"`
	BBox geometry.Rect `json:"bbox"`
}

// Center returns the middle of the run's box.
func (r Run) Center() geometry.Point2D {
	return r.BBox.Center()
}

// maxGlyphGap is the largest horizontal gap, as a fraction of run height,
// that still joins two runs into one word.
const maxGlyphGap = 0.25

// Layer is the embedded text of one page, indexed for proximity queries.
type Layer struct {
	runs []Run
}

// NewLayer joins glyph runs that sit on the same line and touch horizontally.
// Runs are compared only when their vertical offset is within yTol and within
// half a line height, so stacked labels stay separate.
func NewLayer(runs []Run, yTol float64) *Layer {
	cleaned := make([]Run, 0, len(runs))
	for _, r := range runs {
		r.Text = Normalize(r.Text)
		if r.Text == "" {
			continue
		}
		cleaned = append(cleaned, r)
	}

	sort.SliceStable(cleaned, func(i, j int) bool {
		a, b := cleaned[i].Center(), cleaned[j].Center()
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return cleaned[i].BBox.X < cleaned[j].BBox.X
	})

	used := make([]bool, len(cleaned))
	var merged []Run
	for i := range cleaned {
		if used[i] {
			continue
		}
		used[i] = true
		cur := cleaned[i]
		for {
			next := -1
			for j := range cleaned {
				if used[j] || !sameLine(cur, cleaned[j], yTol) {
					continue
				}
				gap := cleaned[j].BBox.X - (cur.BBox.X + cur.BBox.Width)
				if gap < -cur.BBox.Width/2 || gap > maxGlyphGap*math.Max(cur.BBox.Height, cleaned[j].BBox.Height) {
					continue
				}
				if next < 0 || cleaned[j].BBox.X < cleaned[next].BBox.X {
					next = j
				}
			}
			if next < 0 {
				break
			}
			used[next] = true
			cur = joinRuns(cur, cleaned[next])
		}
		merged = append(merged, cur)
	}
	return &Layer{runs: merged}
}

func sameLine(a, b Run, yTol float64) bool {
	dy := math.Abs(a.Center().Y - b.Center().Y)
	limit := math.Min(yTol, math.Max(a.BBox.Height, b.BBox.Height)/2)
	return dy <= limit
}

func joinRuns(a, b Run) Run {
	x0 := math.Min(a.BBox.X, b.BBox.X)
	y0 := math.Min(a.BBox.Y, b.BBox.Y)
	x1 := math.Max(a.BBox.X+a.BBox.Width, b.BBox.X+b.BBox.Width)
	y1 := math.Max(a.BBox.Y+a.BBox.Height, b.BBox.Y+b.BBox.Height)
	return Run{Text: a.Text + b.Text, BBox: geometry.NewRect(x0, y0, x1-x0, y1-y0)}
}

// Runs returns the line-joined runs in reading order.
func (l *Layer) Runs() []Run {
	if l == nil {
		return nil
	}
	out := make([]Run, len(l.runs))
	copy(out, l.runs)
	return out
}

// LoadRuns reads text runs written by an external extractor as a JSON array
// of {"text", "bbox"} objects.
func LoadRuns(path string) ([]Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var runs []Run
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("failed to parse text runs %s: %w", path, err)
	}
	return runs, nil
}

// Len returns the number of joined runs.
func (l *Layer) Len() int {
	if l == nil {
		return 0
	}
	return len(l.runs)
}

// Name implements Source.
func (l *Layer) Name() string { return "embedded" }

// Find implements Source.
func (l *Layer) Find(ctx context.Context, q Query) (Match, bool, error) {
	if err := ctx.Err(); err != nil {
		return Match{}, false, err
	}
	if l == nil || len(l.runs) == 0 {
		return Match{}, false, nil
	}

	items := make([]Match, 0, 8)
	for _, r := range l.runs {
		c := r.Center()
		// cheap reject before the distance check
		if math.Abs(c.X-q.Anchor.X) > q.Radius || math.Abs(c.Y-q.Anchor.Y) > q.Radius {
			continue
		}
		items = append(items, Match{Text: r.Text, Center: c, Origin: OriginEmbedded, Confidence: 100})
	}
	m, ok := selectBest(items, q)
	return m, ok, nil
}
