package text

import (
	"fmt"

	"schem-tracer/pkg/geometry"

	"github.com/ledongthuc/pdf"
)

// ascent is the share of the font size drawn above the baseline.
const ascent = 0.8

// LoadPDFLayer reads the embedded text of one page (1-based) and returns it
// as a Layer in top-down page coordinates.
func LoadPDFLayer(path string, page int, yTol float64) (*Layer, error) {
	runs, err := ReadPDFRuns(path, page)
	if err != nil {
		return nil, err
	}
	return NewLayer(runs, yTol), nil
}

// ReadPDFRuns returns the raw glyph runs of one page, one per text show
// operation as decoded by the PDF reader.
func ReadPDFRuns(path string, page int) (runs []Run, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	if page < 1 || page > r.NumPage() {
		return nil, fmt.Errorf("page %d out of range (document has %d)", page, r.NumPage())
	}
	p := r.Page(page)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d is empty", page)
	}

	// The reader panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			runs, err = nil, fmt.Errorf("failed to decode page %d content: %v", page, rec)
		}
	}()

	box := mediaBox(p.V)
	top := box.Y + box.Height

	content := p.Content()
	runs = make([]Run, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		h := t.FontSize
		if h <= 0 {
			h = 1
		}
		runs = append(runs, Run{
			Text: t.S,
			BBox: geometry.NewRect(t.X-box.X, top-(t.Y+ascent*h), t.W, h),
		})
	}
	return runs, nil
}

// mediaBox returns the page's MediaBox, walking up to inherited values.
// US Letter is assumed when none is present.
func mediaBox(v pdf.Value) geometry.Rect {
	for node := v; !node.IsNull(); node = node.Key("Parent") {
		mb := node.Key("MediaBox")
		if mb.Kind() != pdf.Array || mb.Len() != 4 {
			continue
		}
		x0, y0 := mb.Index(0).Float64(), mb.Index(1).Float64()
		x1, y1 := mb.Index(2).Float64(), mb.Index(3).Float64()
		return geometry.NewRect(x0, y0, x1-x0, y1-y0)
	}
	return geometry.NewRect(0, 0, 612, 792)
}
