package text

import (
	"context"
	"errors"
	"fmt"

	"schem-tracer/internal/ocr"
	"schem-tracer/internal/raster"
	"schem-tracer/pkg/geometry"
)

// OCRSource reads labels from a raster of the page around the anchor.
type OCRSource struct {
	Raster     raster.Rasterizer
	Recognizer ocr.Recognizer

	// Padding is added around the search radius when clipping, so labels
	// straddling the radius are not cut in half.
	Padding float64
	// Zoom enlarges the clip before recognition.
	Zoom float64
	// MinConfidence drops words Tesseract is less sure of (0-100).
	MinConfidence float64
	// Whitelist restricts recognised characters; empty uses ocr.LabelChars.
	Whitelist string
}

// Name implements Source.
func (s *OCRSource) Name() string { return "ocr" }

// Available reports whether both the rasteriser and recogniser are present.
func (s *OCRSource) Available() bool {
	return s != nil && s.Raster != nil && s.Recognizer != nil
}

// Find implements Source.
func (s *OCRSource) Find(ctx context.Context, q Query) (Match, bool, error) {
	if !s.Available() {
		return Match{}, false, ErrOCRUnavailable
	}
	if err := ctx.Err(); err != nil {
		return Match{}, false, err
	}

	region := geometry.RectAround(q.Anchor, q.Radius+s.Padding)
	clip, err := s.Raster.Region(region, s.Zoom)
	if errors.Is(err, raster.ErrEmptyRegion) {
		return Match{}, false, nil
	}
	if err != nil {
		return Match{}, false, fmt.Errorf("failed to rasterise region: %w", err)
	}

	img := clip.Image
	if q.AnchorRadius > 0 {
		img = ocr.MaskRegion(img, clip.ToPixel(geometry.RectAround(q.Anchor, q.AnchorRadius*1.2)).Add(img.Bounds().Min))
	}

	words, err := s.Recognizer.Recognize(img, s.Whitelist)
	if err != nil {
		return Match{}, false, fmt.Errorf("recognition failed: %w", err)
	}

	origin := img.Bounds().Min
	items := make([]Match, 0, len(words))
	for _, w := range words {
		if w.Confidence < s.MinConfidence {
			continue
		}
		txt := NormalizeOCR(w.Text, s.Whitelist == ocr.DigitChars)
		if txt == "" {
			continue
		}
		b := w.Bounds.Sub(origin)
		center := clip.ToPage(float64(b.Min.X+b.Max.X)/2, float64(b.Min.Y+b.Max.Y)/2)
		items = append(items, Match{Text: txt, Center: center, Origin: OriginOCR, Confidence: w.Confidence})
	}

	m, ok := selectBest(items, q)
	return m, ok, nil
}
