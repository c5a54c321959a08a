// Package raster supplies page images for the OCR fallback. The page itself
// is rendered by an external tool; this package only loads the render and
// cuts regions out of it.
package raster

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"schem-tracer/pkg/geometry"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff"
)

// pdfPointsPerInch converts DPI to pixels per page unit.
const pdfPointsPerInch = 72.0

// ErrEmptyRegion is returned when a requested region lies outside the page.
var ErrEmptyRegion = errors.New("raster: region outside page")

// Clip is a cut-out of the page. Pixel (0,0) of Image maps to Origin in page
// units and each page unit spans PixelsPerUnit pixels.
type Clip struct {
	Image         image.Image
	Origin        geometry.Point2D
	PixelsPerUnit float64
}

// ToPage maps a pixel position within the clip to page coordinates.
func (c Clip) ToPage(px, py float64) geometry.Point2D {
	return geometry.Point2D{
		X: c.Origin.X + px/c.PixelsPerUnit,
		Y: c.Origin.Y + py/c.PixelsPerUnit,
	}
}

// ToPixel maps a page rectangle into clip pixel space.
func (c Clip) ToPixel(r geometry.Rect) image.Rectangle {
	x0 := (r.X - c.Origin.X) * c.PixelsPerUnit
	y0 := (r.Y - c.Origin.Y) * c.PixelsPerUnit
	return image.Rect(
		int(math.Floor(x0)), int(math.Floor(y0)),
		int(math.Ceil(x0+r.Width*c.PixelsPerUnit)), int(math.Ceil(y0+r.Height*c.PixelsPerUnit)),
	)
}

// Rasterizer produces an image of a page region, enlarged by zoom.
type Rasterizer interface {
	Region(r geometry.Rect, zoom float64) (Clip, error)
}

// PageImage is a full-page render held in memory.
type PageImage struct {
	img   image.Image
	scale float64 // pixels per page unit
}

// NewPageImage wraps an already decoded render made at dpi.
func NewPageImage(img image.Image, dpi float64) *PageImage {
	if dpi <= 0 {
		dpi = pdfPointsPerInch
	}
	return &PageImage{img: img, scale: dpi / pdfPointsPerInch}
}

// Load decodes a PNG, JPEG or TIFF page render.
func Load(path string, dpi float64) (*PageImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raster: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode raster %s: %w", path, err)
	}
	return NewPageImage(img, dpi), nil
}

// Bounds returns the page extent in page units.
func (p *PageImage) Bounds() geometry.Rect {
	b := p.img.Bounds()
	return geometry.NewRect(0, 0, float64(b.Dx())/p.scale, float64(b.Dy())/p.scale)
}

// Region crops r (page units) out of the render, clamped to the page, and
// resizes it by zoom.
func (p *PageImage) Region(r geometry.Rect, zoom float64) (Clip, error) {
	r = r.Intersect(p.Bounds())
	if r.Empty() {
		return Clip{}, ErrEmptyRegion
	}
	if zoom <= 0 {
		zoom = 1
	}

	b := p.img.Bounds()
	px := image.Rect(
		b.Min.X+int(math.Floor(r.X*p.scale)), b.Min.Y+int(math.Floor(r.Y*p.scale)),
		b.Min.X+int(math.Ceil((r.X+r.Width)*p.scale)), b.Min.Y+int(math.Ceil((r.Y+r.Height)*p.scale)),
	).Intersect(b)
	if px.Empty() {
		return Clip{}, ErrEmptyRegion
	}

	var out image.Image = imaging.Crop(p.img, px)
	if zoom != 1 {
		out = imaging.Resize(out, int(math.Round(float64(px.Dx())*zoom)), 0, imaging.Lanczos)
	}

	return Clip{
		Image: out,
		Origin: geometry.Point2D{
			X: float64(px.Min.X-b.Min.X) / p.scale,
			Y: float64(px.Min.Y-b.Min.Y) / p.scale,
		},
		PixelsPerUnit: p.scale * zoom,
	}, nil
}
