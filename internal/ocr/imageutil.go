package ocr

import (
	"image"
	"image/color"
	"image/draw"
)

// CalculateBackgroundColor samples the border pixels of an image and returns
// their average color. Used to paint over symbols before recognition.
func CalculateBackgroundColor(img image.Image) color.RGBA {
	bounds := img.Bounds()
	if bounds.Empty() {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	var r, g, b, count uint64

	sample := func(x, y int) {
		cr, cg, cb, _ := img.At(x, y).RGBA()
		r += uint64(cr >> 8)
		g += uint64(cg >> 8)
		b += uint64(cb >> 8)
		count++
	}
	for x := bounds.Min.X; x < bounds.Max.X; x++ {
		sample(x, bounds.Min.Y)
		sample(x, bounds.Max.Y-1)
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		sample(bounds.Min.X, y)
		sample(bounds.Max.X-1, y)
	}

	return color.RGBA{
		R: uint8(r / count),
		G: uint8(g / count),
		B: uint8(b / count),
		A: 255,
	}
}

// MaskRegion returns a copy of img with rect filled by the background color.
// Terminal circles read as "O" or "0" unless they are removed first.
func MaskRegion(img image.Image, rect image.Rectangle) image.Image {
	bounds := img.Bounds()
	rect = rect.Intersect(bounds)
	if rect.Empty() {
		return img
	}

	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)
	bg := CalculateBackgroundColor(img)
	draw.Draw(out, rect, &image.Uniform{C: bg}, image.Point{}, draw.Src)
	return out
}
