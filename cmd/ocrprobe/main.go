// Command ocrprobe runs the OCR fallback on one region of a page raster and
// prints the recognised words in page coordinates.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"schem-tracer/internal/config"
	"schem-tracer/internal/ocr"
	"schem-tracer/internal/raster"
	"schem-tracer/internal/text"
	"schem-tracer/pkg/geometry"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	imagePath := flag.String("image", "", "Path to page raster (TIFF, PNG, or JPEG)")
	dpi := flag.Float64("dpi", 300, "Raster DPI")
	x := flag.Float64("x", 0, "Region left edge (page units)")
	y := flag.Float64("y", 0, "Region top edge (page units)")
	w := flag.Float64("w", 100, "Region width (page units)")
	h := flag.Float64("h", 50, "Region height (page units)")
	zoom := flag.Float64("zoom", config.Default().OCRZoom, "Zoom applied before recognition")
	lang := flag.String("lang", "eng", "Tesseract language")
	digits := flag.Bool("digits", false, "Restrict recognition to digits")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: ocrprobe -image <path> [-dpi 300] -x X -y Y [-w 100] [-h 50] [-zoom 3] [-digits]")
		os.Exit(1)
	}

	page, err := raster.Load(*imagePath, *dpi)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load raster: %v\n", err)
		os.Exit(1)
	}
	b := page.Bounds()
	fmt.Printf("Loaded raster: %.0fx%.0f page units at %.0f DPI\n", b.Width, b.Height, *dpi)

	region := geometry.NewRect(*x, *y, *w, *h)
	clip, err := page.Region(region, *zoom)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to clip region: %v\n", err)
		os.Exit(1)
	}
	px := clip.Image.Bounds()
	fmt.Printf("Region (%.1f, %.1f) %.1fx%.1f -> %dx%d pixels (%.2f px/unit)\n",
		region.X, region.Y, region.Width, region.Height, px.Dx(), px.Dy(), clip.PixelsPerUnit)

	engine, err := ocr.NewEngine(*lang)
	if err != nil {
		fmt.Fprintf(os.Stderr, "OCR unavailable: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	whitelist := ocr.LabelChars
	if *digits {
		whitelist = ocr.DigitChars
	}
	words, err := engine.Recognize(clip.Image, whitelist)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Recognition failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nRecognised %d words:\n", len(words))
	fmt.Printf("%-16s %-16s %10s %10s %10s\n", "Raw", "Normalised", "X", "Y", "Confidence")
	for _, word := range words {
		r := word.Bounds.Sub(px.Min)
		c := clip.ToPage(float64(r.Min.X+r.Max.X)/2, float64(r.Min.Y+r.Max.Y)/2)
		fmt.Printf("%-16s %-16s %10.1f %10.1f %10.1f\n",
			word.Text, text.NormalizeOCR(word.Text, *digits), c.X, c.Y, word.Confidence)
	}
}
