// Package ocr provides the optical fallback used when a schematic page has no
// embedded text for a label.
package ocr

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// LabelChars is the character set accepted on terminal and pin labels.
const LabelChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-+./:"

// DigitChars restricts recognition to numeric terminal labels.
const DigitChars = "0123456789"

// minOCRDim is the smallest side length handed to Tesseract; smaller crops are upscaled.
const minOCRDim = 150

// ErrEmptyImage is returned for nil or zero-sized input.
var ErrEmptyImage = errors.New("ocr: empty image")

// Word is a single recognised token. Bounds are in the pixel space of the
// image passed to Recognize.
type Word struct {
	Text       string
	Bounds     image.Rectangle
	Confidence float64 // 0-100, as reported by Tesseract
}

// Recognizer turns a raster into words.
type Recognizer interface {
	Recognize(img image.Image, whitelist string) ([]Word, error)
}

// Engine provides OCR functionality using Tesseract.
// A single Tesseract client is not safe for concurrent use, so calls are serialised.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewEngine creates a new OCR engine. An error here means the fallback is
// unavailable and callers should continue with embedded text only.
func NewEngine(language string) (*Engine, error) {
	if language == "" {
		language = "eng"
	}
	client := gosseract.NewClient()

	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Labels like -X12 or PE are not dictionary words
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")
	_ = client.SetVariable("language_model_penalty_non_dict_word", "0")
	_ = client.SetVariable("language_model_penalty_non_freq_dict_word", "0")

	return &Engine{client: client}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Recognize finds and reads all words in img.
func (e *Engine) Recognize(img image.Image, whitelist string) ([]Word, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	src := imageToMat(img)
	defer src.Close()

	processed, scale := preprocessForOCR(src)
	defer processed.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, processed)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Labels are scattered short tokens, not paragraphs
	if err := e.client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	if whitelist == "" {
		whitelist = LabelChars
	}
	if err := e.client.SetWhitelist(whitelist); err != nil {
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	origin := img.Bounds().Min
	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		text := strings.Join(strings.Fields(box.Word), "")
		if text == "" {
			continue
		}
		words = append(words, Word{
			Text:       text,
			Bounds:     unscaleRect(box.Box, scale).Add(origin),
			Confidence: box.Confidence,
		})
	}
	return words, nil
}

// unscaleRect maps a rectangle from the upscaled image back to the input image.
func unscaleRect(r image.Rectangle, scale float64) image.Rectangle {
	if scale == 1 {
		return r
	}
	return image.Rect(
		int(float64(r.Min.X)/scale), int(float64(r.Min.Y)/scale),
		int(float64(r.Max.X)/scale+0.5), int(float64(r.Max.Y)/scale+0.5),
	)
}

// preprocessForOCR binarises a crop for Tesseract and returns the upscale
// factor that was applied.
func preprocessForOCR(region gocv.Mat) (gocv.Mat, float64) {
	h, w := region.Rows(), region.Cols()

	scale := 1.0
	var scaled gocv.Mat
	if minDim := min(h, w); minDim < minOCRDim {
		scale = float64(minOCRDim) / float64(minDim)
		scaled = gocv.NewMat()
		gocv.Resize(region, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
	} else {
		scaled = region.Clone()
	}

	gray := gocv.NewMat()
	gocv.CvtColor(scaled, &gray, gocv.ColorBGRToGray)
	scaled.Close()

	clahe := gocv.NewCLAHEWithParams(2.0, image.Point{8, 8})
	defer clahe.Close()

	enhanced := gocv.NewMat()
	clahe.Apply(gray, &enhanced)
	gray.Close()

	binary := gocv.NewMat()
	gocv.Threshold(enhanced, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	enhanced.Close()

	// Tesseract wants dark text on a light background
	whiteRatio := float64(gocv.CountNonZero(binary)) / float64(binary.Rows()*binary.Cols())
	if whiteRatio < 0.5 {
		gocv.BitwiseNot(binary, &binary)
	}

	result := gocv.NewMat()
	gocv.CvtColor(binary, &result, gocv.ColorGrayToBGR)
	binary.Close()

	return result, scale
}

// imageToMat converts a Go image to a BGR OpenCV Mat.
func imageToMat(src image.Image) gocv.Mat {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			mat.SetUCharAt(y, x*3+0, uint8(b>>8))
			mat.SetUCharAt(y, x*3+1, uint8(g>>8))
			mat.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}
	return mat
}
