package text

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"schem-tracer/internal/ocr"
	"schem-tracer/internal/raster"
	"schem-tracer/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(x, y float64) geometry.Point2D { return geometry.Point2D{X: x, Y: y} }

func TestDirectionAccepts(t *testing.T) {
	anchor := pt(0, 0)
	tests := []struct {
		dir    Direction
		target geometry.Point2D
		want   bool
	}{
		{DirAny, pt(-5, 7), true},
		{DirRight, pt(10, 2), true},
		{DirRight, pt(-10, 2), false},
		{DirTop, pt(1, -10), true},
		{DirTop, pt(1, 10), false},
		{DirBottom, pt(1, 10), true},
		{DirLeft, pt(-10, 1), true},
		{DirLeft, pt(-10, -1), true},
		{DirTopRight, pt(5, -5), true},
		{DirTopRight, pt(-5, -5), false},
		{DirTopLeft, pt(-5, -5), true},
		{DirTopLeft, pt(-5, 0), true},
		{DirBottomRight, pt(5, 5), true},
		{DirBottomLeft, pt(-5, 5), true},
		{DirBottomLeft, pt(5, 5), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.dir.Accepts(anchor, tt.target), "%s -> %v", tt.dir, tt.target)
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("Top-Right")
	require.NoError(t, err)
	assert.Equal(t, DirTopRight, d)

	d, err = ParseDirection("bottom_left")
	require.NoError(t, err)
	assert.Equal(t, DirBottomLeft, d)

	_, err = ParseDirection("north")
	assert.Error(t, err)

	var dir Direction
	require.NoError(t, dir.UnmarshalText([]byte("left")))
	assert.Equal(t, DirLeft, dir)
	b, err := dir.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "left", string(b))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "-X1", Normalize("  -X1\n"))
	assert.Equal(t, "A B", Normalize("A \t  B"))
	assert.Equal(t, "X2", Normalize("X\u200b2"))
	// decomposed e + combining acute composes to a single rune
	assert.Equal(t, "\u00e9", Normalize("e\u0301"))

	assert.Equal(t, "12", NormalizeOCR("1 2", false))
	assert.Equal(t, "10", NormalizeOCR("lO", true))
	assert.Equal(t, "lO", NormalizeOCR("lO", false))
}

func glyphs(s string, x, y, w, h float64) []Run {
	runs := make([]Run, 0, len(s))
	for i, r := range s {
		runs = append(runs, Run{Text: string(r), BBox: geometry.NewRect(x+float64(i)*w, y, w, h)})
	}
	return runs
}

func TestNewLayerJoinsGlyphs(t *testing.T) {
	var runs []Run
	runs = append(runs, glyphs("-X1", 0, 10, 3, 6)...)
	runs = append(runs, glyphs("12", 30, 10, 3, 6)...)
	runs = append(runs, glyphs("A", 0, 20, 3, 6)...)
	runs = append(runs, Run{Text: "   ", BBox: geometry.NewRect(50, 50, 3, 6)})

	layer := NewLayer(runs, 15)
	got := layer.Runs()
	require.Len(t, got, 3)
	assert.Equal(t, "-X1", got[0].Text)
	assert.Equal(t, geometry.NewRect(0, 10, 9, 6), got[0].BBox)
	assert.Equal(t, "12", got[1].Text)
	assert.Equal(t, "A", got[2].Text)
	assert.Equal(t, 3, layer.Len())
}

func TestLayerFindPrefersDirection(t *testing.T) {
	layer := NewLayer([]Run{
		{Text: "1", BBox: geometry.NewRect(23, 15, 2, 2)}, // centre (24,16), up-right
		{Text: "2", BBox: geometry.NewRect(15, 15, 2, 2)}, // centre (16,16), up-left
		{Text: "hello world", BBox: geometry.NewRect(19, 21, 2, 2)},
	}, 15)
	pattern := regexp.MustCompile(`^[a-zA-Z0-9./-]+$`)
	ctx := context.Background()

	m, ok, err := layer.Find(ctx, Query{Anchor: pt(20, 20), Radius: 20, Direction: DirTopRight, Pattern: pattern})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", m.Text)
	assert.Equal(t, OriginEmbedded, m.Origin)

	m, ok, err = layer.Find(ctx, Query{Anchor: pt(20, 20), Radius: 20, Direction: DirTopLeft, Pattern: pattern})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", m.Text)

	// nothing below; preference falls back to other sectors
	m, ok, err = layer.Find(ctx, Query{Anchor: pt(20, 20), Radius: 20, Direction: DirBottom, Pattern: pattern})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, []string{"1", "2"}, m.Text)

	_, ok, err = layer.Find(ctx, Query{Anchor: pt(20, 20), Radius: 20, Direction: DirBottom, StrictDirection: true, Pattern: pattern})
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = layer.Find(ctx, Query{Anchor: pt(200, 200), Radius: 20, Pattern: pattern})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelectBestTieBreak(t *testing.T) {
	anchor := pt(100, 100)

	// equal distance: smaller vertical offset wins
	m, ok := selectBest([]Match{
		{Text: "-X2", Center: pt(92, 94)},
		{Text: "-X1", Center: pt(90, 100)},
	}, Query{Anchor: anchor, Radius: 50, Direction: DirLeft, StrictDirection: true})
	require.True(t, ok)
	assert.Equal(t, "-X1", m.Text)

	// equal distance and offset: leftmost wins
	m, ok = selectBest([]Match{
		{Text: "-X4", Center: pt(110, 100)},
		{Text: "-X3", Center: pt(90, 100)},
	}, Query{Anchor: anchor, Radius: 50})
	require.True(t, ok)
	assert.Equal(t, "-X3", m.Text)

	// outside the y band
	_, ok = selectBest([]Match{{Text: "-X5", Center: pt(90, 130)}},
		Query{Anchor: anchor, Radius: 50, YTolerance: 15})
	assert.False(t, ok)
}

func TestSelectBestFilters(t *testing.T) {
	anchor := pt(100, 100)
	items := []Match{
		{Text: "-X1", Center: pt(96, 100)},
		{Text: "7", Center: pt(110, 90)},
		{Text: "L1", Center: pt(140, 101)},
	}

	m, ok := selectBest(items, Query{Anchor: anchor, Radius: 50})
	require.True(t, ok)
	assert.Equal(t, "-X1", m.Text)

	m, ok = selectBest(items, Query{Anchor: anchor, Radius: 50, Exclude: regexp.MustCompile(`^-?X`)})
	require.True(t, ok)
	assert.Equal(t, "7", m.Text)

	// closest to the anchor's row rather than to the anchor
	m, ok = selectBest(items, Query{Anchor: anchor, Radius: 50, RowFirst: true,
		Exclude: regexp.MustCompile(`^-?X`)})
	require.True(t, ok)
	assert.Equal(t, "L1", m.Text)

	_, ok = selectBest(items, Query{Anchor: anchor, Radius: 50,
		Accept: func(m Match) bool { return m.Center.X > 200 }})
	assert.False(t, ok)
}

type fakeSource struct {
	name  string
	match Match
	ok    bool
	err   error
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Find(ctx context.Context, q Query) (Match, bool, error) {
	f.calls++
	return f.match, f.ok, f.err
}

func TestChainFallsBack(t *testing.T) {
	embedded := &fakeSource{name: "embedded"}
	fallback := &fakeSource{name: "ocr", match: Match{Text: "7", Origin: OriginOCR}, ok: true}
	c := NewChain(embedded, nil, fallback)
	assert.Equal(t, "chain(embedded,ocr)", c.Name())

	m, ok, err := c.Find(context.Background(), Query{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "7", m.Text)
	assert.Equal(t, 1, embedded.calls)
}

func TestChainSwallowsUnavailable(t *testing.T) {
	embedded := &fakeSource{name: "embedded"}
	unavailable := &fakeSource{name: "ocr", err: ErrOCRUnavailable}
	broken := &fakeSource{name: "other", err: errors.New("tesseract crashed")}
	c := NewChain(embedded, unavailable, broken)

	for i := 0; i < 3; i++ {
		_, ok, err := c.Find(context.Background(), Query{})
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 3, unavailable.calls)
}

func TestChainReturnsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewChain(&fakeSource{name: "embedded", err: context.Canceled})
	_, _, err := c.Find(ctx, Query{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChainCompare(t *testing.T) {
	embedded := &fakeSource{name: "embedded", match: Match{Text: "1", Origin: OriginEmbedded}, ok: true}
	fallback := &fakeSource{name: "ocr", match: Match{Text: "7", Origin: OriginOCR}, ok: true}
	c := NewChain(embedded, fallback)

	m, ok, d, err := c.Compare(context.Background(), Query{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", m.Text)
	require.NotNil(t, d)
	assert.Equal(t, "7", d.Other.Text)

	fallback.match.Text = "1"
	_, _, d, err = c.Compare(context.Background(), Query{})
	require.NoError(t, err)
	assert.Nil(t, d)
}

type fakeRaster struct {
	clip raster.Clip
	err  error
}

func (f fakeRaster) Region(r geometry.Rect, zoom float64) (raster.Clip, error) {
	return f.clip, f.err
}

type fakeRecognizer struct {
	words []ocr.Word
	seen  image.Image
}

func (f *fakeRecognizer) Recognize(img image.Image, whitelist string) ([]ocr.Word, error) {
	f.seen = img
	return f.words, nil
}

func TestOCRSourceMapsWordsToPage(t *testing.T) {
	rec := &fakeRecognizer{words: []ocr.Word{
		{Text: "4 2", Bounds: image.Rect(44, 10, 56, 20), Confidence: 90},
		{Text: "9", Bounds: image.Rect(60, 60, 64, 64), Confidence: 10},
		{Text: "#", Bounds: image.Rect(40, 40, 44, 44), Confidence: 95},
	}}
	src := &OCRSource{
		Raster: fakeRaster{clip: raster.Clip{
			Image:         image.NewRGBA(image.Rect(0, 0, 80, 80)),
			Origin:        pt(30, 30),
			PixelsPerUnit: 2,
		}},
		Recognizer:    rec,
		MinConfidence: 40,
	}

	m, ok, err := src.Find(context.Background(), Query{
		Anchor:       pt(50, 50),
		Radius:       20,
		AnchorRadius: 3,
		Pattern:      regexp.MustCompile(`^[0-9]+$`),
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "42", m.Text)
	assert.Equal(t, OriginOCR, m.Origin)
	assert.InDelta(t, 55, m.Center.X, 1e-9)
	assert.InDelta(t, 37.5, m.Center.Y, 1e-9)
	assert.NotNil(t, rec.seen)
}

func TestOCRSourceUnavailable(t *testing.T) {
	var src *OCRSource
	_, _, err := src.Find(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrOCRUnavailable)

	_, _, err = (&OCRSource{Raster: fakeRaster{}}).Find(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrOCRUnavailable)
}

func TestOCRSourceOffPage(t *testing.T) {
	src := &OCRSource{Raster: fakeRaster{err: raster.ErrEmptyRegion}, Recognizer: &fakeRecognizer{}}
	_, ok, err := src.Find(context.Background(), Query{Anchor: pt(-100, -100), Radius: 5})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	data := `[{"text":"-X","bbox":{"x":10,"y":10,"width":4,"height":4}},` +
		`{"text":"1","bbox":{"x":14,"y":10,"width":2,"height":4}}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	runs, err := LoadRuns(path)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	layer := NewLayer(runs, 15)
	require.Equal(t, 1, layer.Len())
	assert.Equal(t, "-X1", layer.Runs()[0].Text)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err = LoadRuns(path)
	assert.Error(t, err)
}
