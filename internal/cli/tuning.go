package cli

import (
	"schem-tracer/internal/config"
	"schem-tracer/internal/text"

	"github.com/spf13/pflag"
)

// tuningOptions override single detection settings on top of the config
// file. Only flags given on the command line are applied.
type tuningOptions struct {
	minRadius       float64
	maxRadius       float64
	maxCV           float64
	allowFilled     bool
	searchRadius    float64
	yTolerance      float64
	direction       string
	pinSearchRadius float64
	tolerance       float64
	ocrZoom         float64
	ocrConfidence   float64
	ocrWorkers      int
	noBusbar        bool
}

func addTuningFlags(f *pflag.FlagSet, t *tuningOptions) {
	def := config.Default()
	f.Float64Var(&t.minRadius, "min-radius", def.MinRadius, "smallest terminal circle radius")
	f.Float64Var(&t.maxRadius, "max-radius", def.MaxRadius, "largest terminal circle radius")
	f.Float64Var(&t.maxCV, "max-cv", def.MaxCV, "roundness limit (radius coefficient of variation)")
	f.BoolVar(&t.allowFilled, "allow-filled", false, "also accept filled circles as terminals")
	f.Float64Var(&t.searchRadius, "search-radius", def.SearchRadius, "terminal label search radius")
	f.Float64Var(&t.yTolerance, "y-tolerance", def.YTolerance, "vertical band for labels, markers and rows")
	f.StringVar(&t.direction, "direction", "", "label search direction (overrides the config)")
	f.Float64Var(&t.pinSearchRadius, "pin-search-radius", def.PinSearchRadius, "pin label search radius")
	f.Float64Var(&t.tolerance, "tolerance", def.ConnectionTolerance, "distance at which entities touch a wire")
	f.Float64Var(&t.ocrZoom, "ocr-zoom", def.OCRZoom, "zoom applied to OCR clips")
	f.Float64Var(&t.ocrConfidence, "ocr-min-confidence", def.OCRMinConfidence, "drop OCR words below this confidence (0-100)")
	f.IntVar(&t.ocrWorkers, "workers", 0, "parallel label lookups (default: number of CPUs)")
	f.BoolVar(&t.noBusbar, "no-busbar", false, "do not name nets after supply rail labels")
}

// applyTuning returns cfg with every changed tuning flag applied.
func applyTuning(f *pflag.FlagSet, t tuningOptions, cfg config.DetectionConfig) (config.DetectionConfig, error) {
	changed := func(names ...string) bool {
		for _, n := range names {
			if f.Changed(n) {
				return true
			}
		}
		return false
	}
	pick := func(name string, flag, current float64) float64 {
		if f.Changed(name) {
			return flag
		}
		return current
	}

	if changed("min-radius", "max-radius") {
		cfg = cfg.WithRadius(pick("min-radius", t.minRadius, cfg.MinRadius), pick("max-radius", t.maxRadius, cfg.MaxRadius))
	}
	if changed("max-cv", "allow-filled") {
		onlyUnfilled := cfg.OnlyUnfilled
		if f.Changed("allow-filled") {
			onlyUnfilled = !t.allowFilled
		}
		cfg = cfg.WithRoundness(pick("max-cv", t.maxCV, cfg.MaxCV), onlyUnfilled)
	}
	if changed("search-radius", "y-tolerance") {
		cfg = cfg.WithSearch(pick("search-radius", t.searchRadius, cfg.SearchRadius), cfg.Direction,
			pick("y-tolerance", t.yTolerance, cfg.YTolerance))
	}
	if t.direction != "" {
		dir, err := text.ParseDirection(t.direction)
		if err != nil {
			return cfg, err
		}
		cfg = cfg.WithDirection(dir)
	}
	if changed("pin-search-radius") {
		cfg = cfg.WithPinSearch(t.pinSearchRadius)
	}
	if changed("tolerance") {
		cfg = cfg.WithConnectionTolerance(t.tolerance)
	}
	if changed("ocr-zoom", "ocr-min-confidence", "workers") {
		var zoom, confidence float64
		var workers int
		if f.Changed("ocr-zoom") {
			zoom = t.ocrZoom
		}
		if f.Changed("ocr-min-confidence") {
			confidence = t.ocrConfidence
		}
		if f.Changed("workers") {
			workers = t.ocrWorkers
		}
		cfg = cfg.WithOCR(0, zoom, confidence, workers)
	}
	if t.noBusbar {
		cfg.BusbarLabels = false
	}
	return cfg, cfg.Validate()
}
