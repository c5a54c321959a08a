package config

import "schem-tracer/internal/text"

// WithRadius returns a copy of c with a different terminal radius range.
func (c DetectionConfig) WithRadius(minRadius, maxRadius float64) DetectionConfig {
	c.MinRadius = minRadius
	c.MaxRadius = maxRadius
	return c
}

// WithRoundness returns a copy of c with a different CV ceiling and fill requirement.
func (c DetectionConfig) WithRoundness(maxCV float64, onlyUnfilled bool) DetectionConfig {
	c.MaxCV = maxCV
	c.OnlyUnfilled = onlyUnfilled
	return c
}

// WithSearch returns a copy of c with different label lookup geometry.
func (c DetectionConfig) WithSearch(radius float64, dir text.Direction, yTolerance float64) DetectionConfig {
	c.SearchRadius = radius
	c.Direction = dir
	c.YTolerance = yTolerance
	return c
}

// WithDirection returns a copy of c that prefers labels on another side.
func (c DetectionConfig) WithDirection(dir text.Direction) DetectionConfig {
	c.Direction = dir
	return c
}

// WithPinSearch returns a copy of c with a different pin label radius.
func (c DetectionConfig) WithPinSearch(radius float64) DetectionConfig {
	c.PinSearchRadius = radius
	return c
}

// WithConnectionTolerance returns a copy of c with a different snapping distance
// between entities and wire geometry.
func (c DetectionConfig) WithConnectionTolerance(tol float64) DetectionConfig {
	c.ConnectionTolerance = tol
	return c
}

// WithOCR returns a copy of c with different fallback tuning.
// Zero values leave the current setting alone.
func (c DetectionConfig) WithOCR(padding, zoom, minConfidence float64, workers int) DetectionConfig {
	if padding > 0 {
		c.OCRPadding = padding
	}
	if zoom > 0 {
		c.OCRZoom = zoom
	}
	if minConfidence > 0 {
		c.OCRMinConfidence = minConfidence
	}
	if workers > 0 {
		c.OCRWorkers = workers
	}
	return c
}
