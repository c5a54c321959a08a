// Package config holds the detection settings for one analysis run.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"

	"schem-tracer/internal/text"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid detection config")

// DetectionConfig is the immutable configuration bundle for one run.
// Distances are in page units (PDF points).
type DetectionConfig struct {
	// Terminal symbol shape
	MinRadius    float64 `json:"min_radius"`
	MaxRadius    float64 `json:"max_radius"`
	MaxCV        float64 `json:"max_cv"`
	OnlyUnfilled bool    `json:"only_unfilled"`

	// Terminal label lookup
	SearchRadius float64        `json:"search_radius"`
	Direction    text.Direction `json:"direction"`
	YTolerance   float64        `json:"y_tolerance"`
	LabelPattern string         `json:"label_pattern"`

	// Group markers and inheritance
	GroupSearchRadius   float64 `json:"group_search_radius"`
	GroupPattern        string  `json:"group_pattern"`
	VerticalXTolerance  float64 `json:"vertical_x_tolerance"`
	VerticalMaxDistance float64 `json:"vertical_max_distance"`

	// Component pins
	PinSearchRadius float64 `json:"pin_search_radius"`
	PinPattern      string  `json:"pin_pattern"`
	PinMaxLength    int     `json:"pin_max_length"`

	// Connectivity
	ConnectionTolerance float64 `json:"connection_tolerance"`
	// BusbarLabels names nets after supply rail labels ("+24V", "L1")
	// written along their leftmost horizontal wire.
	BusbarLabels bool `json:"busbar_labels"`

	// OCR fallback
	OCRPadding       float64 `json:"ocr_padding"`
	OCRZoom          float64 `json:"ocr_zoom"`
	OCRMinConfidence float64 `json:"ocr_min_confidence"`
	OCRWorkers       int     `json:"ocr_workers"`
	// CheckDisagreement also reads the OCR fallback when embedded text was
	// found and records any mismatch.
	CheckDisagreement bool `json:"check_disagreement,omitempty"`
}

// Default returns settings tuned for IEC-style terminal strip drawings.
func Default() DetectionConfig {
	return DetectionConfig{
		// Terminal circles are ~6pt across and drawn as open outlines
		MinRadius:    2.5,
		MaxRadius:    3.5,
		MaxCV:        0.01,
		OnlyUnfilled: true,

		SearchRadius: 20,
		Direction:    text.DirTopRight,
		YTolerance:   15,
		LabelPattern: `^[a-zA-Z0-9./-]+$`,

		GroupSearchRadius:   100,
		GroupPattern:        `^-?X.*`,
		VerticalXTolerance:  5,
		VerticalMaxDistance: 50,

		PinSearchRadius: 75,
		PinPattern:      `^[a-zA-Z0-9./+-]+$`,
		PinMaxLength:    12,

		ConnectionTolerance: 3,
		BusbarLabels:        true,

		OCRPadding:       15,
		OCRZoom:          3,
		OCRMinConfidence: 40,
		OCRWorkers:       runtime.NumCPU(),
	}
}

// Patterns holds the compiled label expressions.
type Patterns struct {
	Label *regexp.Regexp
	Group *regexp.Regexp
	Pin   *regexp.Regexp
}

// Compile compiles the label expressions.
func (c DetectionConfig) Compile() (Patterns, error) {
	var p Patterns
	var err error
	if p.Label, err = regexp.Compile(c.LabelPattern); err != nil {
		return Patterns{}, fmt.Errorf("%w: label_pattern: %v", ErrInvalidConfig, err)
	}
	if p.Group, err = regexp.Compile(c.GroupPattern); err != nil {
		return Patterns{}, fmt.Errorf("%w: group_pattern: %v", ErrInvalidConfig, err)
	}
	if p.Pin, err = regexp.Compile(c.PinPattern); err != nil {
		return Patterns{}, fmt.Errorf("%w: pin_pattern: %v", ErrInvalidConfig, err)
	}
	return p, nil
}

// Validate checks ranges and patterns.
func (c DetectionConfig) Validate() error {
	switch {
	case c.MinRadius < 0 || c.MaxRadius < c.MinRadius:
		return fmt.Errorf("%w: radius range [%g, %g]", ErrInvalidConfig, c.MinRadius, c.MaxRadius)
	case c.MaxCV < 0:
		return fmt.Errorf("%w: max_cv %g is negative", ErrInvalidConfig, c.MaxCV)
	case c.SearchRadius <= 0 || c.PinSearchRadius <= 0 || c.GroupSearchRadius <= 0:
		return fmt.Errorf("%w: search radii must be positive", ErrInvalidConfig)
	case c.YTolerance < 0 || c.VerticalXTolerance < 0 || c.VerticalMaxDistance < 0:
		return fmt.Errorf("%w: tolerances must not be negative", ErrInvalidConfig)
	case c.ConnectionTolerance < 0:
		return fmt.Errorf("%w: connection_tolerance %g is negative", ErrInvalidConfig, c.ConnectionTolerance)
	case c.OCRMinConfidence < 0 || c.OCRMinConfidence > 100:
		return fmt.Errorf("%w: ocr_min_confidence %g outside 0-100", ErrInvalidConfig, c.OCRMinConfidence)
	}
	if !c.Direction.Valid() {
		return fmt.Errorf("%w: unknown direction %d", ErrInvalidConfig, c.Direction)
	}
	_, err := c.Compile()
	return err
}

// Workers returns the OCR parallelism, at least 1.
func (c DetectionConfig) Workers() int {
	if c.OCRWorkers < 1 {
		return 1
	}
	return c.OCRWorkers
}

// Load reads a config file. Fields missing from the file keep their defaults.
func Load(path string) (DetectionConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config as indented JSON.
func (c DetectionConfig) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}
